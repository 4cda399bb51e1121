package offline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/store"
)

// Service bundles every offline-aware repository around one API client
// and one local store.
type Service struct {
	Client      *v1.EscolarClient
	Tracker     *Tracker
	Log         *ActionLog
	Gateway     *Gateway
	Syncer      *Syncer
	Students    *Repository[common.StudentDTO]
	Groups      *Repository[common.GroupDTO]
	Periods     *Repository[common.PeriodDTO]
	Courses     *Repository[common.CourseDTO]
	Attendances *AttendanceStore
	Grades      *GradeStore
}

type ServiceOptions struct {
	PingTimeout time.Duration
	Sync        SyncOptions
	// SyncOnReconnect replays the queue whenever the tracker comes back
	// online.
	SyncOnReconnect bool
}

func NewService(client *v1.EscolarClient, s store.Store, notifier notify.Notifier, logger *zap.Logger, opts ServiceOptions) (*Service, error) {
	logger = logging.OrNop(logger)
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}

	tracker := NewTracker(client, opts.PingTimeout, logger)
	log := NewActionLog(s, logger)
	gw := NewGateway(tracker, log, notifier, logger)

	syncer, err := NewSyncer(log, tracker, Handlers(client), notifier, logger, opts.Sync)
	if err != nil {
		return nil, fmt.Errorf("create syncer: %w", err)
	}

	svc := &Service{
		Client:  client,
		Tracker: tracker,
		Log:     log,
		Gateway: gw,
		Syncer:  syncer,
		Students: NewRepository(gw, s, RepositoryConfig[common.StudentDTO]{
			Type:     EntityStudent,
			Key:      store.KeyOfflineStudents,
			Messages: MessagesFor("Estudiante"),
			Resource: Students(client),
			SetID:    func(v *common.StudentDTO, id int64) { v.ID = id },
		}),
		Groups: NewRepository(gw, s, RepositoryConfig[common.GroupDTO]{
			Type:     EntityGroup,
			Key:      store.KeyOfflineGroups,
			Messages: MessagesFor("Grupo"),
			Resource: Groups(client),
			SetID:    func(v *common.GroupDTO, id int64) { v.ID = id },
		}),
		Periods: NewRepository(gw, s, RepositoryConfig[common.PeriodDTO]{
			Type:     EntityPeriod,
			Key:      store.KeyOfflinePeriods,
			Messages: MessagesFor("Periodo"),
			Resource: Periods(client),
			SetID:    func(v *common.PeriodDTO, id int64) { v.ID = id },
		}),
		Courses: NewRepository(gw, s, RepositoryConfig[common.CourseDTO]{
			Type:     EntityCourse,
			Key:      store.KeyOfflineCourses,
			Messages: MessagesFor("Curso"),
			Resource: Courses(client),
			SetID:    func(v *common.CourseDTO, id int64) { v.ID = id },
		}),
		Attendances: NewAttendanceStore(gw, s, Attendances(client)),
		Grades:      NewGradeStore(gw, s, EvaluationGrades(client), PartialGrades(client), FinalGrades(client)),
	}

	syncer.Register(svc.Students, svc.Groups, svc.Periods, svc.Courses, svc.Attendances, svc.Grades)
	if opts.SyncOnReconnect {
		syncer.SyncOnReconnect()
	}
	return svc, nil
}

// Sync replays the queue now.
func (s *Service) Sync(ctx context.Context) (SyncReport, error) {
	return s.Syncer.Sync(ctx)
}

type Status struct {
	Online      bool     `json:"online"`
	Reachable   bool     `json:"reachable"`
	Pending     int      `json:"pending"`
	DeadLetters int      `json:"deadLetters"`
	Actions     []Action `json:"actions,omitempty"`
}

// Status reports connectivity and queue depth.
func (s *Service) Status(ctx context.Context, withActions bool) (Status, error) {
	actions, err := s.Log.List(ctx)
	if err != nil {
		return Status{}, err
	}
	dead, err := s.Log.DeadLetters(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Online:      s.Tracker.IsOnline(),
		Reachable:   s.Tracker.Reachable(ctx),
		Pending:     len(actions),
		DeadLetters: len(dead),
	}
	if withActions {
		st.Actions = actions
	}
	return st, nil
}
