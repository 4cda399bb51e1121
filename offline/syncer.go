package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/store"
)

// Policy decides what a failed replay does to the rest of the pass.
type Policy string

const (
	// ContinueOnError holds back the failed action and later actions on
	// the same entity, and keeps replaying unrelated ones.
	ContinueOnError Policy = "continue"
	// StopOnError ends the pass at the first failure.
	StopOnError Policy = "stop"
)

const DefaultMaxAttempts = 5

// Reconciler is told about every replayed action so caches can swap
// placeholders for server ids. settled is true when no later action for
// the same entity is still queued.
type Reconciler interface {
	Reconcile(ctx context.Context, a Action, serverID int64, settled bool) error
}

// Discarder is told about every dead-lettered action so caches can drop
// the optimistic changes the server will never see.
type Discarder interface {
	Discard(ctx context.Context, a Action) error
}

// Refresher reloads a cache from the server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type SyncOptions struct {
	Policy      Policy
	MaxAttempts int
}

type SyncReport struct {
	Synced       int      `json:"synced"`
	Failed       int      `json:"failed"`
	Blocked      int      `json:"blocked"`
	DeadLettered int      `json:"deadLettered"`
	Remaining    int      `json:"remaining"`
	FailedIDs    []string `json:"failedIds,omitempty"`
}

// Syncer replays the action log against the API.
type Syncer struct {
	log         *ActionLog
	tracker     *Tracker
	handlers    map[EntityType]Handler
	notifier    notify.Notifier
	logger      *zap.Logger
	opts        SyncOptions
	reconcilers []Reconciler
	discarders  []Discarder
	refreshers  []Refresher
	mu          sync.Mutex
}

func NewSyncer(log *ActionLog, tracker *Tracker, handlers map[EntityType]Handler, notifier notify.Notifier, logger *zap.Logger, opts SyncOptions) (*Syncer, error) {
	for t, h := range handlers {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, t)
		}
		if h == nil {
			return nil, fmt.Errorf("nil handler for %s", t)
		}
	}
	if opts.Policy == "" {
		opts.Policy = ContinueOnError
	}
	if opts.Policy != ContinueOnError && opts.Policy != StopOnError {
		return nil, fmt.Errorf("unknown sync policy %q", opts.Policy)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &Syncer{
		log:      log,
		tracker:  tracker,
		handlers: handlers,
		notifier: notifier,
		logger:   logging.OrNop(logger).Named("sync"),
		opts:     opts,
	}, nil
}

// Register attaches caches that must follow the replay. v may implement
// any of Reconciler, Discarder and Refresher.
func (s *Syncer) Register(vs ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vs {
		if r, ok := v.(Reconciler); ok {
			s.reconcilers = append(s.reconcilers, r)
		}
		if d, ok := v.(Discarder); ok {
			s.discarders = append(s.discarders, d)
		}
		if r, ok := v.(Refresher); ok {
			s.refreshers = append(s.refreshers, r)
		}
	}
}

type verdict int

const (
	verdictKeep verdict = iota
	verdictDone
	verdictDead
)

type outcome struct {
	verdict verdict
	action  Action
}

// Sync replays every queued action in insertion order. It returns
// ErrServerUnreachable without touching the queue when the server does
// not answer.
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report SyncReport
	if !s.tracker.Reachable(ctx) {
		return report, ErrServerUnreachable
	}

	actions, err := s.log.List(ctx)
	if err != nil {
		return report, err
	}
	if len(actions) == 0 {
		return report, nil
	}
	s.logger.Info("sync started", zap.Int("queued", len(actions)))

	results := make(map[string]outcome, len(actions))
	// held maps an entity to the reason later actions on it must wait
	held := map[string]string{}
	dead := map[string]string{}
	// confirmed maps client ids to server ids assigned during this pass
	confirmed := map[string]string{}
	stopped := false

	for i, a := range actions {
		if stopped {
			break
		}
		if id, ok := confirmed[a.EntityID]; ok {
			a.EntityID = id
		}
		tgt := a.target()

		if reason, ok := dead[tgt]; ok {
			a.LastError = reason
			results[a.ID] = outcome{verdictDead, a}
			report.DeadLettered++
			continue
		}
		if _, ok := held[tgt]; ok {
			results[a.ID] = outcome{verdictKeep, a}
			report.Blocked++
			continue
		}
		if a.Action != KindCreate {
			if _, ok := a.ServerID(); !ok {
				// no earlier create in the queue can ever give this
				// entity a server id
				a.LastError = "no queued create for " + a.EntityID
				results[a.ID] = outcome{verdictDead, a}
				report.DeadLettered++
				dead[tgt] = a.LastError
				s.logger.Warn("orphaned action dead-lettered",
					zap.String("id", a.ID),
					zap.String("type", string(a.Type)),
					zap.String("entity", a.EntityID))
				continue
			}
		}

		serverID, err := s.replay(ctx, a)
		if err == nil {
			results[a.ID] = outcome{verdictDone, a}
			report.Synced++
			if a.Action == KindCreate {
				if serverID > 0 {
					confirmed[a.EntityID] = strconv.FormatInt(serverID, 10)
				} else {
					dead[tgt] = "created entity returned no id"
				}
			} else {
				serverID, _ = a.ServerID()
			}
			s.reconcile(ctx, a, serverID, !pendingAfter(actions[i+1:], a, confirmed))
			continue
		}

		report.Failed++
		report.FailedIDs = append(report.FailedIDs, a.ID)
		a.Attempts++
		a.LastError = err.Error()
		s.logger.Warn("action replay failed",
			zap.String("id", a.ID),
			zap.String("type", string(a.Type)),
			zap.String("action", string(a.Action)),
			zap.String("entity", a.EntityID),
			zap.Int("attempts", a.Attempts),
			zap.Error(err))

		switch {
		case s.opts.Policy == StopOnError:
			results[a.ID] = outcome{verdictKeep, a}
			stopped = true
		case permanent(err) || a.Attempts >= s.opts.MaxAttempts:
			results[a.ID] = outcome{verdictDead, a}
			report.DeadLettered++
			dead[tgt] = fmt.Sprintf("depends on dead-lettered action %s", a.ID)
		default:
			results[a.ID] = outcome{verdictKeep, a}
			held[tgt] = a.ID
		}
	}

	var deadLetters []Action
	err = s.log.update(ctx, store.KeyOfflineActions, func(current []Action) []Action {
		next := make([]Action, 0, len(current))
		for _, a := range current {
			res, ok := results[a.ID]
			if !ok {
				if id, ok := confirmed[a.EntityID]; ok {
					a.EntityID = id
				}
				next = append(next, a)
				continue
			}
			switch res.verdict {
			case verdictKeep:
				next = append(next, res.action)
			case verdictDead:
				deadLetters = append(deadLetters, res.action)
			}
		}
		report.Remaining = len(next)
		return next
	})
	if err != nil {
		return report, fmt.Errorf("persist action log: %w", err)
	}
	if err := s.log.deadLetter(ctx, deadLetters); err != nil {
		return report, fmt.Errorf("persist dead letters: %w", err)
	}
	for _, a := range deadLetters {
		s.discard(ctx, a)
	}

	if report.Synced > 0 || report.DeadLettered > 0 {
		s.refresh(ctx)
	}
	s.announce(ctx, report, len(actions)-report.Synced-report.DeadLettered)
	s.logger.Info("sync finished",
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("blocked", report.Blocked),
		zap.Int("deadLettered", report.DeadLettered),
		zap.Int("remaining", report.Remaining))
	return report, nil
}

func (s *Syncer) replay(ctx context.Context, a Action) (int64, error) {
	h, ok := s.handlers[a.Type]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, a.Type)
	}

	switch a.Action {
	case KindCreate:
		return h.Create(ctx, a.Data)
	case KindUpdate:
		id, _ := a.ServerID()
		return id, h.Update(ctx, id, a.Data)
	case KindDelete:
		id, _ := a.ServerID()
		err := h.Delete(ctx, id)
		if v1.StatusCode(err) == http.StatusNotFound {
			// already gone
			return id, nil
		}
		return id, err
	}
	return 0, fmt.Errorf("unknown action %q", a.Action)
}

func (s *Syncer) reconcile(ctx context.Context, a Action, serverID int64, settled bool) {
	for _, r := range s.reconcilers {
		if err := r.Reconcile(ctx, a, serverID, settled); err != nil {
			s.logger.Warn("reconcile failed", zap.String("id", a.ID), zap.Error(err))
		}
	}
}

func (s *Syncer) discard(ctx context.Context, a Action) {
	for _, d := range s.discarders {
		if err := d.Discard(ctx, a); err != nil {
			s.logger.Warn("discard failed", zap.String("id", a.ID), zap.Error(err))
		}
	}
}

func (s *Syncer) refresh(ctx context.Context) {
	for _, r := range s.refreshers {
		if err := r.Refresh(ctx); err != nil {
			s.logger.Warn("refresh after sync failed", zap.Error(err))
		}
	}
}

func (s *Syncer) announce(ctx context.Context, r SyncReport, waiting int) {
	if r.Synced > 0 {
		notify.Success(ctx, s.notifier, fmt.Sprintf("%d acciones sincronizadas exitosamente", r.Synced))
	}
	if waiting > 0 {
		msg := fmt.Sprintf("%d acciones no se pudieron sincronizar", waiting)
		if len(r.FailedIDs) > 0 {
			msg += ": " + strings.Join(r.FailedIDs, ", ")
		}
		notify.Warning(ctx, s.notifier, msg)
	}
	if r.DeadLettered > 0 {
		notify.Error(ctx, s.notifier, fmt.Sprintf("%d acciones descartadas tras varios intentos", r.DeadLettered))
	}
}

// SyncOnReconnect wires the syncer to the tracker's reconnect event.
func (s *Syncer) SyncOnReconnect() {
	s.tracker.OnReconnect(func(ctx context.Context) {
		if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrServerUnreachable) {
			s.logger.Error("sync after reconnect failed", zap.Error(err))
		}
	})
}

// permanent reports failures that retrying cannot fix.
func permanent(err error) bool {
	if errors.Is(err, ErrUnknownEntity) || errors.Is(err, ErrUnsupported) {
		return true
	}
	switch v1.StatusCode(err) {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// pendingAfter reports whether a later queued action targets the same
// entity as a.
func pendingAfter(rest []Action, a Action, confirmed map[string]string) bool {
	for _, b := range rest {
		id := b.EntityID
		if c, ok := confirmed[id]; ok {
			id = c
		}
		if b.Type == a.Type && (id == a.EntityID || b.EntityID == a.EntityID) {
			return true
		}
	}
	return false
}
