package offline

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/notify"
)

type Outcome string

const (
	OutcomeOnline Outcome = "online"
	OutcomeQueued Outcome = "queued"
)

// Messages are the notifications shown for one entity.
type Messages struct {
	Created        string
	Updated        string
	Deleted        string
	CreatedOffline string
	UpdatedOffline string
	DeletedOffline string
	Failed         string
}

func MessagesFor(noun string) Messages {
	return Messages{
		Created:        noun + " creado exitosamente",
		Updated:        noun + " actualizado exitosamente",
		Deleted:        noun + " eliminado exitosamente",
		CreatedOffline: noun + " guardado offline. Se sincronizará cuando haya conexión.",
		UpdatedOffline: "Cambios guardados offline. Se sincronizarán cuando haya conexión.",
		DeletedOffline: "Eliminación guardada offline. Se sincronizará cuando haya conexión.",
		Failed:         "No se pudo guardar " + noun,
	}
}

func (m Messages) online(k Kind) string {
	switch k {
	case KindCreate:
		return m.Created
	case KindUpdate:
		return m.Updated
	}
	return m.Deleted
}

func (m Messages) queued(k Kind) string {
	switch k {
	case KindCreate:
		return m.CreatedOffline
	case KindUpdate:
		return m.UpdatedOffline
	}
	return m.DeletedOffline
}

// Mutation describes one write and how to apply it in each mode.
type Mutation struct {
	Type     EntityType
	Kind     Kind
	EntityID string
	Data     any
	Messages Messages

	// Online performs the remote call.
	Online func(ctx context.Context) error
	// Local applies the change to the cache when the write is queued.
	Local func(ctx context.Context) error
	// Refresh reloads the cache after an online success.
	Refresh func(ctx context.Context) error
}

// Gateway runs the shared write pattern: online when the server answers,
// otherwise queue the action and mutate the cache optimistically.
type Gateway struct {
	tracker  *Tracker
	log      *ActionLog
	notifier notify.Notifier
	logger   *zap.Logger
	validate *validator.Validate
}

func NewGateway(tracker *Tracker, log *ActionLog, notifier notify.Notifier, logger *zap.Logger) *Gateway {
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &Gateway{
		tracker:  tracker,
		log:      log,
		notifier: notifier,
		logger:   logging.OrNop(logger).Named("gateway"),
		validate: newValidator(),
	}
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (g *Gateway) Tracker() *Tracker { return g.tracker }

func (g *Gateway) Log() *ActionLog { return g.log }

func (g *Gateway) Notifier() notify.Notifier { return g.notifier }

func (g *Gateway) Logger() *zap.Logger { return g.logger }

// Validate checks a payload and notifies the user when it is rejected.
func (g *Gateway) Validate(ctx context.Context, v any) error {
	if err := g.validate.Struct(v); err != nil {
		notify.Error(ctx, g.notifier, "Datos inválidos")
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// Reachable reports whether a write for the entity may go online. An
// entity with queued actions stays offline until they replay so its
// changes reach the server in order.
func (g *Gateway) Reachable(ctx context.Context, t EntityType, entityID string) bool {
	pending, err := g.log.Pending(ctx, t, entityID)
	if err != nil {
		g.logger.Warn("failed to read action log", zap.Error(err))
		return false
	}
	if pending {
		return false
	}
	return g.tracker.Reachable(ctx)
}

func (g *Gateway) Mutate(ctx context.Context, m Mutation) (Outcome, error) {
	if m.Online != nil && g.Reachable(ctx, m.Type, m.EntityID) {
		err := m.Online(ctx)
		if err == nil {
			notify.Success(ctx, g.notifier, m.Messages.online(m.Kind))
			if m.Refresh != nil {
				if err := m.Refresh(ctx); err != nil {
					g.logger.Warn("refresh after write failed", zap.String("type", string(m.Type)), zap.Error(err))
				}
			}
			return OutcomeOnline, nil
		}
		g.logger.Warn("online write failed, saving offline",
			zap.String("type", string(m.Type)),
			zap.String("action", string(m.Kind)),
			zap.Int("status", v1.StatusCode(err)),
			zap.Error(err))
	}

	if err := g.Queue(ctx, m); err != nil {
		notify.Error(ctx, g.notifier, m.Messages.Failed)
		return "", err
	}
	notify.Info(ctx, g.notifier, m.Messages.queued(m.Kind))
	return OutcomeQueued, nil
}

// Queue records the mutation and applies it locally without notifying.
func (g *Gateway) Queue(ctx context.Context, m Mutation) error {
	action, err := NewAction(m.Type, m.Kind, m.EntityID, m.Data)
	if err != nil {
		return err
	}
	if err := g.log.Save(ctx, action); err != nil {
		return fmt.Errorf("queue %s %s: %w", m.Kind, m.Type, err)
	}
	if m.Local != nil {
		// the queued action is authoritative; the next refresh replays it
		// over the server list
		if err := m.Local(ctx); err != nil {
			g.logger.Warn("local cache update failed",
				zap.String("type", string(m.Type)),
				zap.String("entity", m.EntityID),
				zap.Error(err))
		}
	}
	return nil
}
