// Package notify delivers the user-facing outcome of every operation.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/communication"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/utils"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

func Success(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notification{Level: LevelSuccess, Message: msg})
}

func Info(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notification{Level: LevelInfo, Message: msg})
}

func Warning(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notification{Level: LevelWarning, Message: msg})
}

func Error(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notification{Level: LevelError, Message: msg})
}

// Log writes notifications to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logging.OrNop(logger).Named("notify")}
}

func (l *Log) Notify(_ context.Context, n Notification) {
	switch n.Level {
	case LevelError:
		l.logger.Error(n.Message)
	case LevelWarning:
		l.logger.Warn(n.Message)
	default:
		l.logger.Info(n.Message, zap.String("level", string(n.Level)))
	}
}

// Slack forwards warnings and errors, and optionally everything else, to
// Slack channels.
type Slack struct {
	slack   *communication.Slack
	logger  *zap.Logger
	verbose bool
}

func NewSlack(s *communication.Slack, logger *zap.Logger, verbose bool) *Slack {
	return &Slack{slack: s, logger: logging.OrNop(logger), verbose: verbose}
}

func (s *Slack) Notify(ctx context.Context, n Notification) {
	var err error
	switch n.Level {
	case LevelError, LevelWarning:
		err = s.slack.Error(ctx, n.Message)
	default:
		if !s.verbose {
			return
		}
		err = s.slack.Info(ctx, n.Message)
	}
	if err != nil {
		s.logger.Warn("slack notification failed", zap.Error(err))
	}
}

// Email mails error notifications to the administrators.
type Email struct {
	email  *communication.Email
	logger *zap.Logger
}

func NewEmail(e *communication.Email, logger *zap.Logger) *Email {
	return &Email{email: e, logger: logging.OrNop(logger)}
}

func (e *Email) Notify(ctx context.Context, n Notification) {
	if n.Level != LevelError {
		return
	}
	subject := "Escolar: " + utils.Truncate(n.Message, 60)
	if err := e.email.Send(ctx, subject, n.Message); err != nil {
		e.logger.Warn("email notification failed", zap.Error(err))
	}
}

// Multi fans out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *Recorder) Count(level Level) int {
	n := 0
	for _, item := range r.All() {
		if item.Level == level {
			n++
		}
	}
	return n
}

func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}
