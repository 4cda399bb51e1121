// Package core wires the client together from a loaded configuration:
// logger, local store, API client, session and the offline service.
package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/config"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/infrastructure/communication"
	"uamvh.cloud/escolar/infrastructure/filesystem"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/security"
	"uamvh.cloud/escolar/store"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    store.Store
	Client   *v1.EscolarClient
	Session  *security.Session
	Service  *offline.Service
	Notifier notify.Notifier
	Files    *filesystem.Files

	closeStore func() error
}

type Options struct {
	// Notifier receives user-facing notifications in addition to the log,
	// Slack and email.
	Notifier notify.Notifier
	// Logger replaces the logger built from the configuration.
	Logger *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	s, closeStore, err := store.Open(cfg.Store.Driver, cfg.Store.DSN, store.ParseLogLevel(cfg.Store.LogLevel))
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.Slack.Token != "" {
		slack := communication.NewSlack(cfg.Slack.Token, cfg.Slack.SlackOption)
		notifiers = append(notifiers, notify.NewSlack(slack, logger, cfg.Slack.Verbose))
	}
	if cfg.AWS.From != "" {
		email, err := communication.NewEmail(ctx, cfg.AWS.Region, cfg.AWS.EmailOption)
		if err != nil {
			closeStore()
			return nil, err
		}
		notifiers = append(notifiers, notify.NewEmail(email, logger))
	}
	if opts.Notifier != nil {
		notifiers = append(notifiers, opts.Notifier)
	}

	client := v1.NewEscolarClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout)
	session := security.NewSession(s, client, logger)

	svc, err := offline.NewService(client, s, notifiers, logger, offline.ServiceOptions{
		PingTimeout: cfg.API.PingTimeout,
		Sync: offline.SyncOptions{
			Policy:      offline.Policy(cfg.Sync.Policy),
			MaxAttempts: cfg.Sync.MaxAttempts,
		},
		SyncOnReconnect: cfg.Sync.OnReconnect,
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      s,
		Client:     client,
		Session:    session,
		Service:    svc,
		Notifier:   notifiers,
		Files:      filesystem.NewFiles(cfg.AWS.S3Option),
		closeStore: closeStore,
	}

	// a token from the configuration wins over the stored session
	if cfg.API.Token == "" {
		if _, err := session.Restore(ctx); err != nil && !errors.Is(err, security.ErrNotLoggedIn) {
			logger.Warn("stored session", zap.Error(err))
		}
	}
	return app, nil
}

// Close flushes the logger and releases the store.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.closeStore == nil {
		return nil
	}
	if err := a.closeStore(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
