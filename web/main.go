package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/config"
	"uamvh.cloud/escolar/core"
	"uamvh.cloud/escolar/web/handlers"
)

func main() {
	path := flag.String("config", os.Getenv("ESCOLAR_CONFIG"), "path to escolar.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *path)
	if err != nil {
		log.Fatal(err)
	}

	app, err := core.New(ctx, cfg, core.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()
	logger := app.Logger

	r, err := handlers.NewRouter(handlers.Options{
		Service:       app.Service,
		Session:       app.Session,
		SigningSecret: cfg.Gateway.SigningSecret,
		TokenTTL:      cfg.Gateway.TokenTTL,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	go app.Service.Tracker.Watch(ctx, cfg.Sync.WatchInterval)
	go app.Service.Attendances.RunSweeper(ctx, cfg.Sync.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Gateway.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("gateway listening", zap.String("addr", cfg.Gateway.Addr), zap.String("api", cfg.API.URL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
