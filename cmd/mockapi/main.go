package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/mockapi"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8081", "listen address")
	users := flag.String("users", "maestro@uamvh.mx:escolar", "comma separated email:password pairs")
	flag.Parse()

	logger, err := logging.New("debug", "console")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	api := mockapi.New(logger)
	for _, pair := range strings.Split(*users, ",") {
		email, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			logger.Fatal("invalid user", zap.String("user", pair))
		}
		api.AddUser(email, password)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("mock school API listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
