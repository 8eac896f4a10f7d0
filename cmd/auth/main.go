package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Novip1906/todo-api/internal/app"
	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/pkg/logging"
)

func main() {
	cfg := config.MustLoadAuthConfig()
	log := logging.SetupLogger(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.NewAuthServer(cfg, log)

	log.Info("starting server", "address", cfg.Address)
	if err := srv.Run(ctx); err != nil {
		log.Error("server run error", logging.Err(err))
		return
	}
}
