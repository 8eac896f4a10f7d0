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
	cfg := config.MustLoadIndexerConfig()
	log := logging.SetupLogger(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.NewIndexerServer(cfg, log)

	log.Info("starting indexer", "topic", cfg.Kafka.Topic, "index", cfg.Elastic.Index)
	if err := srv.Run(ctx); err != nil {
		log.Error("indexer run error", logging.Err(err))
		return
	}
}
