package app

import (
	"context"
	"log/slog"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/elasticsearch"
	"github.com/Novip1906/todo-api/internal/indexer"
	"github.com/Novip1906/todo-api/internal/kafka"
)

// IndexerServer follows the task event topic into the search index.
type IndexerServer struct {
	cfg      *config.IndexerConfig
	log      *slog.Logger
	consumer *kafka.Consumer
}

func NewIndexerServer(cfg *config.IndexerConfig, log *slog.Logger) *IndexerServer {
	es, err := elasticsearch.NewClient(cfg.Elastic.Addresses, cfg.Elastic.Index, log)
	if err != nil {
		panic(err)
	}

	handler := indexer.NewEventsHandler(es, log)
	consumer := kafka.NewConsumer(cfg.Kafka, handler, cfg.Retries, log)

	return &IndexerServer{cfg: cfg, log: log, consumer: consumer}
}

func (s *IndexerServer) Run(ctx context.Context) error {
	s.consumer.Start(ctx)

	<-ctx.Done()
	s.log.Info("shutting down indexer, stopping consumer")
	return s.consumer.Stop()
}
