package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Novip1906/todo-api/docs"
	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/elasticsearch"
	"github.com/Novip1906/todo-api/internal/gate"
	"github.com/Novip1906/todo-api/internal/handlers"
	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/kafka"
	"github.com/Novip1906/todo-api/internal/service"
	"github.com/Novip1906/todo-api/internal/storage"
)

var connectTimeout = 10 * time.Second

type TodoServer struct {
	*httpServer
	cfg *config.TodoConfig
}

type closableStorage interface {
	service.TasksStorage
	Close(ctx context.Context) error
}

func NewTodoServer(cfg *config.TodoConfig, log *slog.Logger) *TodoServer {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db := mustOpenStorage(ctx, cfg, log)

	var events service.EventSender
	var eventProducer *kafka.EventProducer
	if len(cfg.Kafka.Brokers) > 0 {
		eventProducer = kafka.NewEventProducer(&cfg.Kafka)
		events = eventProducer
		log.Info("task events enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	var index service.SearchIndex
	if len(cfg.Elastic.Addresses) > 0 {
		es, err := elasticsearch.NewClient(cfg.Elastic.Addresses, cfg.Elastic.Index, log)
		if err != nil {
			panic(err)
		}
		index = es
	}

	tasksService := service.NewTasksService(cfg, log, db, events, index)
	authGate := gate.New(newVerifier(cfg), cfg.Auth.Timeout)

	s := &TodoServer{
		httpServer: newHTTPServer(cfg.Address, NewTodoRouter(log, tasksService, authGate), cfg.Server, log),
		cfg:        cfg,
	}
	s.onClose(db.Close)
	if eventProducer != nil {
		s.onClose(func(context.Context) error { return eventProducer.Close() })
	}
	return s
}

// NewTodoRouter assembles the HTTP surface of the task API.
func NewTodoRouter(log *slog.Logger, svc handlers.TasksService, g *gate.Gate) http.Handler {
	r := baseRouter(log)
	r.Get("/api-docs/*", httpSwagger.Handler(httpSwagger.URL("/api-docs/doc.json")))
	handlers.NewTasksHandler(svc, g).Register(r)
	return r
}

func mustOpenStorage(ctx context.Context, cfg *config.TodoConfig, log *slog.Logger) closableStorage {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		p := cfg.Storage.Postgres
		db, err := storage.NewPostgresStorage(p.Host, p.Port, p.User, p.Password, p.DBName, log)
		if err != nil {
			panic(err)
		}
		return db
	case config.StorageSQLite:
		db, err := storage.NewSQLiteStorage(cfg.Storage.SQLite.Path, log)
		if err != nil {
			panic(err)
		}
		return db
	case config.StorageMemory:
		log.Warn("using in-memory storage, tasks are lost on restart")
		return storage.NewMemoryStorage()
	default:
		m := cfg.Storage.Mongo
		db, err := storage.NewMongoStorage(ctx, m.URI, m.Database, m.Collection, log)
		if err != nil {
			panic(err)
		}
		return db
	}
}

func newVerifier(cfg *config.TodoConfig) identity.Verifier {
	if cfg.Auth.Mode == config.AuthModeRemote {
		return identity.NewRemoteVerifier(cfg.Auth.Address, &http.Client{Timeout: cfg.Auth.Timeout})
	}
	return identity.NewLocalVerifier(cfg.Auth.JWTSecret)
}
