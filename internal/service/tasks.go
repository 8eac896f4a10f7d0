package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/storage"
	"github.com/Novip1906/todo-api/pkg/logging"
)

const sideEffectTimeout = 5 * time.Second

// TasksStorage must apply the owner filter inside the same query as any id
// match, and report foreign ids as storage.ErrTaskNotFound.
type TasksStorage interface {
	CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error)
	ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error)
	UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (task *models.Task, oldText string, err error)
	DeleteTask(ctx context.Context, ownerId, taskId string) (deletedTask *models.Task, err error)
	DeleteAllTasks(ctx context.Context, ownerId string) (deleted int64, err error)
}

type EventSender interface {
	SendEvent(ctx context.Context, message *models.EventMessage) error
}

type SearchIndex interface {
	Search(ctx context.Context, userId, query string) ([]*models.Task, error)
	IndexTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskId string) error
	DeleteUserTasks(ctx context.Context, userId string) error
}

type TasksService struct {
	text        config.MinMaxLen
	log         *slog.Logger
	db          TasksStorage
	events      EventSender
	index       SearchIndex
	inlineIndex bool
}

// NewTasksService wires the task operations. events and index may be nil.
// With elasticsearch.sync=events and a publisher configured, the index is
// only read here and the indexer keeps it current from the event stream.
func NewTasksService(cfg *config.TodoConfig, log *slog.Logger, db TasksStorage, events EventSender, index SearchIndex) *TasksService {
	return &TasksService{
		text:        cfg.Params.Text,
		log:         log,
		db:          db,
		events:      events,
		index:       index,
		inlineIndex: events == nil || cfg.Elastic.Sync != config.SearchSyncEvents,
	}
}

func (s *TasksService) SearchEnabled() bool {
	return s.index != nil
}

func (s *TasksService) ListTasks(ctx context.Context, caller models.Caller, filter models.Filter) ([]*models.Task, error) {
	log := contextkeys.GetLogger(ctx).With(slog.String("filter", string(filter)))

	log.Debug("list tasks attempt")

	tasks, err := s.db.ListTasks(ctx, caller.Id, filter.Completed())
	if err != nil {
		log.Error("db error", logging.DbErr("ListTasks", err))
		return nil, err
	}
	return tasks, nil
}

func (s *TasksService) CreateTask(ctx context.Context, caller models.Caller, text string) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx)

	log.Debug("attempt")

	text = processText(text)
	if !s.textIsValid(text) {
		log.Warn("text len invalid")
		return nil, ErrInvalidText
	}

	task, err := s.db.CreateTask(ctx, caller.Id, text)
	if err != nil {
		log.Error("db error", logging.DbErr("CreateTask", err))
		return nil, err
	}

	log.Info("task created", slog.String("task_id", task.Id))

	s.afterWrite(ctx, &models.EventMessage{
		Type:      models.EventCreate,
		UserId:    caller.Id,
		TaskId:    task.Id,
		TaskText:  task.Text,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}, func(ctx context.Context) error { return s.index.IndexTask(ctx, task) })

	return task, nil
}

func (s *TasksService) UpdateTask(ctx context.Context, caller models.Caller, taskId string, upd models.TaskUpdate) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx).With(slog.String("task_id", taskId))

	log.Debug("attempt")

	upd.Text = processText(upd.Text)
	if !s.textIsValid(upd.Text) {
		log.Warn("text len invalid")
		return nil, ErrInvalidText
	}

	task, oldText, err := s.db.UpdateTask(ctx, caller.Id, taskId, upd)
	if errors.Is(err, storage.ErrTaskNotFound) {
		log.Warn("task not found")
		return nil, err
	}
	if err != nil {
		log.Error("db error", logging.DbErr("UpdateTask", err))
		return nil, err
	}

	log.Info("task updated", slog.Bool("completed", task.Completed))

	s.afterWrite(ctx, &models.EventMessage{
		Type:        models.EventUpdate,
		UserId:      caller.Id,
		TaskId:      task.Id,
		TaskText:    task.Text,
		TaskOldText: oldText,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}, func(ctx context.Context) error { return s.index.IndexTask(ctx, task) })

	return task, nil
}

func (s *TasksService) DeleteTask(ctx context.Context, caller models.Caller, taskId string) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx).With(slog.String("task_id", taskId))

	log.Debug("attempt")

	task, err := s.db.DeleteTask(ctx, caller.Id, taskId)
	if errors.Is(err, storage.ErrTaskNotFound) {
		log.Warn("task not found")
		return nil, err
	}
	if err != nil {
		log.Error("db error", logging.DbErr("DeleteTask", err))
		return nil, err
	}

	log.Info("task deleted")

	s.afterWrite(ctx, &models.EventMessage{
		Type:      models.EventDelete,
		UserId:    caller.Id,
		TaskId:    task.Id,
		TaskText:  task.Text,
		Completed: task.Completed,
	}, func(ctx context.Context) error { return s.index.DeleteTask(ctx, task.Id) })

	return task, nil
}

func (s *TasksService) DeleteAllTasks(ctx context.Context, caller models.Caller) (int64, error) {
	log := contextkeys.GetLogger(ctx)

	log.Debug("attempt")

	n, err := s.db.DeleteAllTasks(ctx, caller.Id)
	if err != nil {
		log.Error("db error", logging.DbErr("DeleteAllTasks", err))
		return 0, err
	}

	log.Info("tasks deleted", slog.Int64("count", n))

	s.afterWrite(ctx, &models.EventMessage{
		Type:   models.EventClear,
		UserId: caller.Id,
		Count:  n,
	}, func(ctx context.Context) error { return s.index.DeleteUserTasks(ctx, caller.Id) })

	return n, nil
}

func (s *TasksService) SearchTasks(ctx context.Context, caller models.Caller, query string) ([]*models.Task, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	log := contextkeys.GetLogger(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Task{}, nil
	}

	tasks, err := s.index.Search(ctx, caller.Id, query)
	if err != nil {
		log.Error("search error", logging.Err(err))
		return nil, err
	}
	return tasks, nil
}

// afterWrite publishes the event and refreshes the search index. Failures are
// logged and never fail the request that already committed.
func (s *TasksService) afterWrite(ctx context.Context, event *models.EventMessage, reindex func(context.Context) error) {
	log := contextkeys.GetLogger(ctx)

	asyncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.events != nil {
		event.OccurredAt = time.Now().UTC()
		if err := s.events.SendEvent(asyncCtx, event); err != nil {
			log.Error("kafka error", slog.String("event-type", event.Type), logging.Err(err))
		} else {
			log.Debug("kafka event message sent", slog.String("event-type", event.Type))
		}
	}

	if s.index != nil && s.inlineIndex {
		if err := reindex(asyncCtx); err != nil {
			log.Error("search index error", slog.String("event-type", event.Type), logging.Err(err))
		}
	}
}

func (s *TasksService) textIsValid(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= max(s.text.Min, 1) && (s.text.Max <= 0 || n <= s.text.Max)
}

func processText(text string) string {
	return strings.TrimSpace(text)
}
