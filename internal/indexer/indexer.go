// Package indexer applies task events to the search index.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Novip1906/todo-api/internal/models"
)

type Index interface {
	IndexTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskId string) error
	DeleteUserTasks(ctx context.Context, userId string) error
}

type EventsHandler struct {
	index Index
	log   *slog.Logger
}

func NewEventsHandler(index Index, log *slog.Logger) *EventsHandler {
	return &EventsHandler{index: index, log: log}
}

// HandleMessage is idempotent per event, so redelivery after a failed commit
// is harmless.
func (h *EventsHandler) HandleMessage(ctx context.Context, message []byte) error {
	var event models.EventMessage
	if err := json.Unmarshal(message, &event); err != nil {
		h.log.Error("dropping malformed event", slog.String("payload", string(message)))
		return nil
	}

	log := h.log.With(slog.String("event-type", event.Type), slog.String("user_id", event.UserId))

	var err error
	switch event.Type {
	case models.EventCreate, models.EventUpdate:
		err = h.index.IndexTask(ctx, event.Task())
	case models.EventDelete:
		err = h.index.DeleteTask(ctx, event.TaskId)
	case models.EventClear:
		err = h.index.DeleteUserTasks(ctx, event.UserId)
	default:
		log.Warn("unknown event type, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s event: %w", event.Type, err)
	}

	log.Debug("event applied", slog.String("task_id", event.TaskId))
	return nil
}
