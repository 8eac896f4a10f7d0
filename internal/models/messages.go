package models

import "time"

const (
	EventCreate = "create"
	EventUpdate = "update"
	EventDelete = "delete"
	EventClear  = "clear"
)

type EventMessage struct {
	Type        string    `json:"type"`
	UserId      string    `json:"userId"`
	TaskId      string    `json:"taskId,omitempty"`
	TaskText    string    `json:"task,omitempty"`
	TaskOldText string    `json:"oldTask,omitempty"`
	Completed   bool      `json:"completed"`
	Count       int64     `json:"count,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Task rebuilds the task a create or update event describes.
func (m *EventMessage) Task() *Task {
	return &Task{
		Id:        m.TaskId,
		OwnerId:   m.UserId,
		Text:      m.TaskText,
		Completed: m.Completed,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
