package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Novip1906/todo-api/internal/models"
)

// MemoryStorage keeps tasks in process. Every operation holds the lock for
// its whole match-and-mutate step, mirroring the single-statement guarantee
// of the database drivers.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
	order []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tasks: make(map[string]*models.Task)}
}

func (s *MemoryStorage) CreateTask(_ context.Context, ownerId, text string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task := &models.Task{
		Id:        uuid.NewString(),
		OwnerId:   ownerId,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[task.Id] = task
	s.order = append(s.order, task.Id)

	cp := *task
	return &cp, nil
}

func (s *MemoryStorage) ListTasks(_ context.Context, ownerId string, completed *bool) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*models.Task, 0)
	for _, id := range s.order {
		t := s.tasks[id]
		if t.OwnerId != ownerId || (completed != nil && t.Completed != *completed) {
			continue
		}
		cp := *t
		tasks = append(tasks, &cp)
	}
	return tasks, nil
}

func (s *MemoryStorage) UpdateTask(_ context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskId]
	if !ok || t.OwnerId != ownerId {
		return nil, "", ErrTaskNotFound
	}

	oldText := t.Text
	t.Text = upd.Text
	t.Completed = upd.Completed
	t.UpdatedAt = time.Now().UTC()

	cp := *t
	return &cp, oldText, nil
}

func (s *MemoryStorage) DeleteTask(_ context.Context, ownerId, taskId string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskId]
	if !ok || t.OwnerId != ownerId {
		return nil, ErrTaskNotFound
	}
	s.remove(taskId)
	return t, nil
}

func (s *MemoryStorage) DeleteAllTasks(_ context.Context, ownerId string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range append([]string(nil), s.order...) {
		if s.tasks[id].OwnerId == ownerId {
			s.remove(id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) Close(context.Context) error {
	return nil
}

func (s *MemoryStorage) remove(id string) {
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
