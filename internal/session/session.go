// Package session holds the client-side view state of the todo app: who is
// signed in, which filter is active and the task list last fetched for it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Novip1906/todo-api/internal/client"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/pkg/logging"
)

var ErrEmptyText = errors.New("task text is empty")

type View int

const (
	ViewLogin View = iota
	ViewTasks
)

func (v View) String() string {
	if v == ViewTasks {
		return "tasks"
	}
	return "login"
}

type API interface {
	ListTasks(ctx context.Context, filter models.Filter) ([]*models.Task, error)
	CreateTask(ctx context.Context, text string) (*models.Task, error)
	UpdateTask(ctx context.Context, id, text string, completed bool) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) (int64, error)
}

// State is a snapshot handed to subscribers. Tasks is never shared with the
// session's own copy.
type State struct {
	Identity *models.Caller
	Filter   models.Filter
	Tasks    []*models.Task
	View     View
	Notice   string
}

type Session struct {
	api API
	log *slog.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

func New(api API, log *slog.Logger) *Session {
	return &Session{
		api:   api,
		log:   log,
		state: State{Filter: models.FilterAll, View: ViewLogin},
		subs:  make(map[int]func(State)),
	}
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SetIdentity publishes an identity change. A nil caller signs out and moves
// the view to login.
func (s *Session) SetIdentity(caller *models.Caller) {
	s.update(func(st *State) {
		if caller == nil {
			st.Identity = nil
			st.Tasks = nil
			st.View = ViewLogin
			return
		}
		c := *caller
		st.Identity = &c
		st.View = ViewTasks
	})
}

// SetFilter switches the active filter and re-fetches. An unknown filter is
// rejected before any request and leaves the state unchanged.
func (s *Session) SetFilter(ctx context.Context, f models.Filter) error {
	f, err := models.ParseFilter(string(f))
	if err != nil {
		return err
	}
	s.update(func(st *State) { st.Filter = f })
	return s.Refresh(ctx)
}

// Refresh re-fetches the full list for the current filter.
func (s *Session) Refresh(ctx context.Context) error {
	st := s.State()
	if st.Identity == nil {
		return client.ErrUnauthorized
	}

	tasks, err := s.api.ListTasks(ctx, st.Filter)
	if err != nil {
		return s.fail(err)
	}

	s.update(func(st *State) {
		st.Tasks = tasks
		st.Notice = ""
	})
	return nil
}

func (s *Session) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		s.update(func(st *State) { st.Notice = ErrEmptyText.Error() })
		return ErrEmptyText
	}
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.CreateTask(ctx, text)
		return err
	})
}

func (s *Session) Edit(ctx context.Context, id, text string, completed bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		s.update(func(st *State) { st.Notice = ErrEmptyText.Error() })
		return ErrEmptyText
	}
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.UpdateTask(ctx, id, text, completed)
		return err
	})
}

// SetCompleted keeps the task's text and changes only its status. The task
// must be in the current list.
func (s *Session) SetCompleted(ctx context.Context, id string, completed bool) error {
	task := s.find(id)
	if task == nil {
		return s.fail(client.ErrNotFound)
	}
	return s.Edit(ctx, id, task.Text, completed)
}

func (s *Session) Toggle(ctx context.Context, id string) error {
	task := s.find(id)
	if task == nil {
		return s.fail(client.ErrNotFound)
	}
	return s.Edit(ctx, id, task.Text, !task.Completed)
}

func (s *Session) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.api.DeleteTask(ctx, id)
	})
}

func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.DeleteAllTasks(ctx)
		return err
	})
}

func (s *Session) DismissNotice() {
	s.update(func(st *State) { st.Notice = "" })
}

// mutate runs op to completion and only then refreshes the list.
func (s *Session) mutate(ctx context.Context, op func(context.Context) error) error {
	if s.State().Identity == nil {
		return client.ErrUnauthorized
	}
	if err := op(ctx); err != nil {
		return s.fail(err)
	}
	return s.Refresh(ctx)
}

func (s *Session) fail(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		s.log.Info("session rejected, signing out")
		s.update(func(st *State) {
			st.Identity = nil
			st.Tasks = nil
			st.View = ViewLogin
			st.Notice = ""
		})
		return err
	}

	s.log.Warn("request failed", logging.Err(err))
	s.update(func(st *State) { st.Notice = err.Error() })
	return err
}

func (s *Session) find(id string) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.state.Tasks {
		if t.Id == id {
			c := *t
			return &c
		}
	}
	return nil
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.snapshot()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
}

func (s *Session) snapshot() State {
	st := s.state
	if st.Identity != nil {
		c := *st.Identity
		st.Identity = &c
	}
	if st.Tasks != nil {
		st.Tasks = make([]*models.Task, len(s.state.Tasks))
		for i, t := range s.state.Tasks {
			c := *t
			st.Tasks[i] = &c
		}
	}
	return st
}
