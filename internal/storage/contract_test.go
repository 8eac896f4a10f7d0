package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"testing"

	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/storage"
)

type taskStore interface {
	CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error)
	ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error)
	UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error)
	DeleteTask(ctx context.Context, ownerId, taskId string) (*models.Task, error)
	DeleteAllTasks(ctx context.Context, ownerId string) (int64, error)
}

// dockerAvailable checks whether the Docker daemon is reachable.
// testcontainers-go panics when Docker is missing, so probe first.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool { return &b }

// runStoreContract exercises the owner-scoped store operations shared by every driver.
func runStoreContract(t *testing.T, s taskStore, missingId string) {
	ctx := context.Background()

	t.Run("create and list", func(t *testing.T) {
		task, err := s.CreateTask(ctx, "alice-1", "Buy milk")
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if task.Id == "" || task.OwnerId != "alice-1" || task.Completed {
			t.Fatalf("unexpected task: %+v", task)
		}

		tasks, err := s.ListTasks(ctx, "alice-1", nil)
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Text != "Buy milk" || tasks[0].Id != task.Id {
			t.Fatalf("ListTasks = %+v", tasks)
		}
	})

	t.Run("filter by completed", func(t *testing.T) {
		a, _ := s.CreateTask(ctx, "alice-2", "one")
		if _, err := s.CreateTask(ctx, "alice-2", "two"); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if _, _, err := s.UpdateTask(ctx, "alice-2", a.Id, models.TaskUpdate{Text: "one", Completed: true}); err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}

		done, err := s.ListTasks(ctx, "alice-2", boolPtr(true))
		if err != nil {
			t.Fatalf("ListTasks completed: %v", err)
		}
		if len(done) != 1 || done[0].Id != a.Id {
			t.Fatalf("completed = %+v", done)
		}

		open, err := s.ListTasks(ctx, "alice-2", boolPtr(false))
		if err != nil {
			t.Fatalf("ListTasks incomplete: %v", err)
		}
		if len(open) != 1 || open[0].Text != "two" {
			t.Fatalf("incomplete = %+v", open)
		}
	})

	t.Run("update returns old text", func(t *testing.T) {
		a, _ := s.CreateTask(ctx, "alice-3", "old")
		got, old, err := s.UpdateTask(ctx, "alice-3", a.Id, models.TaskUpdate{Text: "new", Completed: true})
		if err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}
		if old != "old" || got.Text != "new" || !got.Completed || got.Id != a.Id {
			t.Fatalf("UpdateTask = %+v, %q", got, old)
		}
	})

	t.Run("foreign and missing ids are not found", func(t *testing.T) {
		a, _ := s.CreateTask(ctx, "alice-4", "private")

		for name, id := range map[string]string{"foreign": a.Id, "missing": missingId, "malformed": "not-an-id"} {
			if _, _, err := s.UpdateTask(ctx, "bob-4", id, models.TaskUpdate{Text: "x"}); !errors.Is(err, storage.ErrTaskNotFound) {
				t.Errorf("%s update: err = %v", name, err)
			}
			if _, err := s.DeleteTask(ctx, "bob-4", id); !errors.Is(err, storage.ErrTaskNotFound) {
				t.Errorf("%s delete: err = %v", name, err)
			}
		}

		tasks, _ := s.ListTasks(ctx, "alice-4", nil)
		if len(tasks) != 1 || tasks[0].Text != "private" || tasks[0].Completed {
			t.Fatalf("foreign task was modified: %+v", tasks)
		}
	})

	t.Run("delete one", func(t *testing.T) {
		a, _ := s.CreateTask(ctx, "alice-5", "gone")
		deleted, err := s.DeleteTask(ctx, "alice-5", a.Id)
		if err != nil {
			t.Fatalf("DeleteTask: %v", err)
		}
		if deleted.Text != "gone" {
			t.Fatalf("deleted = %+v", deleted)
		}
		if _, err := s.DeleteTask(ctx, "alice-5", a.Id); !errors.Is(err, storage.ErrTaskNotFound) {
			t.Fatalf("second delete err = %v", err)
		}
	})

	t.Run("delete all is owner scoped", func(t *testing.T) {
		s.CreateTask(ctx, "alice-6", "a")
		s.CreateTask(ctx, "alice-6", "b")
		s.CreateTask(ctx, "bob-6", "c")

		n, err := s.DeleteAllTasks(ctx, "alice-6")
		if err != nil || n != 2 {
			t.Fatalf("DeleteAllTasks = %d, %v", n, err)
		}
		n, err = s.DeleteAllTasks(ctx, "alice-6")
		if err != nil || n != 0 {
			t.Fatalf("second DeleteAllTasks = %d, %v", n, err)
		}

		left, _ := s.ListTasks(ctx, "bob-6", nil)
		if len(left) != 1 {
			t.Fatalf("bob lost tasks: %+v", left)
		}
	})
}
