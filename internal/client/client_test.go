package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Novip1906/todo-api/internal/handlers"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.URL, time.Second)
}

func TestListTasksUsesFilterPathAndBearer(t *testing.T) {
	var gotPath, gotAuth string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		respond.JSON(w, http.StatusOK, []*models.Task{{Id: "1", Text: "Buy milk"}})
	})
	c.SetToken("tok")

	tasks, err := c.ListTasks(context.Background(), models.FilterCompleted)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if gotPath != "/todo/completed" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(tasks) != 1 || tasks[0].Text != "Buy milk" {
		t.Errorf("tasks = %+v", tasks)
	}

	if _, err := c.ListTasks(context.Background(), models.FilterAll); err != nil || gotPath != "/todo" {
		t.Errorf("all filter path = %q, err = %v", gotPath, err)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, tt.status, "x")
		})
		if err := c.DeleteTask(context.Background(), "id"); !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusInternalServerError, "boom")
	})
	_, err := c.CreateTask(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 || apiErr.Message != "boom" {
		t.Errorf("err = %v", err)
	}
}

func TestLoginStoresToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req handlers.CredentialsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/auth/login" || req.Email != "a@b.c" {
			respond.Error(w, http.StatusBadRequest, "bad")
			return
		}
		respond.JSON(w, http.StatusOK, handlers.TokenResponse{Token: "fresh"})
	})

	if _, err := c.Login(context.Background(), "a@b.c", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.Token() != "fresh" {
		t.Errorf("token = %q", c.Token())
	}
}

func TestUpdateSendsBothFields(t *testing.T) {
	var body map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		respond.JSON(w, http.StatusOK, models.Task{Id: "7", Text: "x", Completed: true})
	})

	task, err := c.UpdateTask(context.Background(), "7", "x", true)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if body["task"] != "x" || body["completed"] != true {
		t.Errorf("body = %v", body)
	}
	if !task.Completed {
		t.Errorf("task = %+v", task)
	}
}

func TestDeleteAllReturnsCount(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := int64(3)
		respond.JSON(w, http.StatusOK, respond.MessageBody{Message: "All tasks deleted", Deleted: &n})
	})

	n, err := c.DeleteAllTasks(context.Background())
	if err != nil || n != 3 {
		t.Errorf("DeleteAllTasks = %d, %v", n, err)
	}
}
