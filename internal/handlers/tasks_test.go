package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/gate"
	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/middleware"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
	"github.com/Novip1906/todo-api/internal/service"
	"github.com/Novip1906/todo-api/internal/storage"
)

const testSecret = "handlers-secret"

// countingStore records how often the store is touched.
type countingStore struct {
	*storage.MemoryStorage
	calls atomic.Int32
}

func (c *countingStore) CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error) {
	c.calls.Add(1)
	return c.MemoryStorage.CreateTask(ctx, ownerId, text)
}

func (c *countingStore) ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error) {
	c.calls.Add(1)
	return c.MemoryStorage.ListTasks(ctx, ownerId, completed)
}

func (c *countingStore) UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error) {
	c.calls.Add(1)
	return c.MemoryStorage.UpdateTask(ctx, ownerId, taskId, upd)
}

func (c *countingStore) DeleteTask(ctx context.Context, ownerId, taskId string) (*models.Task, error) {
	c.calls.Add(1)
	return c.MemoryStorage.DeleteTask(ctx, ownerId, taskId)
}

func (c *countingStore) DeleteAllTasks(ctx context.Context, ownerId string) (int64, error) {
	c.calls.Add(1)
	return c.MemoryStorage.DeleteAllTasks(ctx, ownerId)
}

// tb is the subset of testing.TB that rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

type testAPI struct {
	t      tb
	router http.Handler
	store  *countingStore
}

func newTestAPI(t tb) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.TodoConfig{Params: config.Params{Text: config.MinMaxLen{Min: 1, Max: 100}}}

	store := &countingStore{MemoryStorage: storage.NewMemoryStorage()}
	svc := service.NewTasksService(cfg, log, store, nil, nil)
	g := gate.New(identity.NewLocalVerifier(testSecret), time.Second)

	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware(log))
	NewTasksHandler(svc, g).Register(r)

	return &testAPI{t: t, router: r, store: store}
}

func tokenFor(t tb, userId string) string {
	t.Helper()
	token, _, err := identity.EncodeToken(userId, userId+"@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}
	return token
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) list(path, token string) []models.Task {
	a.t.Helper()
	rec := a.do(http.MethodGet, path, token, nil)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("GET %s = %d %s", path, rec.Code, rec.Body)
	}
	var tasks []models.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		a.t.Fatalf("decode list: %v", err)
	}
	return tasks
}

func (a *testAPI) create(token, text string) models.Task {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/todo", token, CreateTaskRequest{Task: text})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("POST /todo = %d %s", rec.Code, rec.Body)
	}
	var task models.Task
	json.NewDecoder(rec.Body).Decode(&task)
	return task
}

func updateBody(text string, completed bool) UpdateTaskRequest {
	return UpdateTaskRequest{Task: &text, Completed: &completed}
}

func TestCreateThenList(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")

	created := api.create(alice, "Buy milk")
	if created.Id == "" || created.Completed || created.OwnerId != "alice" {
		t.Fatalf("created = %+v", created)
	}

	tasks := api.list("/todo", alice)
	if len(tasks) != 1 || tasks[0].Text != "Buy milk" || tasks[0].Completed {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestCreateRejectsBlankText(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")

	for _, body := range []any{CreateTaskRequest{Task: "   "}, map[string]any{}} {
		if rec := api.do(http.MethodPost, "/todo", alice, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %+v: status = %d", body, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/todo", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+alice)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed json status = %d", rec.Code)
	}
}

func TestToggleCompletedMovesBetweenFilters(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")
	task := api.create(alice, "Buy milk")
	api.create(alice, "Walk dog")

	rec := api.do(http.MethodPut, "/todo/"+task.Id, alice, updateBody("Buy milk", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d %s", rec.Code, rec.Body)
	}

	done := api.list("/todo/completed", alice)
	if len(done) != 1 || done[0].Id != task.Id || !done[0].Completed {
		t.Errorf("completed = %+v", done)
	}
	for _, open := range api.list("/todo/incomplete", alice) {
		if open.Id == task.Id {
			t.Errorf("completed task listed as incomplete")
		}
	}
	if all := api.list("/todo", alice); len(all) != 2 {
		t.Errorf("all = %+v", all)
	}
}

func TestUpdateRequiresBothFields(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")
	task := api.create(alice, "x")

	rec := api.do(http.MethodPut, "/todo/"+task.Id, alice, map[string]any{"task": "y"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateRejectsWrongTypes(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")
	task := api.create(alice, "x")

	rec := api.do(http.MethodPut, "/todo/"+task.Id, alice, map[string]any{"task": "y", "completed": "yes"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/completed") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestNotFoundIsIndistinguishable(t *testing.T) {
	api := newTestAPI(t)
	alice, bob := tokenFor(t, "alice"), tokenFor(t, "bob")
	owned := api.create(alice, "secret")

	var bodies []string
	for _, id := range []string{owned.Id, "00000000-0000-0000-0000-000000000000", "garbage"} {
		put := api.do(http.MethodPut, "/todo/"+id, bob, updateBody("mine now", true))
		del := api.do(http.MethodDelete, "/todo/"+id, bob, nil)
		if put.Code != http.StatusNotFound || del.Code != http.StatusNotFound {
			t.Errorf("id %q: PUT %d, DELETE %d", id, put.Code, del.Code)
		}
		bodies = append(bodies, put.Body.String(), del.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Errorf("not found bodies differ: %q vs %q", b, bodies[0])
		}
	}

	tasks := api.list("/todo", alice)
	if len(tasks) != 1 || tasks[0].Text != "secret" || tasks[0].Completed {
		t.Fatalf("alice's task changed: %+v", tasks)
	}
}

func TestDeleteOne(t *testing.T) {
	api := newTestAPI(t)
	alice := tokenFor(t, "alice")
	task := api.create(alice, "gone soon")

	rec := api.do(http.MethodDelete, "/todo/"+task.Id, alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE = %d", rec.Code)
	}
	var msg respond.MessageBody
	json.NewDecoder(rec.Body).Decode(&msg)
	if msg.Message != MsgTaskDeleted {
		t.Errorf("message = %q", msg.Message)
	}

	if rec := api.do(http.MethodDelete, "/todo/"+task.Id, alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d", rec.Code)
	}
}

func TestDeleteAllLeavesOtherCallers(t *testing.T) {
	api := newTestAPI(t)
	alice, bob := tokenFor(t, "alice"), tokenFor(t, "bob")
	api.create(alice, "a1")
	api.create(alice, "a2")
	api.create(bob, "b1")

	rec := api.do(http.MethodDelete, "/todo", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /todo = %d", rec.Code)
	}
	var msg respond.MessageBody
	json.NewDecoder(rec.Body).Decode(&msg)
	if msg.Deleted == nil || *msg.Deleted != 2 {
		t.Errorf("deleted = %v", msg.Deleted)
	}

	if got := api.list("/todo", alice); len(got) != 0 {
		t.Errorf("alice still has %+v", got)
	}
	if got := api.list("/todo", bob); len(got) != 1 {
		t.Errorf("bob has %+v", got)
	}

	if rec := api.do(http.MethodDelete, "/todo", alice, nil); rec.Code != http.StatusOK {
		t.Errorf("empty DELETE /todo = %d", rec.Code)
	}
}

func TestListIsNeverNull(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/todo", tokenFor(t, "nobody"), nil)
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("body = %s", body)
	}
}

func TestRejectedRequestsNeverReachStore(t *testing.T) {
	api := newTestAPI(t)
	expired, _, _ := identity.EncodeToken("alice", "", testSecret, -time.Minute)
	forged, _, _ := identity.EncodeToken("alice", "", "other-secret", time.Hour)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/todo"},
		{http.MethodGet, "/todo/completed"},
		{http.MethodGet, "/todo/incomplete"},
		{http.MethodGet, "/todo/search?q=x"},
		{http.MethodPost, "/todo"},
		{http.MethodPut, "/todo/some-id"},
		{http.MethodDelete, "/todo/some-id"},
		{http.MethodDelete, "/todo"},
	}

	for _, route := range routes {
		for _, token := range []string{"", expired, forged} {
			rec := api.do(route.method, route.path, token, updateBody("x", true))
			if rec.Code != http.StatusForbidden {
				t.Errorf("%s %s token=%t: status = %d", route.method, route.path, token != "", rec.Code)
			}
		}
	}

	if n := api.store.calls.Load(); n != 0 {
		t.Fatalf("store touched %d times by rejected requests", n)
	}
}

func TestSearchDisabled(t *testing.T) {
	api := newTestAPI(t)
	if rec := api.do(http.MethodGet, "/todo/search?q=milk", tokenFor(t, "alice"), nil); rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}
