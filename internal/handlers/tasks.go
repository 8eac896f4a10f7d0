package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/internal/gate"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
	"github.com/Novip1906/todo-api/internal/service"
	"github.com/Novip1906/todo-api/internal/storage"
	"github.com/Novip1906/todo-api/pkg/logging"
)

const maxBodyBytes = 1 << 20

const (
	MsgTaskNotFound    = "Task not found"
	MsgTaskDeleted     = "Task deleted"
	MsgAllTasksDeleted = "All tasks deleted"
	MsgInvalidBody     = "Invalid request body"
	MsgInternal        = "Internal server error"
)

type TasksService interface {
	ListTasks(ctx context.Context, caller models.Caller, filter models.Filter) ([]*models.Task, error)
	CreateTask(ctx context.Context, caller models.Caller, text string) (*models.Task, error)
	UpdateTask(ctx context.Context, caller models.Caller, taskId string, upd models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, caller models.Caller, taskId string) (*models.Task, error)
	DeleteAllTasks(ctx context.Context, caller models.Caller) (int64, error)
	SearchTasks(ctx context.Context, caller models.Caller, query string) ([]*models.Task, error)
}

type TasksHandler struct {
	svc  TasksService
	gate *gate.Gate
}

func NewTasksHandler(svc TasksService, g *gate.Gate) *TasksHandler {
	return &TasksHandler{svc: svc, gate: g}
}

// Register mounts the task routes. Each one sits behind the gate.
func (h *TasksHandler) Register(r chi.Router) {
	r.Route("/todo", func(r chi.Router) {
		r.Get("/", h.gate.Require(h.list(models.FilterAll)))
		r.Get("/completed", h.gate.Require(h.list(models.FilterCompleted)))
		r.Get("/incomplete", h.gate.Require(h.list(models.FilterIncomplete)))
		r.Get("/search", h.gate.Require(h.search))
		r.Post("/", h.gate.Require(h.create))
		r.Delete("/", h.gate.Require(h.deleteAll))
		r.Put("/{id}", h.gate.Require(h.update))
		r.Delete("/{id}", h.gate.Require(h.deleteOne))
	})
}

type CreateTaskRequest struct {
	Task string `json:"task" example:"Buy groceries"`
}

type UpdateTaskRequest struct {
	Task      *string `json:"task" example:"Complete the homework"`
	Completed *bool   `json:"completed" example:"true"`
}

// list godoc
// @Summary  List to-do tasks
// @Description Tasks of the authenticated user; /completed and /incomplete narrow by status.
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} models.Task
// @Failure  403 {object} respond.ErrorBody
// @Router   /todo [get]
// @Router   /todo/completed [get]
// @Router   /todo/incomplete [get]
func (h *TasksHandler) list(filter models.Filter) gate.CallerHandler {
	return func(w http.ResponseWriter, r *http.Request, caller models.Caller) {
		tasks, err := h.svc.ListTasks(r.Context(), caller, filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, tasks)
	}
}

// search godoc
// @Summary  Full-text search over the caller's tasks
// @Produce  json
// @Security BearerAuth
// @Param    q query string true "search text"
// @Success  200 {array} models.Task
// @Failure  501 {object} respond.ErrorBody
// @Router   /todo/search [get]
func (h *TasksHandler) search(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	tasks, err := h.svc.SearchTasks(r.Context(), caller, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, tasks)
}

// create godoc
// @Summary  Add a new to-do task
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateTaskRequest true "task"
// @Success  201 {object} models.Task
// @Failure  400 {object} respond.ErrorBody
// @Router   /todo [post]
func (h *TasksHandler) create(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	var req CreateTaskRequest
	if !decode(w, r, createTaskSchema, &req) {
		return
	}

	task, err := h.svc.CreateTask(r.Context(), caller, req.Task)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, task)
}

// update godoc
// @Summary  Edit an existing to-do task
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string            true "task id"
// @Param    body body UpdateTaskRequest true "new state"
// @Success  200 {object} models.Task
// @Failure  404 {object} respond.ErrorBody
// @Router   /todo/{id} [put]
func (h *TasksHandler) update(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	var req UpdateTaskRequest
	if !decode(w, r, updateTaskSchema, &req) {
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), caller, chi.URLParam(r, "id"), models.TaskUpdate{
		Text:      *req.Task,
		Completed: *req.Completed,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, task)
}

// deleteOne godoc
// @Summary  Delete a to-do task by id
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "task id"
// @Success  200 {object} respond.MessageBody
// @Failure  404 {object} respond.ErrorBody
// @Router   /todo/{id} [delete]
func (h *TasksHandler) deleteOne(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	if _, err := h.svc.DeleteTask(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.MessageBody{Message: MsgTaskDeleted})
}

// deleteAll godoc
// @Summary  Delete all to-do tasks of the caller
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} respond.MessageBody
// @Router   /todo [delete]
func (h *TasksHandler) deleteAll(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	n, err := h.svc.DeleteAllTasks(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.MessageBody{Message: MsgAllTasksDeleted, Deleted: &n})
}

func (h *TasksHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		respond.Error(w, http.StatusNotFound, MsgTaskNotFound)
	case errors.Is(err, service.ErrInvalidText):
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid task: %s", err))
	case errors.Is(err, service.ErrSearchDisabled):
		respond.Error(w, http.StatusNotImplemented, err.Error())
	default:
		contextkeys.GetLogger(r.Context()).Error("task operation failed", logging.Err(err))
		respond.Error(w, http.StatusInternalServerError, MsgInternal)
	}
}

// decode reads a JSON body, checks it against schema and fills v.
func decode(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, v any) bool {
	log := contextkeys.GetLogger(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("read request body", logging.Err(err))
		respond.Error(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Warn("bad request body", logging.Err(err))
		respond.Error(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	if err := schema.Validate(doc); err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", MsgInvalidBody, schemaMessage(err)))
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		log.Warn("bad request body", logging.Err(err))
		respond.Error(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	return true
}
