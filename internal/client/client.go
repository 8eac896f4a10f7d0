package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Novip1906/todo-api/internal/handlers"
	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
)

var (
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("task not found")
)

// APIError is any non-success response that is not an authorization failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

type Client struct {
	todoURL string
	authURL string
	http    *http.Client
	token   string
}

func New(todoURL, authURL string, timeout time.Duration) *Client {
	return &Client{
		todoURL: strings.TrimRight(todoURL, "/"),
		authURL: strings.TrimRight(authURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) Signup(ctx context.Context, email, password string) (*handlers.AccountResponse, error) {
	var out handlers.AccountResponse
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/register", handlers.CredentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out handlers.TokenResponse
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/login", handlers.CredentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Whoami(ctx context.Context) (models.Caller, error) {
	var out identity.ValidateResponse
	err := c.do(ctx, http.MethodPost, c.authURL+"/auth/validate", identity.ValidateRequest{Token: c.token}, &out)
	if err != nil {
		return models.Caller{}, err
	}
	return models.Caller{Id: out.UserId, Email: out.Email}, nil
}

func (c *Client) ListTasks(ctx context.Context, filter models.Filter) ([]*models.Task, error) {
	path := "/todo"
	if filter != models.FilterAll && filter != "" {
		path += "/" + string(filter)
	}

	var tasks []*models.Task
	if err := c.do(ctx, http.MethodGet, c.todoURL+path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) SearchTasks(ctx context.Context, query string) ([]*models.Task, error) {
	var tasks []*models.Task
	err := c.do(ctx, http.MethodGet, c.todoURL+"/todo/search?q="+url.QueryEscape(query), nil, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, text string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, c.todoURL+"/todo", handlers.CreateTaskRequest{Task: text}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id, text string, completed bool) (*models.Task, error) {
	var task models.Task
	req := handlers.UpdateTaskRequest{Task: &text, Completed: &completed}
	if err := c.do(ctx, http.MethodPut, c.todoURL+"/todo/"+url.PathEscape(id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.todoURL+"/todo/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteAllTasks(ctx context.Context) (int64, error) {
	var out respond.MessageBody
	if err := c.do(ctx, http.MethodDelete, c.todoURL+"/todo", nil, &out); err != nil {
		return 0, err
	}
	if out.Deleted == nil {
		return 0, nil
	}
	return *out.Deleted, nil
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		var e respond.ErrorBody
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
