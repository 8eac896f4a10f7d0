package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v9"

	"github.com/Novip1906/todo-api/internal/models"
)

type Client struct {
	es    *es.Client
	index string
	log   *slog.Logger
}

type taskDocument struct {
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(addresses []string, index string, log *slog.Logger) (*Client, error) {
	return newClient(es.Config{Addresses: addresses}, index, log)
}

func newClient(cfg es.Config, index string, log *slog.Logger) (*Client, error) {
	c, err := es.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	client := &Client{
		es:    c,
		index: index,
		log:   log,
	}

	if err := client.ensureIndex(); err != nil {
		return nil, err
	}

	return client, nil
}

// maxSearchHits caps a search response. The API has no pagination, so it
// is set well above what a personal task list holds.
const maxSearchHits = 1000

// Search runs a full-text match restricted to userId within the same query.
func (c *Client) Search(ctx context.Context, userId, query string) ([]*models.Task, error) {
	body, err := json.Marshal(map[string]any{
		"size": maxSearchHits,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"text": query}},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userId}},
				},
			},
		},
		"sort": []any{
			map[string]any{"created_at": map[string]any{"order": "asc"}},
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es search error: %s", res.String())
	}

	var raw struct {
		Hits struct {
			Hits []struct {
				Source taskDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(raw.Hits.Hits))
	for _, h := range raw.Hits.Hits {
		// the filter already scopes by owner; drop anything that slipped through
		if h.Source.UserId != userId {
			continue
		}
		tasks = append(tasks, &models.Task{
			Id:        h.Source.Id,
			OwnerId:   h.Source.UserId,
			Text:      h.Source.Text,
			Completed: h.Source.Completed,
			CreatedAt: h.Source.CreatedAt,
			UpdatedAt: h.Source.UpdatedAt,
		})
	}

	return tasks, nil
}

func (c *Client) IndexTask(ctx context.Context, task *models.Task) error {
	body, err := json.Marshal(taskDocument{
		Id:        task.Id,
		UserId:    task.OwnerId,
		Text:      task.Text,
		Completed: task.Completed,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	})
	if err != nil {
		return err
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(task.Id),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("es index error: %s", res.String())
	}

	return nil
}

func (c *Client) DeleteTask(ctx context.Context, taskId string) error {
	res, err := c.es.Delete(
		c.index,
		taskId,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete error: %s", res.String())
	}
	return nil
}

func (c *Client) DeleteUserTasks(ctx context.Context, userId string) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"user_id": userId}},
	})
	if err != nil {
		return err
	}

	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		bytes.NewReader(body),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("es delete by query error: %s", res.String())
	}
	return nil
}

func (c *Client) ensureIndex() error {
	res, err := c.es.Indices.Exists([]string{c.index})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		c.log.Info("elasticsearch index exists", "index", c.index)
		return nil
	}

	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status checking index: %s", res.String())
	}

	c.log.Info("creating elasticsearch index", "index", c.index)

	mapping := `
{
  "mappings": {
    "properties": {
      "id": { "type": "keyword" },
      "user_id": { "type": "keyword" },
      "text": { "type": "text" },
      "completed": { "type": "boolean" },
      "created_at": { "type": "date" },
      "updated_at": { "type": "date" }
    }
  }
}`

	createRes, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("create index error: %s", createRes.String())
	}

	c.log.Info("elasticsearch index created", "index", c.index)
	return nil
}
