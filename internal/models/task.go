package models

import (
	"fmt"
	"time"
)

// Task is a single todo item. JSON names follow the document shape clients
// already consume (_id, task, userId).
type Task struct {
	Id        string    `json:"_id"`
	OwnerId   string    `json:"userId"`
	Text      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TaskUpdate struct {
	Text      string
	Completed bool
}

type Filter string

const (
	FilterAll        Filter = "all"
	FilterCompleted  Filter = "completed"
	FilterIncomplete Filter = "incomplete"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterCompleted, FilterIncomplete:
		return f, nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Completed returns the completed value to match, or nil when every task matches.
func (f Filter) Completed() *bool {
	var v bool
	switch f {
	case FilterCompleted:
		v = true
	case FilterIncomplete:
		v = false
	default:
		return nil
	}
	return &v
}

func (f Filter) Matches(t *Task) bool {
	c := f.Completed()
	return c == nil || *c == t.Completed
}
