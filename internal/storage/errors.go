package storage

import "errors"

// ErrTaskNotFound covers both a missing id and an id owned by someone else.
var ErrTaskNotFound = errors.New("task not found")
