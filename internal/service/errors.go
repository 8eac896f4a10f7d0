package service

import "errors"

var (
	ErrInvalidText    = errors.New("task text is empty or too long")
	ErrSearchDisabled = errors.New("search is not configured")
)
