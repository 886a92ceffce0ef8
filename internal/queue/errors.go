package queue

import "errors"

// ErrTerminal is returned when a mutation targets a task that already
// reached completed or failed. Terminal rows are never reopened.
var ErrTerminal = errors.New("task already terminal")

// ErrTaskNotFound is returned by mutations that address a missing task.
var ErrTaskNotFound = errors.New("task not found")
