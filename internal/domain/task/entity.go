package task

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a task could not be located.
	ErrNotFound = errors.New("task not found")
	// ErrForbidden signals the task exists but belongs to another user.
	ErrForbidden = errors.New("not authorized to access this task")
	// ErrTextRequired flags an empty task text on create or edit.
	ErrTextRequired = errors.New("text field cannot be empty")
)

// Task captures a single task owned by one user. UserID is set at creation
// and never changes; the JSON field names match the public API contract.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Text        string    `json:"text"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"date"`
}
