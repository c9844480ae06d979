package task

import (
	"context"
	"strings"
	"time"

	domain "taskboard/backend/internal/domain/task"

	"github.com/google/uuid"
)

// Service encapsulates task use cases. Every operation runs on behalf of an
// authenticated user id resolved upstream; ownership is enforced here, after
// existence, so "not found" and "not yours" stay distinct outcomes.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs a task service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// Create stores a new task owned by userID.
func (s *Service) Create(ctx context.Context, userID, text string) (*domain.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrTextRequired
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.nowFunc().UTC(),
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns the caller's tasks, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ToggleCompleted flips the completion flag of the caller's task.
func (s *Service) ToggleCompleted(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.IsCompleted = !task.IsCompleted
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateText replaces the text of the caller's task.
func (s *Service) UpdateText(ctx context.Context, userID, taskID, text string) (*domain.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrTextRequired
	}

	task, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Text = text
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the caller's task.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, taskID)
}

// getOwned loads a task and checks ownership. Existence is checked before
// ownership: an absent task is ErrNotFound, a foreign one ErrForbidden.
func (s *Service) getOwned(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}
