package postgres

import (
	"context"
	"errors"

	domain "taskboard/backend/internal/domain/task"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository persists tasks in PostgreSQL.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository constructs a repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
INSERT INTO tasks (id, user_id, text, is_completed, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.UserID,
		task.Text,
		task.IsCompleted,
		task.CreatedAt,
	)
	return err
}

// GetByID fetches a task by id.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
SELECT id, user_id, text, is_completed, created_at
FROM tasks WHERE id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByUser returns one user's tasks, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	const query = `
SELECT id, user_id, text, is_completed, created_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Update writes task updates to the database. The owning user never changes.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
UPDATE tasks
SET text = $2,
    is_completed = $3
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Text,
		task.IsCompleted,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a task by id.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Text,
		&t.IsCompleted,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
