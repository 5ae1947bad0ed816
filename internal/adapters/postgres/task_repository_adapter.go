package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, type, client_id, property_id, title, target, notes, due_date, status, created_at, updated_at, completed_at`

// UpsertOpen опирается на частичный уникальный индекс tasks_open_uniq
func (a *PostgresStorageAdapter) UpsertOpen(ctx context.Context, task *domain.Task) (bool, error) {
	var created bool
	err := a.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, type, client_id, property_id, title, target, notes, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id, property_id, type) WHERE status = 'open' DO UPDATE SET
			title = EXCLUDED.title,
			target = EXCLUDED.target,
			notes = EXCLUDED.notes,
			due_date = EXCLUDED.due_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0)`,
		task.ID, string(task.Type), task.ClientID, task.PropertyID, task.Title, task.Target, task.Notes,
		task.DueDate, string(domain.TaskOpen), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	).Scan(&task.ID, &task.CreatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert task: %w", err)
	}
	task.CreatedAt = task.CreatedAt.UTC()
	return created, nil
}

func (a *PostgresStorageAdapter) FindByID(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	row := a.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task %s: %w", taskID, err)
	}
	return t, nil
}

// ListByStatus: пустой статус - все задачи
func (a *PostgresStorageAdapter) ListByStatus(ctx context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	res := make([]domain.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

func (a *PostgresStorageAdapter) Complete(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	tag, err := a.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1`,
		taskID, string(domain.TaskCompleted), at.UTC())
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t        domain.Task
		taskType string
		status   string
	)
	if err := row.Scan(&t.ID, &taskType, &t.ClientID, &t.PropertyID, &t.Title, &t.Target, &t.Notes,
		&t.DueDate, &status, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
		return nil, err
	}
	t.Type = domain.TaskType(taskType)
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}
