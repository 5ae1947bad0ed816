package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

const (
	taskColumns = `id, type, client_id, property_id, title, target, notes, due_date, status, created_at, updated_at, completed_at`
	dateLayout  = "2006-01-02"
)

func (a *SQLiteStorageAdapter) UpsertOpen(ctx context.Context, task *domain.Task) (bool, error) {
	var created bool
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		var (
			existingID uuid.UUID
			createdAt  string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM tasks WHERE client_id = ? AND property_id = ? AND type = ? AND status = ?`,
			task.ClientID, task.PropertyID, string(task.Type), string(domain.TaskOpen),
		).Scan(&existingID, &createdAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			_, err = tx.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
				task.ID, string(task.Type), task.ClientID, task.PropertyID, task.Title, task.Target, task.Notes,
				task.DueDate.UTC().Format(dateLayout), string(domain.TaskOpen),
				encodeTime(task.CreatedAt), encodeTime(task.UpdatedAt))
			return err
		case err != nil:
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, target = ?, notes = ?, due_date = ?, updated_at = ? WHERE id = ?`,
			task.Title, task.Target, task.Notes, task.DueDate.UTC().Format(dateLayout), encodeTime(task.UpdatedAt), existingID)
		if err != nil {
			return err
		}
		task.ID = existingID
		task.CreatedAt, err = decodeTime(createdAt)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert task: %w", err)
	}
	return created, nil
}

func (a *SQLiteStorageAdapter) FindByID(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task %s: %w", taskID, err)
	}
	return t, nil
}

func (a *SQLiteStorageAdapter) ListByStatus(ctx context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE (? = '' OR status = ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		string(status), string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	res := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

func (a *SQLiteStorageAdapter) Complete(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	res, err := a.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskCompleted), encodeTime(at), encodeTime(at), taskID)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                    domain.Task
		taskType, status     string
		dueDate              string
		createdAt, updatedAt string
		completedAt          sql.NullString
	)
	if err := row.Scan(&t.ID, &taskType, &t.ClientID, &t.PropertyID, &t.Title, &t.Target, &t.Notes,
		&dueDate, &status, &createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}

	var err error
	if t.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	if t.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		at, err := decodeTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		t.CompletedAt = &at
	}
	t.Type = domain.TaskType(taskType)
	t.Status = domain.TaskStatus(status)
	return &t, nil
}
