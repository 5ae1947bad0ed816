package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *TaskRepository) UpsertOpen(_ context.Context, task *domain.Task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tasks {
		if existing.Status == domain.TaskOpen && existing.ClientID == task.ClientID &&
			existing.PropertyID == task.PropertyID && existing.Type == task.Type {
			existing.Title = task.Title
			existing.Target = task.Target
			existing.Notes = task.Notes
			existing.DueDate = task.DueDate
			existing.UpdatedAt = task.UpdatedAt
			task.ID = existing.ID
			task.CreatedAt = existing.CreatedAt
			return false, nil
		}
	}
	stored := *task
	r.tasks[task.ID] = &stored
	return true, nil
}

func (r *TaskRepository) FindByID(_ context.Context, taskID uuid.UUID) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *TaskRepository) ListByStatus(_ context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]domain.Task, 0)
	for _, t := range r.tasks {
		if status == "" || t.Status == status {
			res = append(res, *t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })

	if offset >= len(res) {
		return []domain.Task{}, nil
	}
	res = res[offset:]
	if limit > 0 && limit < len(res) {
		res = res[:limit]
	}
	return res, nil
}

func (r *TaskRepository) Complete(_ context.Context, taskID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.Status = domain.TaskCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
	return nil
}
