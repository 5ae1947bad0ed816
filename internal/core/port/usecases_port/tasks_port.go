package usecases_port

import (
	"context"
	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

type ListTasksPort interface {
	Execute(ctx context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error)
}

type CompleteTaskPort interface {
	Execute(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
}
