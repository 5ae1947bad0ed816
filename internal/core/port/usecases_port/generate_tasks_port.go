package usecases_port

import (
	"context"
	"outreach-service/internal/core/domain"
)

type GenerateTasksPort interface {
	Execute(ctx context.Context, matches []domain.ScoredMatch) (*domain.TaskRunReport, error)
}
