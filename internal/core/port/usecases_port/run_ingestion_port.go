package usecases_port

import (
	"context"
	"outreach-service/internal/core/domain"
)

type RunIngestionPort interface {
	Execute(ctx context.Context, criteria domain.SearchCriteria) (*domain.IngestionReport, error)
}
