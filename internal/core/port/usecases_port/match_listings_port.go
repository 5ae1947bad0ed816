package usecases_port

import (
	"context"
	"outreach-service/internal/core/domain"
	"time"
)

// MatchListingsPort оценивает объекты, увиденные после since, по всем активным профилям
type MatchListingsPort interface {
	Execute(ctx context.Context, since time.Time) (*domain.TaskRunReport, error)
}
