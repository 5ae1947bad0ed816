package port

import (
	"context"
	"outreach-service/internal/core/domain"
)

// NotifierPort - уведомления о созданных задачах. Ошибки доставки
// не должны влиять на бизнес-логику, поэтому метод ничего не возвращает.
type NotifierPort interface {
	Notify(ctx context.Context, event domain.TaskEvent)
}

// IngestionReportPublisherPort - публикация итогов прогона
type IngestionReportPublisherPort interface {
	PublishReport(ctx context.Context, report *domain.IngestionReport) error
}
