package port

import (
	"context"
	"outreach-service/internal/core/domain"
)

// SourceAdapterPort - контракт адаптера одного портала.
// Адаптер отдаёт сырые записи и не знает ничего о хранилище.
type SourceAdapterPort interface {
	// Portal возвращает идентификатор портала, он же ключ в реестре
	Portal() string
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.RawListing, error)
	IsAvailable(ctx context.Context) bool
}

// CleanupPort реализуют адаптеры, которые держат ресурсы (браузер и т.п.)
type CleanupPort interface {
	Cleanup() error
}
