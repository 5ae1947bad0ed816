package port

import (
	"context"
	"outreach-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// ListingStoragePort - хранилище канонических объявлений
type ListingStoragePort interface {
	// UpsertListing вставляет или обновляет запись по (Portal, SourceID).
	// FirstSeenAt при обновлении не меняется.
	UpsertListing(ctx context.Context, listing domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error)
	// UpdateGeocode меняет только поля геокодирования
	UpdateGeocode(ctx context.Context, listingID uuid.UUID, coords *domain.Coordinates, geoHash string, status domain.GeocodeStatus) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error)
	ListAvailableSince(ctx context.Context, since time.Time) ([]domain.Listing, error)
}

// InteractionLogPort - журнал контактов
type InteractionLogPort interface {
	ExistsSince(ctx context.Context, key domain.InteractionKey, since time.Time) (bool, error)
	Append(ctx context.Context, interaction *domain.Interaction) error
}

// TaskRepositoryPort - хранилище задач
type TaskRepositoryPort interface {
	// UpsertOpen создаёт задачу или обновляет открытую задачу с тем же
	// (ClientID, PropertyID, Type). Возвращает true, если задача новая.
	UpsertOpen(ctx context.Context, task *domain.Task) (bool, error)
	FindByID(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	ListByStatus(ctx context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error)
	Complete(ctx context.Context, taskID uuid.UUID, at time.Time) error
}

// ClientProfileRepositoryPort - клиенты и их поисковые профили
type ClientProfileRepositoryPort interface {
	ListActive(ctx context.Context) ([]domain.ClientProfile, error)
	Save(ctx context.Context, profile domain.ClientProfile) error
}
