package port

import (
	"context"
	"outreach-service/internal/core/domain"
)

type GeocoderPort interface {
	Geocode(ctx context.Context, address, city string) (domain.Coordinates, error)
}
