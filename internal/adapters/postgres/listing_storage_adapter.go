// Package postgres - хранилище объявлений, клиентов, журнала контактов и задач в PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorageAdapter реализует порты хранилища поверх одного пула
type PostgresStorageAdapter struct {
	pool *pgxpool.Pool
}

var (
	_ port.ListingStoragePort          = (*PostgresStorageAdapter)(nil)
	_ port.InteractionLogPort          = (*PostgresStorageAdapter)(nil)
	_ port.TaskRepositoryPort          = (*PostgresStorageAdapter)(nil)
	_ port.ClientProfileRepositoryPort = (*PostgresStorageAdapter)(nil)
)

func NewPostgresStorageAdapter(pool *pgxpool.Pool) (*PostgresStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresStorageAdapter{pool: pool}, nil
}

const listingColumns = `id, portal, source_id, url, title, description, address, city, zone,
	price, size, bedrooms, bathrooms, property_type,
	owner_type, owner_confidence, owner_reasoning, agency_name, owner_contact,
	lat, lng, geohash, geocode_status,
	has_elevator, has_balcony, has_parking, has_garden,
	is_owned, is_multiagency, exclusivity_hint,
	status, first_seen_at, last_seen_at`

// UpsertListing: ON CONFLICT обновляет изменяемые поля, first_seen_at не трогает.
// Координаты геокодера сохраняются, если портал их не прислал.
func (a *PostgresStorageAdapter) UpsertListing(ctx context.Context, listing domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	lat, lng := coordinatesArgs(listing.Coordinates)

	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $32)
		ON CONFLICT (portal, source_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			zone = EXCLUDED.zone,
			price = EXCLUDED.price,
			size = EXCLUDED.size,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			property_type = EXCLUDED.property_type,
			owner_type = EXCLUDED.owner_type,
			owner_confidence = EXCLUDED.owner_confidence,
			owner_reasoning = EXCLUDED.owner_reasoning,
			agency_name = EXCLUDED.agency_name,
			owner_contact = EXCLUDED.owner_contact,
			lat = COALESCE(EXCLUDED.lat, listings.lat),
			lng = COALESCE(EXCLUDED.lng, listings.lng),
			geohash = CASE WHEN EXCLUDED.lat IS NULL THEN listings.geohash ELSE EXCLUDED.geohash END,
			geocode_status = CASE WHEN EXCLUDED.lat IS NULL THEN listings.geocode_status ELSE EXCLUDED.geocode_status END,
			has_elevator = EXCLUDED.has_elevator,
			has_balcony = EXCLUDED.has_balcony,
			has_parking = EXCLUDED.has_parking,
			has_garden = EXCLUDED.has_garden,
			is_owned = EXCLUDED.is_owned,
			is_multiagency = EXCLUDED.is_multiagency,
			exclusivity_hint = EXCLUDED.exclusivity_hint,
			status = EXCLUDED.status,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING (xmax = 0), ` + listingColumns

	row := a.pool.QueryRow(ctx, query,
		listing.ID, listing.Portal, listing.SourceID, listing.URL, listing.Title, listing.Description,
		listing.Address, listing.City, listing.Zone,
		listing.Price, listing.Size, listing.Bedrooms, listing.Bathrooms, listing.PropertyType,
		string(listing.OwnerType), string(listing.OwnerConfidence), listing.OwnerReasoning, listing.AgencyName, listing.OwnerContact,
		lat, lng, listing.GeoHash, string(listing.GeocodeStatus),
		listing.Features.Elevator, listing.Features.Balcony, listing.Features.Parking, listing.Features.Garden,
		listing.IsOwned, listing.IsMultiagency, listing.ExclusivityHint,
		string(listing.Status), seenAt.UTC(),
	)

	var created bool
	stored, err := scanListing(row, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert listing %s: %w", listing.Key(), err)
	}

	contextkeys.LoggerFromContext(ctx).Debug("Listing upserted", port.Fields{
		"component":  "PostgresStorageAdapter",
		"listing_id": stored.ID.String(),
		"created":    created,
	})
	return &domain.UpsertOutcome{Created: created, Listing: *stored}, nil
}

func (a *PostgresStorageAdapter) UpdateGeocode(ctx context.Context, listingID uuid.UUID, coords *domain.Coordinates, geoHash string, status domain.GeocodeStatus) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if coords != nil {
		tag, err = a.pool.Exec(ctx,
			`UPDATE listings SET lat = $2, lng = $3, geohash = $4, geocode_status = $5 WHERE id = $1`,
			listingID, coords.Lat, coords.Lng, geoHash, string(status))
	} else {
		tag, err = a.pool.Exec(ctx, `UPDATE listings SET geocode_status = $2 WHERE id = $1`, listingID, string(status))
	}
	if err != nil {
		return fmt.Errorf("failed to update geocode for listing %s: %w", listingID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (a *PostgresStorageAdapter) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	row := a.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, listingID)
	l, err := scanListing(row, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", listingID, err)
	}
	return l, nil
}

func (a *PostgresStorageAdapter) ListAvailableSince(ctx context.Context, since time.Time) ([]domain.Listing, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM listings
		WHERE status = $1 AND last_seen_at >= $2
		ORDER BY portal, source_id`,
		string(domain.ListingAvailable), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list available listings: %w", err)
	}
	defer rows.Close()

	res := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

func coordinatesArgs(c *domain.Coordinates) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lat, lng := c.Lat, c.Lng
	return &lat, &lng
}

// scanListing читает колонки listingColumns; created != nil - перед ними идёт флаг вставки
func scanListing(row pgx.Row, created *bool) (*domain.Listing, error) {
	var (
		l                     domain.Listing
		ownerType, confidence string
		geocodeStatus, status string
		lat, lng              *float64
	)
	dest := []any{
		&l.ID, &l.Portal, &l.SourceID, &l.URL, &l.Title, &l.Description, &l.Address, &l.City, &l.Zone,
		&l.Price, &l.Size, &l.Bedrooms, &l.Bathrooms, &l.PropertyType,
		&ownerType, &confidence, &l.OwnerReasoning, &l.AgencyName, &l.OwnerContact,
		&lat, &lng, &l.GeoHash, &geocodeStatus,
		&l.Features.Elevator, &l.Features.Balcony, &l.Features.Parking, &l.Features.Garden,
		&l.IsOwned, &l.IsMultiagency, &l.ExclusivityHint,
		&status, &l.FirstSeenAt, &l.LastSeenAt,
	}
	if created != nil {
		dest = append([]any{created}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	l.OwnerType = domain.OwnerType(ownerType)
	l.OwnerConfidence = domain.Confidence(confidence)
	l.GeocodeStatus = domain.GeocodeStatus(geocodeStatus)
	l.Status = domain.ListingStatus(status)
	if lat != nil && lng != nil {
		l.Coordinates = &domain.Coordinates{Lat: *lat, Lng: *lng}
	}
	l.FirstSeenAt = l.FirstSeenAt.UTC()
	l.LastSeenAt = l.LastSeenAt.UTC()
	return &l, nil
}
