package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

const listingColumns = `id, portal, source_id, url, title, description, address, city, zone,
	price, size, bedrooms, bathrooms, property_type,
	owner_type, owner_confidence, owner_reasoning, agency_name, owner_contact,
	lat, lng, geohash, geocode_status,
	has_elevator, has_balcony, has_parking, has_garden,
	is_owned, is_multiagency, exclusivity_hint,
	status, first_seen_at, last_seen_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// UpsertListing читает запись по ключу и сливает изменения через MergeUpdate
// внутри одной транзакции
func (a *SQLiteStorageAdapter) UpsertListing(ctx context.Context, listing domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error) {
	var outcome domain.UpsertOutcome
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE portal = ? AND source_id = ?`,
			listing.Portal, listing.SourceID)
		existing, err := scanListing(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if listing.ID == uuid.Nil {
				listing.ID = uuid.New()
			}
			listing.FirstSeenAt = seenAt.UTC()
			listing.LastSeenAt = seenAt.UTC()
			if _, err := tx.ExecContext(ctx, `INSERT INTO listings (`+listingColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				listingArgs(listing)...); err != nil {
				return err
			}
			outcome = domain.UpsertOutcome{Created: true, Listing: listing}
			return nil
		case err != nil:
			return err
		}

		merged := existing.MergeUpdate(listing, seenAt.UTC())
		args := append(listingArgs(merged)[1:], merged.ID)
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET
			portal = ?, source_id = ?, url = ?, title = ?, description = ?, address = ?, city = ?, zone = ?,
			price = ?, size = ?, bedrooms = ?, bathrooms = ?, property_type = ?,
			owner_type = ?, owner_confidence = ?, owner_reasoning = ?, agency_name = ?, owner_contact = ?,
			lat = ?, lng = ?, geohash = ?, geocode_status = ?,
			has_elevator = ?, has_balcony = ?, has_parking = ?, has_garden = ?,
			is_owned = ?, is_multiagency = ?, exclusivity_hint = ?,
			status = ?, first_seen_at = ?, last_seen_at = ?
			WHERE id = ?`, args...); err != nil {
			return err
		}
		outcome = domain.UpsertOutcome{Created: false, Listing: merged}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert listing %s: %w", listing.Key(), err)
	}
	return &outcome, nil
}

func (a *SQLiteStorageAdapter) UpdateGeocode(ctx context.Context, listingID uuid.UUID, coords *domain.Coordinates, geoHash string, status domain.GeocodeStatus) error {
	var (
		res sql.Result
		err error
	)
	if coords != nil {
		res, err = a.db.ExecContext(ctx,
			`UPDATE listings SET lat = ?, lng = ?, geohash = ?, geocode_status = ? WHERE id = ?`,
			coords.Lat, coords.Lng, geoHash, string(status), listingID)
	} else {
		res, err = a.db.ExecContext(ctx, `UPDATE listings SET geocode_status = ? WHERE id = ?`, string(status), listingID)
	}
	if err != nil {
		return fmt.Errorf("failed to update geocode for listing %s: %w", listingID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (a *SQLiteStorageAdapter) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, listingID)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", listingID, err)
	}
	return l, nil
}

func (a *SQLiteStorageAdapter) ListAvailableSince(ctx context.Context, since time.Time) ([]domain.Listing, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE status = ? AND last_seen_at >= ? ORDER BY portal, source_id`,
		string(domain.ListingAvailable), encodeTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list available listings: %w", err)
	}
	defer rows.Close()

	res := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

// listingArgs - значения в порядке listingColumns
func listingArgs(l domain.Listing) []any {
	var lat, lng *float64
	if l.Coordinates != nil {
		lat, lng = &l.Coordinates.Lat, &l.Coordinates.Lng
	}
	return []any{
		l.ID, l.Portal, l.SourceID, l.URL, l.Title, l.Description, l.Address, l.City, l.Zone,
		l.Price, l.Size, l.Bedrooms, l.Bathrooms, l.PropertyType,
		string(l.OwnerType), string(l.OwnerConfidence), l.OwnerReasoning, l.AgencyName, l.OwnerContact,
		lat, lng, l.GeoHash, string(l.GeocodeStatus),
		l.Features.Elevator, l.Features.Balcony, l.Features.Parking, l.Features.Garden,
		l.IsOwned, l.IsMultiagency, l.ExclusivityHint,
		string(l.Status), encodeTime(l.FirstSeenAt), encodeTime(l.LastSeenAt),
	}
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l                     domain.Listing
		ownerType, confidence string
		geocodeStatus, status string
		lat, lng              *float64
		firstSeen, lastSeen   string
	)
	if err := row.Scan(
		&l.ID, &l.Portal, &l.SourceID, &l.URL, &l.Title, &l.Description, &l.Address, &l.City, &l.Zone,
		&l.Price, &l.Size, &l.Bedrooms, &l.Bathrooms, &l.PropertyType,
		&ownerType, &confidence, &l.OwnerReasoning, &l.AgencyName, &l.OwnerContact,
		&lat, &lng, &l.GeoHash, &geocodeStatus,
		&l.Features.Elevator, &l.Features.Balcony, &l.Features.Parking, &l.Features.Garden,
		&l.IsOwned, &l.IsMultiagency, &l.ExclusivityHint,
		&status, &firstSeen, &lastSeen,
	); err != nil {
		return nil, err
	}

	var err error
	if l.FirstSeenAt, err = decodeTime(firstSeen); err != nil {
		return nil, err
	}
	if l.LastSeenAt, err = decodeTime(lastSeen); err != nil {
		return nil, err
	}
	l.OwnerType = domain.OwnerType(ownerType)
	l.OwnerConfidence = domain.Confidence(confidence)
	l.GeocodeStatus = domain.GeocodeStatus(geocodeStatus)
	l.Status = domain.ListingStatus(status)
	if lat != nil && lng != nil {
		l.Coordinates = &domain.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &l, nil
}
