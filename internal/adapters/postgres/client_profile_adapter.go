package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

func (a *PostgresStorageAdapter) ListActive(ctx context.Context) ([]domain.ClientProfile, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT c.id, c.name, c.phone, c.salutation, c.personality,
			p.id, p.max_price, p.min_size, p.rooms_wanted, p.property_type, p.search_polygon,
			p.wants_elevator, p.wants_balcony, p.wants_parking, p.wants_garden, p.active
		FROM clients c
		JOIN buyer_profiles p ON p.client_id = c.id
		WHERE p.active
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}
	defer rows.Close()

	res := make([]domain.ClientProfile, 0)
	for rows.Next() {
		var (
			cp      domain.ClientProfile
			polygon []byte
		)
		c, p := &cp.Client, &cp.Profile
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Salutation, &c.Personality,
			&p.ID, &p.MaxPrice, &p.MinSize, &p.RoomsWanted, &p.PropertyType, &polygon,
			&p.Wants.Elevator, &p.Wants.Balcony, &p.Wants.Parking, &p.Wants.Garden, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan client profile: %w", err)
		}
		p.ClientID = c.ID
		if p.SearchPolygon, err = decodePolygon(polygon); err != nil {
			return nil, fmt.Errorf("client %s: %w", c.ID, err)
		}
		res = append(res, cp)
	}
	return res, rows.Err()
}

// Save создаёт или заменяет клиента вместе с профилем
func (a *PostgresStorageAdapter) Save(ctx context.Context, profile domain.ClientProfile) error {
	if profile.Client.ID == uuid.Nil {
		profile.Client.ID = uuid.New()
	}
	if profile.Profile.ID == uuid.Nil {
		profile.Profile.ID = uuid.New()
	}
	polygon, err := encodePolygon(profile.Profile.SearchPolygon)
	if err != nil {
		return err
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c := profile.Client
	if _, err := tx.Exec(ctx, `
		INSERT INTO clients (id, name, phone, salutation, personality)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			salutation = EXCLUDED.salutation,
			personality = EXCLUDED.personality`,
		c.ID, c.Name, c.Phone, c.Salutation, c.Personality); err != nil {
		return fmt.Errorf("failed to save client %s: %w", c.ID, err)
	}

	p := profile.Profile
	if _, err := tx.Exec(ctx, `
		INSERT INTO buyer_profiles (id, client_id, max_price, min_size, rooms_wanted, property_type, search_polygon,
			wants_elevator, wants_balcony, wants_parking, wants_garden, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (client_id) DO UPDATE SET
			max_price = EXCLUDED.max_price,
			min_size = EXCLUDED.min_size,
			rooms_wanted = EXCLUDED.rooms_wanted,
			property_type = EXCLUDED.property_type,
			search_polygon = EXCLUDED.search_polygon,
			wants_elevator = EXCLUDED.wants_elevator,
			wants_balcony = EXCLUDED.wants_balcony,
			wants_parking = EXCLUDED.wants_parking,
			wants_garden = EXCLUDED.wants_garden,
			active = EXCLUDED.active`,
		p.ID, c.ID, p.MaxPrice, p.MinSize, p.RoomsWanted, p.PropertyType, polygon,
		p.Wants.Elevator, p.Wants.Balcony, p.Wants.Parking, p.Wants.Garden, p.Active); err != nil {
		return fmt.Errorf("failed to save buyer profile for client %s: %w", c.ID, err)
	}

	return tx.Commit(ctx)
}

// encodePolygon: пустой полигон хранится как NULL
func encodePolygon(points []domain.GeoPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search polygon: %w", err)
	}
	return data, nil
}

func decodePolygon(data []byte) ([]domain.GeoPoint, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var points []domain.GeoPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("failed to decode search polygon: %w", err)
	}
	return points, nil
}
