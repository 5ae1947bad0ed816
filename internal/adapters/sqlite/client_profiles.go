package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

func (a *SQLiteStorageAdapter) ListActive(ctx context.Context) ([]domain.ClientProfile, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.phone, c.salutation, c.personality,
			p.id, p.max_price, p.min_size, p.rooms_wanted, p.property_type, p.search_polygon,
			p.wants_elevator, p.wants_balcony, p.wants_parking, p.wants_garden, p.active
		FROM clients c
		JOIN buyer_profiles p ON p.client_id = c.id
		WHERE p.active = 1
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}
	defer rows.Close()

	res := make([]domain.ClientProfile, 0)
	for rows.Next() {
		var (
			cp      domain.ClientProfile
			polygon sql.NullString
		)
		c, p := &cp.Client, &cp.Profile
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Salutation, &c.Personality,
			&p.ID, &p.MaxPrice, &p.MinSize, &p.RoomsWanted, &p.PropertyType, &polygon,
			&p.Wants.Elevator, &p.Wants.Balcony, &p.Wants.Parking, &p.Wants.Garden, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan client profile: %w", err)
		}
		p.ClientID = c.ID
		if polygon.Valid && polygon.String != "" {
			if err := json.Unmarshal([]byte(polygon.String), &p.SearchPolygon); err != nil {
				return nil, fmt.Errorf("client %s: failed to decode search polygon: %w", c.ID, err)
			}
		}
		res = append(res, cp)
	}
	return res, rows.Err()
}

func (a *SQLiteStorageAdapter) Save(ctx context.Context, profile domain.ClientProfile) error {
	if profile.Client.ID == uuid.Nil {
		profile.Client.ID = uuid.New()
	}
	if profile.Profile.ID == uuid.Nil {
		profile.Profile.ID = uuid.New()
	}

	var polygon sql.NullString
	if len(profile.Profile.SearchPolygon) > 0 {
		data, err := json.Marshal(profile.Profile.SearchPolygon)
		if err != nil {
			return fmt.Errorf("failed to encode search polygon: %w", err)
		}
		polygon = sql.NullString{String: string(data), Valid: true}
	}

	c, p := profile.Client, profile.Profile
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO clients (id, name, phone, salutation, personality)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				phone = excluded.phone,
				salutation = excluded.salutation,
				personality = excluded.personality`,
			c.ID, c.Name, c.Phone, c.Salutation, c.Personality); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO buyer_profiles (id, client_id, max_price, min_size, rooms_wanted,
				property_type, search_polygon, wants_elevator, wants_balcony, wants_parking, wants_garden, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (client_id) DO UPDATE SET
				max_price = excluded.max_price,
				min_size = excluded.min_size,
				rooms_wanted = excluded.rooms_wanted,
				property_type = excluded.property_type,
				search_polygon = excluded.search_polygon,
				wants_elevator = excluded.wants_elevator,
				wants_balcony = excluded.wants_balcony,
				wants_parking = excluded.wants_parking,
				wants_garden = excluded.wants_garden,
				active = excluded.active`,
			p.ID, c.ID, p.MaxPrice, p.MinSize, p.RoomsWanted, p.PropertyType, polygon,
			p.Wants.Elevator, p.Wants.Balcony, p.Wants.Parking, p.Wants.Garden, p.Active)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save client profile %s: %w", c.ID, err)
	}
	return nil
}
