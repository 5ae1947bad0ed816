package postgres

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"
)

func (a *PostgresStorageAdapter) ExistsSince(ctx context.Context, key domain.InteractionKey, since time.Time) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM interactions
			WHERE client_id = $1 AND property_id = $2 AND channel = $3 AND created_at >= $4
		)`,
		key.ClientID, key.PropertyID, string(key.Channel), since.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up interactions for %s: %w", key, err)
	}
	return exists, nil
}

// Append - журнал только пополняется, UPDATE/DELETE для него нет
func (a *PostgresStorageAdapter) Append(ctx context.Context, interaction *domain.Interaction) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO interactions (id, client_id, property_id, channel, body, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		interaction.ID, interaction.ClientID, interaction.PropertyID, string(interaction.Channel),
		interaction.Body, interaction.ExternalID, interaction.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}
