package sqlite

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"
)

func (a *SQLiteStorageAdapter) ExistsSince(ctx context.Context, key domain.InteractionKey, since time.Time) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions
		WHERE client_id = ? AND property_id = ? AND channel = ? AND created_at >= ?`,
		key.ClientID, key.PropertyID, string(key.Channel), encodeTime(since),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up interactions for %s: %w", key, err)
	}
	return count > 0, nil
}

func (a *SQLiteStorageAdapter) Append(ctx context.Context, interaction *domain.Interaction) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO interactions (id, client_id, property_id, channel, body, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		interaction.ID, interaction.ClientID, interaction.PropertyID, string(interaction.Channel),
		interaction.Body, interaction.ExternalID, encodeTime(interaction.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}
