package usecase

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
)

// AntiDuplicationGuard отвечает на вопрос: был ли контакт с клиентом
// по этому объекту и каналу за последние windowDays дней. Только чтение.
type AntiDuplicationGuard struct {
	interactions port.InteractionLogPort
	now          func() time.Time
}

func NewAntiDuplicationGuard(interactions port.InteractionLogPort) (*AntiDuplicationGuard, error) {
	if interactions == nil {
		return nil, fmt.Errorf("interaction log cannot be nil")
	}
	return &AntiDuplicationGuard{
		interactions: interactions,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (g *AntiDuplicationGuard) HasRecentInteraction(ctx context.Context, clientID, propertyID uuid.UUID, channel domain.Channel, windowDays int) (bool, error) {
	since := g.now().AddDate(0, 0, -windowDays)
	key := domain.InteractionKey{ClientID: clientID, PropertyID: propertyID, Channel: channel}

	found, err := g.interactions.ExistsSince(ctx, key, since)
	if err != nil {
		return false, fmt.Errorf("anti-duplication lookup for %s failed: %w", key, err)
	}
	return found, nil
}
