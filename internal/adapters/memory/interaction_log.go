package memory

import (
	"context"
	"sync"
	"time"

	"outreach-service/internal/core/domain"
)

type InteractionLog struct {
	mu      sync.RWMutex
	entries []domain.Interaction
}

func NewInteractionLog() *InteractionLog {
	return &InteractionLog{}
}

func (l *InteractionLog) ExistsSince(_ context.Context, key domain.InteractionKey, since time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ClientID == key.ClientID && e.PropertyID == key.PropertyID && e.Channel == key.Channel && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (l *InteractionLog) Append(_ context.Context, interaction *domain.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *interaction)
	return nil
}

// All возвращает копию журнала
func (l *InteractionLog) All() []domain.Interaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]domain.Interaction, len(l.entries))
	copy(res, l.entries)
	return res
}
