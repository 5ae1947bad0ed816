package memory

import (
	"context"
	"sort"
	"sync"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

type ClientProfileRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]domain.ClientProfile
}

func NewClientProfileRepository(profiles ...domain.ClientProfile) *ClientProfileRepository {
	r := &ClientProfileRepository{profiles: make(map[uuid.UUID]domain.ClientProfile)}
	for _, p := range profiles {
		r.profiles[p.Client.ID] = p
	}
	return r
}

func (r *ClientProfileRepository) ListActive(_ context.Context) ([]domain.ClientProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]domain.ClientProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if p.Profile.Active {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Client.Name < res[j].Client.Name })
	return res, nil
}

func (r *ClientProfileRepository) Save(_ context.Context, profile domain.ClientProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile.Client.ID == uuid.Nil {
		profile.Client.ID = uuid.New()
	}
	profile.Profile.ClientID = profile.Client.ID
	if profile.Profile.ID == uuid.Nil {
		profile.Profile.ID = uuid.New()
	}
	r.profiles[profile.Client.ID] = profile
	return nil
}
