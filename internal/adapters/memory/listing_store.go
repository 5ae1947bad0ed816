// Package memory - хранилища в памяти процесса для разработки и тестов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

type ListingStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*domain.Listing
	byKey map[string]uuid.UUID
}

func NewListingStore() *ListingStore {
	return &ListingStore{
		byID:  make(map[uuid.UUID]*domain.Listing),
		byKey: make(map[string]uuid.UUID),
	}
}

func (s *ListingStore) UpsertListing(_ context.Context, listing domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listing.Key()
	if id, ok := s.byKey[key]; ok {
		merged := s.byID[id].MergeUpdate(listing, seenAt)
		s.byID[id] = &merged
		return &domain.UpsertOutcome{Created: false, Listing: merged}, nil
	}

	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	listing.FirstSeenAt = seenAt
	listing.LastSeenAt = seenAt
	stored := listing
	s.byID[listing.ID] = &stored
	s.byKey[key] = listing.ID
	return &domain.UpsertOutcome{Created: true, Listing: stored}, nil
}

func (s *ListingStore) UpdateGeocode(_ context.Context, listingID uuid.UUID, coords *domain.Coordinates, geoHash string, status domain.GeocodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byID[listingID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if coords != nil {
		c := *coords
		l.Coordinates = &c
		l.GeoHash = geoHash
	}
	l.GeocodeStatus = status
	return nil
}

func (s *ListingStore) GetListing(_ context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.byID[listingID]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	copied := *l
	return &copied, nil
}

func (s *ListingStore) ListAvailableSince(_ context.Context, since time.Time) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]domain.Listing, 0, len(s.byID))
	for _, l := range s.byID {
		if l.Status == domain.ListingAvailable && !l.LastSeenAt.Before(since) {
			res = append(res, *l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key() < res[j].Key() })
	return res, nil
}

// Count - число записей, для тестов и статистики
func (s *ListingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// GetByKey ищет запись по (portal, sourceId)
func (s *ListingStore) GetByKey(portal, sourceID string) (*domain.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[domain.ListingKey(portal, sourceID)]
	if !ok {
		return nil, false
	}
	copied := *s.byID[id]
	return &copied, true
}
