package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"outreach-service/internal/adapters/memory"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
)

type fakeAdapter struct {
	portal  string
	items   []domain.RawListing
	err     error
	panics  bool
	block   bool          // ждать отмены контекста
	started chan struct{} // закрывается при первом вызове
	release chan struct{} // если задан, Search ждёт его закрытия
	calls   atomic.Int32
	once    sync.Once
}

func (a *fakeAdapter) Portal() string { return a.portal }

func (a *fakeAdapter) IsAvailable(context.Context) bool { return a.err == nil }

func (a *fakeAdapter) Search(ctx context.Context, _ domain.SearchCriteria) ([]domain.RawListing, error) {
	a.calls.Add(1)
	if a.started != nil {
		a.once.Do(func() { close(a.started) })
	}
	if a.release != nil {
		<-a.release
	}
	if a.panics {
		panic("boom")
	}
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return a.items, a.err
}

func rawListings(portal string, ids ...string) []domain.RawListing {
	res := make([]domain.RawListing, 0, len(ids))
	for _, id := range ids {
		res = append(res, domain.RawListing{
			Portal:    portal,
			SourceID:  id,
			Title:     "Trilocale " + id,
			Price:     "€ 300.000",
			Size:      "80 m²",
			City:      "milano",
			Address:   "Via Roma " + id,
			Latitude:  "45.46",
			Longitude: "9.19",
		})
	}
	return res
}

// failingListingStore отказывает в сохранении выбранных sourceId
type failingListingStore struct {
	*memory.ListingStore
	failFor map[string]bool
}

func (s *failingListingStore) UpsertListing(ctx context.Context, l domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error) {
	if s.failFor[l.SourceID] {
		return nil, errors.New("connection reset")
	}
	return s.ListingStore.UpsertListing(ctx, l, seenAt)
}

// panickingListingStore падает на первом же сохранении
type panickingListingStore struct {
	*memory.ListingStore
	armed atomic.Bool
}

func (s *panickingListingStore) UpsertListing(ctx context.Context, l domain.Listing, seenAt time.Time) (*domain.UpsertOutcome, error) {
	if s.armed.Load() {
		panic("driver bug")
	}
	return s.ListingStore.UpsertListing(ctx, l, seenAt)
}

type fakeGeocoder struct {
	coords domain.Coordinates
	err    error
	calls  atomic.Int32
}

func (g *fakeGeocoder) Geocode(context.Context, string, string) (domain.Coordinates, error) {
	g.calls.Add(1)
	return g.coords, g.err
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []string
	result port.SendResult
	err    error
}

func (m *fakeMessenger) Send(_ context.Context, phone, text string) (port.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, phone)
	if m.err != nil {
		return port.SendResult{}, m.err
	}
	res := m.result
	if res == (port.SendResult{}) {
		res = port.SendResult{Success: true, ExternalID: fmt.Sprintf("msg-%d", len(m.sent))}
	}
	return res, nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type failingInteractionLog struct{}

func (failingInteractionLog) ExistsSince(context.Context, domain.InteractionKey, time.Time) (bool, error) {
	return false, errors.New("log unavailable")
}

func (failingInteractionLog) Append(context.Context, *domain.Interaction) error {
	return errors.New("log unavailable")
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e domain.TaskEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

type recordingPublisher struct {
	reports []*domain.IngestionReport
}

func (p *recordingPublisher) PublishReport(_ context.Context, r *domain.IngestionReport) error {
	p.reports = append(p.reports, r)
	return nil
}

type recordingMatcher struct {
	calls []time.Time
}

func (m *recordingMatcher) Execute(_ context.Context, since time.Time) (*domain.TaskRunReport, error) {
	m.calls = append(m.calls, since)
	return &domain.TaskRunReport{}, nil
}

func clientFixture(phone string) domain.Client {
	return domain.Client{ID: uuid.New(), Name: "Rossi", Salutation: "Gentile Sig.", Phone: phone}
}
