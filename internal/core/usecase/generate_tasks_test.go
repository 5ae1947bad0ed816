package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"outreach-service/internal/adapters/memory"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/phone"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allowedPhone = "+39 333 1234567"

type engineFixture struct {
	uc           *GenerateTasksUseCase
	tasks        *memory.TaskRepository
	interactions *memory.InteractionLog
	messenger    *fakeMessenger
	notifier     *recordingNotifier
}

func newEngine(t *testing.T, cfg TaskEngineConfig) *engineFixture {
	t.Helper()
	f := &engineFixture{
		tasks:        memory.NewTaskRepository(),
		interactions: memory.NewInteractionLog(),
		messenger:    &fakeMessenger{},
		notifier:     &recordingNotifier{},
	}
	guard, err := NewAntiDuplicationGuard(f.interactions)
	require.NoError(t, err)
	f.uc, err = NewGenerateTasksUseCase(guard, f.tasks, f.interactions, f.messenger, f.notifier, cfg)
	require.NoError(t, err)
	return f
}

func baseConfig() TaskEngineConfig {
	return TaskEngineConfig{ScoreThreshold: 70, AntiDupWindowDays: 30}
}

func enabledConfig() TaskEngineConfig {
	cfg := baseConfig()
	cfg.OutreachEnabled = true
	cfg.Allowlist = phone.NewAllowlist([]string{allowedPhone})
	return cfg
}

func boolPtr(v bool) *bool { return &v }

func matchFixture(score int, listing domain.Listing, client domain.Client) domain.ScoredMatch {
	return domain.ScoredMatch{
		Candidate: domain.MatchCandidate{ListingID: listing.ID, ClientID: client.ID, Score: score, Reasoning: "all criteria met"},
		Listing:   listing,
		Client:    client,
	}
}

func ownedListing() domain.Listing {
	return domain.Listing{
		ID:     uuid.New(),
		Portal: "alpha", SourceID: "1",
		Title: "Trilocale luminoso", City: "Milano",
		Price: 300000, Size: 80,
		URL:    "https://example.test/1",
		Status: domain.ListingAvailable,
	}
}

func TestGenerateTasks_ThresholdGate(t *testing.T) {
	f := newEngine(t, enabledConfig())
	client := clientFixture(allowedPhone)

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{
		matchFixture(69, ownedListing(), client),
		matchFixture(70, ownedListing(), client),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Considered)
	assert.Equal(t, 1, report.BelowThreshold)
	assert.Equal(t, 1, report.Created)
}

func TestGenerateTasks_DuplicateMatchYieldsOneTaskAndOneInteraction(t *testing.T) {
	f := newEngine(t, enabledConfig())
	client := clientFixture(allowedPhone)
	listing := ownedListing()

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{
		matchFixture(90, listing, client),
		matchFixture(95, listing, client),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, 1, report.Dispatched)

	open, _ := f.tasks.ListByStatus(context.Background(), domain.TaskOpen, 10, 0)
	assert.Len(t, open, 1)
	interactions := f.interactions.All()
	require.Len(t, interactions, 1)
	assert.Equal(t, domain.ChannelWhatsApp, interactions[0].Channel)
	assert.Contains(t, interactions[0].Body, "Trilocale luminoso")
	assert.Equal(t, "msg-1", interactions[0].ExternalID)
	assert.Equal(t, 1, f.messenger.count())
}

func TestGenerateTasks_ConcurrentCallsDoNotDoubleSend(t *testing.T) {
	f := newEngine(t, enabledConfig())
	client := clientFixture(allowedPhone)
	listing := ownedListing()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, listing, client)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.messenger.count())
	assert.Len(t, f.interactions.All(), 1)
	assert.Zero(t, f.uc.locks.size(), "per-triple locks must be released")
}

func TestGenerateTasks_TaskTypeBranching(t *testing.T) {
	client := clientFixture(allowedPhone)
	agency := "Gabetti Centro"
	contact := "+39 02 1234567"

	tests := []struct {
		name      string
		mutate    func(l *domain.Listing)
		wantType  domain.TaskType
		checkTask func(t *testing.T, task domain.Task)
	}{
		{
			name:     "unset provenance is treated as owned",
			mutate:   func(l *domain.Listing) {},
			wantType: domain.TaskSendMessage,
			checkTask: func(t *testing.T, task domain.Task) {
				assert.True(t, strings.HasPrefix(task.Target, "https://wa.me/393331234567?text="))
				assert.Contains(t, task.Notes, "Gentile Sig. Rossi")
			},
		},
		{
			name:     "owned listing",
			mutate:   func(l *domain.Listing) { l.IsOwned = boolPtr(true) },
			wantType: domain.TaskSendMessage,
		},
		{
			name: "multi-agency listing calls the owner",
			mutate: func(l *domain.Listing) {
				l.IsOwned = boolPtr(false)
				l.IsMultiagency = true
				l.OwnerContact = &contact
			},
			wantType: domain.TaskCallOwner,
			checkTask: func(t *testing.T, task domain.Task) {
				assert.Equal(t, contact, task.Target)
			},
		},
		{
			name: "foreign exclusive listing calls the agency",
			mutate: func(l *domain.Listing) {
				l.IsOwned = boolPtr(false)
				l.AgencyName = &agency
				l.ExclusivityHint = true
			},
			wantType: domain.TaskCallAgency,
			checkTask: func(t *testing.T, task domain.Task) {
				assert.Contains(t, task.Title, agency)
				assert.Contains(t, task.Notes, "exclusive")
				assert.Equal(t, "https://example.test/1", task.Target)
			},
		},
		{
			name:     "foreign non-exclusive listing",
			mutate:   func(l *domain.Listing) { l.IsOwned = boolPtr(false) },
			wantType: domain.TaskCallAgency,
			checkTask: func(t *testing.T, task domain.Task) {
				assert.Contains(t, task.Notes, "No exclusivity detected")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngine(t, baseConfig())
			listing := ownedListing()
			tt.mutate(&listing)
			assert.Equal(t, tt.wantType, SelectTaskType(listing))

			report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(80, listing, client)})
			require.NoError(t, err)
			require.Equal(t, 1, report.Created)

			open, _ := f.tasks.ListByStatus(context.Background(), domain.TaskOpen, 10, 0)
			require.Len(t, open, 1)
			task := open[0]
			assert.Equal(t, tt.wantType, task.Type)
			assert.Equal(t, domain.TaskOpen, task.Status)
			assert.Equal(t, client.ID, task.ClientID)
			assert.Equal(t, listing.ID, task.PropertyID)
			assert.NotEmpty(t, task.Title)
			today := time.Now().UTC()
			assert.Equal(t, time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), task.DueDate)
			if tt.checkTask != nil {
				tt.checkTask(t, task)
			}
			assert.Zero(t, f.messenger.count(), "outreach disabled by default")
		})
	}
}

func TestGenerateTasks_CallChannelsRespectGuard(t *testing.T) {
	f := newEngine(t, baseConfig())
	client := clientFixture(allowedPhone)
	listing := ownedListing()
	listing.IsOwned = boolPtr(false)
	listing.IsMultiagency = true

	key := domain.InteractionKey{ClientID: client.ID, PropertyID: listing.ID, Channel: domain.ChannelCallOwner}
	require.NoError(t, f.interactions.Append(context.Background(), domain.NewInteraction(key, "called", "")))

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, listing, client)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Suppressed)
	assert.Zero(t, report.Created)
}

func TestGenerateTasks_CompletedTaskIsNotRecreated(t *testing.T) {
	ctx := context.Background()
	client := clientFixture(allowedPhone)

	cases := map[string]struct {
		cfg     TaskEngineConfig
		listing func() domain.Listing
	}{
		"call owner": {cfg: baseConfig(), listing: func() domain.Listing {
			l := ownedListing()
			l.IsOwned = boolPtr(false)
			l.IsMultiagency = true
			return l
		}},
		"call agency": {cfg: baseConfig(), listing: func() domain.Listing {
			l := ownedListing()
			l.IsOwned = boolPtr(false)
			return l
		}},
		"message with outreach disabled": {cfg: baseConfig(), listing: ownedListing},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newEngine(t, tc.cfg)
			complete := NewCompleteTaskUseCase(f.tasks, f.interactions)
			match := matchFixture(90, tc.listing(), client)

			report, err := f.uc.Execute(ctx, []domain.ScoredMatch{match})
			require.NoError(t, err)
			require.Equal(t, 1, report.Created)

			open, err := f.tasks.ListByStatus(ctx, domain.TaskOpen, 10, 0)
			require.NoError(t, err)
			require.Len(t, open, 1)
			_, err = complete.Execute(ctx, open[0].ID)
			require.NoError(t, err)

			report, err = f.uc.Execute(ctx, []domain.ScoredMatch{match})
			require.NoError(t, err)
			assert.Zero(t, report.Created)
			assert.Equal(t, 1, report.Suppressed)

			open, err = f.tasks.ListByStatus(ctx, domain.TaskOpen, 10, 0)
			require.NoError(t, err)
			assert.Empty(t, open)
		})
	}
}

func TestGenerateTasks_OutreachDisabledKeepsSingleOpenTask(t *testing.T) {
	f := newEngine(t, baseConfig())
	client := clientFixture(allowedPhone)
	listing := ownedListing()

	for i := 0; i < 2; i++ {
		_, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, listing, client)})
		require.NoError(t, err)
	}

	open, _ := f.tasks.ListByStatus(context.Background(), domain.TaskOpen, 10, 0)
	assert.Len(t, open, 1)
	assert.Zero(t, f.messenger.count())
	assert.Empty(t, f.interactions.All())
	assert.Len(t, f.notifier.events, 1, "only the created task is announced")
}

func TestGenerateTasks_PhoneOutsideAllowlistIsNotMessaged(t *testing.T) {
	f := newEngine(t, enabledConfig())
	client := clientFixture("+39 347 9999999")

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, ownedListing(), client)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.Dispatched)
	assert.Zero(t, f.messenger.count())
}

func TestGenerateTasks_DispatchFailureKeepsTask(t *testing.T) {
	f := newEngine(t, enabledConfig())
	f.messenger.err = errors.New("gateway timeout")
	client := clientFixture(allowedPhone)

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, ownedListing(), client)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.DispatchFailed)
	assert.Empty(t, f.interactions.All())

	open, _ := f.tasks.ListByStatus(context.Background(), domain.TaskOpen, 10, 0)
	assert.Len(t, open, 1)
}

func TestGenerateTasks_GatewayRejectionIsDispatchFailure(t *testing.T) {
	f := newEngine(t, enabledConfig())
	f.messenger.result = port.SendResult{Success: false, Error: "invalid number"}

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, ownedListing(), clientFixture(allowedPhone))})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DispatchFailed)
	assert.Zero(t, report.Dispatched)
}

func TestGenerateTasks_GuardErrorSkipsMatch(t *testing.T) {
	guard, err := NewAntiDuplicationGuard(failingInteractionLog{})
	require.NoError(t, err)
	tasks := memory.NewTaskRepository()
	uc, err := NewGenerateTasksUseCase(guard, tasks, failingInteractionLog{}, nil, nil, baseConfig())
	require.NoError(t, err)

	report, err := uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(90, ownedListing(), clientFixture(allowedPhone))})
	require.NoError(t, err)
	assert.Equal(t, 1, report.GuardErrors)
	assert.Zero(t, report.Created)
}

func TestGenerateTasks_Validation(t *testing.T) {
	guard, _ := NewAntiDuplicationGuard(memory.NewInteractionLog())
	build := func(mutate func(cfg *TaskEngineConfig)) error {
		cfg := baseConfig()
		mutate(&cfg)
		_, err := NewGenerateTasksUseCase(guard, memory.NewTaskRepository(), memory.NewInteractionLog(), nil, nil, cfg)
		return err
	}

	assert.NoError(t, build(func(*TaskEngineConfig) {}))
	assert.ErrorContains(t, build(func(cfg *TaskEngineConfig) { cfg.OutreachEnabled = true }), "messenger")
	assert.Error(t, build(func(cfg *TaskEngineConfig) { cfg.MessageTemplate = "{{.Broken" }))
	assert.ErrorContains(t, build(func(cfg *TaskEngineConfig) { cfg.ScoreThreshold = -1 }), "score threshold")
	assert.ErrorContains(t, build(func(cfg *TaskEngineConfig) { cfg.ScoreThreshold = 101 }), "score threshold")
	assert.ErrorContains(t, build(func(cfg *TaskEngineConfig) { cfg.AntiDupWindowDays = 0 }), "anti-duplication window")
}

func TestGenerateTasks_ZeroThresholdAdmitsEveryMatch(t *testing.T) {
	cfg := baseConfig()
	cfg.ScoreThreshold = 0
	f := newEngine(t, cfg)

	report, err := f.uc.Execute(context.Background(), []domain.ScoredMatch{matchFixture(50, ownedListing(), clientFixture(allowedPhone))})
	require.NoError(t, err)
	assert.Zero(t, report.BelowThreshold)
	assert.Equal(t, 1, report.Created)
}

func TestAntiDuplicationGuard_Window(t *testing.T) {
	log := memory.NewInteractionLog()
	guard, err := NewAntiDuplicationGuard(log)
	require.NoError(t, err)
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	key := domain.InteractionKey{ClientID: uuid.New(), PropertyID: uuid.New(), Channel: domain.ChannelWhatsApp}
	old := domain.NewInteraction(key, "", "")
	old.CreatedAt = now.AddDate(0, 0, -31)
	require.NoError(t, log.Append(context.Background(), old))

	found, err := guard.HasRecentInteraction(context.Background(), key.ClientID, key.PropertyID, key.Channel, 30)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = guard.HasRecentInteraction(context.Background(), key.ClientID, key.PropertyID, key.Channel, 45)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMessageRendering(t *testing.T) {
	r, err := newMessageRenderer("")
	require.NoError(t, err)
	listing := ownedListing()
	listing.Price = 1250000

	body, err := r.Render(domain.Client{Name: "Bianchi"}, listing, 88)
	require.NoError(t, err)
	assert.Contains(t, body, "Gentile Bianchi")
	assert.Contains(t, body, "1.250.000 €")
	assert.Contains(t, body, "80 m²")
	assert.Contains(t, body, "https://example.test/1")

	assert.Equal(t, "300", formatThousands(300))
	assert.Equal(t, "300.000", formatThousands(300000))
}
