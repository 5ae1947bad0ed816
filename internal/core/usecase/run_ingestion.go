package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/classifier"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/geo"
	"outreach-service/internal/core/port"
	"outreach-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ListingNormalizer - контракт нормализатора для use case
type ListingNormalizer interface {
	Normalize(raw domain.RawListing, defaultPortal string) (domain.Listing, domain.OwnerSignals, error)
}

// OwnerClassifier - контракт классификатора для use case
type OwnerClassifier interface {
	Classify(signals domain.OwnerSignals) classifier.Result
}

// IngestionConfig - параметры прогона
type IngestionConfig struct {
	AdapterTimeout      time.Duration
	InterAdapterDelay   time.Duration
	Concurrency         int // 0 - по числу адаптеров
	MaxErrorsPerAdapter int
	GeocodeTimeout      time.Duration
}

// RunIngestionUseCase опрашивает все порталы, нормализует, классифицирует
// и сохраняет объявления. Сбой одного портала не влияет на остальные.
type RunIngestionUseCase struct {
	registry   *SourceRegistry
	normalizer ListingNormalizer
	classifier OwnerClassifier
	storage    port.ListingStoragePort
	geocoder   port.GeocoderPort
	guard      *RunGuard
	cfg        IngestionConfig

	publisher port.IngestionReportPublisherPort
	matcher   usecases_port.MatchListingsPort
	now       func() time.Time

	bgCtx      context.Context
	bgCancel   context.CancelFunc
	background sync.WaitGroup
}

type IngestionOption func(*RunIngestionUseCase)

func WithReportPublisher(p port.IngestionReportPublisherPort) IngestionOption {
	return func(uc *RunIngestionUseCase) { uc.publisher = p }
}

// WithFollowUpMatching запускает сопоставление с профилями после каждого прогона
func WithFollowUpMatching(m usecases_port.MatchListingsPort) IngestionOption {
	return func(uc *RunIngestionUseCase) { uc.matcher = m }
}

func WithClock(now func() time.Time) IngestionOption {
	return func(uc *RunIngestionUseCase) { uc.now = now }
}

func NewRunIngestionUseCase(
	registry *SourceRegistry,
	normalizer ListingNormalizer,
	classifier OwnerClassifier,
	storage port.ListingStoragePort,
	geocoder port.GeocoderPort,
	guard *RunGuard,
	cfg IngestionConfig,
	opts ...IngestionOption,
) (*RunIngestionUseCase, error) {
	if registry == nil {
		return nil, fmt.Errorf("source registry cannot be nil")
	}
	if normalizer == nil || classifier == nil {
		return nil, fmt.Errorf("normalizer and classifier cannot be nil")
	}
	if storage == nil {
		return nil, fmt.Errorf("listing storage cannot be nil")
	}
	if guard == nil {
		return nil, fmt.Errorf("run guard cannot be nil")
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 90 * time.Second
	}
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = 15 * time.Second
	}
	if cfg.MaxErrorsPerAdapter <= 0 {
		cfg.MaxErrorsPerAdapter = 20
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	uc := &RunIngestionUseCase{
		registry:   registry,
		normalizer: normalizer,
		classifier: classifier,
		storage:    storage,
		geocoder:   geocoder,
		guard:      guard,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		bgCtx:      bgCtx,
		bgCancel:   bgCancel,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc, nil
}

type fetchResult struct {
	items    []domain.RawListing
	err      error
	duration time.Duration
}

// Execute выполняет один прогон. Единственная ошибка - domain.ErrAlreadyRunning.
func (uc *RunIngestionUseCase) Execute(ctx context.Context, criteria domain.SearchCriteria) (*domain.IngestionReport, error) {
	if !uc.guard.TryAcquire() {
		contextkeys.LoggerFromContext(ctx).Warn("Ingestion run rejected: another run is in progress", nil)
		return nil, domain.ErrAlreadyRunning
	}

	defer uc.guard.Release()

	report := uc.run(ctx, criteria)

	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RunIngestion",
		"run_id":   report.RunID.String(),
	})

	if uc.publisher != nil {
		if err := uc.publisher.PublishReport(ctx, report); err != nil {
			ucLogger.Error("Failed to publish ingestion report", err, nil)
		}
	}
	if uc.matcher != nil {
		taskReport, err := uc.matcher.Execute(ctx, report.StartedAt)
		if err != nil {
			ucLogger.Error("Follow-up matching failed", err, nil)
		} else {
			ucLogger.Info("Follow-up matching finished", port.Fields{"tasks": taskReport})
		}
	}
	return report, nil
}

func (uc *RunIngestionUseCase) run(ctx context.Context, criteria domain.SearchCriteria) *domain.IngestionReport {
	report := &domain.IngestionReport{RunID: uuid.New(), StartedAt: uc.now()}

	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RunIngestion",
		"run_id":   report.RunID.String(),
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	adapters := uc.registry.All()
	ucLogger.Info("Use case started", port.Fields{"adapters": len(adapters)})

	results := uc.fetchAll(ctx, adapters, criteria)

	seen := make(map[string]struct{})
	for i, adapter := range adapters {
		if i > 0 && !sleepCtx(ctx, uc.cfg.InterAdapterDelay) {
			ucLogger.Warn("Run context cancelled between adapters", nil)
		}

		adapterReport := domain.NewAdapterReport(adapter.Portal(), uc.cfg.MaxErrorsPerAdapter)
		adapterReport.DurationMs = results[i].duration.Milliseconds()
		report.Adapters = append(report.Adapters, adapterReport)

		adapterLogger := ucLogger.WithFields(port.Fields{"portal": adapter.Portal()})
		if results[i].err != nil {
			adapterLogger.Error("Source adapter failed", results[i].err, nil)
			adapterReport.MarkSourceFailed(results[i].err.Error())
			continue
		}

		adapterReport.Fetched = len(results[i].items)
		adapterCtx := contextkeys.ContextWithLogger(ctx, adapterLogger)
		for _, raw := range results[i].items {
			uc.persist(adapterCtx, adapter.Portal(), raw, adapterReport, seen)
		}

		adapterLogger.Info("Adapter batch processed", port.Fields{
			"fetched":    adapterReport.Fetched,
			"imported":   adapterReport.Imported,
			"updated":    adapterReport.Updated,
			"duplicates": adapterReport.Duplicates,
			"failed":     adapterReport.Failed,
		})
	}

	report.FinishedAt = uc.now()
	totals := report.Totals()
	ucLogger.Info("Use case finished", port.Fields{
		"fetched":        totals.Fetched,
		"imported":       totals.Imported,
		"updated":        totals.Updated,
		"failed":         totals.Failed,
		"sources_failed": totals.SourceFailures,
	})
	return report
}

// fetchAll опрашивает адаптеры параллельно, не больше cfg.Concurrency одновременно
func (uc *RunIngestionUseCase) fetchAll(ctx context.Context, adapters []port.SourceAdapterPort, criteria domain.SearchCriteria) []fetchResult {
	results := make([]fetchResult, len(adapters))
	if len(adapters) == 0 {
		return results
	}

	limit := uc.cfg.Concurrency
	if limit <= 0 || limit > len(adapters) {
		limit = len(adapters)
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, adapter := range adapters {
		g.Go(func() error {
			started := time.Now()
			items, err := uc.fetchOne(ctx, adapter, criteria)
			results[i] = fetchResult{items: items, err: err, duration: time.Since(started)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchOne ограничивает вызов адаптера таймаутом, даже если адаптер игнорирует контекст
func (uc *RunIngestionUseCase) fetchOne(ctx context.Context, adapter port.SourceAdapterPort, criteria domain.SearchCriteria) ([]domain.RawListing, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, uc.cfg.AdapterTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()
		items, err := adapter.Search(fetchCtx, criteria)
		done <- fetchResult{items: items, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFailure, adapter.Portal(), res.err)
		}
		return res.items, nil
	case <-fetchCtx.Done():
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFailure, adapter.Portal(), fetchCtx.Err())
	}
}

func (uc *RunIngestionUseCase) persist(ctx context.Context, portal string, raw domain.RawListing, report *domain.AdapterReport, seen map[string]struct{}) {
	logger := contextkeys.LoggerFromContext(ctx)

	if err := ctx.Err(); err != nil {
		report.Failed++
		report.AddError(fmt.Sprintf("%s: run cancelled: %v", raw.SourceID, err))
		return
	}

	listing, signals, err := uc.normalizer.Normalize(raw, portal)
	if err != nil {
		report.Failed++
		report.AddError(fmt.Sprintf("%s: %v", raw.SourceID, err))
		logger.Debug("Listing rejected by normalizer", port.Fields{"source_id": raw.SourceID, "error": err.Error()})
		return
	}

	key := listing.Key()
	if _, dup := seen[key]; dup {
		report.Duplicates++
		return
	}
	seen[key] = struct{}{}

	owner := uc.classifier.Classify(signals)
	listing.OwnerType = owner.OwnerType
	listing.OwnerConfidence = owner.Confidence
	listing.OwnerReasoning = owner.Reasoning
	listing.AgencyName = owner.AgencyName
	listing.ID = uuid.New()

	outcome, err := uc.storage.UpsertListing(ctx, listing, uc.now())
	if err != nil {
		report.Failed++
		report.AddError(fmt.Sprintf("%s: %v", listing.SourceID, err))
		logger.Error("Failed to upsert listing", err, port.Fields{"source_id": listing.SourceID})
		return
	}
	if outcome.Created {
		report.Imported++
	} else {
		report.Updated++
	}

	uc.scheduleGeocode(logger, outcome.Listing)
}

// scheduleGeocode запускает фоновое геокодирование. Прогон его не ждёт;
// задача сама пишет результат или помечает объект как failed.
func (uc *RunIngestionUseCase) scheduleGeocode(logger port.LoggerPort, listing domain.Listing) {
	if uc.geocoder == nil || listing.Coordinates != nil || listing.GeocodeStatus != domain.GeocodePending {
		return
	}
	if listing.Address == "" && listing.City == "" {
		return
	}

	uc.background.Add(1)
	go func() {
		defer uc.background.Done()

		ctx, cancel := context.WithTimeout(uc.bgCtx, uc.cfg.GeocodeTimeout)
		defer cancel()
		jobLogger := logger.WithFields(port.Fields{"job": "geocode", "listing_id": listing.ID.String()})

		coords, err := uc.geocoder.Geocode(ctx, listing.Address, listing.City)
		if err != nil {
			jobLogger.Warn("Geocoding failed, marking listing", port.Fields{"error": err.Error()})
			if uerr := uc.storage.UpdateGeocode(ctx, listing.ID, nil, "", domain.GeocodeFailed); uerr != nil {
				jobLogger.Error("Failed to mark geocode failure", uerr, nil)
			}
			return
		}
		if err := uc.storage.UpdateGeocode(ctx, listing.ID, &coords, geo.GeoHash(coords), domain.GeocodeOK); err != nil {
			jobLogger.Error("Failed to store geocode result", err, nil)
			return
		}
		jobLogger.Debug("Listing geocoded", port.Fields{"lat": coords.Lat, "lng": coords.Lng})
	}()
}

// WaitBackground ждёт завершения фоновых задач геокодирования
func (uc *RunIngestionUseCase) WaitBackground() {
	uc.background.Wait()
}

// Shutdown отменяет фоновые задачи и ждёт их, но не дольше ctx
func (uc *RunIngestionUseCase) Shutdown(ctx context.Context) error {
	uc.bgCancel()
	done := make(chan struct{})
	go func() {
		uc.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background geocode jobs did not finish: %w", ctx.Err())
	}
}

// AdapterHealth возвращает доступность каждого портала
func (uc *RunIngestionUseCase) AdapterHealth(ctx context.Context) map[string]bool {
	health := make(map[string]bool, uc.registry.Len())
	for _, a := range uc.registry.All() {
		health[a.Portal()] = a.IsAvailable(ctx)
	}
	return health
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
