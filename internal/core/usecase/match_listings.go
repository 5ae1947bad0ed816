package usecase

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/matching"
	"outreach-service/internal/core/port"
	"outreach-service/internal/core/port/usecases_port"
)

// MatchListingsUseCase сопоставляет свежие объекты со всеми активными профилями
// и передаёт оценки в TaskEngine.
type MatchListingsUseCase struct {
	listings port.ListingStoragePort
	profiles port.ClientProfileRepositoryPort
	scorer   *matching.Scorer
	engine   usecases_port.GenerateTasksPort
}

func NewMatchListingsUseCase(
	listings port.ListingStoragePort,
	profiles port.ClientProfileRepositoryPort,
	scorer *matching.Scorer,
	engine usecases_port.GenerateTasksPort,
) (*MatchListingsUseCase, error) {
	if listings == nil || profiles == nil || scorer == nil || engine == nil {
		return nil, fmt.Errorf("match listings dependencies cannot be nil")
	}
	return &MatchListingsUseCase{listings: listings, profiles: profiles, scorer: scorer, engine: engine}, nil
}

func (uc *MatchListingsUseCase) Execute(ctx context.Context, since time.Time) (*domain.TaskRunReport, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "MatchListings",
		"since":    since.Format(time.RFC3339),
	})
	ucLogger.Info("Use case started", nil)

	listings, err := uc.listings.ListAvailableSince(ctx, since)
	if err != nil {
		ucLogger.Error("Failed to load listings", err, nil)
		return nil, fmt.Errorf("failed to load listings since %s: %w", since.Format(time.RFC3339), err)
	}
	profiles, err := uc.profiles.ListActive(ctx)
	if err != nil {
		ucLogger.Error("Failed to load buyer profiles", err, nil)
		return nil, fmt.Errorf("failed to load buyer profiles: %w", err)
	}

	matches := make([]domain.ScoredMatch, 0, len(listings))
	gated := 0
	for _, cp := range profiles {
		for _, l := range listings {
			candidate := uc.scorer.Score(l, cp.Profile)
			if candidate.Gated {
				gated++
				continue
			}
			matches = append(matches, domain.ScoredMatch{Candidate: candidate, Listing: l, Client: cp.Client})
		}
	}
	ucLogger.Info("Scoring finished", port.Fields{
		"listings": len(listings),
		"profiles": len(profiles),
		"gated":    gated,
		"passed":   len(matches),
	})

	return uc.engine.Execute(contextkeys.ContextWithLogger(ctx, ucLogger), matches)
}
