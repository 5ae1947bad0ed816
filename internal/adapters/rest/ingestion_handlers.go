package rest

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port/usecases_port"
)

// HealthChecker - опрос доступности порталов
type HealthChecker interface {
	AdapterHealth(ctx context.Context) map[string]bool
}

type IngestionHandler struct {
	runUC   usecases_port.RunIngestionPort
	matchUC usecases_port.MatchListingsPort
	health  HealthChecker
	now     func() time.Time
}

func NewIngestionHandler(runUC usecases_port.RunIngestionPort, matchUC usecases_port.MatchListingsPort, health HealthChecker) *IngestionHandler {
	return &IngestionHandler{
		runUC:   runUC,
		matchUC: matchUC,
		health:  health,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunIngestion обрабатывает POST /api/v1/ingestion/runs; прогон синхронный
func (h *IngestionHandler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	var req criteriaRequest
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.runUC.Execute(r.Context(), req.toDomain())
	if errors.Is(err, domain.ErrAlreadyRunning) {
		WriteJSONError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Error("Ingestion run failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "ingestion run failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, ingestionResponse{Report: report, Totals: report.Totals()})
}

// RunMatching обрабатывает POST /api/v1/matching/runs
func (h *IngestionHandler) RunMatching(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.matchUC.Execute(r.Context(), req.since(h.now()))
	if err != nil {
		logger.Error("Matching run failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "matching run failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}

// PortalHealth обрабатывает GET /api/v1/portals/health
func (h *IngestionHandler) PortalHealth(w http.ResponseWriter, r *http.Request) {
	health := h.health.AdapterHealth(r.Context())

	res := make([]portalHealth, 0, len(health))
	for p, ok := range health {
		res = append(res, portalHealth{Portal: p, Available: ok})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Portal < res[j].Portal })
	RespondWithJSON(w, http.StatusOK, res)
}
