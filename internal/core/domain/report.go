package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdapterReport - статистика одного адаптера за прогон
type AdapterReport struct {
	Portal          string   `json:"portal"`
	Fetched         int      `json:"fetched"`
	Imported        int      `json:"imported"`
	Updated         int      `json:"updated"`
	Duplicates      int      `json:"duplicates"`
	Failed          int      `json:"failed"`
	SourceFailures  int      `json:"source_failures"` // 1, если сам адаптер не отдал выдачу
	Errors          []string `json:"errors"`
	ErrorsTruncated int      `json:"errors_truncated,omitempty"`
	DurationMs      int64    `json:"duration_ms"`

	maxErrors int
}

func NewAdapterReport(portal string, maxErrors int) *AdapterReport {
	return &AdapterReport{Portal: portal, Errors: []string{}, maxErrors: maxErrors}
}

// MarkSourceFailed фиксирует отказ адаптера целиком
func (r *AdapterReport) MarkSourceFailed(msg string) {
	r.SourceFailures = 1
	r.AddError(msg)
}

// AddError добавляет ошибку; сверх лимита ошибки только считаются
func (r *AdapterReport) AddError(msg string) {
	if r.maxErrors > 0 && len(r.Errors) >= r.maxErrors {
		r.ErrorsTruncated++
		return
	}
	r.Errors = append(r.Errors, msg)
}

// IngestionReport - итог прогона сбора объявлений
type IngestionReport struct {
	RunID      uuid.UUID        `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Adapters   []*AdapterReport `json:"adapters"`
}

// Adapter возвращает отчёт по порталу или nil
func (r *IngestionReport) Adapter(portal string) *AdapterReport {
	for _, a := range r.Adapters {
		if a.Portal == portal {
			return a
		}
	}
	return nil
}

// Totals суммирует счётчики по всем адаптерам
func (r *IngestionReport) Totals() AdapterReport {
	total := AdapterReport{Portal: "total"}
	for _, a := range r.Adapters {
		total.Fetched += a.Fetched
		total.Imported += a.Imported
		total.Updated += a.Updated
		total.Duplicates += a.Duplicates
		total.Failed += a.Failed
		total.SourceFailures += a.SourceFailures
	}
	return total
}

// TaskRunReport - итог работы TaskEngine
type TaskRunReport struct {
	Considered     int `json:"considered"`
	BelowThreshold int `json:"below_threshold"`
	Suppressed     int `json:"suppressed"`
	GuardErrors    int `json:"guard_errors"`
	Created        int `json:"created"`
	Refreshed      int `json:"refreshed"`
	Failed         int `json:"failed"`
	Dispatched     int `json:"dispatched"`
	DispatchFailed int `json:"dispatch_failed"`
}
