package rabbitmq

import (
	"time"

	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
)

// IngestionRunRequestDTO - входящее событие "запустить прогон"
type IngestionRunRequestDTO struct {
	RequestID  string      `json:"request_id,omitempty"`
	MatchAfter *bool       `json:"match_after,omitempty"`
	Criteria   CriteriaDTO `json:"criteria"`
}

type CriteriaDTO struct {
	City         string `json:"city"`
	Zone         string `json:"zone,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	MinPrice     *int64 `json:"min_price,omitempty"`
	MaxPrice     *int64 `json:"max_price,omitempty"`
	MinSize      *int   `json:"min_size,omitempty"`
	MaxSize      *int   `json:"max_size,omitempty"`
	Bedrooms     *int   `json:"bedrooms,omitempty"`
	MaxPages     int    `json:"max_pages,omitempty"`
}

func (c CriteriaDTO) toDomain() domain.SearchCriteria {
	return domain.SearchCriteria{
		City:         c.City,
		Zone:         c.Zone,
		PropertyType: c.PropertyType,
		MinPrice:     c.MinPrice,
		MaxPrice:     c.MaxPrice,
		MinSize:      c.MinSize,
		MaxSize:      c.MaxSize,
		Bedrooms:     c.Bedrooms,
		MaxPages:     c.MaxPages,
	}
}

// TaskCreatedDTO - исходящее событие о новой задаче
type TaskCreatedDTO struct {
	TaskID     uuid.UUID `json:"task_id"`
	Type       string    `json:"type"`
	ClientID   uuid.UUID `json:"client_id"`
	PropertyID uuid.UUID `json:"property_id"`
	Title      string    `json:"title"`
	Target     string    `json:"target,omitempty"`
	DueDate    string    `json:"due_date"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTaskCreatedDTO(t *domain.Task) TaskCreatedDTO {
	return TaskCreatedDTO{
		TaskID:     t.ID,
		Type:       string(t.Type),
		ClientID:   t.ClientID,
		PropertyID: t.PropertyID,
		Title:      t.Title,
		Target:     t.Target,
		DueDate:    t.DueDate.Format(time.DateOnly),
		CreatedAt:  t.CreatedAt,
	}
}

// CountersDTO - счётчики прогона. SourceFailures - адаптеры, не вернувшие выдачу.
type CountersDTO struct {
	Fetched        int `json:"fetched"`
	Imported       int `json:"imported"`
	Updated        int `json:"updated"`
	Duplicates     int `json:"duplicates"`
	Failed         int `json:"failed"`
	SourceFailures int `json:"source_failures"`
}

type AdapterReportDTO struct {
	CountersDTO
	Portal          string   `json:"portal"`
	Errors          []string `json:"errors"`
	ErrorsTruncated int      `json:"errors_truncated,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
}

type IngestionReportDTO struct {
	RunID      uuid.UUID          `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Totals     CountersDTO        `json:"totals"`
	Adapters   []AdapterReportDTO `json:"adapters"`
}

func countersOf(r domain.AdapterReport) CountersDTO {
	return CountersDTO{Fetched: r.Fetched, Imported: r.Imported, Updated: r.Updated, Duplicates: r.Duplicates, Failed: r.Failed, SourceFailures: r.SourceFailures}
}

func toIngestionReportDTO(r *domain.IngestionReport) IngestionReportDTO {
	dto := IngestionReportDTO{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Totals:     countersOf(r.Totals()),
		Adapters:   make([]AdapterReportDTO, 0, len(r.Adapters)),
	}
	for _, a := range r.Adapters {
		errs := a.Errors
		if errs == nil {
			errs = []string{}
		}
		dto.Adapters = append(dto.Adapters, AdapterReportDTO{
			CountersDTO:     countersOf(*a),
			Portal:          a.Portal,
			Errors:          errs,
			ErrorsTruncated: a.ErrorsTruncated,
			DurationMs:      a.DurationMs,
		})
	}
	return dto
}
