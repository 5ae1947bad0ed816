package rest

import (
	"time"

	"outreach-service/internal/core/domain"
)

type criteriaRequest struct {
	City         string `json:"city"`
	Zone         string `json:"zone"`
	PropertyType string `json:"property_type"`
	MinPrice     *int64 `json:"min_price"`
	MaxPrice     *int64 `json:"max_price"`
	MinSize      *int   `json:"min_size"`
	MaxSize      *int   `json:"max_size"`
	Bedrooms     *int   `json:"bedrooms"`
	MaxPages     int    `json:"max_pages"`
}

func (c criteriaRequest) toDomain() domain.SearchCriteria {
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

// matchRequest: since важнее lookback_hours; по умолчанию последние сутки
type matchRequest struct {
	Since         *time.Time `json:"since"`
	LookbackHours int        `json:"lookback_hours"`
}

func (m matchRequest) since(now time.Time) time.Time {
	if m.Since != nil {
		return m.Since.UTC()
	}
	hours := m.LookbackHours
	if hours <= 0 {
		hours = 24
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}

type ingestionResponse struct {
	Report *domain.IngestionReport `json:"report"`
	Totals domain.AdapterReport    `json:"totals"`
}

type portalHealth struct {
	Portal    string `json:"portal"`
	Available bool   `json:"available"`
}

type classifyRequest struct {
	Signals domain.OwnerSignals `json:"signals"`
}
