package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType - тип продавца объявления
type OwnerType string

const (
	OwnerPrivate OwnerType = "private"
	OwnerAgency  OwnerType = "agency"
)

// Confidence - уровень уверенности классификатора
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ListingStatus - статус объявления
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingWithdrawn ListingStatus = "withdrawn"
)

// GeocodeStatus - состояние геокодирования объекта
type GeocodeStatus string

const (
	GeocodeProvided GeocodeStatus = "provided" // координаты пришли от портала
	GeocodePending  GeocodeStatus = "pending"
	GeocodeOK       GeocodeStatus = "ok"
	GeocodeFailed   GeocodeStatus = "failed"
)

// Coordinates - точка в WGS84
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Features - удобства объекта
type Features struct {
	Elevator bool `json:"elevator"`
	Balcony  bool `json:"balcony"`
	Parking  bool `json:"parking"`
	Garden   bool `json:"garden"`
}

// Listing - каноническая запись объекта, одна на пару (Portal, SourceID)
type Listing struct {
	ID           uuid.UUID `json:"id"`
	Portal       string    `json:"portal"`
	SourceID     string    `json:"source_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	Zone         string    `json:"zone"`
	Price        int64     `json:"price"`
	Size         float64   `json:"size"` // 0 - площадь неизвестна
	Bedrooms     *int      `json:"bedrooms,omitempty"`
	Bathrooms    *int      `json:"bathrooms,omitempty"`
	PropertyType string    `json:"property_type"`

	OwnerType       OwnerType  `json:"owner_type"`
	OwnerConfidence Confidence `json:"owner_confidence"`
	OwnerReasoning  string     `json:"owner_reasoning"`
	AgencyName      *string    `json:"agency_name,omitempty"`
	OwnerContact    *string    `json:"owner_contact,omitempty"`

	Coordinates   *Coordinates  `json:"coordinates,omitempty"`
	GeoHash       string        `json:"geohash,omitempty"`
	GeocodeStatus GeocodeStatus `json:"geocode_status"`

	Features Features `json:"features"`

	// Происхождение объекта. IsOwned == nil трактуется как "наш объект".
	IsOwned         *bool `json:"is_owned,omitempty"`
	IsMultiagency   bool  `json:"is_multiagency"`
	ExclusivityHint bool  `json:"exclusivity_hint"`

	Status      ListingStatus `json:"status"`
	FirstSeenAt time.Time     `json:"first_seen_at"`
	LastSeenAt  time.Time     `json:"last_seen_at"`
}

// Key возвращает ключ дедупликации "portal:sourceId"
func (l Listing) Key() string {
	return ListingKey(l.Portal, l.SourceID)
}

// OwnedByUs - true, если объект наш (или флаг не задан)
func (l Listing) OwnedByUs() bool {
	return l.IsOwned == nil || *l.IsOwned
}

func ListingKey(portal, sourceID string) string {
	return portal + ":" + sourceID
}

// UpsertOutcome - результат сохранения объявления
type UpsertOutcome struct {
	Created bool
	Listing Listing
}

// MergeUpdate применяет свежие данные портала к сохранённой записи.
// ID и FirstSeenAt сохраняются; координаты, полученные геокодером,
// не затираются записью без координат.
func (l Listing) MergeUpdate(incoming Listing, seenAt time.Time) Listing {
	merged := incoming
	merged.ID = l.ID
	merged.FirstSeenAt = l.FirstSeenAt
	merged.LastSeenAt = seenAt
	if incoming.Coordinates == nil {
		merged.Coordinates = l.Coordinates
		merged.GeoHash = l.GeoHash
		merged.GeocodeStatus = l.GeocodeStatus
	}
	return merged
}
