package domain

import "github.com/google/uuid"

// GeoPoint - вершина полигона поиска, порядок (lng, lat) как в GeoJSON
type GeoPoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Client - покупатель
type Client struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Salutation  string    `json:"salutation"`
	Personality string    `json:"personality,omitempty"`
}

// BuyerProfile - поисковый профиль покупателя (1:1 с Client)
type BuyerProfile struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      uuid.UUID  `json:"client_id"`
	MaxPrice      int64      `json:"max_price"`
	MinSize       float64    `json:"min_size"`
	RoomsWanted   *int       `json:"rooms_wanted,omitempty"`
	PropertyType  string     `json:"property_type,omitempty"`
	SearchPolygon []GeoPoint `json:"search_polygon,omitempty"`
	Wants         Features   `json:"wants"`
	Active        bool       `json:"active"`
}

// ClientProfile - клиент вместе с его профилем
type ClientProfile struct {
	Client  Client       `json:"client"`
	Profile BuyerProfile `json:"profile"`
}
