package domain

// SearchCriteria - параметры поиска, передаваемые всем адаптерам
type SearchCriteria struct {
	City         string `json:"city,omitempty"`
	Zone         string `json:"zone,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	MinPrice     *int64 `json:"min_price,omitempty"`
	MaxPrice     *int64 `json:"max_price,omitempty"`
	MinSize      *int   `json:"min_size,omitempty"`
	MaxSize      *int   `json:"max_size,omitempty"`
	Bedrooms     *int   `json:"bedrooms,omitempty"`
	MaxPages     int    `json:"max_pages,omitempty"`
}
