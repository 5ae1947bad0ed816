package domain

// OwnerSignals - набор сигналов о продавце, собранных адаптером
type OwnerSignals struct {
	PreclassifiedOwnerType string `json:"preclassified_owner_type,omitempty"`
	AdvertiserType         string `json:"advertiser_type,omitempty"`
	AdvertiserName         string `json:"advertiser_name,omitempty"`
	AgencyName             string `json:"agency_name,omitempty"`
	AgencyID               string `json:"agency_id,omitempty"`
	ContactType            string `json:"contact_type,omitempty"`
	ContactBlock           string `json:"contact_block,omitempty"`
	Title                  string `json:"title,omitempty"`
	Description            string `json:"description,omitempty"`
}

// RawListing - запись в том виде, в каком её отдал портал.
// Все скалярные значения хранятся строками: формат у порталов разный.
type RawListing struct {
	Portal       string `json:"portal"`
	SourceID     string `json:"source_id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Zone         string `json:"zone"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	Bedrooms     string `json:"bedrooms"`
	Bathrooms    string `json:"bathrooms"`
	PropertyType string `json:"property_type"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	OwnerContact string `json:"owner_contact"`

	Elevator string `json:"elevator"`
	Balcony  string `json:"balcony"`
	Parking  string `json:"parking"`
	Garden   string `json:"garden"`

	Owned       string `json:"owned"`
	Multiagency string `json:"multiagency"`
	Exclusive   string `json:"exclusive"`

	Signals OwnerSignals `json:"signals"`
}
