// Package normalizer превращает разнородные записи порталов в каноническую форму.
package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/geo"
	"outreach-service/internal/core/textnorm"
)

var numberToken = regexp.MustCompile(`\d[\d.,]*`)

// итальянские названия квартир по количеству комнат
var roomWords = map[string]int{
	"monolocale":   1,
	"bilocale":     2,
	"trilocale":    3,
	"quadrilocale": 4,
	"pentalocale":  5,
	"plurilocale":  5,
}

type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize приводит сырую запись к Listing и возвращает сигналы для классификатора.
// Портал из записи приоритетнее переданного значения по умолчанию.
func (n *Normalizer) Normalize(raw domain.RawListing, defaultPortal string) (domain.Listing, domain.OwnerSignals, error) {
	listing := domain.Listing{}

	listing.Portal = strings.TrimSpace(raw.Portal)
	if listing.Portal == "" {
		listing.Portal = defaultPortal
	}
	listing.SourceID = strings.TrimSpace(raw.SourceID)
	if listing.Portal == "" || listing.SourceID == "" {
		return listing, domain.OwnerSignals{}, fmt.Errorf("%w: portal and source id are required", domain.ErrInvalidListing)
	}

	price, err := ParsePrice(raw.Price)
	if err != nil {
		return listing, domain.OwnerSignals{}, fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
	}
	listing.Price = price

	// площадь необязательна: 0 означает "неизвестно"
	if raw.Size != "" {
		size, err := ParseArea(raw.Size)
		if err != nil {
			return listing, domain.OwnerSignals{}, fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
		}
		listing.Size = size
	}
	listing.Bedrooms = ParseCount(raw.Bedrooms)
	listing.Bathrooms = ParseCount(raw.Bathrooms)

	listing.URL = strings.TrimSpace(raw.URL)
	listing.Title = textnorm.CollapseSpaces(raw.Title)
	listing.Description = textnorm.CollapseSpaces(raw.Description)
	listing.Address = textnorm.CollapseSpaces(raw.Address)
	listing.City = textnorm.TitleCase(raw.City)
	listing.Zone = textnorm.TitleCase(raw.Zone)
	listing.PropertyType = strings.ToLower(strings.TrimSpace(raw.PropertyType))
	if contact := strings.TrimSpace(raw.OwnerContact); contact != "" {
		listing.OwnerContact = &contact
	}

	listing.Features = domain.Features{
		Elevator: ParseFlag(raw.Elevator),
		Balcony:  ParseFlag(raw.Balcony),
		Parking:  ParseFlag(raw.Parking),
		Garden:   ParseFlag(raw.Garden),
	}
	listing.IsOwned = ParseOptionalFlag(raw.Owned)
	listing.IsMultiagency = ParseFlag(raw.Multiagency)
	listing.ExclusivityHint = ParseFlag(raw.Exclusive)

	if coords, ok := ParseCoordinates(raw.Latitude, raw.Longitude); ok {
		listing.Coordinates = &coords
		listing.GeoHash = geo.GeoHash(coords)
		listing.GeocodeStatus = domain.GeocodeProvided
	} else {
		listing.GeocodeStatus = domain.GeocodePending
	}
	listing.Status = domain.ListingAvailable

	signals := raw.Signals
	if signals.Title == "" {
		signals.Title = listing.Title
	}
	if signals.Description == "" {
		signals.Description = listing.Description
	}
	return listing, signals, nil
}

// ParsePrice разбирает цены вида "€ 320.000", "320.000,00 €", "320000".
func ParsePrice(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("price is missing")
	}
	value, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("price %q is negative", s)
	}
	return int64(value + 0.5), nil
}

// ParseArea разбирает площадь: "85 m²", "85,5 mq", "120"
func ParseArea(s string) (float64, error) {
	value, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	return value, nil
}

// ParseCount возвращает число комнат из "3", "3 locali" или "trilocale"; nil, если не удалось
func ParseCount(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if token := numberToken.FindString(s); token != "" {
		if v, err := strconv.Atoi(strings.SplitN(strings.SplitN(token, ".", 2)[0], ",", 2)[0]); err == nil {
			return &v
		}
	}
	for _, word := range textnorm.Words(textnorm.Fold(s)) {
		if v, ok := roomWords[word]; ok {
			return &v
		}
	}
	return nil
}

// ParseFlag - "si", "sì", "yes", "true", "1" считаются истиной
func ParseFlag(s string) bool {
	switch textnorm.Fold(strings.TrimSpace(s)) {
	case "si", "yes", "y", "true", "1", "x":
		return true
	}
	return false
}

// ParseOptionalFlag - пустая строка даёт nil
func ParseOptionalFlag(s string) *bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := ParseFlag(s)
	return &v
}

// ParseCoordinates принимает только пару корректных координат, отличную от (0, 0)
func ParseCoordinates(latStr, lngStr string) (domain.Coordinates, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinates{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 || (lat == 0 && lng == 0) {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: lat, Lng: lng}, true
}

// parseNumber берёт первое число из строки и определяет разделители.
// Если встречаются оба разделителя, десятичным считается последний.
// Одиночный разделитель с группой из трёх цифр после него - разделитель тысяч.
func parseNumber(s string) (float64, error) {
	token := numberToken.FindString(s)
	if token == "" {
		return 0, fmt.Errorf("no number found")
	}
	token = strings.TrimRight(token, ".,")

	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	var cleaned string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalSep, thousandSep := ".", ","
		if lastComma > lastDot {
			decimalSep, thousandSep = ",", "."
		}
		cleaned = strings.ReplaceAll(token, thousandSep, "")
		cleaned = strings.Replace(cleaned, decimalSep, ".", 1)
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		if lastComma >= 0 {
			sep = ","
		}
		parts := strings.Split(token, sep)
		if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
			cleaned = strings.ReplaceAll(token, sep, "")
		} else {
			cleaned = strings.Replace(token, sep, ".", 1)
		}
	default:
		cleaned = token
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}
