// Package nominatim - геокодер по API Nominatim (OpenStreetMap).
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"
)

// ErrNoResults - адрес не найден
var ErrNoResults = errors.New("geocoder: no results")

type Geocoder struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

func NewGeocoder(baseURL, userAgent string, timeout time.Duration) (*Geocoder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("geocoder URL is required")
	}
	if strings.TrimSpace(userAgent) == "" {
		// без User-Agent публичный Nominatim отвечает 403
		return nil, fmt.Errorf("geocoder user agent is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Geocoder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *Geocoder) Geocode(ctx context.Context, address, city string) (domain.Coordinates, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "NominatimGeocoder"})

	query := strings.TrimSpace(address)
	if city != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(city)) {
		query = strings.TrimSpace(query + ", " + city)
	}
	if query == "" {
		return domain.Coordinates{}, fmt.Errorf("geocoder: empty address")
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return domain.Coordinates{}, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinates{}, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(places) == 0 {
		return domain.Coordinates{}, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinates{}, fmt.Errorf("geocoder returned malformed coordinates %q,%q", places[0].Lat, places[0].Lon)
	}
	logger.Debug("Address geocoded", port.Fields{"query": query, "lat": lat, "lng": lng})
	return domain.Coordinates{Lat: lat, Lng: lng}, nil
}
