package normalizer

import (
	"errors"
	"testing"

	"outreach-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"€ 320.000", 320000},
		{"320.000,00 €", 320000},
		{"320000", 320000},
		{"1.250.000", 1250000},
		{"1,250,000", 1250000},
		{"320000.0", 320000},
		{"EUR 99.500,50", 99501},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePrice("")
	assert.Error(t, err)
	_, err = ParsePrice("trattativa riservata")
	assert.Error(t, err)
}

func TestParseArea(t *testing.T) {
	v, err := ParseArea("85 m²")
	require.NoError(t, err)
	assert.Equal(t, 85.0, v)

	v, err = ParseArea("85 m2")
	require.NoError(t, err)
	assert.Equal(t, 85.0, v, "only the first number is taken")

	v, err = ParseArea("85,5 mq")
	require.NoError(t, err)
	assert.Equal(t, 85.5, v)
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 3, *ParseCount("3 locali"))
	assert.Equal(t, 2, *ParseCount("Bilocale"))
	assert.Nil(t, ParseCount(""))
	assert.Nil(t, ParseCount("n/d"))
}

func TestParseFlags(t *testing.T) {
	assert.True(t, ParseFlag("Sì"))
	assert.True(t, ParseFlag("true"))
	assert.False(t, ParseFlag("no"))
	assert.Nil(t, ParseOptionalFlag(" "))
	require.NotNil(t, ParseOptionalFlag("0"))
	assert.False(t, *ParseOptionalFlag("0"))
}

func TestParseCoordinates(t *testing.T) {
	c, ok := ParseCoordinates("45.4642", "9.19")
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 45.4642, Lng: 9.19}, c)

	_, ok = ParseCoordinates("0", "0")
	assert.False(t, ok)
	_, ok = ParseCoordinates("", "9.19")
	assert.False(t, ok)
	_, ok = ParseCoordinates("95", "9.19")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	n := New()
	raw := domain.RawListing{
		SourceID:    " 123 ",
		Title:       "Trilocale   luminoso",
		Description: "Ottimo stato",
		City:        "MILANO",
		Price:       "€ 300.000",
		Size:        "80 m²",
		Bedrooms:    "trilocale",
		Latitude:    "45.46",
		Longitude:   "9.19",
		Elevator:    "si",
		Signals:     domain.OwnerSignals{AdvertiserType: "privato"},
	}

	listing, signals, err := n.Normalize(raw, "immobiliare")
	require.NoError(t, err)
	assert.Equal(t, "immobiliare", listing.Portal)
	assert.Equal(t, "123", listing.SourceID)
	assert.Equal(t, "Trilocale luminoso", listing.Title)
	assert.Equal(t, "Milano", listing.City)
	assert.Equal(t, int64(300000), listing.Price)
	assert.Equal(t, 80.0, listing.Size)
	require.NotNil(t, listing.Bedrooms)
	assert.Equal(t, 3, *listing.Bedrooms)
	assert.True(t, listing.Features.Elevator)
	assert.Nil(t, listing.IsOwned)
	assert.Equal(t, domain.GeocodeProvided, listing.GeocodeStatus)
	assert.NotEmpty(t, listing.GeoHash)
	assert.Equal(t, domain.ListingAvailable, listing.Status)

	assert.Equal(t, "privato", signals.AdvertiserType)
	assert.Equal(t, "Trilocale luminoso", signals.Title)
}

func TestNormalizeWithoutCoordinates(t *testing.T) {
	listing, _, err := New().Normalize(domain.RawListing{SourceID: "1", Price: "1000"}, "p")
	require.NoError(t, err)
	assert.Nil(t, listing.Coordinates)
	assert.Equal(t, domain.GeocodePending, listing.GeocodeStatus)
	assert.Zero(t, listing.Size)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	_, _, err := New().Normalize(domain.RawListing{Price: "1000"}, "p")
	assert.True(t, errors.Is(err, domain.ErrInvalidListing))

	_, _, err = New().Normalize(domain.RawListing{SourceID: "1"}, "p")
	assert.True(t, errors.Is(err, domain.ErrInvalidListing))
}
