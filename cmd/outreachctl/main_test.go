package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"outreach-service/internal/core/classifier"
	"outreach-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfiles(t *testing.T) {
	data := []byte(`
clients:
  - name: Mario Rossi
    phone: "+39 333 123 4567"
    max_price: 250000
    min_size: 80
    rooms_wanted: 3
    search_polygon:
      - {lng: 10.60, lat: 44.68}
      - {lng: 10.66, lat: 44.68}
      - {lng: 10.66, lat: 44.72}
    wants:
      elevator: true
  - id: 5b0c6f0e-7f1e-4c39-9d55-2d9a0a6f3b11
    name: Giulia Bianchi
    phone: "3471112222"
    active: false
`)
	profiles, err := parseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	mario := profiles[0]
	assert.Equal(t, "393331234567", mario.Client.Phone)
	assert.Equal(t, mario.Client.ID, mario.Profile.ClientID)
	assert.Equal(t, int64(250000), mario.Profile.MaxPrice)
	require.NotNil(t, mario.Profile.RoomsWanted)
	assert.Equal(t, 3, *mario.Profile.RoomsWanted)
	assert.Len(t, mario.Profile.SearchPolygon, 3)
	assert.True(t, mario.Profile.Wants.Elevator)
	assert.True(t, mario.Profile.Active)

	giulia := profiles[1]
	assert.Equal(t, uuid.MustParse("5b0c6f0e-7f1e-4c39-9d55-2d9a0a6f3b11"), giulia.Client.ID)
	assert.False(t, giulia.Profile.Active)

	again, err := parseProfiles(data)
	require.NoError(t, err)
	assert.Equal(t, mario.Client.ID, again[0].Client.ID, "ids must be stable across imports")
	assert.Equal(t, mario.Profile.ID, again[0].Profile.ID)
}

func TestParseProfiles_Invalid(t *testing.T) {
	_, err := parseProfiles([]byte("clients:\n  - name: No Phone\n"))
	assert.ErrorContains(t, err, "phone is required")

	_, err = parseProfiles([]byte("clients:\n  - id: nope\n    phone: '3331234567'\n"))
	assert.ErrorContains(t, err, "invalid id")
}

func TestReadSignals(t *testing.T) {
	signals, err := readSignals(strings.NewReader(`{"advertiser_type":"agenzia","agency_name":"Casa Srl"}`))
	require.NoError(t, err)
	assert.Equal(t, "agenzia", signals.AdvertiserType)
	assert.Equal(t, "Casa Srl", signals.AgencyName)

	_, err = readSignals(strings.NewReader(`{"unknown":1}`))
	assert.Error(t, err)
}

func TestMatchFrom(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	t.Cleanup(func() {
		matchSince = ""
		matchLookback = 24 * time.Hour
	})

	matchSince, matchLookback = "", 6*time.Hour
	since, err := matchFrom(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-6*time.Hour), since)

	matchSince = "2025-03-01T00:00:00Z"
	since, err = matchFrom(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), since)

	matchSince = "yesterday"
	_, err = matchFrom(now)
	assert.Error(t, err)
}

func TestIngestCriteria(t *testing.T) {
	t.Cleanup(func() { ingestCity, ingestMaxPrice = "", 0 })

	ingestCity, ingestMaxPrice = "Reggio Emilia", 0
	criteria := ingestCriteria()
	assert.Equal(t, "Reggio Emilia", criteria.City)
	assert.Nil(t, criteria.MaxPrice)

	ingestMaxPrice = 300000
	criteria = ingestCriteria()
	require.NotNil(t, criteria.MaxPrice)
	assert.Equal(t, int64(300000), *criteria.MaxPrice)
}

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(`{"advertiser_type":"agenzia"}`))
	rootCmd.SetArgs([]string{"classify", "--keywords", ""})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var res classifier.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, domain.OwnerAgency, res.OwnerType)
	assert.Equal(t, domain.ConfidenceHigh, res.Confidence)
}
