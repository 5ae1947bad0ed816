package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocoder_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Via Roma 1, Milano", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "outreach-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"45.4642","lon":"9.1900","display_name":"Via Roma"}]`))
	}))
	defer srv.Close()

	g, err := NewGeocoder(srv.URL, "outreach-test", time.Second)
	require.NoError(t, err)

	c, err := g.Geocode(context.Background(), "Via Roma 1", "Milano")
	require.NoError(t, err)
	assert.InDelta(t, 45.4642, c.Lat, 1e-9)
	assert.InDelta(t, 9.19, c.Lng, 1e-9)
}

func TestGeocoder_CityAlreadyInAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Corso Buenos Aires 5 Milano", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"lat":"45.48","lon":"9.21"}]`))
	}))
	defer srv.Close()

	g, _ := NewGeocoder(srv.URL, "ua", 0)
	_, err := g.Geocode(context.Background(), "Corso Buenos Aires 5 Milano", "milano")
	require.NoError(t, err)
}

func TestGeocoder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no results", status: http.StatusOK, body: `[]`, wantErr: ErrNoResults},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `slow down`},
		{name: "malformed", status: http.StatusOK, body: `[{"lat":"x","lon":"y"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, _ := NewGeocoder(srv.URL, "ua", time.Second)
			_, err := g.Geocode(context.Background(), "Via Po 3", "Torino")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewGeocoder_Validation(t *testing.T) {
	_, err := NewGeocoder("", "ua", 0)
	assert.Error(t, err)
	_, err = NewGeocoder("http://x", "", 0)
	assert.Error(t, err)
}
