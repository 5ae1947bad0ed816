package postgres

import (
	"testing"

	"outreach-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresStorageAdapter_NilPool(t *testing.T) {
	_, err := NewPostgresStorageAdapter(nil)
	assert.Error(t, err)
}

func TestPolygonCodec(t *testing.T) {
	empty, err := encodePolygon(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	points := []domain.GeoPoint{{Lng: 9.1, Lat: 45.4}, {Lng: 9.3, Lat: 45.4}, {Lng: 9.2, Lat: 45.6}}
	data, err := encodePolygon(points)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"lng":9.1,"lat":45.4},{"lng":9.3,"lat":45.4},{"lng":9.2,"lat":45.6}]`, string(data))

	decoded, err := decodePolygon(data)
	require.NoError(t, err)
	assert.Equal(t, points, decoded)

	decoded, err = decodePolygon([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decodePolygon([]byte("{"))
	assert.Error(t, err)
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestCoordinatesArgs(t *testing.T) {
	lat, lng := coordinatesArgs(nil)
	assert.Nil(t, lat)
	assert.Nil(t, lng)

	lat, lng = coordinatesArgs(&domain.Coordinates{Lat: 45.46, Lng: 9.19})
	require.NotNil(t, lat)
	assert.Equal(t, 45.46, *lat)
	assert.Equal(t, 9.19, *lng)
}
