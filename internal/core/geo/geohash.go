package geo

import (
	"outreach-service/internal/core/domain"

	"github.com/mmcloughlin/geohash"
)

// HashPrecision - 7 символов, ячейка примерно 150x150 м.
// Хэш хранится как подсказка для будущего объединения дублей между порталами.
const HashPrecision = 7

func GeoHash(c domain.Coordinates) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lng, HashPrecision)
}
