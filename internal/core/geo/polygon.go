package geo

import (
	"math"
	"outreach-service/internal/core/domain"
)

const epsilon = 1e-12

// ClosePolygon замыкает контур, если последняя вершина не совпадает с первой
func ClosePolygon(points []domain.GeoPoint) []domain.GeoPoint {
	if len(points) == 0 {
		return points
	}
	first, last := points[0], points[len(points)-1]
	if first.Lng == last.Lng && first.Lat == last.Lat {
		return points
	}
	closed := make([]domain.GeoPoint, 0, len(points)+1)
	closed = append(closed, points...)
	return append(closed, first)
}

// IsUsablePolygon - в полигоне минимум три различные вершины
func IsUsablePolygon(points []domain.GeoPoint) bool {
	distinct := make(map[domain.GeoPoint]struct{}, len(points))
	for _, p := range points {
		distinct[p] = struct{}{}
	}
	return len(distinct) >= 3
}

// Contains проверяет попадание точки в полигон (ray casting).
// Точка на границе считается внутренней.
func Contains(polygon []domain.GeoPoint, point domain.Coordinates) bool {
	ring := ClosePolygon(polygon)
	x, y := point.Lng, point.Lat

	inside := false
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		if onSegment(a, b, x, y) {
			return true
		}
		if (a.Lat > y) != (b.Lat > y) {
			xCross := a.Lng + (y-a.Lat)*(b.Lng-a.Lng)/(b.Lat-a.Lat)
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b domain.GeoPoint, x, y float64) bool {
	cross := (b.Lng-a.Lng)*(y-a.Lat) - (b.Lat-a.Lat)*(x-a.Lng)
	if math.Abs(cross) > epsilon {
		return false
	}
	return x >= math.Min(a.Lng, b.Lng)-epsilon && x <= math.Max(a.Lng, b.Lng)+epsilon &&
		y >= math.Min(a.Lat, b.Lat)-epsilon && y <= math.Max(a.Lat, b.Lat)+epsilon
}
