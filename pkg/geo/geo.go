// Package geo - расстояния на сфере для поиска ближайших исполнителей.
package geo

import "math"

const EarthRadiusKm = 6371.0

// DistanceKm - расстояние по формуле гаверсинусов
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Box - прямоугольник, заведомо содержащий круг радиуса radiusKm.
// У полюсов и при переходе через 180-й меридиан долгота берется целиком.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func BoundingBox(lat, lng, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	dLat := toDeg(angular)

	box := Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	// Полуширина по долготе: asin(sin(r)/cos(lat)). Линейное dLat/cos(lat)
	// на высоких широтах занижает ее и теряет точки внутри круга.
	sinRatio := math.Sin(angular) / math.Cos(toRad(lat))
	if sinRatio >= 1 {
		return box
	}
	dLng := toDeg(math.Asin(sinRatio))
	if lng-dLng < -180 || lng+dLng > 180 {
		return box
	}
	box.MinLng = lng - dLng
	box.MaxLng = lng + dLng
	return box
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
