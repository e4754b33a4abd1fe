// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"phlebo/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees. Symmetric, zero for equal points.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// SortBy performs an insertion sort (fine for small N) using the provided
// strict ordering. Callers supply a tie-break inside less to keep results
// deterministic.
func SortBy[T any](items []T, less func(a, b T) bool) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && less(key, items[j]) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
