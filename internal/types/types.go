// Package types holds the small value objects shared across modules.
package types

// ID identifies collectors, orders, and customers.
type ID string

// Point is the canonical coordinate pair used everywhere inside the engine.
// Handlers normalize whatever shape the client sends into this before any
// module sees it.
type Point struct {
	Lat float64
	Lng float64
}

// InRange reports whether the coordinates are within the valid
// latitude/longitude ranges.
func (p Point) InRange() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Money is an amount in the smallest currency unit (paise).
type Money struct {
	Amount   int64
	Currency string
}
