// Package collector manages field-worker profiles and the service-area lookup.
package collector

import (
	"strings"
	"time"

	"phlebo/internal/types"
)

// Profile describes one collector: the pincodes they serve, their working
// window, and how many visits they can take per hour.
type Profile struct {
	ID              types.ID
	Name            string
	Pincodes        []string
	StartHour       int // inclusive, 24h local time
	EndHour         int // exclusive
	CapacityPerHour int
	LastLocation    *types.Point
	LocatedAt       *time.Time
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ServesPincode reports whether the profile's service area contains the
// normalized pincode. Exact equality only; prefix matching would allow
// ambiguous cross-region assignment.
func (p *Profile) ServesPincode(pin string) bool {
	pin = NormalizePincode(pin)
	for _, s := range p.Pincodes {
		if s == pin {
			return true
		}
	}
	return false
}

// WorksHour reports whether the hour falls inside [StartHour, EndHour).
func (p *Profile) WorksHour(hour int) bool {
	return hour >= p.StartHour && hour < p.EndHour
}

// NormalizePincode trims whitespace and upper-cases so lookups are exact
// string comparisons. Applied at every boundary that accepts a pincode.
func NormalizePincode(pin string) string {
	return strings.ToUpper(strings.TrimSpace(pin))
}
