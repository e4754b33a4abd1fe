// Package pricing computes visit fares from distance.
package pricing

import (
	"math"

	"phlebo/internal/types"
)

// Rate is a base charge plus a per-kilometre component, both in paise.
type Rate struct {
	ID       int64
	BaseFare int64
	PerKm    int64
	Currency string
	Active   bool
}

// DefaultRate backs estimation when no rate row is configured.
var DefaultRate = Rate{BaseFare: 10000, PerKm: 1500, Currency: "INR"}

// Fare is the pure fare curve: base plus pro-rated per-km, rounded up to the
// next paisa. Monotonically non-decreasing in distance.
func (r Rate) Fare(distanceKm float64) types.Money {
	if distanceKm < 0 {
		distanceKm = 0
	}
	variable := int64(math.Ceil(distanceKm * float64(r.PerKm)))
	return types.Money{Amount: r.BaseFare + variable, Currency: r.Currency}
}
