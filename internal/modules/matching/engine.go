// Package matching discovers and ranks eligible collectors for an order.
package matching

import (
	"context"
	"errors"

	"phlebo/internal/geo"
	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

// ErrLocationRequired means the order has no captured coordinates; spatial
// ranking is impossible without them.
var ErrLocationRequired = errors.New("order location required")

// Candidate is one eligible collector with room in the requested slot,
// annotated for the caller's pick.
type Candidate struct {
	CollectorID       types.ID
	Name              string
	DistanceKm        float64
	EstimatedFare     types.Money
	AvailableCapacity int
}

// Directory is the service-area lookup, implemented by the collector service.
type Directory interface {
	EligibleByPincode(ctx context.Context, pincode string) ([]collector.Profile, error)
}

// CapacityReader reads slot availability without reserving.
type CapacityReader interface {
	Available(ctx context.Context, key capacity.SlotKey, capacity int) (int, error)
}

// Locations resolves a collector's current position.
type Locations interface {
	Position(ctx context.Context, id types.ID) (types.Point, bool, error)
}

// FareEstimator is implemented by the pricing service.
type FareEstimator interface {
	Estimate(ctx context.Context, distanceKm float64) (types.Money, error)
}

// Engine is read-only: it consults capacity but never reserves, so results
// are advisory and may be stale by the time assignment runs. The assignment
// step re-validates under the ledger's atomicity.
type Engine struct {
	directory Directory
	ledger    CapacityReader
	locations Locations
	pricing   FareEstimator
	maxOut    int
}

func NewEngine(directory Directory, ledger CapacityReader, locations Locations, pricing FareEstimator, maxOut int) *Engine {
	return &Engine{
		directory: directory,
		ledger:    ledger,
		locations: locations,
		pricing:   pricing,
		maxOut:    maxOut,
	}
}

// FindCandidates returns eligible collectors for the order's pincode that
// have room in the (date, hour) bucket, sorted ascending by distance with
// CollectorID as tie-break so identical inputs always rank identically. An
// empty result is valid; the caller decides whether to escalate.
func (e *Engine) FindCandidates(ctx context.Context, o *order.Order, date string, hour int) ([]Candidate, error) {
	if o.Location == nil {
		return nil, ErrLocationRequired
	}

	eligible, err := e.directory.EligibleByPincode(ctx, o.Pincode)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(eligible))
	for i := range eligible {
		p := &eligible[i]
		if !p.WorksHour(hour) {
			continue
		}
		key := capacity.SlotKey{CollectorID: p.ID, Date: date, Hour: hour}
		avail, err := e.ledger.Available(ctx, key, p.CapacityPerHour)
		if err != nil {
			return nil, err
		}
		if avail == 0 {
			continue
		}
		pos, ok, err := e.locations.Position(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// No reported position; cannot be ranked by distance.
			continue
		}
		dist := geo.DistanceKm(*o.Location, pos)
		fare, err := e.pricing.Estimate(ctx, dist)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{
			CollectorID:       p.ID,
			Name:              p.Name,
			DistanceKm:        dist,
			EstimatedFare:     fare,
			AvailableCapacity: avail,
		})
	}

	geo.SortBy(candidates, func(a, b Candidate) bool {
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.CollectorID < b.CollectorID
	})

	if e.maxOut > 0 && len(candidates) > e.maxOut {
		candidates = candidates[:e.maxOut]
	}
	return candidates, nil
}
