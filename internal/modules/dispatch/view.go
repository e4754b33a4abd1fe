package dispatch

import (
	"context"
	"errors"

	"phlebo/internal/geo"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

// ErrLocationUnknown means the collector has no known position, so the
// worklist cannot be ordered by live distance.
var ErrLocationUnknown = errors.New("dispatch: collector location unknown")

// Worklist is the slice of order storage the views read from.
type Worklist interface {
	ListAssigned(ctx context.Context, collectorID types.ID, date string) ([]order.Order, error)
	SummaryFor(ctx context.Context, collectorID types.ID, date string) (order.DaySummary, error)
}

// Locations resolves the collector's live position.
type Locations interface {
	Position(ctx context.Context, id types.ID) (types.Point, bool, error)
}

type View struct {
	orders    Worklist
	locations Locations
}

func NewView(orders Worklist, locations Locations) *View {
	return &View{orders: orders, locations: locations}
}

// Item is a worklist entry annotated with the live distance from the
// collector's current position. The fare shown is the snapshot taken at
// assignment time, not a re-estimate. Located is false for orders without
// coordinates; their DistanceKm is meaningless and they sort last.
type Item struct {
	Order      order.Order
	DistanceKm float64
	Located    bool
}

// WorklistFor returns the collector's open orders for a date sorted by
// live distance, closest first, order ID breaking ties.
func (v *View) WorklistFor(ctx context.Context, collectorID types.ID, date string) ([]Item, error) {
	pos, ok, err := v.locations.Position(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocationUnknown
	}

	orders, err := v.orders.ListAssigned(ctx, collectorID, date)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(orders))
	for _, o := range orders {
		item := Item{Order: o}
		if o.Location != nil {
			item.DistanceKm = geo.DistanceKm(pos, *o.Location)
			item.Located = true
		}
		items = append(items, item)
	}
	geo.SortBy(items, func(a, b Item) bool {
		if a.Located != b.Located {
			return a.Located
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Order.ID < b.Order.ID
	})
	return items, nil
}

// SummaryFor reports the collector's day at a glance.
func (v *View) SummaryFor(ctx context.Context, collectorID types.ID, date string) (order.DaySummary, error) {
	return v.orders.SummaryFor(ctx, collectorID, date)
}
