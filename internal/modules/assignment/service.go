// Package assignment performs the exactly-once bind of an order to a
// collector time slot, with the capacity ledger as the concurrency guard.
package assignment

import (
	"context"
	"errors"
	"time"

	"phlebo/internal/geo"
	"phlebo/internal/logger"
	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/order"
	"phlebo/internal/types"
)

var (
	// ErrAlreadyAssigned means the order is bound; assignment is write-once
	// until an explicit unassign.
	ErrAlreadyAssigned = errors.New("order already assigned")
	// ErrNotEligible guards against client-supplied collector/pincode
	// mismatches, inactive collectors, and off-shift hours.
	ErrNotEligible = errors.New("collector not eligible for order")
	// ErrNotAssigned means reassign/unassign was called on an unbound order.
	ErrNotAssigned = errors.New("order not assigned")
)

// Orders is the slice of order storage the transaction needs.
type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	BindSlot(ctx context.Context, id types.ID, version int, collectorID types.ID, date string, hour int, distanceKm *float64, fare *types.Money) (bool, error)
	ClearSlot(ctx context.Context, id types.ID, version int) (bool, error)
	AppendEvent(ctx context.Context, e *order.Event) error
}

// Collectors resolves profiles for eligibility checks.
type Collectors interface {
	Get(ctx context.Context, id types.ID) (*collector.Profile, error)
}

// Locations resolves the collector's position for the distance snapshot.
type Locations interface {
	Position(ctx context.Context, id types.ID) (types.Point, bool, error)
}

// FareEstimator prices the snapshot written onto the order.
type FareEstimator interface {
	Estimate(ctx context.Context, distanceKm float64) (types.Money, error)
}

type Service struct {
	orders     Orders
	collectors Collectors
	ledger     capacity.Ledger
	locations  Locations
	pricing    FareEstimator
	log        logger.ILogger
}

func NewService(orders Orders, collectors Collectors, ledger capacity.Ledger, locations Locations, pricing FareEstimator, log logger.ILogger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		orders:     orders,
		collectors: collectors,
		ledger:     ledger,
		locations:  locations,
		pricing:    pricing,
		log:        log,
	}
}

// Result reports a committed binding.
type Result struct {
	OrderID     types.ID
	CollectorID types.ID
	Date        string
	Hour        int
	DistanceKm  *float64
	Fare        *types.Money
}

// Assign binds the order to the collector's (date, hour) slot. Preconditions
// are checked in order: unbound first, then eligibility, then capacity. The
// reservation and the order update commit together or not at all — a lost
// order CAS rolls the reservation back.
func (s *Service) Assign(ctx context.Context, orderID, collectorID types.ID, date string, hour int, actor order.Actor) (*Result, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Assigned() {
		return nil, ErrAlreadyAssigned
	}
	if o.Status != order.StatusPending {
		return nil, order.ErrInvalidTransition
	}

	prof, err := s.collectors.Get(ctx, collectorID)
	if err != nil {
		if errors.Is(err, collector.ErrNotFound) {
			return nil, ErrNotEligible
		}
		return nil, err
	}
	if !prof.Active || !prof.ServesPincode(o.Pincode) || !prof.WorksHour(hour) {
		return nil, ErrNotEligible
	}

	key := capacity.SlotKey{CollectorID: collectorID, Date: date, Hour: hour}
	res, err := s.ledger.TryReserve(ctx, key, prof.CapacityPerHour)
	if err != nil {
		return nil, err
	}

	distanceKm, fare, err := s.snapshot(ctx, o, collectorID)
	if err != nil {
		s.rollback(ctx, res)
		return nil, err
	}

	ok, err := s.orders.BindSlot(ctx, orderID, o.StatusVersion, collectorID, date, hour, distanceKm, fare)
	if err != nil {
		s.rollback(ctx, res)
		return nil, err
	}
	if !ok {
		// Another writer touched the order between Get and BindSlot.
		s.rollback(ctx, res)
		return nil, order.ErrConflict
	}

	actorID := actor.ID
	_ = s.orders.AppendEvent(ctx, &order.Event{
		OrderID:    orderID,
		FromStatus: order.StatusPending,
		ToStatus:   order.StatusAssigned,
		ActorType:  actor.Type,
		ActorID:    &actorID,
		CreatedAt:  nowUTC(),
	})
	s.log.Info("order assigned",
		logger.String("order_id", string(orderID)),
		logger.String("collector_id", string(collectorID)),
		logger.String("slot_date", date),
		logger.Int("slot_hour", hour),
	)
	return &Result{
		OrderID:     orderID,
		CollectorID: collectorID,
		Date:        date,
		Hour:        hour,
		DistanceKm:  distanceKm,
		Fare:        fare,
	}, nil
}

// Reassign moves an assigned order to a different collector/slot in two
// phases: release the old reservation, then reserve the new one. When the new
// reservation fails the order is left explicitly unassigned (pending, binding
// cleared) and the caller is told — never silently still bound to the old
// collector whose unit was already returned.
func (s *Service) Reassign(ctx context.Context, orderID, newCollectorID types.ID, date string, hour int, actor order.Actor) (*Result, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.SlotBound() {
		return nil, ErrNotAssigned
	}
	if o.Status != order.StatusAssigned {
		// Visits already underway cannot move.
		return nil, order.ErrInvalidTransition
	}

	oldKey := capacity.SlotKey{CollectorID: *o.CollectorID, Date: *o.SlotDate, Hour: *o.SlotHour}

	ok, err := s.orders.ClearSlot(ctx, orderID, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, order.ErrConflict
	}
	if err := s.ledger.ReleaseSlot(ctx, oldKey); err != nil {
		s.log.Error("release of old slot failed during reassign",
			logger.String("order_id", string(orderID)), logger.Error(err))
	}
	actorID := actor.ID
	_ = s.orders.AppendEvent(ctx, &order.Event{
		OrderID:    orderID,
		FromStatus: order.StatusAssigned,
		ToStatus:   order.StatusPending,
		ActorType:  actor.Type,
		ActorID:    &actorID,
		CreatedAt:  nowUTC(),
	})

	result, err := s.Assign(ctx, orderID, newCollectorID, date, hour, actor)
	if err != nil {
		// Order is now pending and holds no reservation; surface that rather
		// than restoring a binding whose capacity may already be taken.
		s.log.Warn("reassign failed; order left unassigned",
			logger.String("order_id", string(orderID)),
			logger.String("collector_id", string(newCollectorID)),
			logger.Error(err),
		)
		return nil, err
	}
	return result, nil
}

// Unassign releases the order's slot and returns it to pending.
func (s *Service) Unassign(ctx context.Context, orderID types.ID, actor order.Actor) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.SlotBound() {
		return ErrNotAssigned
	}
	if o.Status != order.StatusAssigned {
		return order.ErrInvalidTransition
	}

	key := capacity.SlotKey{CollectorID: *o.CollectorID, Date: *o.SlotDate, Hour: *o.SlotHour}
	ok, err := s.orders.ClearSlot(ctx, orderID, o.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return order.ErrConflict
	}
	if err := s.ledger.ReleaseSlot(ctx, key); err != nil {
		s.log.Error("release failed during unassign",
			logger.String("order_id", string(orderID)), logger.Error(err))
	}
	actorID := actor.ID
	_ = s.orders.AppendEvent(ctx, &order.Event{
		OrderID:    orderID,
		FromStatus: order.StatusAssigned,
		ToStatus:   order.StatusPending,
		ActorType:  actor.Type,
		ActorID:    &actorID,
		CreatedAt:  nowUTC(),
	})
	return nil
}

// snapshot computes the distance/fare pair written onto the order. A
// collector with no reported position yields a nil snapshot; the binding
// still proceeds.
func (s *Service) snapshot(ctx context.Context, o *order.Order, collectorID types.ID) (*float64, *types.Money, error) {
	if o.Location == nil {
		return nil, nil, nil
	}
	pos, ok, err := s.locations.Position(ctx, collectorID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	dist := geo.DistanceKm(*o.Location, pos)
	fare, err := s.pricing.Estimate(ctx, dist)
	if err != nil {
		return nil, nil, err
	}
	return &dist, &fare, nil
}

func (s *Service) rollback(ctx context.Context, res *capacity.Reservation) {
	if err := s.ledger.Release(ctx, res); err != nil {
		s.log.Error("reservation rollback failed", logger.Error(err))
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
