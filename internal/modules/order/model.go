// Package order holds the work-order aggregate and its fulfillment state
// machine.
package order

import (
	"time"

	"phlebo/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusReached    Status = "reached"
	StatusCollected  Status = "collected"
	StatusHandedOver Status = "handed_over"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusVoided is the explicit terminal state for samples that cannot
	// proceed after collection. Plain cancellation stops at reached; once a
	// sample is taken it is voided by an admin, never silently cancelled.
	StatusVoided Status = "voided"
)

// Order is one customer request for a home collection visit. Distance and
// fare are snapshotted at assignment time and never recomputed, so historical
// orders stay auditable when collector locations or rates change.
type Order struct {
	ID            types.ID
	CustomerID    types.ID
	Status        Status
	StatusVersion int

	Location *types.Point // nil until coordinates are captured
	Pincode  string
	Address  string

	RequestedDate string // YYYY-MM-DD
	RequestedHour int
	Amount        types.Money

	CollectorID *types.ID
	SlotDate    *string
	SlotHour    *int
	DistanceKm  *float64
	Fare        *types.Money

	CreatedAt    time.Time
	AssignedAt   *time.Time
	ReachedAt    *time.Time
	CollectedAt  *time.Time
	HandedOverAt *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	VoidedAt     *time.Time
	CancelReason *string
}

// Assigned reports whether the order currently holds a collector/slot binding.
func (o *Order) Assigned() bool {
	return o.CollectorID != nil
}

// SlotBound reports whether the order carries a complete slot binding.
func (o *Order) SlotBound() bool {
	return o.CollectorID != nil && o.SlotDate != nil && o.SlotHour != nil
}

// Event is one row of the append-only status history.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string // "admin", "collector", "customer", "system"
	ActorID    *types.ID
	Reason     *string
	CreatedAt  time.Time
}

// AllowedTransitions encodes the fulfillment flow as data. The
// assigned→pending edge is the explicit unassign/failed-reassign path.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusReached, StatusPending, StatusCancelled},
	StatusReached:    {StatusCollected, StatusCancelled},
	StatusCollected:  {StatusHandedOver, StatusVoided},
	StatusHandedOver: {StatusCompleted, StatusVoided},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
