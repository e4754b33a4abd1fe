package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/types"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrConflict          = errors.New("order state conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBadRequest        = errors.New("bad request")
)

// Storage is implemented by *Store.
type Storage interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// SlotReleaser frees a capacity unit when a bound order is cancelled.
type SlotReleaser interface {
	ReleaseSlot(ctx context.Context, key capacity.SlotKey) error
}

// Service owns order intake and the post-assignment lifecycle. Assignment
// itself lives in the assignment package; this service only walks the state
// machine.
type Service struct {
	store Storage
	slots SlotReleaser
}

func NewService(store Storage, slots SlotReleaser) *Service {
	return &Service{store: store, slots: slots}
}

type CreateCommand struct {
	CustomerID    types.ID
	Location      *types.Point
	Pincode       string
	Address       string
	RequestedDate string
	RequestedHour int
	Amount        types.Money
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.CustomerID == "" || cmd.Pincode == "" || cmd.RequestedDate == "" {
		return "", ErrBadRequest
	}
	if cmd.RequestedHour < 0 || cmd.RequestedHour > 23 {
		return "", ErrBadRequest
	}
	if cmd.Location != nil && !cmd.Location.InRange() {
		return "", ErrBadRequest
	}
	if _, err := time.Parse("2006-01-02", cmd.RequestedDate); err != nil {
		return "", ErrBadRequest
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            types.ID(uuid.NewString()),
		CustomerID:    cmd.CustomerID,
		Status:        StatusPending,
		StatusVersion: 0,
		Location:      cmd.Location,
		Pincode:       collector.NormalizePincode(cmd.Pincode),
		Address:       cmd.Address,
		RequestedDate: cmd.RequestedDate,
		RequestedHour: cmd.RequestedHour,
		Amount:        cmd.Amount,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return o.ID, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// Actor identifies who requested a transition; recorded in the event log.
type Actor struct {
	Type string
	ID   types.ID
}

// MarkReached records the collector arriving at the customer location.
func (s *Service) MarkReached(ctx context.Context, id types.ID, actor Actor) error {
	return s.transition(ctx, id, StatusReached, actor, nil)
}

// MarkCollected records the sample being taken.
func (s *Service) MarkCollected(ctx context.Context, id types.ID, actor Actor) error {
	return s.transition(ctx, id, StatusCollected, actor, nil)
}

// MarkHandedOver records the sample being dropped at the lab.
func (s *Service) MarkHandedOver(ctx context.Context, id types.ID, actor Actor) error {
	return s.transition(ctx, id, StatusHandedOver, actor, nil)
}

// Confirm is the terminal administrative confirmation of lab intake.
func (s *Service) Confirm(ctx context.Context, id types.ID, actor Actor) error {
	return s.transition(ctx, id, StatusCompleted, actor, nil)
}

// Cancel stops an order before the sample is taken. If the order held a slot
// the capacity unit is returned; the binding itself is kept for audit.
func (s *Service) Cancel(ctx context.Context, id types.ID, actor Actor, reason string) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.applyTransition(ctx, o, StatusCancelled, actor, &reason); err != nil {
		return err
	}
	s.releaseIfBound(ctx, o)
	return nil
}

// Void marks a collected sample unusable. Admin-only terminal state; capacity
// is not returned because the visit already happened.
func (s *Service) Void(ctx context.Context, id types.ID, actor Actor, reason string) error {
	return s.transition(ctx, id, StatusVoided, actor, &reason)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, actor Actor, reason *string) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.applyTransition(ctx, o, to, actor, reason)
}

func (s *Service) applyTransition(ctx context.Context, o *Order, to Status, actor Actor, reason *string) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, o.StatusVersion, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	actorID := actor.ID
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   to,
		ActorType:  actor.Type,
		ActorID:    &actorID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	})
	return nil
}

func (s *Service) releaseIfBound(ctx context.Context, o *Order) {
	if s.slots == nil || !o.SlotBound() {
		return
	}
	_ = s.slots.ReleaseSlot(ctx, capacity.SlotKey{
		CollectorID: *o.CollectorID,
		Date:        *o.SlotDate,
		Hour:        *o.SlotHour,
	})
}
