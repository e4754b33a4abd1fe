// Package capacity tracks per-collector, per-hour booking counts and exposes
// the atomic reserve/release operations the assignment path depends on.
package capacity

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"phlebo/internal/types"
)

var (
	// ErrCapacityExceeded means the bucket has no room left. Expected under
	// races; callers re-query candidates and try elsewhere.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidHandle means a release for a handle that was already released
	// or never successfully reserved.
	ErrInvalidHandle = errors.New("invalid reservation handle")
)

// SlotKey identifies one booking bucket. Buckets are independent: nothing in
// the ledger may lock across two different keys.
type SlotKey struct {
	CollectorID types.ID
	Date        string // YYYY-MM-DD, local calendar date
	Hour        int    // 0..23
}

// Reservation is the handle returned by a successful TryReserve. It is valid
// for exactly one Release.
type Reservation struct {
	ID  string
	Key SlotKey

	released atomic.Bool
}

func newReservation(key SlotKey) *Reservation {
	return &Reservation{ID: uuid.NewString(), Key: key}
}

// markReleased flips the handle to released; reports false if it already was.
func (r *Reservation) markReleased() bool {
	return !r.released.Swap(true)
}

// Ledger is the booking counter. The check-and-increment inside TryReserve is
// indivisible per key across concurrent callers; everything else tolerates
// staleness. capacity is the collector's per-hour limit at call time, supplied
// by the caller so the ledger stays independent of profile storage.
type Ledger interface {
	// Available returns capacity minus booked for the bucket, floored at zero.
	Available(ctx context.Context, key SlotKey, capacity int) (int, error)
	// TryReserve increments the booked count iff room remains, returning
	// ErrCapacityExceeded otherwise. No partial state on failure.
	TryReserve(ctx context.Context, key SlotKey, capacity int) (*Reservation, error)
	// Release returns one unit for a held reservation. A second Release of the
	// same handle fails with ErrInvalidHandle.
	Release(ctx context.Context, r *Reservation) error
	// ReleaseSlot returns one unit for the bucket without a handle; used when
	// the original reservation lives in another process (reassign, cancel).
	// Never drives the count below zero.
	ReleaseSlot(ctx context.Context, key SlotKey) error
}
