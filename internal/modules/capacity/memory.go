package capacity

import (
	"context"
	"sync"
)

// MemoryLedger keeps booking counts in process memory with one mutex per
// bucket, so collectors and slots never contend with each other. Used by
// tests and single-node deployments.
type MemoryLedger struct {
	mu      sync.Mutex // guards the bucket map only
	buckets map[SlotKey]*bucket
}

type bucket struct {
	mu     sync.Mutex
	booked int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{buckets: make(map[SlotKey]*bucket)}
}

func (l *MemoryLedger) bucket(key SlotKey) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	return b
}

func (l *MemoryLedger) Available(_ context.Context, key SlotKey, capacity int) (int, error) {
	b := l.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	avail := capacity - b.booked
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

func (l *MemoryLedger) TryReserve(_ context.Context, key SlotKey, capacity int) (*Reservation, error) {
	b := l.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.booked >= capacity {
		return nil, ErrCapacityExceeded
	}
	b.booked++
	return newReservation(key), nil
}

func (l *MemoryLedger) Release(ctx context.Context, r *Reservation) error {
	if r == nil || !r.markReleased() {
		return ErrInvalidHandle
	}
	return l.ReleaseSlot(ctx, r.Key)
}

func (l *MemoryLedger) ReleaseSlot(_ context.Context, key SlotKey) error {
	b := l.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.booked > 0 {
		b.booked--
	}
	return nil
}
