package location

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"phlebo/internal/types"
)

var ErrBadCoordinates = errors.New("coordinates out of range")

// PositionStore is implemented by *Store.
type PositionStore interface {
	SetPosition(ctx context.Context, id types.ID, pos types.Point) error
	Position(ctx context.Context, id types.ID) (types.Point, bool, error)
	AppendSnapshot(ctx context.Context, snap Snapshot) error
}

// ProfileFallback lets position lookups fall back to the last location stored
// on the collector profile when Redis has nothing.
type ProfileFallback interface {
	LastKnown(ctx context.Context, id types.ID) (*types.Point, error)
	UpdateLocation(ctx context.Context, id types.ID, pos types.Point, at time.Time) error
}

// Service handles high-frequency device pings: every update lands in Redis
// and on the profile row; every Nth update is also snapshotted to Postgres.
type Service struct {
	store          PositionStore
	profiles       ProfileFallback
	snapshotEveryN int64
	counter        atomic.Int64
}

func NewService(store PositionStore, profiles ProfileFallback, snapshotEveryN int) *Service {
	if snapshotEveryN < 1 {
		snapshotEveryN = 1
	}
	return &Service{store: store, profiles: profiles, snapshotEveryN: int64(snapshotEveryN)}
}

func (s *Service) Update(ctx context.Context, id types.ID, pos types.Point) error {
	if !pos.InRange() {
		return ErrBadCoordinates
	}
	now := time.Now().UTC()
	if err := s.store.SetPosition(ctx, id, pos); err != nil {
		return err
	}
	if s.profiles != nil {
		if err := s.profiles.UpdateLocation(ctx, id, pos, now); err != nil {
			return err
		}
	}
	if s.counter.Add(1)%s.snapshotEveryN == 0 {
		// Snapshot loss is tolerable; the live path must not fail on it.
		_ = s.store.AppendSnapshot(ctx, Snapshot{
			CollectorID: id,
			Position:    pos,
			RecordedAt:  now,
		})
	}
	return nil
}

// Position resolves a collector's current location: live value first, then
// the profile's last known location. ok=false when neither exists.
func (s *Service) Position(ctx context.Context, id types.ID) (types.Point, bool, error) {
	pos, ok, err := s.store.Position(ctx, id)
	if err != nil {
		return types.Point{}, false, err
	}
	if ok {
		return pos, true, nil
	}
	if s.profiles == nil {
		return types.Point{}, false, nil
	}
	last, err := s.profiles.LastKnown(ctx, id)
	if err != nil {
		return types.Point{}, false, err
	}
	if last == nil {
		return types.Point{}, false, nil
	}
	return *last, true, nil
}
