package capacity

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed ledger. The check-and-increment is a single
// conditional UPDATE, so the database serializes racers on the same row while
// distinct buckets touch distinct rows.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Available(ctx context.Context, key SlotKey, capacity int) (int, error) {
	var booked int
	err := s.db.QueryRow(ctx, `
        SELECT COALESCE(
            (SELECT booked FROM capacity_slots
             WHERE collector_id = $1 AND slot_date = $2 AND slot_hour = $3), 0)`,
		string(key.CollectorID), key.Date, key.Hour,
	).Scan(&booked)
	if err != nil {
		return 0, err
	}
	avail := capacity - booked
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

func (s *Store) TryReserve(ctx context.Context, key SlotKey, capacity int) (*Reservation, error) {
	// Row is created lazily at zero, then the guarded increment either takes a
	// unit or matches no row. Both statements are idempotent on conflict, so
	// no explicit transaction is needed.
	_, err := s.db.Exec(ctx, `
        INSERT INTO capacity_slots (collector_id, slot_date, slot_hour, booked)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (collector_id, slot_date, slot_hour) DO NOTHING`,
		string(key.CollectorID), key.Date, key.Hour,
	)
	if err != nil {
		return nil, err
	}

	tag, err := s.db.Exec(ctx, `
        UPDATE capacity_slots
        SET booked = booked + 1
        WHERE collector_id = $1 AND slot_date = $2 AND slot_hour = $3
          AND booked < $4`,
		string(key.CollectorID), key.Date, key.Hour, capacity,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrCapacityExceeded
	}
	return newReservation(key), nil
}

func (s *Store) Release(ctx context.Context, r *Reservation) error {
	if r == nil || !r.markReleased() {
		return ErrInvalidHandle
	}
	return s.ReleaseSlot(ctx, r.Key)
}

func (s *Store) ReleaseSlot(ctx context.Context, key SlotKey) error {
	_, err := s.db.Exec(ctx, `
        UPDATE capacity_slots
        SET booked = booked - 1
        WHERE collector_id = $1 AND slot_date = $2 AND slot_hour = $3
          AND booked > 0`,
		string(key.CollectorID), key.Date, key.Hour,
	)
	return err
}
