package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoRate = errors.New("no active rate configured")

// Store reads fare rates from Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ActiveRate returns the most recently activated rate.
func (s *Store) ActiveRate(ctx context.Context) (Rate, error) {
	var r Rate
	err := s.db.QueryRow(ctx, `
        SELECT id, base_fare, per_km, currency, active
        FROM rates
        WHERE active = TRUE
        ORDER BY id DESC
        LIMIT 1`,
	).Scan(&r.ID, &r.BaseFare, &r.PerKm, &r.Currency, &r.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrNoRate
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}
