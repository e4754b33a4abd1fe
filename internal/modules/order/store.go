package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"phlebo/internal/types"
)

// Store persists orders in Postgres. Every status change goes through a
// compare-and-swap on (status, status_version) so concurrent writers cannot
// clobber each other.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
        id, customer_id, status, status_version,
        lat, lng, pincode, address,
        requested_date, requested_hour, amount, currency,
        collector_id, slot_date, slot_hour, distance_km, fare,
        created_at, assigned_at, reached_at, collected_at, handed_over_at,
        completed_at, cancelled_at, voided_at, cancel_reason`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO orders (
            id, customer_id, status, status_version,
            lat, lng, pincode, address,
            requested_date, requested_hour, amount, currency, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(o.ID), string(o.CustomerID), string(o.Status), o.StatusVersion,
		latPtr(o.Location), lngPtr(o.Location), o.Pincode, o.Address,
		o.RequestedDate, o.RequestedHour, o.Amount.Amount, o.Amount.Currency,
		o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	return scanOrder(row)
}

// UpdateStatus applies from→to iff the row still carries (from, version).
// Reports false when another writer won the race.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = status_version + 1,
            reached_at     = CASE WHEN $1 = 'reached'     THEN NOW() ELSE reached_at END,
            collected_at   = CASE WHEN $1 = 'collected'   THEN NOW() ELSE collected_at END,
            handed_over_at = CASE WHEN $1 = 'handed_over' THEN NOW() ELSE handed_over_at END,
            completed_at   = CASE WHEN $1 = 'completed'   THEN NOW() ELSE completed_at END,
            cancelled_at   = CASE WHEN $1 = 'cancelled'   THEN NOW() ELSE cancelled_at END,
            voided_at      = CASE WHEN $1 = 'voided'      THEN NOW() ELSE voided_at END,
            cancel_reason  = COALESCE($2, cancel_reason)
        WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), reason, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BindSlot writes the collector/slot binding plus the distance and fare
// snapshot, and moves pending→assigned, all in one guarded statement.
func (s *Store) BindSlot(ctx context.Context, id types.ID, version int, collectorID types.ID, date string, hour int, distanceKm *float64, fare *types.Money) (bool, error) {
	var fareAmount *int64
	if fare != nil {
		fareAmount = &fare.Amount
	}
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = 'assigned',
            status_version = status_version + 1,
            collector_id = $1, slot_date = $2, slot_hour = $3,
            distance_km = $4, fare = $5,
            assigned_at = NOW()
        WHERE id = $6 AND status = 'pending' AND status_version = $7`,
		string(collectorID), date, hour, distanceKm, fareAmount,
		string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClearSlot drops the binding and returns the order to pending. Used by
// unassign and by the failure leg of reassign.
func (s *Store) ClearSlot(ctx context.Context, id types.ID, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = 'pending',
            status_version = status_version + 1,
            collector_id = NULL, slot_date = NULL, slot_hour = NULL,
            distance_km = NULL, fare = NULL,
            assigned_at = NULL
        WHERE id = $1 AND status = 'assigned' AND status_version = $2`,
		string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO order_state_events (
            order_id, from_status, to_status, actor_type, actor_id, reason, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idPtr(e.ActorID), e.Reason, e.CreatedAt,
	)
	return err
}

// ListAssigned returns the orders bound to a collector for a slot date, in
// slot-hour order. The dispatch view re-ranks them by live distance.
func (s *Store) ListAssigned(ctx context.Context, collectorID types.ID, date string) ([]Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+`
         FROM orders
         WHERE collector_id = $1 AND slot_date = $2
           AND status NOT IN ('cancelled', 'voided')
         ORDER BY slot_hour, id`,
		string(collectorID), date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// DaySummary aggregates a collector's day straight from the order rows.
type DaySummary struct {
	TotalOrders      int
	Pending          int // assigned, visit not yet started
	InProgress       int // reached / collected / handed_over
	Completed        int
	CompletedRevenue types.Money
}

func (s *Store) SummaryFor(ctx context.Context, collectorID types.ID, date string) (DaySummary, error) {
	var sum DaySummary
	var revenue int64
	var currency *string
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'assigned'),
               COUNT(*) FILTER (WHERE status IN ('reached', 'collected', 'handed_over')),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
               MIN(currency)
        FROM orders
        WHERE collector_id = $1 AND slot_date = $2`,
		string(collectorID), date,
	).Scan(&sum.TotalOrders, &sum.Pending, &sum.InProgress, &sum.Completed, &revenue, &currency)
	if err != nil {
		return DaySummary{}, err
	}
	sum.CompletedRevenue = types.Money{Amount: revenue}
	if currency != nil {
		sum.CompletedRevenue.Currency = *currency
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var lat, lng *float64
	var collectorID *string
	var fareAmount *int64
	var currency string

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.StatusVersion,
		&lat, &lng, &o.Pincode, &o.Address,
		&o.RequestedDate, &o.RequestedHour, &o.Amount.Amount, &currency,
		&collectorID, &o.SlotDate, &o.SlotHour, &o.DistanceKm, &fareAmount,
		&o.CreatedAt, &o.AssignedAt, &o.ReachedAt, &o.CollectedAt, &o.HandedOverAt,
		&o.CompletedAt, &o.CancelledAt, &o.VoidedAt, &o.CancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Amount.Currency = currency
	if lat != nil && lng != nil {
		o.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	if collectorID != nil {
		id := types.ID(*collectorID)
		o.CollectorID = &id
	}
	if fareAmount != nil {
		o.Fare = &types.Money{Amount: *fareAmount, Currency: currency}
	}
	return &o, nil
}

func latPtr(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lat
}

func lngPtr(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lng
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
