package collector

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"phlebo/internal/types"
)

var ErrNotFound = errors.New("collector not found")

// Store persists collector profiles in Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, p *Profile) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO collectors (
            id, name, pincodes, start_hour, end_hour, capacity_per_hour,
            last_lat, last_lng, located_at, active, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(p.ID), p.Name, p.Pincodes, p.StartHour, p.EndHour, p.CapacityPerHour,
		latPtr(p.LastLocation), lngPtr(p.LastLocation), p.LocatedAt, p.Active,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, pincodes, start_hour, end_hour, capacity_per_hour,
               last_lat, last_lng, located_at, active, created_at, updated_at
        FROM collectors
        WHERE id = $1`, string(id),
	)
	return scanProfile(row)
}

// Update rewrites the admin-editable fields. Location is updated separately
// through UpdateLocation so device pings never race admin edits.
func (s *Store) Update(ctx context.Context, p *Profile) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE collectors
        SET name = $1, pincodes = $2, start_hour = $3, end_hour = $4,
            capacity_per_hour = $5, updated_at = $6
        WHERE id = $7`,
		p.Name, p.Pincodes, p.StartHour, p.EndHour, p.CapacityPerHour,
		time.Now().UTC(), string(p.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a profile. Orders that reference it stay intact.
func (s *Store) Deactivate(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE collectors SET active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLocation records the device's last reported position. Last write wins.
func (s *Store) UpdateLocation(ctx context.Context, id types.ID, pos types.Point, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE collectors SET last_lat = $1, last_lng = $2, located_at = $3 WHERE id = $4`,
		pos.Lat, pos.Lng, at, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastKnown returns the profile's last reported position, nil when the device
// has never reported one.
func (s *Store) LastKnown(ctx context.Context, id types.ID) (*types.Point, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.LastLocation, nil
}

// EligibleByPincode returns every active collector whose service area contains
// the pincode. Reads straight from the committed rows; no cache in between.
func (s *Store) EligibleByPincode(ctx context.Context, pincode string) ([]Profile, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, pincodes, start_hour, end_hour, capacity_per_hour,
               last_lat, last_lng, located_at, active, created_at, updated_at
        FROM collectors
        WHERE active = TRUE AND $1 = ANY(pincodes)
        ORDER BY id`, NormalizePincode(pincode),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var lat, lng *float64

	err := row.Scan(
		&p.ID, &p.Name, &p.Pincodes, &p.StartHour, &p.EndHour, &p.CapacityPerHour,
		&lat, &lng, &p.LocatedAt, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.LastLocation = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &p, nil
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
