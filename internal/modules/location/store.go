// Package location tracks collector positions: live values in Redis GEO,
// periodic snapshots in Postgres for replay and audit.
package location

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"phlebo/internal/types"
)

const collectorGeoKey = "dispatch:collectors"

// Snapshot is one persisted position sample.
type Snapshot struct {
	ID          int64
	CollectorID types.ID
	Position    types.Point
	RecordedAt  time.Time
}

type Store struct {
	redis *redis.Client
	db    *pgxpool.Pool
}

func NewStore(redis *redis.Client, db *pgxpool.Pool) *Store {
	return &Store{redis: redis, db: db}
}

// SetPosition overwrites the collector's live position. Last write wins.
func (s *Store) SetPosition(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, collectorGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

// Position returns the live position, with ok=false when the collector has
// never reported one.
func (s *Store) Position(ctx context.Context, id types.ID) (types.Point, bool, error) {
	res, err := s.redis.GeoPos(ctx, collectorGeoKey, string(id)).Result()
	if err != nil {
		return types.Point{}, false, err
	}
	if len(res) == 0 || res[0] == nil {
		return types.Point{}, false, nil
	}
	return types.Point{Lat: res[0].Latitude, Lng: res[0].Longitude}, true, nil
}

// Remove drops the live position, e.g. when a collector is deactivated.
func (s *Store) Remove(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, collectorGeoKey, string(id)).Err()
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO location_snapshots (collector_id, lat, lng, recorded_at)
        VALUES ($1, $2, $3, $4)`,
		string(snap.CollectorID), snap.Position.Lat, snap.Position.Lng, snap.RecordedAt,
	)
	return err
}
