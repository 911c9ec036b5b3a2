package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forentfraps/navigator/internal/models"
)

// schema is applied once at startup. Mirrors spec.md §6's required
// schema (Station nodes, WALKABLE/TRANSPORT edges) as Postgres tables
// with the natural keys spec.md §3 defines, in place of a labelled
// property graph engine — the teacher's own pgxpool/PostGIS usage in
// internal/repository/line_repo.go is the grounding for driving a
// graph-shaped schema through plain SQL rather than a graph database
// client library (none appears anywhere in the pack).
const schema = `
CREATE TABLE IF NOT EXISTS stations (
	code           TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	transport_type TEXT NOT NULL DEFAULT '',
	station_type   TEXT NOT NULL DEFAULT '',
	esr_code       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS walk_edges (
	from_code   TEXT NOT NULL REFERENCES stations(code),
	to_code     TEXT NOT NULL REFERENCES stations(code),
	distance_km DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (from_code, to_code)
);

CREATE TABLE IF NOT EXISTS transport_edges (
	from_code      TEXT NOT NULL REFERENCES stations(code),
	to_code        TEXT NOT NULL REFERENCES stations(code),
	thread_uid     TEXT NOT NULL,
	departure_time DOUBLE PRECISION NOT NULL,
	arrival_time   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (from_code, to_code, thread_uid, departure_time, arrival_time)
);

CREATE INDEX IF NOT EXISTS idx_transport_from_dep ON transport_edges (from_code, departure_time);
CREATE INDEX IF NOT EXISTS idx_transport_to_arr ON transport_edges (to_code, arrival_time);
CREATE INDEX IF NOT EXISTS idx_walk_from ON walk_edges (from_code, distance_km);
CREATE INDEX IF NOT EXISTS idx_walk_to ON walk_edges (to_code, distance_km);
`

const batchSize = 100

// PostgresStore is the durable Store implementation backed by pgx/pgxpool.
type PostgresStore struct {
	pool             *pgxpool.Pool
	walkSecondsPerKM float64
}

// NewPostgresStore wraps an already-connected pool. walkSecondsPerKM is
// the constant used to derive travel time from walking distance
// (spec.md §4.3 default: 720).
func NewPostgresStore(pool *pgxpool.Pool, walkSecondsPerKM float64) *PostgresStore {
	return &PostgresStore{pool: pool, walkSecondsPerKM: walkSecondsPerKM}
}

// Migrate creates the schema if it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("graphstore: migrate: %w", err)
	}
	return nil
}

// UpsertStations merges on code, overwriting descriptive attributes.
// Station writes may run concurrently with walk-edge writes (spec.md
// §4.3 batching policy); batches within this call are chunked but
// issued sequentially against the pool, which itself multiplexes
// connections.
func (s *PostgresStore) UpsertStations(ctx context.Context, batch []models.Station) error {
	for start := 0; start < len(batch); start += batchSize {
		end := min(start+batchSize, len(batch))
		if err := s.upsertStationsChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) upsertStationsChunk(ctx context.Context, chunk []models.Station) error {
	b := &pgx.Batch{}
	for _, st := range chunk {
		b.Queue(`
			INSERT INTO stations (code, title, latitude, longitude, transport_type, station_type, esr_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (code) DO UPDATE SET
				title = EXCLUDED.title,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				transport_type = EXCLUDED.transport_type,
				station_type = EXCLUDED.station_type,
				esr_code = EXCLUDED.esr_code
		`, st.Code, st.Title, nullableFloat(st.Lat), nullableFloat(st.Lon), st.TransportType, st.StationType, st.ESRCode)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range chunk {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("graphstore: upsert station: %w", err)
		}
	}
	return nil
}

// UpsertWalkEdges merges on (from, to), overwriting distance_km.
func (s *PostgresStore) UpsertWalkEdges(ctx context.Context, batch []models.WalkEdge) error {
	for start := 0; start < len(batch); start += batchSize {
		end := min(start+batchSize, len(batch))
		if err := s.upsertWalkEdgesChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) upsertWalkEdgesChunk(ctx context.Context, chunk []models.WalkEdge) error {
	b := &pgx.Batch{}
	for _, e := range chunk {
		b.Queue(`
			INSERT INTO walk_edges (from_code, to_code, distance_km)
			VALUES ($1, $2, $3)
			ON CONFLICT (from_code, to_code) DO UPDATE SET distance_km = EXCLUDED.distance_km
		`, e.From, e.To, e.DistanceKM)
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range chunk {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("graphstore: upsert walk edge: %w", err)
		}
	}
	return nil
}

// UpsertTransportEdges merges on the full natural key; no mutation on
// match. Batches are written sequentially, never fanned out across
// goroutines, to preserve per-thread edge ordering while writing
// (spec.md §5).
func (s *PostgresStore) UpsertTransportEdges(ctx context.Context, batch []models.TransportEdge) error {
	for start := 0; start < len(batch); start += batchSize {
		end := min(start+batchSize, len(batch))
		if err := s.upsertTransportEdgesChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) upsertTransportEdgesChunk(ctx context.Context, chunk []models.TransportEdge) error {
	b := &pgx.Batch{}
	for _, e := range chunk {
		b.Queue(`
			INSERT INTO transport_edges (from_code, to_code, thread_uid, departure_time, arrival_time)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (from_code, to_code, thread_uid, departure_time, arrival_time) DO NOTHING
		`, e.From, e.To, e.ThreadUID, float64(e.Departure.Unix()), float64(e.Arrival.Unix()))
	}
	results := s.pool.SendBatch(ctx, b)
	defer results.Close()
	for range chunk {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("graphstore: upsert transport edge: %w", err)
		}
	}
	return nil
}

// OutTransport returns all outbound transport edges departing after
// sinceInstant.
func (s *PostgresStore) OutTransport(ctx context.Context, code string, sinceInstant time.Time) ([]OutTransportEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_code, thread_uid, departure_time, arrival_time
		FROM transport_edges
		WHERE from_code = $1 AND departure_time > $2
	`, code, float64(sinceInstant.Unix()))
	if err != nil {
		return nil, fmt.Errorf("graphstore: out_transport: %w", err)
	}
	defer rows.Close()

	var out []OutTransportEdge
	for rows.Next() {
		var nbr, uid string
		var dep, arr float64
		if err := rows.Scan(&nbr, &uid, &dep, &arr); err != nil {
			return nil, fmt.Errorf("graphstore: scan out_transport: %w", err)
		}
		out = append(out, OutTransportEdge{
			Neighbour: nbr,
			ThreadUID: uid,
			Departure: time.Unix(int64(dep), 0).UTC(),
			Arrival:   time.Unix(int64(arr), 0).UTC(),
			TravelSec: arr - dep,
		})
	}
	return out, rows.Err()
}

// OutWalk returns outbound walking edges within maxKM.
func (s *PostgresStore) OutWalk(ctx context.Context, code string, maxKM float64) ([]OutWalkEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_code, distance_km FROM walk_edges
		WHERE from_code = $1 AND distance_km <= $2
	`, code, maxKM)
	if err != nil {
		return nil, fmt.Errorf("graphstore: out_walk: %w", err)
	}
	defer rows.Close()

	var out []OutWalkEdge
	for rows.Next() {
		var nbr string
		var dist float64
		if err := rows.Scan(&nbr, &dist); err != nil {
			return nil, fmt.Errorf("graphstore: scan out_walk: %w", err)
		}
		out = append(out, OutWalkEdge{Neighbour: nbr, DistanceKM: dist, TravelSec: dist * s.walkSecondsPerKM})
	}
	return out, rows.Err()
}

// InTransport returns all inbound transport edges arriving at or
// before untilInstant.
func (s *PostgresStore) InTransport(ctx context.Context, code string, untilInstant time.Time) ([]OutTransportEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT from_code, thread_uid, departure_time, arrival_time
		FROM transport_edges
		WHERE to_code = $1 AND arrival_time <= $2
	`, code, float64(untilInstant.Unix()))
	if err != nil {
		return nil, fmt.Errorf("graphstore: in_transport: %w", err)
	}
	defer rows.Close()

	var out []OutTransportEdge
	for rows.Next() {
		var nbr, uid string
		var dep, arr float64
		if err := rows.Scan(&nbr, &uid, &dep, &arr); err != nil {
			return nil, fmt.Errorf("graphstore: scan in_transport: %w", err)
		}
		out = append(out, OutTransportEdge{
			Neighbour: nbr,
			ThreadUID: uid,
			Departure: time.Unix(int64(dep), 0).UTC(),
			Arrival:   time.Unix(int64(arr), 0).UTC(),
			TravelSec: arr - dep,
		})
	}
	return out, rows.Err()
}

// InWalk returns inbound walking edges within maxKM, i.e. WALKABLE
// edges stored in the (nbr -> code) direction.
func (s *PostgresStore) InWalk(ctx context.Context, code string, maxKM float64) ([]OutWalkEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT from_code, distance_km FROM walk_edges
		WHERE to_code = $1 AND distance_km <= $2
	`, code, maxKM)
	if err != nil {
		return nil, fmt.Errorf("graphstore: in_walk: %w", err)
	}
	defer rows.Close()

	var out []OutWalkEdge
	for rows.Next() {
		var nbr string
		var dist float64
		if err := rows.Scan(&nbr, &dist); err != nil {
			return nil, fmt.Errorf("graphstore: scan in_walk: %w", err)
		}
		out = append(out, OutWalkEdge{Neighbour: nbr, DistanceKM: dist, TravelSec: dist * s.walkSecondsPerKM})
	}
	return out, rows.Err()
}

func nullableFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
