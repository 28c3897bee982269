package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bilbomap/internal/core/domain"
)

// stopColumns is the select list shared by every stop query. Location may be
// NULL; total is the window count of the unpaginated match.
const stopColumns = `
	id, stop_id, agency_id, name,
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lon,
	COALESCE(platform_code, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at`

// textFilter matches everything when the query parameter is empty.
const textFilter = `($%[1]d = '' OR name_vector @@ plainto_tsquery('spanish', $%[1]d) OR name %%> $%[1]d)`

// StopRepo implements ports.StopRepository with pgx.
type StopRepo struct {
	db *DB
}

// NewStopRepo creates a new StopRepo.
func NewStopRepo(db *DB) *StopRepo {
	return &StopRepo{db: db}
}

// UpsertBatch inserts many stops using pgx.Batch.
func (r *StopRepo) UpsertBatch(ctx context.Context, stops []domain.Stop) error {
	batch := &pgx.Batch{}
	for _, s := range stops {
		var lon, lat *float64
		if s.Location != nil {
			lon, lat = &s.Location.Lng, &s.Location.Lat
		}
		batch.Queue(`
			INSERT INTO stops (stop_id, agency_id, name, location, platform_code, wheelchair_accessible, metadata)
			VALUES ($1, $2, $3,
			        CASE WHEN $4::float8 IS NULL THEN NULL
			             ELSE ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography END,
			        NULLIF($6, ''), $7, $8)
			ON CONFLICT (agency_id, stop_id) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location,
			    platform_code = EXCLUDED.platform_code,
			    wheelchair_accessible = EXCLUDED.wheelchair_accessible,
			    metadata = EXCLUDED.metadata
		`, s.StopID, s.AgencyID, s.Name, lon, lat,
			s.PlatformCode, s.WheelchairAccessible, s.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range stops {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// FindInBounds returns stops inside box. A box whose south-west longitude is
// east of its north-east longitude wraps across the antimeridian.
func (r *StopRepo) FindInBounds(ctx context.Context, box domain.BoundingBox, query string, limit, offset int) ([]domain.Stop, int, error) {
	within := `location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)`
	if box.SouthWest.Lng > box.NorthEast.Lng {
		within = `(location::geometry && ST_MakeEnvelope($1, $2, 180, $4, 4326)
		        OR location::geometry && ST_MakeEnvelope(-180, $2, $3, $4, 4326))`
	}
	sql := fmt.Sprintf(`
		SELECT %s, NULL::float8 AS distance, COUNT(*) OVER() AS total
		FROM stops
		WHERE location IS NOT NULL AND %s AND %s
		ORDER BY name
		LIMIT $6 OFFSET $7
	`, stopColumns, within, fmt.Sprintf(textFilter, 5))

	return r.query(ctx, sql,
		box.SouthWest.Lng, box.SouthWest.Lat, box.NorthEast.Lng, box.NorthEast.Lat,
		query, limit, offset)
}

// FindAround returns stops within radiusMeters of p using PostGIS ST_DWithin.
func (r *StopRepo) FindAround(ctx context.Context, p domain.LatLng, radiusMeters float64, query string, limit, offset int) ([]domain.Stop, int, error) {
	sql := fmt.Sprintf(`
		SELECT %s,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance,
		       COUNT(*) OVER() AS total
		FROM stops
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3) AND %s
		ORDER BY distance
		LIMIT $5 OFFSET $6
	`, stopColumns, fmt.Sprintf(textFilter, 4))

	return r.query(ctx, sql, p.Lng, p.Lat, radiusMeters, query, limit, offset)
}

// Search performs fuzzy + full-text search on stop names. Stops without a
// location are included.
func (r *StopRepo) Search(ctx context.Context, query string, limit, offset int) ([]domain.Stop, int, error) {
	sql := fmt.Sprintf(`
		SELECT %s, NULL::float8 AS distance, COUNT(*) OVER() AS total
		FROM stops
		WHERE %s
		ORDER BY CASE WHEN $1 = '' THEN 0 ELSE similarity(name, $1) END DESC, name
		LIMIT $2 OFFSET $3
	`, stopColumns, fmt.Sprintf(textFilter, 1))

	return r.query(ctx, sql, query, limit, offset)
}

func (r *StopRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Stop, int, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		stops []domain.Stop
		total int
	)
	for rows.Next() {
		var (
			s        domain.Stop
			lat, lon *float64
		)
		if err := rows.Scan(
			&s.ID, &s.StopID, &s.AgencyID, &s.Name,
			&lat, &lon,
			&s.PlatformCode, &s.WheelchairAccessible, &s.Metadata, &s.CreatedAt,
			&s.Distance, &total,
		); err != nil {
			return nil, 0, err
		}
		if lat != nil && lon != nil {
			s.Location = &domain.LatLng{Lat: *lat, Lng: *lon}
		}
		stops = append(stops, s)
	}
	return stops, total, rows.Err()
}
