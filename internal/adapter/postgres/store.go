// Package postgres persists normalized weather records in the weather_data
// table, keyed by (city, country, date).
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
)

// Pool sizing mirrors the connection limits expected by the deployment:
// a small shared pool with idle and acquisition timeouts.
const (
	maxConns        = 10
	maxConnIdleTime = 30 * time.Second
	connectTimeout  = 2 * time.Second
)

// StoredRecord is a persisted weather record plus its server-maintained
// write timestamp.
type StoredRecord struct {
	domain.WeatherRecord
	CreatedAt time.Time `json:"created_at"`
}

// CityCountry is one distinct location present in storage.
type CityCountry struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Store implements record persistence and the read-side queries on a shared
// pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewPool creates the process-wide connection pool from DATABASE_URL.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MaxConnIdleTime = maxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	return pool, nil
}

// NewStore creates a Store on an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the weather_data table if it does not exist. Safe to
// run on every startup; it never alters an existing table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS weather_data (
			id SERIAL PRIMARY KEY,
			city VARCHAR(100) NOT NULL,
			country VARCHAR(100) NOT NULL,
			date DATE NOT NULL,
			temperature DOUBLE PRECISION,
			humidity INTEGER,
			pressure DOUBLE PRECISION,
			wind_speed DOUBLE PRECISION,
			wind_direction INTEGER,
			weather_condition VARCHAR(50),
			description VARCHAR(200),
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (city, country, date)
		)
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts a record or, on natural-key conflict, overwrites every
// non-key column with the incoming values and refreshes the write timestamp.
// Last write wins; existing values are never compared or merged.
func (s *Store) Upsert(ctx context.Context, rec domain.WeatherRecord) error {
	query := `
		INSERT INTO weather_data (
			city, country, date, temperature, humidity, pressure,
			wind_speed, wind_direction, weather_condition, description, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (city, country, date)
		DO UPDATE SET
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			pressure = EXCLUDED.pressure,
			wind_speed = EXCLUDED.wind_speed,
			wind_direction = EXCLUDED.wind_direction,
			weather_condition = EXCLUDED.weather_condition,
			description = EXCLUDED.description,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			created_at = CURRENT_TIMESTAMP
	`

	_, err := s.pool.Exec(ctx, query,
		rec.City, rec.Country, rec.Date, rec.Temperature, rec.Humidity, rec.Pressure,
		rec.WindSpeed, rec.WindDirection, rec.WeatherCondition, rec.Description,
		nullableCoord(rec.Latitude), nullableCoord(rec.Longitude),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert weather record: %w", err)
	}
	return nil
}

// nullableCoord maps an unset coordinate to NULL. Zero means absent on the
// wire too (the JSON field is omitted), so fallback rows store NULL instead
// of a fake equator/meridian position.
func nullableCoord(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// List returns stored records ordered by date descending, then write
// timestamp descending. The filter applies only when both city and country
// are given.
func (s *Store) List(ctx context.Context, city, country string) ([]StoredRecord, error) {
	query := `
		SELECT city, country, date, temperature, humidity, pressure,
		       wind_speed, wind_direction, weather_condition, description,
		       latitude, longitude, created_at
		FROM weather_data
	`
	var args []any
	if city != "" && country != "" {
		query += " WHERE city = $1 AND country = $2"
		args = []any{city, country}
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query weather records: %w", err)
	}
	defer rows.Close()

	var results []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		var date time.Time
		var lat, lon *float64
		err := rows.Scan(
			&rec.City, &rec.Country, &date, &rec.Temperature, &rec.Humidity, &rec.Pressure,
			&rec.WindSpeed, &rec.WindDirection, &rec.WeatherCondition, &rec.Description,
			&lat, &lon, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan weather row: %w", err)
		}
		rec.Date = date.Format(domain.DateLayout)
		if lat != nil {
			rec.Latitude = *lat
		}
		if lon != nil {
			rec.Longitude = *lon
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate weather rows: %w", err)
	}

	return results, nil
}

// Locations returns the distinct (city, country) pairs in storage, ordered
// alphabetically.
func (s *Store) Locations(ctx context.Context) ([]CityCountry, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT city, country FROM weather_data ORDER BY city, country")
	if err != nil {
		return nil, fmt.Errorf("postgres: query locations: %w", err)
	}
	defer rows.Close()

	var results []CityCountry
	for rows.Next() {
		var cc CityCountry
		if err := rows.Scan(&cc.City, &cc.Country); err != nil {
			return nil, fmt.Errorf("postgres: scan location row: %w", err)
		}
		results = append(results, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate location rows: %w", err)
	}

	return results, nil
}

// Ping checks storage connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
