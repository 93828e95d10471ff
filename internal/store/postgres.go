package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

const (
	createReadingsTable = `
CREATE TABLE IF NOT EXISTS sensor_readings (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMP,
    temperature FLOAT,
    humidity FLOAT,
    weather TEXT,
    aqi_index INT,
    pm2_5 FLOAT,
    pm10 FLOAT,
    no2 FLOAT,
    o3 FLOAT,
    co FLOAT,
    aqi_category TEXT,
    aqi_change FLOAT,
    spike_detected BOOLEAN
)`
	createAlertsTable = `
CREATE TABLE IF NOT EXISTS aqi_alerts (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMP,
    aqi_index INT,
    aqi_change FLOAT,
    aqi_category TEXT
)`
	insertReading = `INSERT INTO sensor_readings (timestamp, temperature, humidity, weather, aqi_index, pm2_5, pm10, no2, o3, co, aqi_category, aqi_change, spike_detected) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	insertAlert   = `INSERT INTO aqi_alerts (timestamp, aqi_index, aqi_change, aqi_category) VALUES ($1, $2, $3, $4)`

	selectRecentReadings = `SELECT timestamp, temperature, humidity, weather, aqi_index, pm2_5, pm10, no2, o3, co, aqi_category, aqi_change, spike_detected FROM sensor_readings ORDER BY id DESC LIMIT $1`
	selectRecentAlerts   = `SELECT timestamp, aqi_index, aqi_change, aqi_category FROM aqi_alerts ORDER BY id DESC LIMIT $1`
)

var schemaStatements = []string{createReadingsTable, createAlertsTable}

// Open opens a postgres handle and validates it with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// PostgresStore persists readings and alerts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates both tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", airquality.ErrLoad, err)
		}
	}
	return nil
}

// Persist writes one batch inside a single transaction on a connection that
// is held only for the duration of the call. Nothing is committed unless
// every row of both sequences was inserted.
func (s *PostgresStore) Persist(ctx context.Context, readings []airquality.SensorSample, alerts []airquality.AlertRecord) (res airquality.LoadResult, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: acquire connection: %v", airquality.ErrLoad, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: begin: %v", airquality.ErrLoad, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			res = airquality.LoadResult{}
		}
	}()

	for _, stmt := range schemaStatements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return res, fmt.Errorf("%w: ensure schema: %v", airquality.ErrLoad, err)
		}
	}

	for i, r := range readings {
		_, err = tx.ExecContext(ctx, insertReading,
			r.Timestamp.UTC(), r.Temperature, r.Humidity, r.Weather,
			r.AQIIndex, r.PM25, r.PM10, r.NO2,
			r.O3, r.CO, r.AQICategory,
			r.AQIChange, r.SpikeDetected,
		)
		if err != nil {
			return res, fmt.Errorf("%w: insert reading %d: %v", airquality.ErrLoad, i, err)
		}
		res.Readings++
	}

	for i, a := range alerts {
		_, err = tx.ExecContext(ctx, insertAlert, a.Timestamp.UTC(), a.AQIIndex, a.AQIChange, a.AQICategory)
		if err != nil {
			return res, fmt.Errorf("%w: insert alert %d: %v", airquality.ErrLoad, i, err)
		}
		res.Alerts++
	}

	if err = tx.Commit(); err != nil {
		return res, fmt.Errorf("%w: commit: %v", airquality.ErrLoad, err)
	}
	return res, nil
}

// RecentReadings returns up to limit readings, newest first.
func (s *PostgresStore) RecentReadings(ctx context.Context, limit int) ([]airquality.SensorSample, error) {
	rows, err := s.db.QueryContext(ctx, selectRecentReadings, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent readings: %w", err)
	}
	defer rows.Close()

	var out []airquality.SensorSample
	for rows.Next() {
		var (
			r        airquality.SensorSample
			weather  sql.NullString
			aqi      sql.NullInt64
			category sql.NullString
		)
		if err := rows.Scan(&r.Timestamp, &r.Temperature, &r.Humidity, &weather, &aqi,
			&r.PM25, &r.PM10, &r.NO2, &r.O3, &r.CO, &category, &r.AQIChange, &r.SpikeDetected); err != nil {
			return nil, fmt.Errorf("postgres: scan reading: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Weather = weather.String
		if aqi.Valid {
			r.AQIIndex = airquality.IntPtr(int(aqi.Int64))
		}
		r.AQICategory = nullString(category)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: recent readings: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *PostgresStore) RecentAlerts(ctx context.Context, limit int) ([]airquality.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecentAlerts, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent alerts: %w", err)
	}
	defer rows.Close()

	var out []airquality.AlertRecord
	for rows.Next() {
		var (
			a        airquality.AlertRecord
			category sql.NullString
		)
		if err := rows.Scan(&a.Timestamp, &a.AQIIndex, &a.AQIChange, &category); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		a.Timestamp = a.Timestamp.UTC()
		a.AQICategory = nullString(category)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: recent alerts: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

var (
	_ airquality.Sink         = (*PostgresStore)(nil)
	_ airquality.ReadingStore = (*PostgresStore)(nil)
)
