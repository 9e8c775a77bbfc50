// Package storage archives finished simulation sessions in SQLite so their
// summaries and reports stay available after the session is gone.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"signal-controller-go/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no archived session matches the id
var ErrNotFound = errors.New("session not found")

// SessionRecord is one archived session
type SessionRecord struct {
	SessionID  string            `json:"sessionId"`
	Reason     string            `json:"reason"`
	Tick       int               `json:"tick"`
	TotalTicks int               `json:"totalTicks"`
	Complete   bool              `json:"complete"`
	Statistics models.Statistics `json:"statistics"`
	ArchivedAt time.Time         `json:"archivedAt"`
	Snapshot   *models.Snapshot  `json:"snapshot,omitempty"`
}

// Store wraps the archive database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the archive at path and applies pending migrations
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; keeps :memory: databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Session archive ready")
	return s, nil
}

// MigrateUp runs all pending migrations
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrate builds a migrate instance over the embedded migrations. It is
// not closed: closing it would close the shared *sql.DB.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger on zerolog
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Debug().Str("component", "migrate").Msgf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// SaveSession archives the final snapshot of a session. Saving the same
// session again replaces the earlier row.
func (s *Store) SaveSession(ctx context.Context, snap models.Snapshot, reason string) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	st := snap.Statistics
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, reason, tick, total_ticks, complete,
			avg_density, peak_density, total_vehicles, cycle_switches, emergency_overrides,
			snapshot_json, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			reason = excluded.reason,
			tick = excluded.tick,
			total_ticks = excluded.total_ticks,
			complete = excluded.complete,
			avg_density = excluded.avg_density,
			peak_density = excluded.peak_density,
			total_vehicles = excluded.total_vehicles,
			cycle_switches = excluded.cycle_switches,
			emergency_overrides = excluded.emergency_overrides,
			snapshot_json = excluded.snapshot_json,
			archived_at = excluded.archived_at`,
		snap.SessionID, reason, snap.Tick, snap.TotalTicks, snap.Complete,
		st.AvgDensity, st.PeakDensity, st.TotalVehicles, st.CycleSwitches, st.EmergencyOverrides,
		string(payload), s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", snap.SessionID, err)
	}

	log.Debug().Str("session_id", snap.SessionID).Str("reason", reason).Msg("Session archived")
	return nil
}

// ListSessions returns the most recent archived sessions without snapshots
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, reason, tick, total_ticks, complete,
			avg_density, peak_density, total_vehicles, cycle_switches, emergency_overrides,
			archived_at
		FROM sessions
		ORDER BY archived_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	records := []SessionRecord{}
	for rows.Next() {
		var (
			rec      SessionRecord
			archived int64
		)
		if err := rows.Scan(
			&rec.SessionID, &rec.Reason, &rec.Tick, &rec.TotalTicks, &rec.Complete,
			&rec.Statistics.AvgDensity, &rec.Statistics.PeakDensity, &rec.Statistics.TotalVehicles,
			&rec.Statistics.CycleSwitches, &rec.Statistics.EmergencyOverrides,
			&archived,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.ArchivedAt = time.Unix(0, archived).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSession returns one archived session including its final snapshot
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var (
		rec      SessionRecord
		archived int64
		payload  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, reason, tick, total_ticks, complete,
			avg_density, peak_density, total_vehicles, cycle_switches, emergency_overrides,
			snapshot_json, archived_at
		FROM sessions WHERE session_id = ?`, id).Scan(
		&rec.SessionID, &rec.Reason, &rec.Tick, &rec.TotalTicks, &rec.Complete,
		&rec.Statistics.AvgDensity, &rec.Statistics.PeakDensity, &rec.Statistics.TotalVehicles,
		&rec.Statistics.CycleSwitches, &rec.Statistics.EmergencyOverrides,
		&payload, &archived,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return SessionRecord{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	rec.Snapshot = &snap
	rec.ArchivedAt = time.Unix(0, archived).UTC()
	return rec, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
