// Package ledger persists the per-day record of which stations have
// already triggered a notification, so a station alerts at most once
// per calendar day.
package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

type Ledger struct {
	db    *sql.DB
	loc   *time.Location
	clock clockwork.Clock
}

func New(db *sql.DB, loc *time.Location, clock clockwork.Clock) *Ledger {
	return &Ledger{db: db, loc: loc, clock: clock}
}

// Open opens (or creates) the ledger database at path. A corrupt file
// that cannot be opened or migrated is replaced with an empty ledger
// rather than failing the run.
func Open(path string, loc *time.Location, clock clockwork.Clock) (*Ledger, error) {
	l, err := open(path, loc, clock)
	if err == nil {
		return l, nil
	}

	log.Printf("ledger: resetting corrupt ledger at %s: %v", path, err)
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("remove corrupt ledger: %w", rmErr)
	}
	return open(path, loc, clock)
}

func open(path string, loc *time.Location, clock clockwork.Clock) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// WAL keeps an overlapping scheduler run from corrupting the file,
	// though the read-partition-write window is still racy between
	// processes; daemon mode serializes runs instead.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	l := New(db, loc, clock)
	if err := l.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) Migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS alerted_stations (
			station_id TEXT NOT NULL,
			alert_date TEXT NOT NULL,
			pm25 REAL,
			first_alerted_at DATETIME NOT NULL,
			PRIMARY KEY (station_id, alert_date)
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Today returns the current calendar date in the configured location.
func (l *Ledger) Today() string {
	return l.clock.Now().In(l.loc).Format("2006-01-02")
}

// AlertedToday returns the stations already alerted on the current
// date, mapped to when they first alerted.
func (l *Ledger) AlertedToday() (map[string]time.Time, error) {
	rows, err := l.db.Query(
		`SELECT station_id, first_alerted_at FROM alerted_stations WHERE alert_date = ?`,
		l.Today(),
	)
	if err != nil {
		return nil, fmt.Errorf("query alerted: %w", err)
	}
	defer rows.Close()

	alerted := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		alerted[id] = at
	}
	return alerted, rows.Err()
}

// MarkAlerted records all of the run's qualifying stations for today
// in one transaction. Stations already present keep their original
// first-alert timestamp.
func (l *Ledger) MarkAlerted(stations []models.StationReading) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	today := l.Today()
	now := l.clock.Now().In(l.loc)
	for _, st := range stations {
		if _, err := tx.Exec(`
			INSERT INTO alerted_stations (station_id, alert_date, pm25, first_alerted_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(station_id, alert_date) DO NOTHING
		`, st.StationID, today, st.PM25, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark %s: %w", st.StationID, err)
		}
	}

	return tx.Commit()
}

// PruneOldDays removes entries from dates before today, the date
// rollover reset.
func (l *Ledger) PruneOldDays() error {
	_, err := l.db.Exec(`DELETE FROM alerted_stations WHERE alert_date < ?`, l.Today())
	if err != nil {
		return fmt.Errorf("prune ledger: %w", err)
	}
	return nil
}
