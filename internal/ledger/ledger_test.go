package ledger

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

func setupTestLedger(t *testing.T, clock clockwork.Clock) *Ledger {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	l := New(db, loc, clock)
	if err := l.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return l
}

func reading(id string, pm25 float64) models.StationReading {
	return models.StationReading{StationID: id, PM25: pm25}
}

func TestMarkAndQuery(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	l := setupTestLedger(t, clock)

	alerted, err := l.AlertedToday()
	if err != nil {
		t.Fatalf("AlertedToday: %v", err)
	}
	if len(alerted) != 0 {
		t.Fatalf("fresh ledger has %d entries, want 0", len(alerted))
	}

	if err := l.MarkAlerted([]models.StationReading{reading("35t", 90.2), reading("36t", 82.0)}); err != nil {
		t.Fatalf("MarkAlerted: %v", err)
	}

	alerted, err = l.AlertedToday()
	if err != nil {
		t.Fatalf("AlertedToday: %v", err)
	}
	if len(alerted) != 2 {
		t.Fatalf("len(alerted) = %d, want 2", len(alerted))
	}
	if _, ok := alerted["35t"]; !ok {
		t.Error("35t missing from ledger")
	}
}

func TestMarkAlerted_KeepsFirstTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	l := setupTestLedger(t, clock)

	if err := l.MarkAlerted([]models.StationReading{reading("35t", 90.2)}); err != nil {
		t.Fatalf("MarkAlerted: %v", err)
	}
	first, err := l.AlertedToday()
	if err != nil {
		t.Fatalf("AlertedToday: %v", err)
	}

	clock.Advance(3 * time.Hour)
	if err := l.MarkAlerted([]models.StationReading{reading("35t", 110.0)}); err != nil {
		t.Fatalf("MarkAlerted again: %v", err)
	}
	second, err := l.AlertedToday()
	if err != nil {
		t.Fatalf("AlertedToday: %v", err)
	}

	if !second["35t"].Equal(first["35t"]) {
		t.Errorf("first_alerted_at changed: %v -> %v", first["35t"], second["35t"])
	}
}

func TestDateRollover(t *testing.T) {
	// 23:30 Bangkok time on March 14.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 16, 30, 0, 0, time.UTC))
	l := setupTestLedger(t, clock)

	if err := l.MarkAlerted([]models.StationReading{reading("35t", 90.2)}); err != nil {
		t.Fatalf("MarkAlerted: %v", err)
	}

	// Cross midnight in Asia/Bangkok.
	clock.Advance(1 * time.Hour)

	alerted, err := l.AlertedToday()
	if err != nil {
		t.Fatalf("AlertedToday: %v", err)
	}
	if len(alerted) != 0 {
		t.Fatalf("after rollover len(alerted) = %d, want 0", len(alerted))
	}

	if err := l.PruneOldDays(); err != nil {
		t.Fatalf("PruneOldDays: %v", err)
	}

	var count int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM alerted_stations`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after prune = %d, want 0", count)
	}
}

func TestToday_UsesConfiguredLocation(t *testing.T) {
	// 2026-03-14 20:00 UTC is already 2026-03-15 in Bangkok (UTC+7).
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	l := setupTestLedger(t, clock)

	if got := l.Today(); got != "2026-03-15" {
		t.Errorf("Today() = %q, want 2026-03-15", got)
	}
}
