package services

import (
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunPostgres builds a postgres-dialect handle that only renders SQL.
// No connection is made; the pgx pool opens lazily and the ping is off.
func dryRunPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=app dbname=app",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry-run postgres: %v", err)
	}
	return db
}

// The entry row lock is what serializes claims and arbitration per roster
// entry on the production dialect, so the clause must actually be emitted
// there. The sqlite dialect used by the rest of the suite has one writer
// and skips it.
func TestLockForUpdateDialects(t *testing.T) {
	var entry models.RosterEntry

	pg := dryRunPostgres(t)
	stmt := lockForUpdate(pg).Find(&entry, 1).Statement
	if sql := stmt.SQL.String(); !strings.Contains(sql, "FOR UPDATE") {
		t.Errorf("postgres query %q lacks FOR UPDATE", sql)
	}

	lite := setupTestDB(t).Session(&gorm.Session{DryRun: true})
	stmt = lockForUpdate(lite).Find(&entry, 1).Statement
	if sql := stmt.SQL.String(); strings.Contains(sql, "FOR UPDATE") {
		t.Errorf("sqlite query %q must not carry the locking clause", sql)
	}
}

func TestDayKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 59, 59, 0, time.Local)
	if got := dayKey(at); got != "2026-03-07" {
		t.Errorf("dayKey = %q, want 2026-03-07", got)
	}

	start := startOfDay(at)
	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Errorf("startOfDay = %v, want midnight", start)
	}
	if dayKey(start) != dayKey(at) {
		t.Error("startOfDay left the calendar day")
	}
}
