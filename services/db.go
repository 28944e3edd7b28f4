package services

import (
	"errors"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds FOR UPDATE on dialects that support it. The sqlite
// dialect used by the tests has a single writer and rejects the clause.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockRosterEntry locks the entry row for the rest of tx. Every
// transaction that creates or moves a verified binding takes this lock
// first, so claim checks made under it see a settled state. Locking the
// holder sessions instead is not enough: an unclaimed entry has no holder
// row to lock, and two concurrent claims would both come out verified.
func lockRosterEntry(tx *gorm.DB, entryID uint) (*models.RosterEntry, error) {
	var entry models.RosterEntry
	err := lockForUpdate(tx).First(&entry, entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRosterEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// dayKey is the calendar-day key used by the daily limit rows.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// startOfDay returns midnight of t's day in t's location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
