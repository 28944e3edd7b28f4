package services

import (
	"errors"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/gorm"
)

// DailyLimitService owns the per-session per-day send counters. The row is
// the sole point of truth for "how many pokes has X sent today" and is only
// ever incremented together with a poke insert, under a row lock.
type DailyLimitService struct {
	DB     *gorm.DB
	Policy PokePolicy
}

func NewDailyLimitService(db *gorm.DB, policy PokePolicy) *DailyLimitService {
	return &DailyLimitService{DB: db, Policy: policy}
}

// GetOrCreateToday fetches today's counter row for the session inside tx,
// creating it lazily with a zero count, and holds a lock on it until the
// transaction ends.
func (s *DailyLimitService) GetOrCreateToday(tx *gorm.DB, sessionID uint) (*models.PokeDailyLimit, error) {
	day := dayKey(time.Now())

	var row models.PokeDailyLimit
	err := lockForUpdate(tx).
		Where("session_id = ? AND day = ?", sessionID, day).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// A concurrent first-send may insert the same (session, day) between
	// our read and this insert; the unique index then fails the whole
	// transaction and the caller retries.
	row = models.PokeDailyLimit{SessionID: sessionID, Day: day}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Increment bumps the counter by one. Must be called inside the same
// transaction that created the poke row.
func (s *DailyLimitService) Increment(tx *gorm.DB, row *models.PokeDailyLimit) error {
	if err := tx.Model(row).
		UpdateColumn("sent_count", gorm.Expr("sent_count + ?", 1)).Error; err != nil {
		return err
	}
	row.SentCount++
	return nil
}

// SentToday returns the session's counter for the current day, zero when
// the row does not exist yet.
func (s *DailyLimitService) SentToday(sessionID uint) (int, error) {
	var row models.PokeDailyLimit
	err := s.DB.
		Where("session_id = ? AND day = ?", sessionID, dayKey(time.Now())).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.SentCount, nil
}

// Remaining returns how many pokes the session may still send today.
func (s *DailyLimitService) Remaining(sessionID uint) (int, error) {
	sent, err := s.SentToday(sessionID)
	if err != nil {
		return 0, err
	}
	remaining := s.Policy.DailyLimit - sent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
