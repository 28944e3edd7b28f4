package models

import "time"

// PokeDailyLimit is the single point of truth for "how many pokes has this
// session sent today". One row per (session, calendar day), created lazily
// on the first send of the day and updated under a row lock together with
// the poke insert.
type PokeDailyLimit struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID uint      `gorm:"column:session_id;not null;uniqueIndex:idx_session_day" json:"session_id"`
	Day       string    `gorm:"column:day;size:10;not null;uniqueIndex:idx_session_day" json:"day"` // YYYY-MM-DD
	SentCount int       `gorm:"column:sent_count;not null;default:0" json:"sent_count"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PokeDailyLimit) TableName() string {
	return "poke_daily_limits"
}
