package models

import "time"

// Verification states of a guest's claim over a roster entry.
const (
	VerificationVerified = "verified"
	VerificationPending  = "pending"
	VerificationRejected = "rejected"
)

type GuestSession struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WorkspaceID uint    `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Token       string  `gorm:"column:token;size:64;uniqueIndex;not null" json:"-"` // bearer credential held by the client
	DisplayName string  `gorm:"column:display_name;size:100;not null" json:"display_name"`
	Email       *string `gorm:"column:email;size:255;index" json:"email,omitempty"`
	DeviceID    *string `gorm:"column:device_id;size:100" json:"-"`
	LastIP      *string `gorm:"column:last_ip;size:45" json:"-"`

	IsBanned bool `gorm:"column:is_banned;not null;default:false" json:"is_banned"`
	IsExtra  bool `gorm:"column:is_extra;not null;default:false" json:"is_extra"` // teacher/coordinator, exempt from pokes

	RosterEntryID      *uint        `gorm:"column:roster_entry_id;index" json:"roster_entry_id"`
	RosterEntry        *RosterEntry `gorm:"foreignKey:RosterEntryID" json:"roster_entry,omitempty"`
	VerificationStatus string       `gorm:"column:verification_status;size:20;not null;default:'verified'" json:"verification_status"`

	// Engagement counters owned by the gamification subsystem; this core
	// only reads them.
	Points     int `gorm:"column:points;not null;default:0" json:"points"`
	RankLevel  int `gorm:"column:rank_level;not null;default:0" json:"rank_level"`
	PostCount  int `gorm:"column:post_count;not null;default:0" json:"post_count"`
	ReplyCount int `gorm:"column:reply_count;not null;default:0" json:"reply_count"`
	LikeCount  int `gorm:"column:like_count;not null;default:0" json:"like_count"`

	RestoreTokenHash *string    `gorm:"column:restore_token_hash;type:text" json:"-"`
	RestoreExpiresAt *time.Time `gorm:"column:restore_expires_at" json:"-"`

	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastActivityAt time.Time `gorm:"column:last_activity_at;autoCreateTime" json:"last_activity_at"`
}

func (GuestSession) TableName() string {
	return "guest_sessions"
}
