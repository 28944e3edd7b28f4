package models

import "time"

const (
	RosterCategoryStudent = "student"
	RosterCategoryTeacher = "teacher"
)

// RosterEntry is a known expected participant ("Jane Doe, student"),
// independent of whether anyone has registered as them yet.
type RosterEntry struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WorkspaceID uint      `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Name        string    `gorm:"column:name;size:150;not null" json:"name"`
	Category    string    `gorm:"column:category;size:20;not null;default:'student'" json:"category"`
	ExternalRef *string   `gorm:"column:external_ref;size:100" json:"external_ref,omitempty"`
	HasPhoto    bool      `gorm:"column:has_photo;not null;default:false" json:"has_photo"`
	PhotoURL    *string   `gorm:"column:photo_url;size:500" json:"photo_url,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RosterEntry) TableName() string {
	return "roster_entries"
}
