package models

import "time"

type StaffUser struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:255" json:"-"` // empty for Google-only accounts
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Workspaces []Workspace `gorm:"foreignKey:OwnerID" json:"-"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}
