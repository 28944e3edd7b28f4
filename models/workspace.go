package models

import "time"

type Workspace struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null" json:"name"`
	SchoolYear  string    `gorm:"column:school_year;size:20" json:"school_year"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	OwnerID     *uint     `gorm:"column:owner_id" json:"owner_id"`
	Status      string    `gorm:"column:status;size:20;default:'active'" json:"status"` // active | archived
	ShareCode   string    `gorm:"column:share_code;size:64;uniqueIndex" json:"share_code"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Owner *StaffUser `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Sessions []GuestSession `gorm:"foreignKey:WorkspaceID" json:"-"`
	Roster   []RosterEntry  `gorm:"foreignKey:WorkspaceID" json:"-"`
}

func (Workspace) TableName() string {
	return "workspaces"
}
