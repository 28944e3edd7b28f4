package models

import "time"

type Poke struct {
	ID            uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WorkspaceID   uint `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	FromSessionID uint `gorm:"column:from_session_id;not null;index" json:"from_session_id"`
	ToSessionID   uint `gorm:"column:to_session_id;not null;index" json:"to_session_id"`

	Category string `gorm:"column:category;size:50;not null;default:'classic'" json:"category"`
	// Exactly one of PresetMessageID and Message is set.
	PresetMessageID *uint   `gorm:"column:preset_message_id" json:"preset_message_id,omitempty"`
	Message         *string `gorm:"column:message;type:text" json:"message,omitempty"`

	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	Reaction  *string   `gorm:"column:reaction;size:20" json:"reaction,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	FromSession   *GuestSession      `gorm:"foreignKey:FromSessionID" json:"from_session,omitempty"`
	ToSession     *GuestSession      `gorm:"foreignKey:ToSessionID" json:"-"`
	PresetMessage *PokePresetMessage `gorm:"foreignKey:PresetMessageID" json:"preset_message,omitempty"`
}

func (Poke) TableName() string {
	return "pokes"
}
