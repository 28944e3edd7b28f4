package models

type PokePresetMessage struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Category string `gorm:"size:50;not null;default:'classic'" json:"category"`
	Text     string `gorm:"type:text;not null" json:"text"`
	SortRank int    `gorm:"default:0" json:"sort_rank"`
}

func (PokePresetMessage) TableName() string {
	return "poke_preset_messages"
}
