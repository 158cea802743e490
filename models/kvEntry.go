package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one named value of the persisted application state
// (ocrHistory, lastVisitedPage, theme, token).
type KVEntry struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
