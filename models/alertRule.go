package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AlertLevelWarning  = "warning"
	AlertLevelCritical = "critical"
)

// Alert is a single finding attached to a DetailedSection.
type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// DetailedSection groups the alerts raised for one area of a contract.
type DetailedSection struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Alerts  []Alert `json:"alerts"`
}

// AlertRule is a trigger phrase checked against every processed contract.
type AlertRule struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id" yaml:"-"`

	// Phrase is matched verbatim and case-sensitively against the OCR text.
	Phrase string `gorm:"not null;uniqueIndex" json:"phrase" yaml:"phrase" binding:"required"`

	// Level is either "warning" or "critical".
	Level string `gorm:"not null" json:"level" yaml:"level"`

	// Section is the DetailedSection title alerts for this phrase are grouped under.
	Section string `json:"section" yaml:"section"`

	Message string `json:"message" yaml:"message"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// BeforeCreate assigns an ID so the table works on databases without gen_random_uuid().
func (r *AlertRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ValidLevel reports whether level is one of the supported alert levels.
func ValidLevel(level string) bool {
	return level == AlertLevelWarning || level == AlertLevelCritical
}
