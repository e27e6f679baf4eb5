package models

import (
	"time"

	"github.com/google/uuid"
)

type Cadence string

const (
	CadenceWeekly     Cadence = "weekly"
	CadenceMonthly    Cadence = "monthly"
	CadenceQuarterly  Cadence = "quarterly"
	CadenceSemiannual Cadence = "semiannual"
)

// ValidCadence reports whether s names a known recurrence cadence.
func ValidCadence(s string) bool {
	switch Cadence(s) {
	case CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceSemiannual:
		return true
	}
	return false
}

// InspectionSchedule is one recurring inspection assignment: an asset, an
// assignee and a time window. StartAt/EndAt are the single source of truth
// and are always UTC; display projections are derived, never stored.
// The cadence label describes how the next occurrence is expected to be
// generated by the scheduling UI; the engine does not generate recurrences.
type InspectionSchedule struct {
	Base
	AssetID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"asset_id"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id,omitempty"`

	StartAt time.Time `gorm:"not null;index" json:"start_at"`
	EndAt   time.Time `gorm:"not null" json:"end_at"`

	Cadence Cadence `gorm:"not null" json:"cadence"`

	IsActive    bool `gorm:"default:true;index" json:"is_active"`
	IsCompleted bool `gorm:"default:false;index" json:"is_completed"`

	// Relationships
	Asset    *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Assignee *User  `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

func (InspectionSchedule) TableName() string {
	return "inspection_schedules"
}
