package models

import (
	"time"

	"github.com/google/uuid"
)

// Inspection is one accepted field submission. Rejected attempts never
// become Inspection rows; they only leave an AuditEvent behind.
type Inspection struct {
	Base
	AssetID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"asset_id"`
	InspectorID uuid.UUID  `gorm:"type:uuid;index;not null" json:"inspector_id"`
	ScheduleID  *uuid.UUID `gorm:"type:uuid;index" json:"schedule_id,omitempty"` // nil for ad-hoc inspections

	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`

	ReportedLat *float64 `json:"reported_lat,omitempty"`
	ReportedLng *float64 `json:"reported_lng,omitempty"`

	// Photo evidence. Hash and metadata come from the upload layer; the
	// hash feeds duplicate-photo anomaly detection.
	PhotoPath       string     `json:"photo_path,omitempty"`
	PhotoHash       string     `gorm:"index;size:64" json:"photo_hash,omitempty"`
	PhotoCapturedAt *time.Time `json:"photo_captured_at,omitempty"`

	// Checklist
	PressureOK  bool `gorm:"default:false" json:"pressure_ok"`
	PinIntact   bool `gorm:"default:false" json:"pin_intact"`
	NozzleClear bool `gorm:"default:false" json:"nozzle_clear"`
	BodyIntact  bool `gorm:"default:false" json:"body_intact"`

	Notes string `json:"notes,omitempty"`

	// Relationships
	Asset     *Asset              `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Inspector *User               `gorm:"foreignKey:InspectorID" json:"inspector,omitempty"`
	Schedule  *InspectionSchedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (Inspection) TableName() string {
	return "inspections"
}
