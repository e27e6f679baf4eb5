package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionScan             AuditAction = "scan"
	AuditActionStart            AuditAction = "start"
	AuditActionSubmit           AuditAction = "submit"
	AuditActionValidationFailed AuditAction = "validation_failed"
)

// AuditEvent is one immutable record of field activity. Rows are only ever
// inserted; the anomaly detector and external reporting read them.
type AuditEvent struct {
	Base
	AssetID uuid.UUID   `gorm:"type:uuid;index;not null" json:"asset_id"`
	ActorID uuid.UUID   `gorm:"type:uuid;index;not null" json:"actor_id"`
	Action  AuditAction `gorm:"not null;index" json:"action"`

	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`

	ReportedLat *float64 `json:"reported_lat,omitempty"`
	ReportedLng *float64 `json:"reported_lng,omitempty"`

	IsSuccessful bool   `gorm:"not null" json:"is_successful"`
	Details      string `json:"details,omitempty"`

	// Relationships
	Asset *Asset `gorm:"foreignKey:AssetID" json:"-"`
	Actor *User  `gorm:"foreignKey:ActorID" json:"-"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
