package models

import "github.com/google/uuid"

// NotificationSetting holds the SMTP transport configured through the
// admin API. The password is age-encrypted before it touches the row;
// only pkg/crypto ever sees the plaintext. A single row is expected.
type NotificationSetting struct {
	Base
	SMTPHost     string `gorm:"size:255;not null" json:"smtp_host"`
	SMTPPort     int    `gorm:"not null;default:587" json:"smtp_port"`
	SMTPUsername string `gorm:"size:255" json:"smtp_username"`

	// Base64 of the age ciphertext. Never serialized to API responses.
	SMTPPasswordEnc string `json:"-"`

	FromAddress string     `gorm:"size:255;not null" json:"from_address"`
	UpdatedBy   *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}
