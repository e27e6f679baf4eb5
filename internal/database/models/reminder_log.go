package models

import (
	"time"

	"github.com/google/uuid"
)

// Reminder lead-time buckets. The dispatcher sends at most one reminder
// per (schedule, bucket); the composite unique index is what enforces
// that across concurrent invocations.
const (
	ReminderBucket1Day  = "d1"
	ReminderBucket3Days = "d3"
	ReminderBucket7Days = "d7"
)

// ReminderLog is the durable dedupe marker for reminder dispatch. A row
// exists iff a reminder for (schedule, bucket) was sent successfully;
// claims for failed sends are deleted so the next run retries.
type ReminderLog struct {
	Base
	ScheduleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reminder_schedule_bucket" json:"schedule_id"`
	Bucket     string    `gorm:"size:8;not null;uniqueIndex:idx_reminder_schedule_bucket" json:"bucket"`
	SentAt     time.Time `gorm:"not null" json:"sent_at"`
	SentTo     string    `json:"sent_to,omitempty"`

	Schedule *InspectionSchedule `gorm:"foreignKey:ScheduleID" json:"-"`
}

func (ReminderLog) TableName() string {
	return "reminder_logs"
}
