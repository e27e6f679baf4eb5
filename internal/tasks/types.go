package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeReminderDispatch = "reminder:dispatch"
	TypeAnomalyScan      = "anomaly:scan"
)

// ReminderDispatchPayload is empty: one run covers every lead-time bucket.
type ReminderDispatchPayload struct{}

func NewReminderDispatchTask() *asynq.Task {
	return asynq.NewTask(TypeReminderDispatch, nil)
}

// AnomalyScanPayload carries the scan window; zero means the default.
type AnomalyScanPayload struct {
	WindowDays int `json:"window_days"`
}

func NewAnomalyScanTask(payload AnomalyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAnomalyScan, data), nil
}
