package tasks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/firewatch/firewatch/internal/anomaly"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/notify"
	"github.com/firewatch/firewatch/internal/reminder"
	"github.com/firewatch/firewatch/internal/testutil"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testHandler(t *testing.T, db *gorm.DB) *Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &notify.LogSender{Logger: logger}
	dispatcher := reminder.NewDispatcher(db, sender, logger, time.UTC, 5*time.Second)
	detector := anomaly.NewDetector(db, logger, time.UTC)

	return NewHandler(dispatcher, detector, logger)
}

func TestNewHandler(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	assert.NotNil(t, handler)
	assert.NotNil(t, handler.dispatcher)
	assert.NotNil(t, handler.detector)
	assert.NotNil(t, handler.logger)
}

func TestHandleReminderDispatch_EmptyDatabase(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	task := NewReminderDispatchTask()

	// With no schedules, a pass completes without error
	err := handler.HandleReminderDispatch(context.Background(), task)
	assert.NoError(t, err)
}

func TestHandleReminderDispatch_SendsAndLogs(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	asset := testutil.CreateTestAsset(t, setup.DB, 40.0, -74.0)
	startAt := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(10 * time.Hour)
	testutil.CreateTestSchedule(t, setup.DB, asset.ID, &setup.User.ID, startAt, startAt.Add(4*time.Hour))

	err := handler.HandleReminderDispatch(context.Background(), NewReminderDispatchTask())
	require.NoError(t, err)

	var logs []models.ReminderLog
	require.NoError(t, setup.DB.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ReminderBucket1Day, logs[0].Bucket)

	// A second delivery of the same task is a no-op
	err = handler.HandleReminderDispatch(context.Background(), NewReminderDispatchTask())
	require.NoError(t, err)

	require.NoError(t, setup.DB.Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestHandleAnomalyScan_InvalidPayload(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	task := asynq.NewTask(TypeAnomalyScan, []byte("invalid json"))

	err := handler.HandleAnomalyScan(context.Background(), task)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
}

func TestHandleAnomalyScan_EmptyPayload(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	// Empty payload means the default window
	task := asynq.NewTask(TypeAnomalyScan, nil)

	err := handler.HandleAnomalyScan(context.Background(), task)
	assert.NoError(t, err)
}

func TestHandleAnomalyScan_FlagsEvents(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	asset := testutil.CreateTestAsset(t, setup.DB, 40.0, -74.0)
	at := time.Now().UTC().Add(-2 * time.Hour)
	testutil.CreateTestAuditEvent(t, setup.DB, asset.ID, setup.User.ID, models.AuditActionStart, at, true)
	testutil.CreateTestAuditEvent(t, setup.DB, asset.ID, setup.User.ID, models.AuditActionSubmit, at.Add(30*time.Second), true)

	task, err := NewAnomalyScanTask(AnomalyScanPayload{WindowDays: 7})
	require.NoError(t, err)

	err = handler.HandleAnomalyScan(context.Background(), task)
	assert.NoError(t, err)
}

func TestNewAnomalyScanTask_Payload(t *testing.T) {
	task, err := NewAnomalyScanTask(AnomalyScanPayload{WindowDays: 14})
	require.NoError(t, err)
	assert.Equal(t, TypeAnomalyScan, task.Type())

	var payload AnomalyScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 14, payload.WindowDays)
}

func TestRegisterHandlers(t *testing.T) {
	setup := testutil.NewTestContext(t)
	defer setup.Cleanup()

	handler := testHandler(t, setup.DB)

	mux := asynq.NewServeMux()

	assert.NotPanics(t, func() {
		handler.RegisterHandlers(mux)
	})
}
