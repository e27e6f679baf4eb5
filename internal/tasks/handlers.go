package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firewatch/firewatch/internal/anomaly"
	"github.com/firewatch/firewatch/internal/reminder"
	"github.com/hibiken/asynq"
)

type Handler struct {
	dispatcher *reminder.Dispatcher
	detector   *anomaly.Detector
	logger     *slog.Logger
}

func NewHandler(dispatcher *reminder.Dispatcher, detector *anomaly.Detector, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		detector:   detector,
		logger:     logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReminderDispatch, h.HandleReminderDispatch)
	mux.HandleFunc(TypeAnomalyScan, h.HandleAnomalyScan)
}

// HandleReminderDispatch runs one dispatch pass. Re-delivery is harmless:
// the pass is idempotent per (schedule, bucket).
func (h *Handler) HandleReminderDispatch(ctx context.Context, t *asynq.Task) error {
	h.logger.Info("starting reminder dispatch")

	summary, err := h.dispatcher.Run(ctx)
	if err != nil {
		h.logger.Error("reminder dispatch failed", "error", err)
		return err
	}

	h.logger.Info("completed reminder dispatch",
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return nil
}

func (h *Handler) HandleAnomalyScan(ctx context.Context, t *asynq.Task) error {
	var payload AnomalyScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	h.logger.Info("starting anomaly scan", "window_days", payload.WindowDays)

	anomalies, err := h.detector.Scan(ctx, payload.WindowDays)
	if err != nil {
		h.logger.Error("anomaly scan failed", "error", err)
		return err
	}

	for _, a := range anomalies {
		h.logger.Warn("anomaly flagged",
			"type", a.Type,
			"severity", a.Severity,
			"asset_id", a.AssetID,
			"actor_id", a.ActorID,
			"details", a.Details,
		)
	}

	h.logger.Info("completed anomaly scan", "flagged", len(anomalies))
	return nil
}
