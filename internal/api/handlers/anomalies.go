package handlers

import (
	"net/http"
	"strconv"

	"github.com/firewatch/firewatch/internal/anomaly"
	"github.com/firewatch/firewatch/internal/api/dto"
	"github.com/firewatch/firewatch/internal/tasks"
	"github.com/hibiken/asynq"
)

type AnomalyHandler struct {
	detector *anomaly.Detector
	client   *asynq.Client
}

func NewAnomalyHandler(detector *anomaly.Detector, client *asynq.Client) *AnomalyHandler {
	return &AnomalyHandler{detector: detector, client: client}
}

// AnomalyListResponse wraps a detector run
type AnomalyListResponse struct {
	WindowDays int               `json:"window_days"`
	Anomalies  []anomaly.Anomaly `json:"anomalies"`
}

// List handles GET /api/v1/anomalies?days=N. Admin only; runs the
// detector on demand over the requested window.
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	days := anomaly.DefaultWindowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "days must be between 1 and 365"})
			return
		}
		days = n
	}

	anomalies, err := h.detector.Scan(r.Context(), days)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to scan for anomalies"})
		return
	}
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}

	writeJSON(w, http.StatusOK, AnomalyListResponse{
		WindowDays: days,
		Anomalies:  anomalies,
	})
}

// Trigger handles POST /api/v1/anomalies/scan. Admin only; enqueues a
// background scan so the worker logs and counts the findings.
func (h *AnomalyHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Task queue is not available"})
		return
	}

	days := anomaly.DefaultWindowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "days must be between 1 and 365"})
			return
		}
		days = n
	}

	task, err := tasks.NewAnomalyScanTask(tasks.AnomalyScanPayload{WindowDays: days})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to build scan task"})
		return
	}

	info, err := h.client.EnqueueContext(r.Context(), task)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue scan"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": info.ID,
		"queue":   info.Queue,
	})
}
