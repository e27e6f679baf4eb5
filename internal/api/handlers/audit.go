package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/firewatch/firewatch/internal/api/dto"
	"github.com/firewatch/firewatch/internal/database/models"
	"gorm.io/gorm"
)

type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// AuditEventResponse represents one audit trail entry
type AuditEventResponse struct {
	ID           string   `json:"id"`
	AssetID      string   `json:"asset_id"`
	ActorID      string   `json:"actor_id"`
	Action       string   `json:"action"`
	OccurredAt   string   `json:"occurred_at"`
	ReportedLat  *float64 `json:"reported_lat,omitempty"`
	ReportedLng  *float64 `json:"reported_lng,omitempty"`
	IsSuccessful bool     `json:"is_successful"`
	Details      string   `json:"details,omitempty"`
}

func auditToResponse(e *models.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:           e.ID.String(),
		AssetID:      e.AssetID.String(),
		ActorID:      e.ActorID.String(),
		Action:       string(e.Action),
		OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339),
		ReportedLat:  e.ReportedLat,
		ReportedLng:  e.ReportedLng,
		IsSuccessful: e.IsSuccessful,
		Details:      e.Details,
	}
}

// List handles GET /api/v1/audit-events
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.AuditEvent{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if actorID := r.URL.Query().Get("actor_id"); actorID != "" {
		query = query.Where("actor_id = ?", actorID)
	}
	if action := r.URL.Query().Get("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid since timestamp"})
			return
		}
		query = query.Where("occurred_at >= ?", t.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count audit events"})
		return
	}

	var events []models.AuditEvent
	if err := query.
		Order("occurred_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&events).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list audit events"})
		return
	}

	response := make([]AuditEventResponse, len(events))
	for i := range events {
		response[i] = auditToResponse(&events[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(response, total, pagination))
}
