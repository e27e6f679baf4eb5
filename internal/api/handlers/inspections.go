package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/firewatch/firewatch/internal/api/dto"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/api/validation"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/inspection"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InspectionHandler struct {
	db   *gorm.DB
	gate *inspection.Gate
}

func NewInspectionHandler(db *gorm.DB, gate *inspection.Gate) *InspectionHandler {
	return &InspectionHandler{db: db, gate: gate}
}

// StartInspectionRequest marks the moment an inspector begins working on
// an asset
type StartInspectionRequest struct {
	AssetID string   `json:"asset_id"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// SubmitInspectionRequest is the field submission to be validated
type SubmitInspectionRequest struct {
	AssetID     string   `json:"asset_id"`
	ReportedAt  string   `json:"reported_at,omitempty"`
	ReportedLat *float64 `json:"reported_lat,omitempty"`
	ReportedLng *float64 `json:"reported_lng,omitempty"`

	PhotoPath       string   `json:"photo_path,omitempty"`
	PhotoHash       string   `json:"photo_hash,omitempty"`
	PhotoCapturedAt *string  `json:"photo_captured_at,omitempty"`
	PhotoLat        *float64 `json:"photo_lat,omitempty"`
	PhotoLng        *float64 `json:"photo_lng,omitempty"`

	PressureOK  bool   `json:"pressure_ok"`
	PinIntact   bool   `json:"pin_intact"`
	NozzleClear bool   `json:"nozzle_clear"`
	BodyIntact  bool   `json:"body_intact"`
	Notes       string `json:"notes,omitempty"`
}

func (r SubmitInspectionRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.AssetID == "" {
		errs["asset_id"] = "Asset ID is required"
	} else if !validation.IsValidUUID(r.AssetID) {
		errs["asset_id"] = "Invalid asset ID format"
	}
	if r.ReportedLat != nil && !validation.IsValidLatitude(*r.ReportedLat) {
		errs["reported_lat"] = "Latitude must be between -90 and 90"
	}
	if r.ReportedLng != nil && !validation.IsValidLongitude(*r.ReportedLng) {
		errs["reported_lng"] = "Longitude must be between -180 and 180"
	}
	return errs
}

// InspectionResponse represents a persisted inspection in API responses
type InspectionResponse struct {
	ID              string   `json:"id"`
	AssetID         string   `json:"asset_id"`
	InspectorID     string   `json:"inspector_id"`
	ScheduleID      *string  `json:"schedule_id,omitempty"`
	SubmittedAt     string   `json:"submitted_at"`
	ReportedLat     *float64 `json:"reported_lat,omitempty"`
	ReportedLng     *float64 `json:"reported_lng,omitempty"`
	PhotoPath       string   `json:"photo_path,omitempty"`
	PhotoHash       string   `json:"photo_hash,omitempty"`
	PhotoCapturedAt *string  `json:"photo_captured_at,omitempty"`
	PressureOK      bool     `json:"pressure_ok"`
	PinIntact       bool     `json:"pin_intact"`
	NozzleClear     bool     `json:"nozzle_clear"`
	BodyIntact      bool     `json:"body_intact"`
	Notes           string   `json:"notes,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

func inspectionToResponse(in *models.Inspection) InspectionResponse {
	resp := InspectionResponse{
		ID:          in.ID.String(),
		AssetID:     in.AssetID.String(),
		InspectorID: in.InspectorID.String(),
		SubmittedAt: in.SubmittedAt.UTC().Format(time.RFC3339),
		ReportedLat: in.ReportedLat,
		ReportedLng: in.ReportedLng,
		PhotoPath:   in.PhotoPath,
		PhotoHash:   in.PhotoHash,
		PressureOK:  in.PressureOK,
		PinIntact:   in.PinIntact,
		NozzleClear: in.NozzleClear,
		BodyIntact:  in.BodyIntact,
		Notes:       in.Notes,
		CreatedAt:   in.CreatedAt.Format(time.RFC3339),
	}
	if in.ScheduleID != nil {
		id := in.ScheduleID.String()
		resp.ScheduleID = &id
	}
	if in.PhotoCapturedAt != nil {
		t := in.PhotoCapturedAt.UTC().Format(time.RFC3339)
		resp.PhotoCapturedAt = &t
	}
	return resp
}

// SubmitResult is the response body for a submission, accepted or not
type SubmitResult struct {
	Decision   *inspection.Decision `json:"decision"`
	Inspection *InspectionResponse  `json:"inspection,omitempty"`
}

// Start handles POST /api/v1/inspections/start
func (h *InspectionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset ID"})
		return
	}

	var asset models.Asset
	if err := h.db.Where("id = ? AND is_active = ?", assetID, true).First(&asset).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Asset not found"})
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.gate.RecordStart(r.Context(), assetID, actorID, req.Lat, req.Lng); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to record start"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Inspection started"})
}

// Submit handles POST /api/v1/inspections. Accepted submissions come back
// 201; rejections come back 422 with the reason and its evidence.
func (h *InspectionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	assetID, _ := uuid.Parse(req.AssetID)
	attempt := inspection.Attempt{
		AssetID:     assetID,
		InspectorID: middleware.GetUserID(r.Context()),
		ReportedAt:  time.Now().UTC(),
		ReportedLat: req.ReportedLat,
		ReportedLng: req.ReportedLng,
		PhotoPath:   req.PhotoPath,
		PhotoHash:   req.PhotoHash,
		PhotoLat:    req.PhotoLat,
		PhotoLng:    req.PhotoLng,
		PressureOK:  req.PressureOK,
		PinIntact:   req.PinIntact,
		NozzleClear: req.NozzleClear,
		BodyIntact:  req.BodyIntact,
		Notes:       req.Notes,
	}

	if req.ReportedAt != "" {
		t, err := time.Parse(time.RFC3339, req.ReportedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid reported time"})
			return
		}
		attempt.ReportedAt = t.UTC()
	}
	if req.PhotoCapturedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.PhotoCapturedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid photo capture time"})
			return
		}
		utc := t.UTC()
		attempt.PhotoCapturedAt = &utc
	}

	decision, err := h.gate.Submit(r.Context(), attempt)
	if err != nil {
		if errors.Is(err, inspection.ErrAssetNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Asset not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Submission failed"})
		return
	}

	result := SubmitResult{Decision: decision}
	if decision.Accepted {
		resp := inspectionToResponse(decision.Inspection)
		result.Inspection = &resp
		writeJSON(w, http.StatusCreated, result)
		return
	}

	writeJSON(w, http.StatusUnprocessableEntity, result)
}

// List handles GET /api/v1/inspections
func (h *InspectionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Inspection{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if inspectorID := r.URL.Query().Get("inspector_id"); inspectorID != "" {
		query = query.Where("inspector_id = ?", inspectorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count inspections"})
		return
	}

	var inspections []models.Inspection
	if err := query.
		Order("submitted_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&inspections).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list inspections"})
		return
	}

	response := make([]InspectionResponse, len(inspections))
	for i := range inspections {
		response[i] = inspectionToResponse(&inspections[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(response, total, pagination))
}

// Get handles GET /api/v1/inspections/{id}
func (h *InspectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid inspection ID"})
		return
	}

	var in models.Inspection
	if err := h.db.Where("id = ?", id).First(&in).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Inspection not found"})
		return
	}

	writeJSON(w, http.StatusOK, inspectionToResponse(&in))
}
