package handlers

import (
	"encoding/json"
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

type AssetHandler struct {
	db   *gorm.DB
	gate *inspection.Gate
}

func NewAssetHandler(db *gorm.DB, gate *inspection.Gate) *AssetHandler {
	return &AssetHandler{db: db, gate: gate}
}

// CreateAssetRequest represents the request to register an extinguisher
type CreateAssetRequest struct {
	SerialNumber      string   `json:"serial_number"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	LocationType      string   `json:"location_type"`
	FixedLat          *float64 `json:"fixed_lat,omitempty"`
	FixedLng          *float64 `json:"fixed_lng,omitempty"`
	ValidRadiusMeters float64  `json:"valid_radius_meters,omitempty"`
	Placement         string   `json:"placement,omitempty"`
}

func (r CreateAssetRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.SerialNumber == "" {
		errors["serial_number"] = "Serial number is required"
	} else if !validation.IsValidSerialNumber(r.SerialNumber) {
		errors["serial_number"] = "Invalid serial number format"
	}
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	switch models.LocationType(r.LocationType) {
	case models.LocationTypeFixed:
		if r.FixedLat == nil || r.FixedLng == nil {
			errors["fixed_lat"] = "Fixed assets require coordinates"
		} else {
			if !validation.IsValidLatitude(*r.FixedLat) {
				errors["fixed_lat"] = "Latitude must be between -90 and 90"
			}
			if !validation.IsValidLongitude(*r.FixedLng) {
				errors["fixed_lng"] = "Longitude must be between -180 and 180"
			}
		}
	case models.LocationTypeMobile:
	default:
		errors["location_type"] = "Location type must be fixed or mobile"
	}
	if r.ValidRadiusMeters != 0 && !validation.IsValidRadius(r.ValidRadiusMeters) {
		errors["valid_radius_meters"] = "Radius must be between 0 and 10000 meters"
	}
	return errors
}

// UpdateAssetRequest represents a partial asset update
type UpdateAssetRequest struct {
	Name              *string  `json:"name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	LocationType      *string  `json:"location_type,omitempty"`
	FixedLat          *float64 `json:"fixed_lat,omitempty"`
	FixedLng          *float64 `json:"fixed_lng,omitempty"`
	ValidRadiusMeters *float64 `json:"valid_radius_meters,omitempty"`
	Placement         *string  `json:"placement,omitempty"`
	IsActive          *bool    `json:"is_active,omitempty"`
}

// AssetResponse represents an extinguisher in API responses
type AssetResponse struct {
	ID                string   `json:"id"`
	SerialNumber      string   `json:"serial_number"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	LocationType      string   `json:"location_type"`
	FixedLat          *float64 `json:"fixed_lat,omitempty"`
	FixedLng          *float64 `json:"fixed_lng,omitempty"`
	ValidRadiusMeters float64  `json:"valid_radius_meters"`
	Placement         string   `json:"placement,omitempty"`
	IsActive          bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func assetToResponse(asset *models.Asset) AssetResponse {
	return AssetResponse{
		ID:                asset.ID.String(),
		SerialNumber:      asset.SerialNumber,
		Name:              asset.Name,
		Description:       asset.Description,
		LocationType:      string(asset.LocationType),
		FixedLat:          asset.FixedLat,
		FixedLng:          asset.FixedLng,
		ValidRadiusMeters: asset.ValidRadiusMeters,
		Placement:         asset.Placement,
		IsActive:          asset.IsActive,
		CreatedAt:         asset.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         asset.UpdatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/assets
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	locationType := r.URL.Query().Get("location_type")
	isActive := r.URL.Query().Get("is_active")
	serial := r.URL.Query().Get("serial_number")

	query := h.db.Model(&models.Asset{})
	if locationType != "" {
		query = query.Where("location_type = ?", locationType)
	}
	if isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if serial != "" {
		query = query.Where("serial_number = ?", serial)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count assets"})
		return
	}

	var assets []models.Asset
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&assets).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list assets"})
		return
	}

	response := make([]AssetResponse, len(assets))
	for i, asset := range assets {
		response[i] = assetToResponse(&asset)
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(response, total, pagination))
}

// Create handles POST /api/v1/assets
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	asset := models.Asset{
		SerialNumber:      req.SerialNumber,
		Name:              req.Name,
		Description:       req.Description,
		LocationType:      models.LocationType(req.LocationType),
		FixedLat:          req.FixedLat,
		FixedLng:          req.FixedLng,
		ValidRadiusMeters: req.ValidRadiusMeters,
		Placement:         req.Placement,
		IsActive:          true,
	}
	if asset.ValidRadiusMeters == 0 {
		asset.ValidRadiusMeters = 50
	}

	if err := h.db.Create(&asset).Error; err != nil {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Serial number already registered"})
		return
	}

	writeJSON(w, http.StatusCreated, assetToResponse(&asset))
}

// Get handles GET /api/v1/assets/{id}
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.loadAsset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, assetToResponse(asset))
}

// Update handles PUT /api/v1/assets/{id}
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.loadAsset(w, r)
	if !ok {
		return
	}

	var req UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.Description != nil {
		asset.Description = *req.Description
	}
	if req.LocationType != nil {
		lt := models.LocationType(*req.LocationType)
		if lt != models.LocationTypeFixed && lt != models.LocationTypeMobile {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Location type must be fixed or mobile"})
			return
		}
		asset.LocationType = lt
	}
	if req.FixedLat != nil {
		if !validation.IsValidLatitude(*req.FixedLat) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Latitude must be between -90 and 90"})
			return
		}
		asset.FixedLat = req.FixedLat
	}
	if req.FixedLng != nil {
		if !validation.IsValidLongitude(*req.FixedLng) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Longitude must be between -180 and 180"})
			return
		}
		asset.FixedLng = req.FixedLng
	}
	if req.ValidRadiusMeters != nil {
		if !validation.IsValidRadius(*req.ValidRadiusMeters) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Radius must be between 0 and 10000 meters"})
			return
		}
		asset.ValidRadiusMeters = *req.ValidRadiusMeters
	}
	if req.Placement != nil {
		asset.Placement = *req.Placement
	}
	if req.IsActive != nil {
		asset.IsActive = *req.IsActive
	}

	if err := h.db.Save(asset).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update asset"})
		return
	}

	writeJSON(w, http.StatusOK, assetToResponse(asset))
}

// Delete handles DELETE /api/v1/assets/{id}
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset ID"})
		return
	}

	result := h.db.Where("id = ?", id).Delete(&models.Asset{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete asset"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Asset not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Asset deleted"})
}

// ScanRequest carries the scanner's position at the moment the QR label
// was read
type ScanRequest struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

// ScanResponse pairs the scanned asset with its next relevant schedule
type ScanResponse struct {
	Asset    AssetResponse     `json:"asset"`
	Schedule *ScheduleResponse `json:"schedule,omitempty"`
}

// Scan handles POST /api/v1/assets/{id}/scan. Reading the QR label is the
// entry point of a field inspection, so it leaves a scan audit event.
func (h *AssetHandler) Scan(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.loadAsset(w, r)
	if !ok {
		return
	}

	var req ScanRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.gate.RecordScan(r.Context(), asset.ID, actorID, req.Lat, req.Lng); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to record scan"})
		return
	}

	resp := ScanResponse{Asset: assetToResponse(asset)}

	// Surface the next open schedule so the app can show the inspector
	// what this scan is for.
	var schedule models.InspectionSchedule
	err := h.db.
		Where("asset_id = ? AND is_active = ? AND is_completed = ?", asset.ID, true, false).
		Order("start_at ASC").
		First(&schedule).Error
	if err == nil {
		s := scheduleToResponse(&schedule, time.Now())
		resp.Schedule = &s
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AssetHandler) loadAsset(w http.ResponseWriter, r *http.Request) (*models.Asset, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset ID"})
		return nil, false
	}

	var asset models.Asset
	if err := h.db.Where("id = ?", id).First(&asset).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Asset not found"})
		return nil, false
	}
	return &asset, true
}
