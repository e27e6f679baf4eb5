package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/firewatch/firewatch/internal/api/dto"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/inspection"
	"github.com/firewatch/firewatch/pkg/timeutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleHandler struct {
	db *gorm.DB
}

func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

// CreateScheduleRequest represents the request to create an inspection
// schedule. StartAt/EndAt are RFC3339; when Timezone is set they are
// reinterpreted as wall-clock times in that zone before being stored UTC.
type CreateScheduleRequest struct {
	AssetID    string  `json:"asset_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	Cadence    string  `json:"cadence"`
	Timezone   string  `json:"timezone,omitempty"`
}

func (r CreateScheduleRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AssetID == "" {
		errors["asset_id"] = "Asset ID is required"
	} else if _, err := uuid.Parse(r.AssetID); err != nil {
		errors["asset_id"] = "Invalid asset ID format"
	}
	if r.AssigneeID != nil && *r.AssigneeID != "" {
		if _, err := uuid.Parse(*r.AssigneeID); err != nil {
			errors["assignee_id"] = "Invalid assignee ID format"
		}
	}
	if r.StartAt == "" {
		errors["start_at"] = "Start time is required"
	}
	if r.EndAt == "" {
		errors["end_at"] = "End time is required"
	}
	if r.Cadence == "" {
		errors["cadence"] = "Cadence is required"
	} else if !models.ValidCadence(r.Cadence) {
		errors["cadence"] = "Cadence must be weekly, monthly, quarterly or semiannual"
	}
	return errors
}

// UpdateScheduleRequest represents a partial schedule update
type UpdateScheduleRequest struct {
	AssigneeID  *string `json:"assignee_id,omitempty"`
	StartAt     *string `json:"start_at,omitempty"`
	EndAt       *string `json:"end_at,omitempty"`
	Cadence     *string `json:"cadence,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// ScheduleResponse represents a schedule in API responses. Status is
// derived from the stored fields at response time, never persisted.
type ScheduleResponse struct {
	ID          string  `json:"id"`
	AssetID     string  `json:"asset_id"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	StartAt     string  `json:"start_at"`
	EndAt       string  `json:"end_at"`
	Cadence     string  `json:"cadence"`
	IsActive    bool    `json:"is_active"`
	IsCompleted bool    `json:"is_completed"`
	Status      string  `json:"status"`
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func scheduleToResponse(s *models.InspectionSchedule, now time.Time) ScheduleResponse {
	winStart, winEnd := inspection.Window(s)
	resp := ScheduleResponse{
		ID:          s.ID.String(),
		AssetID:     s.AssetID.String(),
		StartAt:     s.StartAt.UTC().Format(time.RFC3339),
		EndAt:       s.EndAt.UTC().Format(time.RFC3339),
		Cadence:     string(s.Cadence),
		IsActive:    s.IsActive,
		IsCompleted: s.IsCompleted,
		Status:      string(inspection.Status(s, now)),
		WindowStart: winStart.UTC().Format(time.RFC3339),
		WindowEnd:   winEnd.UTC().Format(time.RFC3339),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
	if s.AssigneeID != nil {
		id := s.AssigneeID.String()
		resp.AssigneeID = &id
	}
	return resp
}

// parseScheduleTime parses an RFC3339 timestamp, optionally reinterpreting
// its wall clock in the named zone.
func parseScheduleTime(value, zone string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	if zone == "" {
		return t.UTC(), nil
	}
	return timeutil.ToUTC(t, zone)
}

// Create creates a new inspection schedule
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	startAt, err := parseScheduleTime(req.StartAt, req.Timezone)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid start time"})
		return
	}
	endAt, err := parseScheduleTime(req.EndAt, req.Timezone)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid end time"})
		return
	}
	if err := inspection.ValidateWindow(startAt, endAt); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	assetID, _ := uuid.Parse(req.AssetID)
	var asset models.Asset
	if err := h.db.Where("id = ?", assetID).First(&asset).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Asset not found"})
		return
	}

	schedule := models.InspectionSchedule{
		AssetID:  assetID,
		StartAt:  startAt,
		EndAt:    endAt,
		Cadence:  models.Cadence(req.Cadence),
		IsActive: true,
	}
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		assigneeID, _ := uuid.Parse(*req.AssigneeID)
		var assignee models.User
		if err := h.db.Where("id = ?", assigneeID).First(&assignee).Error; err != nil {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Assignee not found"})
			return
		}
		schedule.AssigneeID = &assigneeID
	}

	if err := h.db.Create(&schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create schedule"})
		return
	}

	writeJSON(w, http.StatusCreated, scheduleToResponse(&schedule, time.Now()))
}

// List returns inspection schedules, optionally filtered by asset,
// assignee or derived status
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.InspectionSchedule{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if assigneeID := r.URL.Query().Get("assignee_id"); assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}
	if isActive := r.URL.Query().Get("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count schedules"})
		return
	}

	var schedules []models.InspectionSchedule
	if err := query.
		Order("start_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&schedules).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to fetch schedules"})
		return
	}

	now := time.Now()
	response := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		response[i] = scheduleToResponse(&schedules[i], now)
	}

	// Status is derived, so filtering on it happens after projection.
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := response[:0]
		for _, s := range response {
			if s.Status == status {
				filtered = append(filtered, s)
			}
		}
		response = filtered
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(response, total, pagination))
}

// Get returns a specific schedule
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(schedule, time.Now()))
}

// Update updates a schedule
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	startAt := schedule.StartAt
	endAt := schedule.EndAt
	if req.StartAt != nil {
		t, err := parseScheduleTime(*req.StartAt, req.Timezone)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid start time"})
			return
		}
		startAt = t
	}
	if req.EndAt != nil {
		t, err := parseScheduleTime(*req.EndAt, req.Timezone)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid end time"})
			return
		}
		endAt = t
	}
	if err := inspection.ValidateWindow(startAt, endAt); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	schedule.StartAt = startAt
	schedule.EndAt = endAt

	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			schedule.AssigneeID = nil
		} else {
			assigneeID, err := uuid.Parse(*req.AssigneeID)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid assignee ID"})
				return
			}
			var assignee models.User
			if err := h.db.Where("id = ?", assigneeID).First(&assignee).Error; err != nil {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Assignee not found"})
				return
			}
			schedule.AssigneeID = &assigneeID
		}
	}
	if req.Cadence != nil {
		if !models.ValidCadence(*req.Cadence) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cadence"})
			return
		}
		schedule.Cadence = models.Cadence(*req.Cadence)
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}
	if req.IsCompleted != nil {
		schedule.IsCompleted = *req.IsCompleted
	}

	if err := h.db.Save(schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update schedule"})
		return
	}

	writeJSON(w, http.StatusOK, scheduleToResponse(schedule, time.Now()))
}

// Delete soft-deletes a schedule
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid schedule ID"})
		return
	}

	result := h.db.Where("id = ?", id).Delete(&models.InspectionSchedule{})
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete schedule"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Schedule not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Schedule deleted"})
}

func (h *ScheduleHandler) loadSchedule(w http.ResponseWriter, r *http.Request) (*models.InspectionSchedule, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid schedule ID"})
		return nil, false
	}

	var schedule models.InspectionSchedule
	if err := h.db.Where("id = ?", id).First(&schedule).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Schedule not found"})
		return nil, false
	}
	return &schedule, true
}
