package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/firewatch/firewatch/internal/api/dto"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/api/validation"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/pkg/crypto"
	"gorm.io/gorm"
)

type SettingsHandler struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

func NewSettingsHandler(db *gorm.DB, encryptor *crypto.Encryptor) *SettingsHandler {
	return &SettingsHandler{db: db, encryptor: encryptor}
}

// NotificationSettingRequest updates the SMTP transport. The password is
// write-only: it is encrypted at rest and never echoed back.
type NotificationSettingRequest struct {
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username,omitempty"`
	SMTPPassword string `json:"smtp_password,omitempty"`
	FromAddress  string `json:"from_address"`
}

func (r NotificationSettingRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.SMTPHost == "" {
		errs["smtp_host"] = "SMTP host is required"
	}
	if r.SMTPPort < 1 || r.SMTPPort > 65535 {
		errs["smtp_port"] = "SMTP port must be between 1 and 65535"
	}
	if r.FromAddress == "" {
		errs["from_address"] = "From address is required"
	} else if !validation.IsValidEmail(r.FromAddress) {
		errs["from_address"] = "Invalid from address"
	}
	return errs
}

// NotificationSettingResponse mirrors the stored setting minus the secret
type NotificationSettingResponse struct {
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username,omitempty"`
	HasPassword  bool   `json:"has_password"`
	FromAddress  string `json:"from_address"`
	UpdatedAt    string `json:"updated_at"`
}

func settingToResponse(s *models.NotificationSetting) NotificationSettingResponse {
	return NotificationSettingResponse{
		SMTPHost:     s.SMTPHost,
		SMTPPort:     s.SMTPPort,
		SMTPUsername: s.SMTPUsername,
		HasPassword:  s.SMTPPasswordEnc != "",
		FromAddress:  s.FromAddress,
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

// Get handles GET /api/v1/settings/notifications
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var setting models.NotificationSetting
	if err := h.db.Order("updated_at DESC").First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Notification settings not configured"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load settings"})
		return
	}

	writeJSON(w, http.StatusOK, settingToResponse(&setting))
}

// Update handles PUT /api/v1/settings/notifications
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req NotificationSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	var setting models.NotificationSetting
	err := h.db.Order("updated_at DESC").First(&setting).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load settings"})
		return
	}

	setting.SMTPHost = req.SMTPHost
	setting.SMTPPort = req.SMTPPort
	setting.SMTPUsername = req.SMTPUsername
	setting.FromAddress = req.FromAddress

	if req.SMTPPassword != "" {
		enc, err := h.encryptor.EncryptString(req.SMTPPassword)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to encrypt password"})
			return
		}
		setting.SMTPPasswordEnc = enc
	}

	userID := middleware.GetUserID(r.Context())
	setting.UpdatedBy = &userID

	if err := h.db.Save(&setting).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save settings"})
		return
	}

	writeJSON(w, http.StatusOK, settingToResponse(&setting))
}
