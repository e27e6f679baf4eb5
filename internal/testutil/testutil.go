package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/firewatch/firewatch/internal/auth"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.InspectionSchedule{},
		&models.Inspection{},
		&models.AuditEvent{},
		&models.ReminderLog{},
		&models.NotificationSetting{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates a test user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// CreateTestAsset creates a fixed-location test asset at the given
// coordinates
func CreateTestAsset(t *testing.T, db *gorm.DB, lat, lng float64) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Base: models.Base{
			ID: uuid.New(),
		},
		SerialNumber:      "FE-TEST-" + uuid.New().String()[:8],
		Name:              "Test Extinguisher",
		LocationType:      models.LocationTypeFixed,
		FixedLat:          &lat,
		FixedLng:          &lng,
		ValidRadiusMeters: 50,
		IsActive:          true,
	}

	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}

	return asset
}

// CreateTestMobileAsset creates a mobile test asset with no fixed position
func CreateTestMobileAsset(t *testing.T, db *gorm.DB) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Base: models.Base{
			ID: uuid.New(),
		},
		SerialNumber:      "FE-TEST-" + uuid.New().String()[:8],
		Name:              "Mobile Test Extinguisher",
		LocationType:      models.LocationTypeMobile,
		ValidRadiusMeters: 50,
		IsActive:          true,
	}

	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}

	return asset
}

// CreateTestSchedule creates an active schedule for the asset over
// [startAt, endAt]
func CreateTestSchedule(t *testing.T, db *gorm.DB, assetID uuid.UUID, assigneeID *uuid.UUID, startAt, endAt time.Time) *models.InspectionSchedule {
	t.Helper()

	schedule := &models.InspectionSchedule{
		Base: models.Base{
			ID: uuid.New(),
		},
		AssetID:    assetID,
		AssigneeID: assigneeID,
		StartAt:    startAt.UTC(),
		EndAt:      endAt.UTC(),
		Cadence:    models.CadenceMonthly,
		IsActive:   true,
	}

	if err := db.Create(schedule).Error; err != nil {
		t.Fatalf("failed to create test schedule: %v", err)
	}

	return schedule
}

// CreateTestAuditEvent records an audit event at the given time
func CreateTestAuditEvent(t *testing.T, db *gorm.DB, assetID, actorID uuid.UUID, action models.AuditAction, occurredAt time.Time, successful bool) *models.AuditEvent {
	t.Helper()

	event := &models.AuditEvent{
		Base: models.Base{
			ID: uuid.New(),
		},
		AssetID:      assetID,
		ActorID:      actorID,
		Action:       action,
		OccurredAt:   occurredAt.UTC(),
		IsSuccessful: successful,
	}

	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test audit event: %v", err)
	}

	return event
}

// CreateTestInspection persists an accepted inspection directly
func CreateTestInspection(t *testing.T, db *gorm.DB, assetID, inspectorID uuid.UUID, submittedAt time.Time, photoHash string) *models.Inspection {
	t.Helper()

	in := &models.Inspection{
		Base: models.Base{
			ID: uuid.New(),
		},
		AssetID:     assetID,
		InspectorID: inspectorID,
		SubmittedAt: submittedAt.UTC(),
		PhotoHash:   photoHash,
		PressureOK:  true,
		PinIntact:   true,
		NozzleClear: true,
		BodyIntact:  true,
	}

	if err := db.Create(in).Error; err != nil {
		t.Fatalf("failed to create test inspection: %v", err)
	}

	return in
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db, "inspector")
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		User:       user,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
