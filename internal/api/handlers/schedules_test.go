package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/firewatch/firewatch/internal/api/handlers"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupScheduleTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewScheduleHandler(tc.DB)
	r.Route("/api/v1/schedules", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})

	return r, tc
}

func TestScheduleHandler_Create(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)
	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Second)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "create monthly schedule",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(4 * time.Hour).Format(time.RFC3339),
				"cadence":  "monthly",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "create weekly schedule with assignee",
			body: map[string]interface{}{
				"asset_id":    asset.ID.String(),
				"assignee_id": tc.User.ID.String(),
				"start_at":    start.Format(time.RFC3339),
				"end_at":      start.Add(2 * time.Hour).Format(time.RFC3339),
				"cadence":     "weekly",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "end before start",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(-time.Hour).Format(time.RFC3339),
				"cadence":  "monthly",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "end equals start",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Format(time.RFC3339),
				"cadence":  "monthly",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid cadence",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(time.Hour).Format(time.RFC3339),
				"cadence":  "daily",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing cadence",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(time.Hour).Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown asset",
			body: map[string]interface{}{
				"asset_id": uuid.New().String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(time.Hour).Format(time.RFC3339),
				"cadence":  "monthly",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "unknown assignee",
			body: map[string]interface{}{
				"asset_id":    asset.ID.String(),
				"assignee_id": uuid.New().String(),
				"start_at":    start.Format(time.RFC3339),
				"end_at":      start.Add(time.Hour).Format(time.RFC3339),
				"cadence":     "monthly",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "invalid timezone",
			body: map[string]interface{}{
				"asset_id": asset.ID.String(),
				"start_at": start.Format(time.RFC3339),
				"end_at":   start.Add(time.Hour).Format(time.RFC3339),
				"cadence":  "monthly",
				"timezone": "Mars/Olympus_Mons",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/schedules", tt.body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			if tt.wantStatus == http.StatusCreated {
				var resp handlers.ScheduleResponse
				err := json.Unmarshal(rr.Body.Bytes(), &resp)
				require.NoError(t, err)
				assert.Equal(t, asset.ID.String(), resp.AssetID)
				assert.Equal(t, "upcoming", resp.Status)
				assert.True(t, resp.IsActive)
				assert.False(t, resp.IsCompleted)
			}
		})
	}
}

func TestScheduleHandler_CreateWithTimezone(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)

	// 10:00 wall clock in Shanghai is 02:00 UTC.
	body := map[string]interface{}{
		"asset_id": asset.ID.String(),
		"start_at": "2027-06-01T10:00:00Z",
		"end_at":   "2027-06-01T14:00:00Z",
		"cadence":  "monthly",
		"timezone": "Asia/Shanghai",
	}

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/schedules", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "Body: %s", rr.Body.String())

	var resp handlers.ScheduleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2027-06-01T02:00:00Z", resp.StartAt)
	assert.Equal(t, "2027-06-01T06:00:00Z", resp.EndAt)
}

func TestScheduleHandler_StatusDerivation(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)
	now := time.Now().UTC()

	tests := []struct {
		name       string
		startAt    time.Time
		endAt      time.Time
		active     bool
		wantStatus string
	}{
		{"upcoming", now.Add(48 * time.Hour), now.Add(52 * time.Hour), true, "upcoming"},
		{"ongoing", now.Add(-time.Hour), now.Add(time.Hour), true, "ongoing"},
		{"overdue", now.Add(-48 * time.Hour), now.Add(-44 * time.Hour), true, "overdue"},
		{"inactive", now.Add(-time.Hour), now.Add(time.Hour), false, "inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.CreateTestSchedule(t, tc.DB, asset.ID, nil, tt.startAt, tt.endAt)
			if !tt.active {
				require.NoError(t, tc.DB.Model(s).Update("is_active", false).Error)
			}

			req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/schedules/"+s.ID.String(), nil, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)

			var resp handlers.ScheduleResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestScheduleHandler_List(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)
	other := testutil.CreateTestAsset(t, tc.DB, 41.0, -74.0)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		start := now.Add(time.Duration(24*(i+1)) * time.Hour)
		testutil.CreateTestSchedule(t, tc.DB, asset.ID, nil, start, start.Add(4*time.Hour))
	}
	testutil.CreateTestSchedule(t, tc.DB, other.ID, nil, now.Add(time.Hour), now.Add(5*time.Hour))

	t.Run("all schedules", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/schedules", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data  []handlers.ScheduleResponse `json:"data"`
			Total int64                       `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, int64(4), resp.Total)
		assert.Len(t, resp.Data, 4)
	})

	t.Run("filter by asset", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/schedules?asset_id=%s", other.ID)
		req := testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data []handlers.ScheduleResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, other.ID.String(), resp.Data[0].AssetID)
	})

	t.Run("filter by derived status", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/schedules?status=ongoing", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data []handlers.ScheduleResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "ongoing", resp.Data[0].Status)
	})
}

func TestScheduleHandler_Update(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)
	now := time.Now().UTC().Truncate(time.Second)
	schedule := testutil.CreateTestSchedule(t, tc.DB, asset.ID, nil, now.Add(24*time.Hour), now.Add(28*time.Hour))

	t.Run("assign and change cadence", func(t *testing.T) {
		body := map[string]interface{}{
			"assignee_id": tc.User.ID.String(),
			"cadence":     "quarterly",
		}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/schedules/"+schedule.ID.String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, "Body: %s", rr.Body.String())

		var resp handlers.ScheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.AssigneeID)
		assert.Equal(t, tc.User.ID.String(), *resp.AssigneeID)
		assert.Equal(t, "quarterly", resp.Cadence)
	})

	t.Run("window stays validated on update", func(t *testing.T) {
		body := map[string]interface{}{
			"end_at": now.Add(20 * time.Hour).Format(time.RFC3339),
		}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/schedules/"+schedule.ID.String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unassign", func(t *testing.T) {
		empty := ""
		body := map[string]interface{}{
			"assignee_id": empty,
		}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/schedules/"+schedule.ID.String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp handlers.ScheduleResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Nil(t, resp.AssigneeID)
	})

	t.Run("not found", func(t *testing.T) {
		body := map[string]interface{}{"cadence": "weekly"}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/schedules/"+uuid.New().String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestScheduleHandler_Delete(t *testing.T) {
	router, tc := setupScheduleTestRouter(t)
	defer tc.Cleanup()

	asset := testutil.CreateTestAsset(t, tc.DB, 40.0, -74.0)
	now := time.Now().UTC()
	schedule := testutil.CreateTestSchedule(t, tc.DB, asset.ID, nil, now.Add(24*time.Hour), now.Add(28*time.Hour))

	req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/schedules/"+schedule.ID.String(), nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Soft delete: gone from default queries but the row survives.
	var count int64
	require.NoError(t, tc.DB.Model(&models.InspectionSchedule{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var raw int64
	require.NoError(t, tc.DB.Unscoped().Model(&models.InspectionSchedule{}).Count(&raw).Error)
	assert.Equal(t, int64(1), raw)

	t.Run("delete twice", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/schedules/"+schedule.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
