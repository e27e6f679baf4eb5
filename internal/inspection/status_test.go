package inspection

import (
	"testing"
	"time"

	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/stretchr/testify/assert"
)

func mkSchedule(active bool, startAt, endAt time.Time) *models.InspectionSchedule {
	return &models.InspectionSchedule{
		StartAt:  startAt,
		EndAt:    endAt,
		IsActive: active,
	}
}

func TestValidateWindow(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateWindow(base, base.Add(4*time.Hour)))
	assert.NoError(t, ValidateWindow(base, base.Add(time.Second)))

	err := ValidateWindow(base, base)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	err = ValidateWindow(base, base.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestStatus(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	tests := []struct {
		name   string
		active bool
		now    time.Time
		want   ScheduleStatus
	}{
		{"inactive_wins_over_everything", false, start.Add(time.Hour), StatusInactive},
		{"inactive_even_when_overdue", false, end.Add(time.Hour), StatusInactive},
		{"overdue_after_end", true, end.Add(time.Minute), StatusOverdue},
		{"ongoing_at_start", true, start, StatusOngoing},
		{"ongoing_mid_window", true, start.Add(2 * time.Hour), StatusOngoing},
		{"ongoing_at_end", true, end, StatusOngoing},
		{"upcoming_before_start", true, start.Add(-time.Minute), StatusUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mkSchedule(tt.active, start, end)
			assert.Equal(t, tt.want, Status(s, tt.now))
		})
	}
}

func TestStatusNonUTCInput(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	s := mkSchedule(true, start, end)

	// Same instant expressed in another zone must derive the same status.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, StatusOngoing, Status(s, start.Add(time.Hour).In(est)))
}

func TestWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("long_schedule_caps_at_start_plus_slack", func(t *testing.T) {
		s := mkSchedule(true, start, start.Add(4*time.Hour))
		open, close := Window(s)
		assert.Equal(t, start.Add(-30*time.Minute), open)
		assert.Equal(t, start.Add(30*time.Minute), close)
	})

	t.Run("short_schedule_caps_at_end", func(t *testing.T) {
		s := mkSchedule(true, start, start.Add(10*time.Minute))
		open, close := Window(s)
		assert.Equal(t, start.Add(-30*time.Minute), open)
		assert.Equal(t, start.Add(10*time.Minute), close)
	})
}

func TestInWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	s := mkSchedule(true, start, start.Add(4*time.Hour))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"open_bound_inclusive", start.Add(-30 * time.Minute), true},
		{"close_bound_inclusive", start.Add(30 * time.Minute), true},
		{"just_before_open", start.Add(-31 * time.Minute), false},
		{"just_after_close", start.Add(31 * time.Minute), false},
		{"at_start", start, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InWindow(s, tt.at))
		})
	}
}
