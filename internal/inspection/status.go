package inspection

import (
	"errors"
	"fmt"
	"time"

	"github.com/firewatch/firewatch/internal/database/models"
)

// ScheduleStatus is derived from a schedule and the current instant on
// every evaluation; it is never stored.
type ScheduleStatus string

const (
	StatusInactive ScheduleStatus = "inactive"
	StatusOverdue  ScheduleStatus = "overdue"
	StatusOngoing  ScheduleStatus = "ongoing"
	StatusUpcoming ScheduleStatus = "upcoming"
	StatusUnknown  ScheduleStatus = "unknown"
)

// ErrInvalidWindow marks a schedule window rejected at the write boundary.
// Status derivation assumes windows are well formed and never re-checks.
var ErrInvalidWindow = errors.New("schedule end must be after start")

// ValidateWindow guards schedule creation and update.
func ValidateWindow(startAt, endAt time.Time) error {
	if !endAt.After(startAt) {
		return fmt.Errorf("%w: start=%s end=%s",
			ErrInvalidWindow, startAt.UTC().Format(time.RFC3339), endAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// Status derives the live status of a schedule at the given instant.
// Returning StatusUnknown indicates corrupt data (an inverted window that
// slipped past the boundary check); callers log it and move on.
func Status(s *models.InspectionSchedule, now time.Time) ScheduleStatus {
	if !s.IsActive {
		return StatusInactive
	}

	now = now.UTC()
	switch {
	case now.After(s.EndAt):
		return StatusOverdue
	case !now.Before(s.StartAt) && !now.After(s.EndAt):
		return StatusOngoing
	case now.Before(s.StartAt):
		return StatusUpcoming
	default:
		return StatusUnknown
	}
}

// windowSlack is how far around the scheduled start a submission may land.
const windowSlack = 30 * time.Minute

// Window returns the inclusive instant range in which a submission against
// this schedule is accepted: [start-30m, min(end, start+30m)].
func Window(s *models.InspectionSchedule) (time.Time, time.Time) {
	open := s.StartAt.Add(-windowSlack)
	close := s.StartAt.Add(windowSlack)
	if s.EndAt.Before(close) {
		close = s.EndAt
	}
	return open, close
}

// InWindow reports whether the reported instant falls inside the schedule's
// inspection window, bounds inclusive.
func InWindow(s *models.InspectionSchedule, at time.Time) bool {
	open, close := Window(s)
	return !at.Before(open) && !at.After(close)
}
