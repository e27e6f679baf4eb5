package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/metrics"
	"github.com/firewatch/firewatch/internal/notify"
	"github.com/firewatch/firewatch/pkg/timeutil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bucket is one fixed lead-time rule: schedules starting LeadDays from
// today (local calendar) get a reminder tagged with Key.
type Bucket struct {
	Key      string
	LeadDays int
}

// Lead times are fixed dispatch rules, deliberately independent of the
// schedule's own cadence label.
var Buckets = []Bucket{
	{Key: models.ReminderBucket1Day, LeadDays: 1},
	{Key: models.ReminderBucket3Days, LeadDays: 3},
	{Key: models.ReminderBucket7Days, LeadDays: 7},
}

// Summary is what one dispatch run did, per bucket.
type Summary struct {
	Sent    map[string]int `json:"sent"`
	Failed  map[string]int `json:"failed"`
	Skipped map[string]int `json:"skipped"` // already reminded or raced out
}

func newSummary() Summary {
	return Summary{
		Sent:    make(map[string]int),
		Failed:  make(map[string]int),
		Skipped: make(map[string]int),
	}
}

// Dispatcher scans active schedules and sends at most one reminder per
// (schedule, bucket). Runs are idempotent: the ReminderLog unique index is
// the source of truth for "already sent", so overlapping invocations from
// separate processes cannot double-send.
type Dispatcher struct {
	db          *gorm.DB
	sender      notify.Sender
	logger      *slog.Logger
	loc         *time.Location
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(db *gorm.DB, sender notify.Sender, logger *slog.Logger, loc *time.Location, sendTimeout time.Duration) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		db:          db,
		sender:      sender,
		logger:      logger,
		loc:         loc,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Run executes one dispatch pass. Individual send failures are logged and
// skipped; only storage failures abort the batch.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	summary := newSummary()
	today := timeutil.LocalDate(d.now(), d.loc)

	for _, bucket := range Buckets {
		target := today.AddDate(0, 0, bucket.LeadDays)
		dayStart, dayEnd := timeutil.DayBounds(target.Add(12*time.Hour), d.loc)

		var schedules []models.InspectionSchedule
		err := d.db.WithContext(ctx).
			Preload("Asset").
			Preload("Assignee").
			Where("is_active = ? AND is_completed = ? AND assignee_id IS NOT NULL", true, false).
			Where("start_at >= ? AND start_at < ?", dayStart, dayEnd).
			Find(&schedules).Error
		if err != nil {
			return summary, fmt.Errorf("selecting schedules for bucket %s: %w", bucket.Key, err)
		}

		for i := range schedules {
			outcome := d.remind(ctx, &schedules[i], bucket)
			switch outcome {
			case outcomeSent:
				summary.Sent[bucket.Key]++
				metrics.ReminderSent(bucket.Key)
			case outcomeFailed:
				summary.Failed[bucket.Key]++
				metrics.ReminderFailed()
			case outcomeSkipped:
				summary.Skipped[bucket.Key]++
			}
		}
	}

	d.logger.Info("reminder dispatch complete",
		"sent", summary.Sent, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (d *Dispatcher) remind(ctx context.Context, s *models.InspectionSchedule, bucket Bucket) outcome {
	if s.Assignee == nil || !s.Assignee.Contactable() {
		return outcomeSkipped
	}

	// Claim (schedule, bucket) before sending. The unique index makes this
	// a single-writer-wins operation: whoever inserts the row sends, every
	// concurrent invocation sees RowsAffected == 0 and backs off.
	claim := models.ReminderLog{
		ScheduleID: s.ID,
		Bucket:     bucket.Key,
		SentAt:     d.now().UTC(),
		SentTo:     s.Assignee.Email,
	}
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&claim)
	if res.Error != nil {
		d.logger.Error("claiming reminder slot", "schedule_id", s.ID, "bucket", bucket.Key, "error", res.Error)
		return outcomeFailed
	}
	if res.RowsAffected == 0 {
		return outcomeSkipped
	}

	subject, body := d.compose(s, bucket)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	err := d.sender.Send(sendCtx, s.Assignee.Email, subject, body)
	cancel()
	if err != nil {
		// Release the claim so the next invocation retries this bucket.
		if delErr := d.db.WithContext(ctx).Unscoped().Delete(&claim).Error; delErr != nil {
			d.logger.Error("releasing reminder claim", "schedule_id", s.ID, "bucket", bucket.Key, "error", delErr)
		}
		d.logger.Warn("reminder send failed",
			"schedule_id", s.ID, "bucket", bucket.Key, "to", s.Assignee.Email, "error", err)
		return outcomeFailed
	}

	return outcomeSent
}

func (d *Dispatcher) compose(s *models.InspectionSchedule, bucket Bucket) (string, string) {
	assetName := "an asset"
	placement := ""
	if s.Asset != nil {
		assetName = fmt.Sprintf("%s (%s)", s.Asset.Name, s.Asset.SerialNumber)
		placement = s.Asset.Placement
	}

	localStart := s.StartAt.In(d.loc)
	subject := fmt.Sprintf("Inspection due in %d day(s): %s", bucket.LeadDays, assetName)
	body := fmt.Sprintf(
		"An inspection of %s is scheduled for %s.",
		assetName, localStart.Format("Mon, 02 Jan 2006 15:04 MST"),
	)
	if placement != "" {
		body += fmt.Sprintf(" Location: %s.", placement)
	}
	return subject, body
}
