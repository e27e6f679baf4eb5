package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Type string

const (
	TypeFastInspection Type = "fast_inspection"
	TypeOffHours       Type = "off_hours"
	TypeDuplicatePhoto Type = "duplicate_photo"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
}

const (
	// fastInspectionThreshold is the minimum plausible start-to-submit gap.
	fastInspectionThreshold = 120 * time.Second
	// Local hours outside [offHoursMorning, offHoursEvening) are flagged.
	offHoursMorning = 6
	offHoursEvening = 22

	DefaultWindowDays = 30
)

// Anomaly is one flagged pattern for human review. Detection never blocks
// or mutates anything; it only reads the audit stream.
type Anomaly struct {
	Type       Type      `json:"type"`
	Severity   Severity  `json:"severity"`
	AssetID    uuid.UUID `json:"asset_id"`
	ActorID    uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Details    string    `json:"details"`
}

type Detector struct {
	db     *gorm.DB
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewDetector(db *gorm.DB, logger *slog.Logger, loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{db: db, logger: logger, loc: loc, now: time.Now}
}

// Scan analyzes the last windowDays of audit events and inspections and
// returns flagged patterns ranked by severity, then recency. An empty
// window yields an empty slice, not an error.
func (d *Detector) Scan(ctx context.Context, windowDays int) ([]Anomaly, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	since := d.now().UTC().AddDate(0, 0, -windowDays)

	var anomalies []Anomaly

	fast, err := d.fastInspections(ctx, since)
	if err != nil {
		return nil, err
	}
	anomalies = append(anomalies, fast...)

	offHours, err := d.offHoursSubmits(ctx, since)
	if err != nil {
		return nil, err
	}
	anomalies = append(anomalies, offHours...)

	dupes, err := d.duplicatePhotos(ctx, since)
	if err != nil {
		return nil, err
	}
	anomalies = append(anomalies, dupes...)

	sort.SliceStable(anomalies, func(i, j int) bool {
		if severityRank[anomalies[i].Severity] != severityRank[anomalies[j].Severity] {
			return severityRank[anomalies[i].Severity] > severityRank[anomalies[j].Severity]
		}
		return anomalies[i].OccurredAt.After(anomalies[j].OccurredAt)
	})

	for _, a := range anomalies {
		metrics.AnomalyDetected(string(a.Type))
	}
	d.logger.Info("anomaly scan complete", "window_days", windowDays, "flagged", len(anomalies))
	return anomalies, nil
}

// fastInspections pairs each submit with the latest earlier start for the
// same (asset, actor) and flags gaps under the threshold.
func (d *Detector) fastInspections(ctx context.Context, since time.Time) ([]Anomaly, error) {
	var events []models.AuditEvent
	err := d.db.WithContext(ctx).
		Where("occurred_at >= ? AND action IN ?", since,
			[]models.AuditAction{models.AuditActionStart, models.AuditActionSubmit}).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("loading start/submit events: %w", err)
	}

	type key struct {
		asset uuid.UUID
		actor uuid.UUID
	}
	lastStart := make(map[key]time.Time)

	var anomalies []Anomaly
	for _, e := range events {
		k := key{asset: e.AssetID, actor: e.ActorID}
		switch e.Action {
		case models.AuditActionStart:
			lastStart[k] = e.OccurredAt
		case models.AuditActionSubmit:
			startAt, ok := lastStart[k]
			if !ok {
				continue
			}
			delete(lastStart, k)
			elapsed := e.OccurredAt.Sub(startAt)
			if elapsed >= 0 && elapsed < fastInspectionThreshold {
				anomalies = append(anomalies, Anomaly{
					Type:       TypeFastInspection,
					Severity:   SeverityHigh,
					AssetID:    e.AssetID,
					ActorID:    e.ActorID,
					OccurredAt: e.OccurredAt,
					Details:    fmt.Sprintf("inspection completed in %.0f seconds", elapsed.Seconds()),
				})
			}
		}
	}
	return anomalies, nil
}

func (d *Detector) offHoursSubmits(ctx context.Context, since time.Time) ([]Anomaly, error) {
	var events []models.AuditEvent
	err := d.db.WithContext(ctx).
		Where("occurred_at >= ? AND action = ? AND is_successful = ?", since, models.AuditActionSubmit, true).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("loading submit events: %w", err)
	}

	var anomalies []Anomaly
	for _, e := range events {
		hour := e.OccurredAt.In(d.loc).Hour()
		if hour < offHoursMorning || hour >= offHoursEvening {
			anomalies = append(anomalies, Anomaly{
				Type:       TypeOffHours,
				Severity:   SeverityMedium,
				AssetID:    e.AssetID,
				ActorID:    e.ActorID,
				OccurredAt: e.OccurredAt,
				Details:    fmt.Sprintf("submitted at %02d:00 local time", hour),
			})
		}
	}
	return anomalies, nil
}

// duplicatePhotos flags every inspection whose photo hash appears more
// than once inside the window.
func (d *Detector) duplicatePhotos(ctx context.Context, since time.Time) ([]Anomaly, error) {
	var inspections []models.Inspection
	err := d.db.WithContext(ctx).
		Where("submitted_at >= ? AND photo_hash <> ''", since).
		Order("submitted_at ASC").
		Find(&inspections).Error
	if err != nil {
		return nil, fmt.Errorf("loading inspections: %w", err)
	}

	byHash := make(map[string][]models.Inspection)
	for _, ins := range inspections {
		byHash[ins.PhotoHash] = append(byHash[ins.PhotoHash], ins)
	}

	var anomalies []Anomaly
	for hash, group := range byHash {
		if len(group) < 2 {
			continue
		}
		for _, ins := range group {
			anomalies = append(anomalies, Anomaly{
				Type:       TypeDuplicatePhoto,
				Severity:   SeverityHigh,
				AssetID:    ins.AssetID,
				ActorID:    ins.InspectorID,
				OccurredAt: ins.SubmittedAt,
				Details:    fmt.Sprintf("photo hash %s shared by %d inspections", shortHash(hash), len(group)),
			})
		}
	}
	return anomalies, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
