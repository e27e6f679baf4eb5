package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firewatch/firewatch/internal/database/models"
	"github.com/firewatch/firewatch/internal/metrics"
	"github.com/firewatch/firewatch/pkg/geo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rejection reasons. These are outcomes, not errors: the gate returns them
// as values with enough numeric evidence for an actionable message.
type RejectReason string

const (
	RejectMissingCoordinates RejectReason = "missing_coordinates"
	RejectOutOfRange         RejectReason = "out_of_range"
	RejectOutsideWindow      RejectReason = "outside_scheduled_window"
	RejectPhotoMismatch      RejectReason = "photo_metadata_mismatch"
)

var ErrAssetNotFound = errors.New("asset not found")

const (
	// maxPhotoAge is how stale a present capture timestamp may be before
	// the photo is considered recycled.
	maxPhotoAge = 24 * time.Hour
	// maxPhotoDivergenceMeters bounds the gap between embedded photo GPS
	// and the reported position.
	maxPhotoDivergenceMeters = 100.0
)

// Attempt is one field submission entering the gate. It is transient;
// only its outcome is persisted.
type Attempt struct {
	AssetID     uuid.UUID
	InspectorID uuid.UUID
	ReportedAt  time.Time

	ReportedLat *float64
	ReportedLng *float64

	PhotoPath       string
	PhotoHash       string
	PhotoCapturedAt *time.Time
	PhotoLat        *float64
	PhotoLng        *float64

	PressureOK  bool
	PinIntact   bool
	NozzleClear bool
	BodyIntact  bool
	Notes       string
}

// Decision is the gate's verdict. Rejections carry the evidence needed to
// tell the inspector exactly what failed, never a bare code.
type Decision struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`

	// Geofence evidence, set when the location check ran.
	DistanceMeters      float64 `json:"distance_meters,omitempty"`
	AllowedRadiusMeters float64 `json:"allowed_radius_meters,omitempty"`

	// Window evidence, set when the time-window check ran.
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`

	ScheduleID *uuid.UUID         `json:"schedule_id,omitempty"`
	Inspection *models.Inspection `json:"inspection,omitempty"`
}

// Gate decides whether a submission may be recorded as a completed
// inspection. Every attempt leaves exactly one audit event behind; an
// accepted attempt additionally creates the Inspection row and completes
// the matched schedule in the same transaction.
type Gate struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewGate(db *gorm.DB, logger *slog.Logger) *Gate {
	return &Gate{db: db, logger: logger, now: time.Now}
}

// Submit runs the full check chain for one attempt. A non-nil error means
// the gate itself failed (storage, unknown asset); rejections come back as
// a Decision with Accepted=false and a nil error.
func (g *Gate) Submit(ctx context.Context, attempt Attempt) (*Decision, error) {
	var asset models.Asset
	if err := g.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", attempt.AssetID, true).
		First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("loading asset: %w", err)
	}

	schedule, err := g.matchSchedule(ctx, attempt)
	if err != nil {
		return nil, err
	}

	decision := g.check(&asset, schedule, attempt)
	if schedule != nil {
		id := schedule.ID
		decision.ScheduleID = &id
	}

	if !decision.Accepted {
		metrics.ValidationRejected(string(decision.Reason))
		if err := g.recordAudit(ctx, g.db, attempt, models.AuditActionValidationFailed, false, decision.Message); err != nil {
			return nil, err
		}
		return decision, nil
	}

	inspection := &models.Inspection{
		AssetID:         attempt.AssetID,
		InspectorID:     attempt.InspectorID,
		SubmittedAt:     attempt.ReportedAt.UTC(),
		ReportedLat:     attempt.ReportedLat,
		ReportedLng:     attempt.ReportedLng,
		PhotoPath:       attempt.PhotoPath,
		PhotoHash:       attempt.PhotoHash,
		PhotoCapturedAt: attempt.PhotoCapturedAt,
		PressureOK:      attempt.PressureOK,
		PinIntact:       attempt.PinIntact,
		NozzleClear:     attempt.NozzleClear,
		BodyIntact:      attempt.BodyIntact,
		Notes:           attempt.Notes,
	}
	if schedule != nil {
		id := schedule.ID
		inspection.ScheduleID = &id
	}

	// Inspection row, schedule completion and the audit event are one
	// logical unit; a crash in between is left to reconciliation.
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inspection).Error; err != nil {
			return err
		}
		if schedule != nil {
			if err := tx.Model(&models.InspectionSchedule{}).
				Where("id = ?", schedule.ID).
				Update("is_completed", true).Error; err != nil {
				return err
			}
		}
		return g.recordAudit(ctx, tx, attempt, models.AuditActionSubmit, true, "inspection accepted")
	})
	if err != nil {
		return nil, fmt.Errorf("recording inspection: %w", err)
	}

	metrics.ValidationAccepted()
	decision.Inspection = inspection
	return decision, nil
}

// check runs the pure validation chain: geofence, time window, photo
// integrity. No side effects.
func (g *Gate) check(asset *models.Asset, schedule *models.InspectionSchedule, attempt Attempt) *Decision {
	// Location: mobile assets are exempt entirely.
	if asset.HasFixedLocation() {
		if attempt.ReportedLat == nil || attempt.ReportedLng == nil {
			return &Decision{
				Reason:  RejectMissingCoordinates,
				Message: "location is required for a fixed asset but was not reported",
			}
		}
		if asset.FixedLat == nil || asset.FixedLng == nil {
			g.logger.Warn("fixed asset has no coordinates, skipping geofence",
				"asset_id", asset.ID, "serial", asset.SerialNumber)
		} else {
			distance := geo.DistanceMeters(*attempt.ReportedLat, *attempt.ReportedLng, *asset.FixedLat, *asset.FixedLng)
			if distance > asset.ValidRadiusMeters {
				return &Decision{
					Reason:              RejectOutOfRange,
					DistanceMeters:      distance,
					AllowedRadiusMeters: asset.ValidRadiusMeters,
					Message: fmt.Sprintf("you are %.0f m from the asset, allowed radius is %.0f m",
						distance, asset.ValidRadiusMeters),
				}
			}
		}
	}

	// Time window: only enforced when a schedule matched. Ad-hoc
	// inspections without a schedule are allowed.
	if schedule != nil && !InWindow(schedule, attempt.ReportedAt) {
		open, close := Window(schedule)
		return &Decision{
			Reason:      RejectOutsideWindow,
			WindowStart: &open,
			WindowEnd:   &close,
			Message: fmt.Sprintf("submission at %s is outside the allowed window %s to %s",
				attempt.ReportedAt.UTC().Format(time.RFC3339),
				open.Format(time.RFC3339), close.Format(time.RFC3339)),
		}
	}

	// Photo integrity: absent metadata never blocks; only a value that is
	// present and contradictory does.
	if attempt.PhotoCapturedAt != nil {
		age := attempt.ReportedAt.Sub(*attempt.PhotoCapturedAt)
		if age > maxPhotoAge {
			return &Decision{
				Reason: RejectPhotoMismatch,
				Message: fmt.Sprintf("photo was captured %.0f hours before submission, limit is %.0f",
					age.Hours(), maxPhotoAge.Hours()),
			}
		}
	}
	if attempt.PhotoLat != nil && attempt.PhotoLng != nil &&
		attempt.ReportedLat != nil && attempt.ReportedLng != nil {
		divergence := geo.DistanceMeters(*attempt.PhotoLat, *attempt.PhotoLng, *attempt.ReportedLat, *attempt.ReportedLng)
		if divergence > maxPhotoDivergenceMeters {
			return &Decision{
				Reason:         RejectPhotoMismatch,
				DistanceMeters: divergence,
				Message: fmt.Sprintf("photo GPS is %.0f m from the reported position, limit is %.0f m",
					divergence, maxPhotoDivergenceMeters),
			}
		}
	}

	return &Decision{Accepted: true}
}

// matchSchedule finds the best active, uncompleted schedule for the
// attempt's (asset, inspector): the one whose start is nearest the
// reported instant. Nil when none exists.
func (g *Gate) matchSchedule(ctx context.Context, attempt Attempt) (*models.InspectionSchedule, error) {
	var candidates []models.InspectionSchedule
	if err := g.db.WithContext(ctx).
		Where("asset_id = ? AND assignee_id = ? AND is_active = ? AND is_completed = ?",
			attempt.AssetID, attempt.InspectorID, true, false).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("matching schedule: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if absDuration(candidates[i].StartAt.Sub(attempt.ReportedAt)) <
			absDuration(candidates[best].StartAt.Sub(attempt.ReportedAt)) {
			best = i
		}
	}
	return &candidates[best], nil
}

// RecordScan appends a QR-scan audit event for an asset.
func (g *Gate) RecordScan(ctx context.Context, assetID, actorID uuid.UUID, lat, lng *float64) error {
	return g.record(ctx, assetID, actorID, models.AuditActionScan, lat, lng, "asset scanned")
}

// RecordStart appends an inspection-start audit event. The anomaly
// detector pairs these with submits to time inspections.
func (g *Gate) RecordStart(ctx context.Context, assetID, actorID uuid.UUID, lat, lng *float64) error {
	return g.record(ctx, assetID, actorID, models.AuditActionStart, lat, lng, "inspection started")
}

func (g *Gate) record(ctx context.Context, assetID, actorID uuid.UUID, action models.AuditAction, lat, lng *float64, details string) error {
	event := models.AuditEvent{
		AssetID:      assetID,
		ActorID:      actorID,
		Action:       action,
		OccurredAt:   g.now().UTC(),
		ReportedLat:  lat,
		ReportedLng:  lng,
		IsSuccessful: true,
		Details:      details,
	}
	if err := g.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("recording %s event: %w", action, err)
	}
	return nil
}

func (g *Gate) recordAudit(ctx context.Context, tx *gorm.DB, attempt Attempt, action models.AuditAction, ok bool, details string) error {
	event := models.AuditEvent{
		AssetID:      attempt.AssetID,
		ActorID:      attempt.InspectorID,
		Action:       action,
		OccurredAt:   attempt.ReportedAt.UTC(),
		ReportedLat:  attempt.ReportedLat,
		ReportedLng:  attempt.ReportedLng,
		IsSuccessful: ok,
		Details:      details,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("recording audit event: %w", err)
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
