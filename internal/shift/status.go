package shift

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// SweepReason is stored on pending shifts cancelled by SweepStalePending.
const SweepReason = "not confirmed before visit"

// StatusChange reports the outcome of SetStatus to the calling workflow.
type StatusChange struct {
	Shift    *Shift `json:"shift"`
	Previous Status `json:"previous"`
	// OfferReschedule is set on a transition into canceled.
	OfferReschedule bool `json:"offer_reschedule"`
	// MissingReason flags a cancellation without reason_incomplete.
	MissingReason bool `json:"missing_reason"`
}

// SetStatus moves a shift to status. Any transition is allowed; a canceled
// shift brought back to an active status must still fit the calendar.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status, reason *string) (*StatusChange, error) {
	defer s.observe("status", time.Now())

	if !status.Valid() {
		return nil, invalid("status", "must be one of: pending confirmed canceled")
	}

	cur, err := s.repo.GetShiftByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := ShiftPatch{Status: &status}
	if reason != nil {
		patch.ReasonIncomplete = reason
	}

	updated, err := s.update(ctx, cur, patch)
	if err != nil {
		return nil, err
	}

	change := &StatusChange{
		Shift:           updated,
		Previous:        cur.Status,
		OfferReschedule: status == StatusCanceled && cur.Status != StatusCanceled,
		MissingReason:   status == StatusCanceled && (reason == nil || strings.TrimSpace(*reason) == ""),
	}

	s.logEvent(ctx, id, EventShiftStatusChanged, map[string]any{
		"from":   cur.Status,
		"to":     status,
		"reason": reason,
	})
	return change, nil
}

// RescheduleInput is the new placement of a rescheduled shift. The patient
// always carries over from the original.
type RescheduleInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	Duration  int    `json:"duration" validate:"omitempty,gt=0"`
}

type RescheduleResult struct {
	Original    *Shift `json:"original"`
	Replacement *Shift `json:"replacement"`
}

// RescheduleNote is appended to the replacement's details.
func RescheduleNote(from, to string) string {
	return fmt.Sprintf("Reprogramed from: %s to %s", from, to)
}

// Reschedule books a replacement for shift id on another date and flags the
// original as reprogramed. Duration defaults to the original's.
func (s *Service) Reschedule(ctx context.Context, id int64, in RescheduleInput) (*RescheduleResult, error) {
	defer s.observe("reschedule", time.Now())

	if err := s.validateStruct("invalid reschedule", in); err != nil {
		return nil, err
	}

	orig, err := s.repo.GetShiftByID(ctx, id)
	if err != nil {
		return nil, err
	}

	date, err := normalizeDate("date", in.Date)
	if err != nil {
		return nil, err
	}
	if date == orig.Date {
		return nil, &ValidationError{
			Message: "invalid reschedule",
			Fields:  []FieldError{{Field: "date", Message: "must differ from the original date"}},
		}
	}

	duration := in.Duration
	if duration == 0 {
		duration = orig.Duration
	}
	start, err := s.checkTiming(in.StartTime, duration)
	if err != nil {
		return nil, err
	}

	note := RescheduleNote(orig.Date, date)
	details := note
	if orig.Details != nil && strings.TrimSpace(*orig.Details) != "" {
		details = *orig.Details + "\n" + note
	}

	replacement, err := s.insertChecked(ctx, Shift{
		PatientID: orig.PatientID,
		Date:      date,
		StartTime: start,
		Duration:  duration,
		Status:    StatusPending,
		Details:   &details,
	}, "reschedule")
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCreated("reschedule", 1)

	flagged := true
	original, err := s.update(ctx, orig, ShiftPatch{Reprogramed: &flagged})
	if err != nil {
		return nil, fmt.Errorf("flag shift %d as reprogramed: %w", orig.ID, err)
	}

	s.logEvent(ctx, replacement.ID, EventShiftRescheduled, map[string]any{
		"original_id": orig.ID,
		"from":        orig.Date,
		"to":          date,
	})
	return &RescheduleResult{Original: original, Replacement: replacement}, nil
}

// SweepStalePending cancels pending shifts dated before today minus the
// configured grace period and returns how many were cancelled.
func (s *Service) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := schedule.FormatDate(s.now().UTC().AddDate(0, 0, -s.rules.SweepGraceDays))

	stale, err := s.repo.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale pending shifts: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	canceled := StatusCanceled
	reason := SweepReason
	count := 0
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		sh := stale[i]
		if _, err := s.update(ctx, &sh, ShiftPatch{Status: &canceled, ReasonIncomplete: &reason}); err != nil {
			s.logger.Warn("failed to cancel stale shift", zap.Int64("shift_id", sh.ID), zap.Error(err))
			continue
		}
		s.logEvent(ctx, sh.ID, EventShiftStatusChanged, map[string]any{
			"from":   StatusPending,
			"to":     StatusCanceled,
			"reason": reason,
		})
		count++
	}

	s.logger.Info("stale pending shifts cancelled", zap.Int("count", count), zap.String("cutoff", cutoff))
	return count, nil
}
