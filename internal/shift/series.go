package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// SeriesRequest describes a weekly repeating booking over [StartDate, EndDate].
type SeriesRequest struct {
	PatientID    int64              `json:"patient_id" validate:"required,gt=0"`
	StartDate    string             `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string             `json:"end_date" validate:"required,datetime=2006-01-02"`
	DaySchedules []schedule.DaySpec `json:"day_schedules" validate:"required,min=1"`
	Status       Status             `json:"status" validate:"omitempty,oneof=pending confirmed canceled"`
	Details      *string            `json:"details"`
	// RequireNoConflicts refuses the whole series when pre-flight finds any conflict.
	RequireNoConflicts bool `json:"require_no_conflicts"`
}

// SeriesConflict is one existing shift blocking one candidate date.
type SeriesConflict struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	ShiftID   int64  `json:"shift_id"`
	PatientID int64  `json:"patient_id"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Message   string `json:"message"`
}

type SeriesPreview struct {
	Candidates []Shift          `json:"candidates"`
	Conflicts  []SeriesConflict `json:"conflicts"`
}

type SeriesResult struct {
	Created int     `json:"created"`
	Shifts  []Shift `json:"shifts"`
	// Skipped lists candidates that overlapped a booking at commit time.
	Skipped []SeriesConflict `json:"skipped,omitempty"`
}

// expand validates req and turns it into concrete candidate shifts.
func (s *Service) expand(req SeriesRequest) ([]Shift, error) {
	if err := s.validateStruct("invalid series", req); err != nil {
		return nil, err
	}

	fail := func(field, msg string) error {
		return &ValidationError{Message: "invalid series", Fields: []FieldError{{Field: field, Message: msg}}}
	}

	days, err := schedule.DaysBetween(req.StartDate, req.EndDate)
	if err != nil {
		return nil, fail("start_date", "must be a YYYY-MM-DD date")
	}
	if days < 1 {
		return nil, fail("end_date", "must not be before start_date")
	}
	if days > s.rules.MaxSeriesDays {
		return nil, fail("end_date", fmt.Sprintf("range must not exceed %d days", s.rules.MaxSeriesDays))
	}

	specs := make([]schedule.DaySpec, len(req.DaySchedules))
	for i, d := range req.DaySchedules {
		start, err := s.checkTiming(d.StartTime, d.Duration)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				for j := range ve.Fields {
					ve.Fields[j].Field = fmt.Sprintf("day_schedules[%d].%s", i, ve.Fields[j].Field)
				}
				ve.Message = "invalid series"
			}
			return nil, err
		}
		d.StartTime = start
		specs[i] = d
	}

	occurrences, err := schedule.ExpandWeekly(req.StartDate, req.EndDate, specs)
	switch {
	case errors.Is(err, schedule.ErrDuplicateWeekday), errors.Is(err, schedule.ErrInvalidWeekday):
		return nil, fail("day_schedules", err.Error())
	case err != nil:
		return nil, fail("start_date", err.Error())
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	candidates := make([]Shift, 0, len(occurrences))
	for _, o := range occurrences {
		candidates = append(candidates, Shift{
			PatientID: req.PatientID,
			Date:      o.Date,
			StartTime: o.StartTime,
			Duration:  o.Duration,
			Status:    status,
			Details:   req.Details,
		})
	}
	return candidates, nil
}

func seriesConflicts(candidate Shift, found []ShiftWithPatient) []SeriesConflict {
	weekday := ""
	if d, err := schedule.ParseDate(candidate.Date); err == nil {
		weekday = d.Weekday().String()
	}

	out := make([]SeriesConflict, 0, len(found))
	for _, c := range found {
		out = append(out, SeriesConflict{
			Date:      candidate.Date,
			Weekday:   weekday,
			ShiftID:   c.ID,
			PatientID: c.PatientID,
			StartTime: c.StartTime,
			Duration:  c.Duration,
			Message:   ConflictDetail(c.Shift),
		})
	}
	return out
}

// PreviewSeries expands req and checks every candidate against the calendar,
// collecting all conflicts. Nothing is written.
func (s *Service) PreviewSeries(ctx context.Context, req SeriesRequest) (*SeriesPreview, error) {
	defer s.observe("series_preview", time.Now())

	candidates, err := s.expand(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, err
	}

	preview := &SeriesPreview{Candidates: candidates, Conflicts: []SeriesConflict{}}
	if len(candidates) == 0 || !candidates[0].Status.Blocking() {
		return preview, nil
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := s.findConflicts(ctx, c.Date, c.StartTime, c.Duration, 0)
		if err != nil {
			return nil, err
		}
		preview.Conflicts = append(preview.Conflicts, seriesConflicts(c, found)...)
	}
	return preview, nil
}

// CreateSeries commits a series candidate by candidate, each under its date
// lock. Candidates that conflict at commit time are skipped and reported; an
// unexpected error stops the loop and the rows already inserted stay.
func (s *Service) CreateSeries(ctx context.Context, req SeriesRequest) (*SeriesResult, error) {
	defer s.observe("series_commit", time.Now())

	preview, err := s.PreviewSeries(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.RequireNoConflicts && len(preview.Conflicts) > 0 {
		s.metrics.ObserveConflict("series")
		ce := &ConflictError{
			Message: fmt.Sprintf("the series overlaps %d existing shifts", len(preview.Conflicts)),
			Fields: []FieldError{
				{Field: "day_schedules", Message: "overlaps existing shifts"},
				{Field: "start_date", Message: "range has overlapping shifts"},
			},
		}
		for _, c := range preview.Conflicts {
			ce.AdditionalData = append(ce.AdditionalData, c.Weekday+" "+c.Message)
		}
		return nil, ce
	}

	result := &SeriesResult{Shifts: []Shift{}}
	for _, c := range preview.Candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := s.insertChecked(ctx, c, "series")
		if err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) {
				result.Skipped = append(result.Skipped, seriesConflicts(c, ce.Conflicts)...)
				continue
			}
			s.logger.Error("series commit aborted",
				zap.Int64("patient_id", req.PatientID),
				zap.String("date", c.Date),
				zap.Int("created", result.Created),
				zap.Error(err),
			)
			s.metrics.ObserveCreated("series", result.Created)
			return result, err
		}

		result.Created++
		result.Shifts = append(result.Shifts, *created)
	}

	s.metrics.ObserveCreated("series", result.Created)
	s.logger.Info("series committed",
		zap.Int64("patient_id", req.PatientID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
		zap.Int("created", result.Created),
		zap.Int("skipped", len(result.Skipped)),
	)

	var firstID int64
	if len(result.Shifts) > 0 {
		firstID = result.Shifts[0].ID
	}
	s.logEvent(ctx, firstID, EventSeriesCommitted, map[string]any{
		"patient_id": req.PatientID,
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
		"created":    result.Created,
		"skipped":    len(result.Skipped),
	})
	return result, nil
}
