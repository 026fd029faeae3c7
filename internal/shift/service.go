package shift

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

const (
	EventShiftCreated       = "SHIFT_CREATED"
	EventShiftUpdated       = "SHIFT_UPDATED"
	EventShiftStatusChanged = "SHIFT_STATUS_CHANGED"
	EventShiftDeleted       = "SHIFT_DELETED"
	EventShiftRescheduled   = "SHIFT_RESCHEDULED"
	EventSeriesCommitted    = "SERIES_COMMITTED"
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	rules    config.Scheduling
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.SchedulingMetrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock used by the pending sweeper.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, locker redisclient.Locker, rules config.Scheduling, opts ...Option) *Service {
	if locker == nil {
		locker = redisclient.NewLocalDateLocker()
	}
	s := &Service{
		repo:     repo,
		locker:   locker,
		rules:    rules,
		validate: newValidator(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the calendar rules the service enforces.
func (s *Service) Rules() config.Scheduling { return s.rules }

// CreateShift books a single shift. It fails with a *ConflictError listing
// every overlapping shift on the same date.
func (s *Service) CreateShift(ctx context.Context, in ShiftInput) (*Shift, error) {
	defer s.observe("create", time.Now())

	candidate, err := s.prepareInput(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, candidate.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	created, err := s.insertChecked(ctx, candidate, "create")
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCreated("single", 1)
	s.logEvent(ctx, created.ID, EventShiftCreated, map[string]any{
		"patient_id": created.PatientID,
		"date":       created.Date,
		"start_time": created.StartTime,
		"duration":   created.Duration,
	})
	return created, nil
}

func (s *Service) prepareInput(in ShiftInput) (Shift, error) {
	if err := s.validateStruct("invalid shift", in); err != nil {
		return Shift{}, err
	}

	date, err := normalizeDate("date", in.Date)
	if err != nil {
		return Shift{}, err
	}
	start, err := s.checkTiming(in.StartTime, in.Duration)
	if err != nil {
		return Shift{}, err
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}

	return Shift{
		PatientID:        in.PatientID,
		Date:             date,
		StartTime:        start,
		Duration:         in.Duration,
		Status:           status,
		Details:          in.Details,
		ReasonIncomplete: in.ReasonIncomplete,
	}, nil
}

// insertChecked runs the overlap check and the insert under the date lock.
func (s *Service) insertChecked(ctx context.Context, candidate Shift, op string) (*Shift, error) {
	var created *Shift

	err := s.withDateLock(ctx, candidate.Date, func(lockCtx context.Context) error {
		if candidate.Status.Blocking() {
			conflicts, err := s.findConflicts(lockCtx, candidate.Date, candidate.StartTime, candidate.Duration, 0)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return s.conflict(op, candidate, conflicts)
			}
		}

		shift, err := s.repo.InsertShift(lockCtx, candidate)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		created = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateShift applies patch to shift id. The overlap check only runs when the
// date, start time or duration change, or when a canceled shift is reactivated.
func (s *Service) UpdateShift(ctx context.Context, id int64, patch ShiftPatch) (*Shift, error) {
	defer s.observe("update", time.Now())

	if err := s.validateStruct("invalid shift", patch); err != nil {
		return nil, err
	}

	cur, err := s.repo.GetShiftByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, cur, patch)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventShiftUpdated, map[string]any{
		"date":       updated.Date,
		"start_time": updated.StartTime,
		"duration":   updated.Duration,
		"status":     updated.Status,
	})
	return updated, nil
}

func (s *Service) update(ctx context.Context, cur *Shift, patch ShiftPatch) (*Shift, error) {
	next := *cur
	if patch.PatientID != nil {
		next.PatientID = *patch.PatientID
	}
	if patch.Date != nil {
		date, err := normalizeDate("date", *patch.Date)
		if err != nil {
			return nil, err
		}
		next.Date = date
	}
	if patch.StartTime != nil {
		next.StartTime = *patch.StartTime
	}
	if patch.Duration != nil {
		next.Duration = *patch.Duration
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Details != nil {
		next.Details = patch.Details
	}
	if patch.ReasonIncomplete != nil {
		next.ReasonIncomplete = patch.ReasonIncomplete
	}
	if patch.Reprogramed != nil {
		next.Reprogramed = *patch.Reprogramed
	}

	if patch.StartTime != nil || patch.Duration != nil {
		start, err := s.checkTiming(next.StartTime, next.Duration)
		if err != nil {
			return nil, err
		}
		next.StartTime = start
	}

	if next.PatientID != cur.PatientID {
		if _, err := s.repo.GetPatientByID(ctx, next.PatientID); err != nil {
			return nil, err
		}
	}

	timingChanged := next.Date != cur.Date || next.StartTime != cur.StartTime || next.Duration != cur.Duration
	reactivated := !cur.Status.Blocking() && next.Status.Blocking()

	if !next.Status.Blocking() || (!timingChanged && !reactivated) {
		updated, err := s.repo.UpdateShift(ctx, &next)
		if err != nil {
			return nil, fmt.Errorf("update shift: %w", err)
		}
		return updated, nil
	}

	var updated *Shift
	err := s.withDateLock(ctx, next.Date, func(lockCtx context.Context) error {
		conflicts, err := s.findConflicts(lockCtx, next.Date, next.StartTime, next.Duration, next.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return s.conflict("update", next, conflicts)
		}

		u, err := s.repo.UpdateShift(lockCtx, &next)
		if err != nil {
			return fmt.Errorf("update shift: %w", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteShift removes a shift unconditionally.
func (s *Service) DeleteShift(ctx context.Context, id int64) error {
	if err := s.repo.DeleteShift(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, id, EventShiftDeleted, map[string]any{})
	return nil
}

func (s *Service) GetShift(ctx context.Context, id int64) (*Shift, error) {
	return s.repo.GetShiftByID(ctx, id)
}

// findConflicts returns the blocking shifts on date overlapping the
// candidate span, ignoring exceptID.
func (s *Service) findConflicts(ctx context.Context, date, start string, duration int, exceptID int64) ([]ShiftWithPatient, error) {
	existing, err := s.repo.ListShiftsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load shifts for %s: %w", date, err)
	}

	candidate, err := schedule.NewInterval(start, duration)
	if err != nil {
		return nil, invalid("start_time", "must be a HH:MM time")
	}

	found, err := schedule.FindOverlaps(candidate, blocking(existing, exceptID))
	if err != nil {
		return nil, fmt.Errorf("stored shift on %s: %w", date, err)
	}
	return found, nil
}

// blocking keeps the shifts that occupy calendar time, skipping exceptID.
func blocking(shifts []ShiftWithPatient, exceptID int64) []ShiftWithPatient {
	out := make([]ShiftWithPatient, 0, len(shifts))
	for _, sh := range shifts {
		if sh.ID == exceptID || !sh.Status.Blocking() {
			continue
		}
		out = append(out, sh)
	}
	return out
}

func (s *Service) conflict(op string, candidate Shift, conflicts []ShiftWithPatient) error {
	s.metrics.ObserveConflict(op)
	s.logger.Info("shift conflict",
		zap.String("operation", op),
		zap.String("date", candidate.Date),
		zap.String("start_time", candidate.StartTime),
		zap.Int("duration", candidate.Duration),
		zap.Int("conflicts", len(conflicts)),
	)
	return newConflictError(conflicts)
}

func (s *Service) withDateLock(ctx context.Context, date string, fn func(ctx context.Context) error) error {
	err := s.locker.WithDateLock(ctx, date, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.metrics.ObserveLockBusy()
		return ErrCalendarBusy
	}
	return normalizeError("calendar write", err)
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveDuration(op, time.Since(start).Seconds())
}

func (s *Service) logEvent(ctx context.Context, shiftID int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if shiftID != 0 {
		id := shiftID
		ev.ShiftID = &id
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.Int64("shift_id", shiftID),
			zap.Error(err),
		)
	}
}
