package shift

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

// CalendarView is every shift, canceled ones included, inside Range.
type CalendarView struct {
	Range  schedule.DateRange `json:"range"`
	Shifts []ShiftWithPatient `json:"shifts"`
}

func (s *Service) ListDay(ctx context.Context, date string) (*CalendarView, error) {
	day, err := normalizeDate("date", date)
	if err != nil {
		return nil, err
	}
	return s.listRange(ctx, schedule.DateRange{Start: day, End: day})
}

// ListWeek returns the Monday-start week containing date.
func (s *Service) ListWeek(ctx context.Context, date string) (*CalendarView, error) {
	r, err := schedule.WeekRange(date)
	if err != nil {
		return nil, invalid("week", "must be a YYYY-MM-DD date")
	}
	return s.listRange(ctx, r)
}

// ListMonth returns the calendar month containing date.
func (s *Service) ListMonth(ctx context.Context, date string) (*CalendarView, error) {
	r, err := schedule.MonthRange(date)
	if err != nil {
		return nil, invalid("month", "must be a YYYY-MM-DD date")
	}
	return s.listRange(ctx, r)
}

func (s *Service) listRange(ctx context.Context, r schedule.DateRange) (*CalendarView, error) {
	shifts, err := s.repo.ListShiftsByDateRange(ctx, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("list shifts %s..%s: %w", r.Start, r.End, err)
	}
	if shifts == nil {
		shifts = []ShiftWithPatient{}
	}
	return &CalendarView{Range: r, Shifts: shifts}, nil
}

// AvailableSlots returns the start times on date where a shift of duration
// minutes fits. A zero duration uses the slot granularity.
func (s *Service) AvailableSlots(ctx context.Context, date string, duration int) ([]schedule.Slot, error) {
	day, err := normalizeDate("date", date)
	if err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, invalid("duration", "must be greater than 0")
	}
	if duration == 0 {
		duration = s.rules.SlotGranularity
	}

	existing, err := s.repo.ListShiftsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load shifts for %s: %w", day, err)
	}

	return schedule.AvailableSlots(blocking(existing, 0), s.rules.SlotGranularity, duration)
}
