package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyRange       = errors.New("end date is before start date")
	ErrDuplicateWeekday = errors.New("weekday scheduled more than once")
	ErrInvalidWeekday   = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
)

// DaySpec is the time and duration booked on one weekday of a series.
type DaySpec struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"start_time"`
	Duration  int          `json:"duration"`
}

// Occurrence is one concrete date produced by ExpandWeekly.
type Occurrence struct {
	Date      string
	Weekday   time.Weekday
	StartTime string
	Duration  int
}

// Span implements Spanner.
func (o Occurrence) Span() (Interval, error) {
	return NewInterval(o.StartTime, o.Duration)
}

// ExpandWeekly walks every date in [startDate, endDate] and emits an
// occurrence for each date whose weekday appears in days.
func ExpandWeekly(startDate, endDate string, days []DaySpec) ([]Occurrence, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrEmptyRange
	}

	byDay := make(map[time.Weekday]DaySpec, len(days))
	for _, d := range days {
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWeekday, d.Weekday)
		}
		if _, dup := byDay[d.Weekday]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWeekday, d.Weekday)
		}
		byDay[d.Weekday] = d
	}

	var out []Occurrence
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		spec, ok := byDay[day.Weekday()]
		if !ok {
			continue
		}
		out = append(out, Occurrence{
			Date:      FormatDate(day),
			Weekday:   day.Weekday(),
			StartTime: spec.StartTime,
			Duration:  spec.Duration,
		})
	}
	return out, nil
}
