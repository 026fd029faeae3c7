package schedule

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date used on every persisted shift.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid calendar date")

// ParseDate parses a YYYY-MM-DD value as a UTC midnight.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// FormatDate renders t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekRange returns the Monday..Sunday week containing date.
func WeekRange(date string) (DateRange, error) {
	d, err := ParseDate(date)
	if err != nil {
		return DateRange{}, err
	}
	// time.Sunday is 0; shift so Monday is the first day.
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return DateRange{
		Start: FormatDate(monday),
		End:   FormatDate(monday.AddDate(0, 0, 6)),
	}, nil
}

// MonthRange returns the first and last day of the month containing date.
func MonthRange(date string) (DateRange, error) {
	d, err := ParseDate(date)
	if err != nil {
		return DateRange{}, err
	}
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{
		Start: FormatDate(first),
		End:   FormatDate(first.AddDate(0, 1, -1)),
	}, nil
}

// DaysBetween counts calendar days in [start, end], inclusive.
func DaysBetween(start, end string) (int, error) {
	s, err := ParseDate(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}
