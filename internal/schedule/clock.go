package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds every clock value handled by the engine.
const MinutesPerDay = 24 * 60

var ErrInvalidTime = errors.New("invalid time of day")

// ParseError reports a clock string that is not a 24-hour HH:MM value.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidTime, e.Value)
}

func (e *ParseError) Unwrap() error { return ErrInvalidTime }

// ToMinutes parses a 24-hour "HH:MM" value into minutes since midnight.
func ToMinutes(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, &ParseError{Value: value}
	}

	// Hours take one or two digits, minutes exactly two. No signs.
	if !isDigits(parts[0], 1, 2) || !isDigits(parts[1], 2, 2) {
		return 0, &ParseError{Value: value}
	}

	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	if h > 23 || m > 59 {
		return 0, &ParseError{Value: value}
	}

	return h*60 + m, nil
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FromMinutes renders minutes since midnight as "HH:MM", wrapping into a single day.
func FromMinutes(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes returns the clock value duration minutes after value.
// The result wraps at midnight; callers that care about the day boundary
// must check EndsAfterMidnight.
func AddMinutes(value string, duration int) (string, error) {
	start, err := ToMinutes(value)
	if err != nil {
		return "", err
	}
	return FromMinutes(start + duration), nil
}

// EndsAfterMidnight reports whether [value, value+duration) runs past 24:00.
func EndsAfterMidnight(value string, duration int) (bool, error) {
	start, err := ToMinutes(value)
	if err != nil {
		return false, err
	}
	return start+duration > MinutesPerDay, nil
}

// FormatTime renders a 24-hour value either canonically or as "h:MM AM".
func FormatTime(value string, use12Hour bool) (string, error) {
	minutes, err := ToMinutes(value)
	if err != nil {
		return "", err
	}
	if !use12Hour {
		return FromMinutes(minutes), nil
	}

	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix), nil
}

// ParseTime accepts either "HH:MM" or the 12-hour form produced by FormatTime
// and returns the canonical 24-hour value.
func ParseTime(value string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))

	var suffix string
	switch {
	case strings.HasSuffix(v, "AM"):
		suffix = "AM"
	case strings.HasSuffix(v, "PM"):
		suffix = "PM"
	default:
		minutes, err := ToMinutes(v)
		if err != nil {
			return "", err
		}
		return FromMinutes(minutes), nil
	}

	clock := strings.TrimSpace(strings.TrimSuffix(v, suffix))
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return "", &ParseError{Value: value}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 1 || h > 12 {
		return "", &ParseError{Value: value}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return "", &ParseError{Value: value}
	}

	h %= 12
	if suffix == "PM" {
		h += 12
	}
	return FromMinutes(h*60 + m), nil
}

// FormatDuration renders minutes as "Xh Ym", "Xh" or "Ym".
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
