package schedule

// DefaultGranularity is the step between offered start times, in minutes.
const DefaultGranularity = 30

// OperatingWindows are the clinic's bookable hours. 12:00-14:00 is never offered.
var OperatingWindows = []Interval{
	{Start: 8 * 60, End: 12 * 60},
	{Start: 14 * 60, End: 20 * 60},
}

// Slot is a start time offered to the user.
type Slot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// GenerateDaySlots enumerates start times inside the operating windows.
// A non-positive granularity falls back to DefaultGranularity.
func GenerateDaySlots(granularity int) []Slot {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	var slots []Slot
	for _, w := range OperatingWindows {
		for m := w.Start; m < w.End; m += granularity {
			value := FromMinutes(m)
			label, _ := FormatTime(value, true)
			slots = append(slots, Slot{Value: value, Label: label})
		}
	}
	return slots
}

// AvailableSlots returns the day slots whose [slot, slot+slotDuration) does
// not overlap any entry of existing. existing must hold a single date.
func AvailableSlots[T Spanner](existing []T, granularity, slotDuration int) ([]Slot, error) {
	if slotDuration <= 0 {
		slotDuration = DefaultGranularity
	}

	spans := make([]Interval, 0, len(existing))
	for _, e := range existing {
		span, err := e.Span()
		if err != nil {
			return nil, err
		}
		spans = append(spans, span)
	}

	all := GenerateDaySlots(granularity)
	free := make([]Slot, 0, len(all))
	for _, s := range all {
		start, _ := ToMinutes(s.Value)
		candidate := Interval{Start: start, End: start + slotDuration}

		blocked := false
		for _, span := range spans {
			if candidate.Overlaps(span) {
				blocked = true
				break
			}
		}
		if !blocked {
			free = append(free, s)
		}
	}
	return free, nil
}
