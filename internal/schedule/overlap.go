package schedule

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds the interval covered by a start time and a duration.
func NewInterval(start string, duration int) (Interval, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: s + duration}, nil
}

// Overlaps reports whether the two intervals share at least one minute.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// IsOverlapping compares two start/duration pairs given in minutes.
func IsOverlapping(aStart, aDuration, bStart, bDuration int) bool {
	return Interval{aStart, aStart + aDuration}.Overlaps(Interval{bStart, bStart + bDuration})
}

// Spanner is anything occupying a span of the clinical day.
type Spanner interface {
	Span() (Interval, error)
}

// FindOverlaps returns the entries of existing that overlap candidate,
// preserving input order. existing is expected to hold a single date.
func FindOverlaps[T Spanner](candidate Interval, existing []T) ([]T, error) {
	var out []T
	for _, e := range existing {
		span, err := e.Span()
		if err != nil {
			return nil, err
		}
		if candidate.Overlaps(span) {
			out = append(out, e)
		}
	}
	return out, nil
}

// HasAnyOverlap reports whether candidate overlaps any entry of existing.
func HasAnyOverlap[T Spanner](candidate Interval, existing []T) (bool, error) {
	found, err := FindOverlaps(candidate, existing)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
