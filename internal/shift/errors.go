package shift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrShiftNotFound   = fmt.Errorf("shift %w", ErrNotFound)
	ErrPatientNotFound = fmt.Errorf("patient %w", ErrNotFound)

	// ErrCalendarBusy means another writer held the date lock for too long; retry.
	ErrCalendarBusy = errors.New("calendar date is being booked, please retry")
)

// FieldError attributes a message to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input; nothing was read or written.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{
		Message: "invalid shift",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// ConflictError reports every existing shift that overlaps a candidate.
type ConflictError struct {
	Message        string
	Fields         []FieldError
	AdditionalData []string
	Conflicts      []ShiftWithPatient
}

func (e *ConflictError) Error() string {
	if len(e.AdditionalData) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.AdditionalData, "; ")
}

// ConflictDetail is the human readable line for one conflicting shift.
func ConflictDetail(s Shift) string {
	return fmt.Sprintf("Patient %d is already booked on %s for %s • %d min",
		s.PatientID, s.Date, s.StartTime, s.Duration)
}

func newConflictError(conflicts []ShiftWithPatient) *ConflictError {
	e := &ConflictError{
		Message: "the selected time overlaps an existing shift",
		Fields: []FieldError{
			{Field: "start_time", Message: "overlaps an existing shift"},
			{Field: "duration", Message: "overlaps an existing shift"},
			{Field: "date", Message: "has overlapping shifts"},
		},
		Conflicts: conflicts,
	}
	for _, c := range conflicts {
		e.AdditionalData = append(e.AdditionalData, ConflictDetail(c.Shift))
	}
	return e
}

// PersistenceError wraps a storage failure, attributed to fields when the
// failing constraint identifies one.
type PersistenceError struct {
	Message string
	Fields  []FieldError
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// constraintFields maps schema constraint names to the input field they guard.
var constraintFields = map[string]FieldError{
	"patients_dni_active_key": {Field: "dni", Message: "is already registered"},
	"shifts_patient_id_fkey":  {Field: "patient_id", Message: "does not reference a patient"},
	"shifts_duration_check":   {Field: "duration", Message: "must be positive"},
	"shifts_status_check":     {Field: "status", Message: "is not a known status"},
}

// normalizeError turns an unexpected storage error into a PersistenceError.
// Domain errors and nil pass through untouched.
func normalizeError(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}

	pe := &PersistenceError{Message: op + " failed", Err: err}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if f, ok := constraintFields[pgErr.ConstraintName]; ok {
			pe.Fields = append(pe.Fields, f)
		} else if pgErr.ColumnName != "" {
			pe.Fields = append(pe.Fields, FieldError{Field: pgErr.ColumnName, Message: pgErr.Message})
		}
	}
	return pe
}

func isDomainError(err error) bool {
	var (
		ve *ValidationError
		ce *ConflictError
		pe *PersistenceError
	)
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCalendarBusy) ||
		errors.As(err, &ve) ||
		errors.As(err, &ce) ||
		errors.As(err, &pe)
}
