package shift

import (
	"context"
)

// Repository contains all DB interactions needed by the service.
// Dates are YYYY-MM-DD and times HH:MM throughout.
type Repository interface {
	// Patients
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	ListPatients(ctx context.Context, search string, limit, offset int) ([]Patient, error)
	CreatePatient(ctx context.Context, in PatientInput) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) (*Patient, error)
	SoftDeletePatient(ctx context.Context, id int64) error

	// Calendar reads, ordered by date then start time
	ListShiftsByDate(ctx context.Context, date string) ([]ShiftWithPatient, error)
	ListShiftsByDateRange(ctx context.Context, start, end string) ([]ShiftWithPatient, error)
	GetShiftByID(ctx context.Context, id int64) (*Shift, error)

	// Writes
	InsertShift(ctx context.Context, s Shift) (*Shift, error)
	UpdateShift(ctx context.Context, s *Shift) (*Shift, error)
	DeleteShift(ctx context.Context, id int64) error

	// Pending sweeper
	FindPendingBefore(ctx context.Context, date string) ([]Shift, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
