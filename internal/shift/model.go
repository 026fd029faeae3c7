package shift

import (
	"time"

	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceled:
		return true
	}
	return false
}

// Blocking reports whether a shift in this status occupies its time on the calendar.
// Canceled shifts free their slot.
func (s Status) Blocking() bool {
	return s != StatusCanceled
}

type Patient struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Lastname  string     `json:"lastname"`
	DNI       string     `json:"dni"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type Shift struct {
	ID               int64      `json:"id"`
	PatientID        int64      `json:"patient_id"`
	Date             string     `json:"date"`
	StartTime        string     `json:"start_time"`
	Duration         int        `json:"duration"`
	Status           Status     `json:"status"`
	Details          *string    `json:"details,omitempty"`
	ReasonIncomplete *string    `json:"reason_incomplete,omitempty"`
	Reprogramed      bool       `json:"reprogramed"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Span implements schedule.Spanner.
func (s Shift) Span() (schedule.Interval, error) {
	return schedule.NewInterval(s.StartTime, s.Duration)
}

// EndTime is the wall-clock end of the shift, wrapped within the day.
func (s Shift) EndTime() string {
	end, err := schedule.AddMinutes(s.StartTime, s.Duration)
	if err != nil {
		return ""
	}
	return end
}

// ShiftWithPatient is the read projection used to render or validate a day.
type ShiftWithPatient struct {
	Shift
	PatientName     string `json:"name"`
	PatientLastname string `json:"lastname"`
	PatientDNI      string `json:"dni"`
}

// ShiftInput is a candidate shift as collected by the caller.
type ShiftInput struct {
	PatientID        int64   `json:"patient_id" validate:"required,gt=0"`
	Date             string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string  `json:"start_time" validate:"required,datetime=15:04"`
	Duration         int     `json:"duration" validate:"required,gt=0"`
	Status           Status  `json:"status" validate:"omitempty,oneof=pending confirmed canceled"`
	Details          *string `json:"details"`
	ReasonIncomplete *string `json:"reason_incomplete"`
}

// ShiftPatch carries the fields to change on update; nil means unchanged.
type ShiftPatch struct {
	PatientID        *int64  `json:"patient_id" validate:"omitempty,gt=0"`
	Date             *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime        *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	Duration         *int    `json:"duration" validate:"omitempty,gt=0"`
	Status           *Status `json:"status" validate:"omitempty,oneof=pending confirmed canceled"`
	Details          *string `json:"details"`
	ReasonIncomplete *string `json:"reason_incomplete"`
	Reprogramed      *bool   `json:"reprogramed"`
}

type PatientInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Lastname string `json:"lastname" validate:"required,max=120"`
	DNI      string `json:"dni" validate:"required,max=32"`
}

type PatientPatch struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Lastname *string `json:"lastname" validate:"omitempty,min=1,max=120"`
	DNI      *string `json:"dni" validate:"omitempty,min=1,max=32"`
}

type EventLog struct {
	ID        int64
	EventType string
	ShiftID   *int64
	Payload   []byte
	CreatedAt time.Time
}
