package api

import (
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
	"github.com/hackgods/clinic-shift-scheduling/internal/shift"
)

type SetStatusRequest struct {
	Status           shift.Status `json:"status"`
	ReasonIncomplete *string      `json:"reason_incomplete"`
}

type SlotsResponse struct {
	Date     string          `json:"date"`
	Duration int             `json:"duration"`
	Slots    []schedule.Slot `json:"slots"`
}

type PatientListResponse struct {
	Patients []shift.Patient `json:"patients"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// ErrorResponse is the body of every non-2xx reply. Fields and
// AdditionalData are positionally aligned for display.
type ErrorResponse struct {
	Code           string             `json:"code"`
	Message        string             `json:"message"`
	Fields         []shift.FieldError `json:"fields,omitempty"`
	AdditionalData []string           `json:"additionalData,omitempty"`
}
