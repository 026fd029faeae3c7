package api

import (
	"net/http"

	"github.com/hackgods/clinic-shift-scheduling/internal/shift"
)

func createShiftHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shift.ShiftInput
		if !decodeJSON(w, r, &req) {
			return
		}

		s, err := svc.CreateShift(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, s)
	}
}

// listShiftsHandler serves one of ?date=, ?week= or ?month=, each taking a
// date inside the wanted range.
func listShiftsHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			view *shift.CalendarView
			err  error
		)
		switch {
		case q.Get("date") != "":
			view, err = svc.ListDay(r.Context(), q.Get("date"))
		case q.Get("week") != "":
			view, err = svc.ListWeek(r.Context(), q.Get("week"))
		case q.Get("month") != "":
			view, err = svc.ListMonth(r.Context(), q.Get("month"))
		default:
			writeError(w, http.StatusBadRequest, "missing_range", "one of date, week or month is required")
			return
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, view)
	}
}

func getShiftHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		s, err := svc.GetShift(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func updateShiftHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var patch shift.ShiftPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		s, err := svc.UpdateShift(r.Context(), id, patch)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

func deleteShiftHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteShift(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func setStatusHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req SetStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		change, err := svc.SetStatus(r.Context(), id, req.Status, req.ReasonIncomplete)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, change)
	}
}

func rescheduleHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var req shift.RescheduleInput
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Reschedule(r.Context(), id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func availableSlotsHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date is required")
			return
		}
		duration, ok := intQuery(w, r, "duration")
		if !ok {
			return
		}
		if duration == 0 {
			duration = svc.Rules().SlotGranularity
		}

		slots, err := svc.AvailableSlots(r.Context(), date, duration)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Date: date, Duration: duration, Slots: slots})
	}
}

func previewSeriesHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shift.SeriesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		preview, err := svc.PreviewSeries(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, preview)
	}
}

// createSeriesHandler answers 207 when the commit stopped after inserting
// some shifts, with the error carried in the body.
func createSeriesHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shift.SeriesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.CreateSeries(r.Context(), req)
		if err != nil && (res == nil || res.Created == 0) {
			handleServiceError(w, r, err)
			return
		}
		if err != nil {
			writeJSON(w, http.StatusMultiStatus, struct {
				*shift.SeriesResult
				Error string `json:"error"`
			}{res, err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}
