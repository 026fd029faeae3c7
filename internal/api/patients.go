package api

import (
	"net/http"

	"github.com/hackgods/clinic-shift-scheduling/internal/shift"
)

func createPatientHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shift.PatientInput
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := svc.CreatePatient(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

func listPatientsHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := intQuery(w, r, "limit")
		if !ok {
			return
		}
		offset, ok := intQuery(w, r, "offset")
		if !ok {
			return
		}

		patients, err := svc.ListPatients(r.Context(), r.URL.Query().Get("q"), limit, offset)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, PatientListResponse{Patients: patients, Limit: limit, Offset: offset})
	}
}

func getPatientHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		p, err := svc.GetPatient(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func updatePatientHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var patch shift.PatientPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		p, err := svc.UpdatePatient(r.Context(), id, patch)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func deletePatientHandler(svc *shift.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeletePatient(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
