package shift

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	shiftCols = []string{"id", "patient_id", "date", "start_time", "duration", "status",
		"details", "reason_incomplete", "reprogramed", "created_at", "updated_at"}
	shiftWithPatientCols = append(append([]string{}, shiftCols...), "name", "lastname", "dni")
	patientCols          = []string{"id", "name", "lastname", "dni", "created_at", "updated_at", "deleted_at"}
	createdAt            = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return newPgRepositoryWithQuerier(mock), mock
}

func TestPgGetPatientByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(patientCols).
			AddRow(int64(7), "Ana", "Lopez", "30111222", createdAt, nil, nil))

	p, err := repo.GetPatientByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &Patient{ID: 7, Name: "Ana", Lastname: "Lopez", DNI: "30111222", CreatedAt: createdAt}, p)
}

func TestPgGetPatientByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM patients").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(patientCols))

	_, err := repo.GetPatientByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPgCreatePatientDuplicateDNI(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs("Ana", "Lopez", "30111222").
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			Message:        "duplicate key value violates unique constraint",
			ConstraintName: "patients_dni_active_key",
		})

	_, err := repo.CreatePatient(context.Background(), PatientInput{Name: "Ana", Lastname: "Lopez", DNI: "30111222"})

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create patient failed", pe.Message)
	assert.Equal(t, []FieldError{{Field: "dni", Message: "is already registered"}}, pe.Fields)
}

func TestPgSoftDeletePatient(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("SET deleted_at = now()").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET deleted_at = now()").
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.SoftDeletePatient(context.Background(), 7))
	assert.ErrorIs(t, repo.SoftDeletePatient(context.Background(), 8), ErrPatientNotFound)
}

func TestPgListShiftsByDate(t *testing.T) {
	repo, mock := newMockRepo(t)
	details := "fasting"

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.date BETWEEN $1::text::date AND $2::text::date")).
		WithArgs("2024-03-04", "2024-03-04").
		WillReturnRows(pgxmock.NewRows(shiftWithPatientCols).
			AddRow(int64(1), int64(7), "2024-03-04", "09:00", 30, StatusPending, &details, nil, false, createdAt, nil, "Ana", "Lopez", "30111222").
			AddRow(int64(2), int64(8), "2024-03-04", "10:00", 60, StatusCanceled, nil, nil, true, createdAt, nil, "Bea", "Diaz", "28999000"))

	shifts, err := repo.ListShiftsByDate(context.Background(), "2024-03-04")
	require.NoError(t, err)
	require.Len(t, shifts, 2)

	assert.Equal(t, "09:00", shifts[0].StartTime)
	require.NotNil(t, shifts[0].Details)
	assert.Equal(t, "fasting", *shifts[0].Details)
	assert.Equal(t, "Ana", shifts[0].PatientName)
	assert.Equal(t, StatusCanceled, shifts[1].Status)
	assert.True(t, shifts[1].Reprogramed)
	assert.Nil(t, shifts[1].Details)
}

func TestPgGetShiftByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM shifts s").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(shiftCols))

	_, err := repo.GetShiftByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrShiftNotFound)
}

func TestPgInsertShift(t *testing.T) {
	repo, mock := newMockRepo(t)
	in := Shift{PatientID: 7, Date: "2024-03-04", StartTime: "10:00", Duration: 60, Status: StatusPending}

	mock.ExpectQuery("INSERT INTO shifts AS s").
		WithArgs(int64(7), "2024-03-04", "10:00", 60, StatusPending, (*string)(nil), (*string)(nil), false).
		WillReturnRows(pgxmock.NewRows(shiftCols).
			AddRow(int64(11), int64(7), "2024-03-04", "10:00", 60, StatusPending, nil, nil, false, createdAt, nil))

	created, err := repo.InsertShift(context.Background(), in)
	require.NoError(t, err)

	in.ID = 11
	in.CreatedAt = createdAt
	assert.Equal(t, &in, created)
}

func TestPgInsertShiftUnknownPatient(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO shifts AS s").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "shifts_patient_id_fkey"})

	_, err := repo.InsertShift(context.Background(), Shift{PatientID: 99, Date: "2024-03-04", StartTime: "10:00", Duration: 30, Status: StatusPending})

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "patient_id", pe.Fields[0].Field)
}

func TestPgUpdateShift(t *testing.T) {
	repo, mock := newMockRepo(t)
	reason := "no-show"
	updatedAt := createdAt.Add(time.Hour)
	s := &Shift{ID: 11, PatientID: 7, Date: "2024-03-04", StartTime: "10:00", Duration: 60, Status: StatusCanceled, ReasonIncomplete: &reason}

	mock.ExpectQuery("UPDATE shifts AS s").
		WithArgs(int64(11), int64(7), "2024-03-04", "10:00", 60, StatusCanceled, (*string)(nil), &reason, false).
		WillReturnRows(pgxmock.NewRows(shiftCols).
			AddRow(int64(11), int64(7), "2024-03-04", "10:00", 60, StatusCanceled, nil, &reason, false, createdAt, &updatedAt))

	updated, err := repo.UpdateShift(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, updated.Status)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, updatedAt, *updated.UpdatedAt)
}

func TestPgDeleteShift(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM shifts").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM shifts").
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.DeleteShift(context.Background(), 11))
	assert.ErrorIs(t, repo.DeleteShift(context.Background(), 12), ErrShiftNotFound)
}

func TestPgFindPendingBefore(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("s.status = 'pending'").
		WithArgs("2024-03-09").
		WillReturnRows(pgxmock.NewRows(shiftCols).
			AddRow(int64(4), int64(7), "2024-03-01", "08:00", 30, StatusPending, nil, nil, false, createdAt, nil))

	stale, err := repo.FindPendingBefore(context.Background(), "2024-03-09")
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(4), stale[0].ID)
}

func TestPgInsertEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	shiftID := int64(11)
	payload := []byte(`{"date":"2024-03-04"}`)

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventShiftCreated, &shiftID, payload, &createdAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventSeriesCommitted, (*int64)(nil), []byte(nil), (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.InsertEvent(context.Background(), EventLog{
		EventType: EventShiftCreated,
		ShiftID:   &shiftID,
		Payload:   payload,
		CreatedAt: createdAt,
	}))
	require.NoError(t, repo.InsertEvent(context.Background(), EventLog{EventType: EventSeriesCommitted}))
}
