package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	if pool == nil {
		panic("shift: pgx pool required")
	}
	return &PgRepository{db: pool}
}

func newPgRepositoryWithQuerier(q querier) *PgRepository {
	return &PgRepository{db: q}
}

// Dates and clock values travel as text; the casts keep pgx from picking
// binary date/time codecs on either side.
const (
	patientColumns = `id, name, lastname, dni, created_at, updated_at, deleted_at`

	shiftColumns = `s.id, s.patient_id, to_char(s.date, 'YYYY-MM-DD'), to_char(s.start_time, 'HH24:MI'),
		s.duration, s.status, s.details, s.reason_incomplete, s.reprogramed, s.created_at, s.updated_at`

	shiftWithPatientColumns = shiftColumns + `, p.name, p.lastname, p.dni`
)

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Lastname,
		&p.DNI,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func shiftDest(s *Shift) []any {
	return []any{
		&s.ID,
		&s.PatientID,
		&s.Date,
		&s.StartTime,
		&s.Duration,
		&s.Status,
		&s.Details,
		&s.ReasonIncomplete,
		&s.Reprogramed,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
}

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift

	if err := row.Scan(shiftDest(&s)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanShiftWithPatient(row pgx.Row) (*ShiftWithPatient, error) {
	var s ShiftWithPatient

	dest := append(shiftDest(&s.Shift), &s.PatientName, &s.PatientLastname, &s.PatientDNI)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	return &s, nil
}

func collectShiftsWithPatient(rows pgx.Rows) ([]ShiftWithPatient, error) {
	defer rows.Close()

	var result []ShiftWithPatient
	for rows.Next() {
		s, err := scanShiftWithPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Patients

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	p, err := scanPatient(row)
	return p, normalizeError("load patient", err)
}

func (r *PgRepository) ListPatients(ctx context.Context, search string, limit, offset int) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR lastname ILIKE '%' || $1 || '%' OR dni LIKE $1 || '%')
		ORDER BY lastname, name, id
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, normalizeError("list patients", err)
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, normalizeError("list patients", err)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, normalizeError("list patients", err)
	}

	return result, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (name, lastname, dni, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING `+patientColumns+`
	`, in.Name, in.Lastname, in.DNI)
	p, err := scanPatient(row)
	return p, normalizeError("create patient", err)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET name = $2,
		    lastname = $3,
		    dni = $4,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+patientColumns+`
	`, p.ID, p.Name, p.Lastname, p.DNI)
	updated, err := scanPatient(row)
	return updated, normalizeError("update patient", err)
}

func (r *PgRepository) SoftDeletePatient(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE patients
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return normalizeError("delete patient", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// Shifts

func (r *PgRepository) ListShiftsByDate(ctx context.Context, date string) ([]ShiftWithPatient, error) {
	return r.ListShiftsByDateRange(ctx, date, date)
}

func (r *PgRepository) ListShiftsByDateRange(ctx context.Context, start, end string) ([]ShiftWithPatient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+shiftWithPatientColumns+`
		FROM shifts s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.date BETWEEN $1::text::date AND $2::text::date
		ORDER BY s.date, s.start_time, s.id
	`, start, end)
	if err != nil {
		return nil, normalizeError("list shifts", err)
	}
	shifts, err := collectShiftsWithPatient(rows)
	return shifts, normalizeError("list shifts", err)
}

func (r *PgRepository) GetShiftByID(ctx context.Context, id int64) (*Shift, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts s
		WHERE s.id = $1
	`, id)
	s, err := scanShift(row)
	return s, normalizeError("load shift", err)
}

func (r *PgRepository) InsertShift(ctx context.Context, s Shift) (*Shift, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO shifts AS s (patient_id, date, start_time, duration, status, details, reason_incomplete, reprogramed, created_at)
		VALUES ($1, $2::text::date, $3::text::time, $4, $5, $6, $7, $8, now())
		RETURNING `+shiftColumns+`
	`, s.PatientID, s.Date, s.StartTime, s.Duration, s.Status, s.Details, s.ReasonIncomplete, s.Reprogramed)
	created, err := scanShift(row)
	return created, normalizeError("insert shift", err)
}

func (r *PgRepository) UpdateShift(ctx context.Context, s *Shift) (*Shift, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE shifts AS s
		SET patient_id = $2,
		    date = $3::text::date,
		    start_time = $4::text::time,
		    duration = $5,
		    status = $6,
		    details = $7,
		    reason_incomplete = $8,
		    reprogramed = $9,
		    updated_at = now()
		WHERE s.id = $1
		RETURNING `+shiftColumns+`
	`, s.ID, s.PatientID, s.Date, s.StartTime, s.Duration, s.Status, s.Details, s.ReasonIncomplete, s.Reprogramed)
	updated, err := scanShift(row)
	return updated, normalizeError("update shift", err)
}

func (r *PgRepository) DeleteShift(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return normalizeError("delete shift", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (r *PgRepository) FindPendingBefore(ctx context.Context, date string) ([]Shift, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts s
		WHERE s.status = 'pending'
		  AND s.date < $1::text::date
		ORDER BY s.date, s.start_time
	`, date)
	if err != nil {
		return nil, normalizeError("find stale pending shifts", err)
	}
	defer rows.Close()

	var result []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, normalizeError("find stale pending shifts", err)
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, normalizeError("find stale pending shifts", err)
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, shift_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ShiftID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
