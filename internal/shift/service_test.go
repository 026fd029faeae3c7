package shift

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	svc := NewService(repo, redisclient.NewLocalDateLocker(), config.DefaultScheduling(),
		WithClock(func() time.Time { return testNow }))
	return svc, repo
}

func mustPatient(t *testing.T, svc *Service, dni string) *Patient {
	t.Helper()
	p, err := svc.CreatePatient(context.Background(), PatientInput{Name: "Ana", Lastname: "Lopez " + dni, DNI: dni})
	require.NoError(t, err)
	return p
}

func mustShift(t *testing.T, svc *Service, patientID int64, date, start string, duration int) *Shift {
	t.Helper()
	s, err := svc.CreateShift(context.Background(), ShiftInput{
		PatientID: patientID,
		Date:      date,
		StartTime: start,
		Duration:  duration,
	})
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }

func TestCreateShiftDefaultsToPending(t *testing.T) {
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")

	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	assert.NotZero(t, s.ID)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, "2024-03-04", s.Date)
	assert.Equal(t, "11:00", s.EndTime())
	assert.False(t, s.CreatedAt.IsZero())

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventShiftCreated, events[0].EventType)
	require.NotNil(t, events[0].ShiftID)
	assert.Equal(t, s.ID, *events[0].ShiftID)
}

func TestCreateShiftOverlap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p1 := mustPatient(t, svc, "100")
	p2 := mustPatient(t, svc, "200")
	mustShift(t, svc, p1.ID, "2024-03-04", "10:00", 60)

	tests := []struct {
		name     string
		date     string
		start    string
		duration int
		conflict bool
	}{
		{"inside existing", "2024-03-04", "10:30", 30, true},
		{"covers existing", "2024-03-04", "09:30", 120, true},
		{"back to back after", "2024-03-04", "11:00", 30, false},
		{"back to back before", "2024-03-04", "09:30", 30, false},
		{"other date", "2024-03-05", "10:00", 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShift(ctx, ShiftInput{PatientID: p2.ID, Date: tt.date, StartTime: tt.start, Duration: tt.duration})
			if !tt.conflict {
				require.NoError(t, err)
				return
			}

			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
			require.Len(t, ce.Conflicts, 1)
			assert.Equal(t, []string{"Patient 1 is already booked on 2024-03-04 for 10:00 • 60 min"}, ce.AdditionalData)
			fields := make([]string, len(ce.Fields))
			for i, f := range ce.Fields {
				fields[i] = f.Field
			}
			assert.Equal(t, []string{"start_time", "duration", "date"}, fields)
		})
	}
}

func TestCreateShiftReportsEveryConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	mustShift(t, svc, p.ID, "2024-03-04", "09:00", 30)
	mustShift(t, svc, p.ID, "2024-03-04", "09:30", 30)

	_, err := svc.CreateShift(ctx, ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "08:45", Duration: 60})

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.AdditionalData, 2)
}

func TestCreateShiftValidation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")

	tests := []struct {
		name  string
		in    ShiftInput
		field string
	}{
		{"missing patient", ShiftInput{Date: "2024-03-04", StartTime: "10:00", Duration: 30}, "patient_id"},
		{"bad date", ShiftInput{PatientID: p.ID, Date: "04/03/2024", StartTime: "10:00", Duration: 30}, "date"},
		{"bad time", ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "25:00", Duration: 30}, "start_time"},
		{"zero duration", ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00"}, "duration"},
		{"below minimum", ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 10}, "duration"},
		{"past midnight", ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "23:30", Duration: 60}, "duration"},
		{"unknown status", ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 30, Status: "done"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateShift(ctx, tt.in)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Fields)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
		})
	}

	assert.Empty(t, repo.Events())
}

func TestCreateShiftUnknownPatient(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateShift(context.Background(), ShiftInput{PatientID: 99, Date: "2024-03-04", StartTime: "10:00", Duration: 30})

	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateShiftEndingAtMidnight(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")

	s := mustShift(t, svc, p.ID, "2024-03-04", "23:00", 60)
	assert.Equal(t, "00:00", s.EndTime())
}

func TestCreateShiftCalendarBusy(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, busyLocker{}, config.DefaultScheduling())
	p, err := svc.CreatePatient(context.Background(), PatientInput{Name: "Ana", Lastname: "Lopez", DNI: "1"})
	require.NoError(t, err)

	_, err = svc.CreateShift(context.Background(), ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 30})
	assert.ErrorIs(t, err, ErrCalendarBusy)
}

type busyLocker struct{}

func (busyLocker) WithDateLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")

	const workers = 20
	var (
		wg        sync.WaitGroup
		ok        atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateShift(context.Background(), ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 30})
			var ce *ConflictError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &ce):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func TestUpdateShiftSkipsCheckForNonTimeFields(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")
	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	// Bypass the service so the calendar already holds an overlap.
	_, err := repo.InsertShift(ctx, Shift{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:30", Duration: 30, Status: StatusPending})
	require.NoError(t, err)

	updated, err := svc.UpdateShift(ctx, s.ID, ShiftPatch{Details: strPtr("bring results")})
	require.NoError(t, err)
	require.NotNil(t, updated.Details)
	assert.Equal(t, "bring results", *updated.Details)
	assert.NotNil(t, updated.UpdatedAt)

	same := "10:00"
	_, err = svc.UpdateShift(ctx, s.ID, ShiftPatch{StartTime: &same})
	assert.NoError(t, err)
}

func TestUpdateShiftRechecksMoves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	first := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)
	second := mustShift(t, svc, p.ID, "2024-03-05", "10:00", 60)

	// Moving within its own span never conflicts with itself.
	later := "10:30"
	moved, err := svc.UpdateShift(ctx, first.ID, ShiftPatch{StartTime: &later})
	require.NoError(t, err)
	assert.Equal(t, "10:30", moved.StartTime)

	// Moving onto another booking's date does.
	date := "2024-03-04"
	_, err = svc.UpdateShift(ctx, second.ID, ShiftPatch{Date: &date})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, first.ID, ce.Conflicts[0].ID)

	stored, err := svc.GetShift(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", stored.Date)

	longer := 600
	_, err = svc.UpdateShift(ctx, second.ID, ShiftPatch{Duration: &longer, StartTime: strPtr("20:00")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "duration", ve.Fields[0].Field)
}

func TestUpdateShiftNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateShift(context.Background(), 42, ShiftPatch{Details: strPtr("x")})
	assert.ErrorIs(t, err, ErrShiftNotFound)
}

func TestDeleteShift(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")
	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	require.NoError(t, svc.DeleteShift(ctx, s.ID))
	assert.ErrorIs(t, svc.DeleteShift(ctx, s.ID), ErrShiftNotFound)

	_, err := svc.GetShift(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	events := repo.Events()
	assert.Equal(t, EventShiftDeleted, events[len(events)-1].EventType)
}

func TestSetStatusCancel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	change, err := svc.SetStatus(ctx, s.ID, StatusCanceled, strPtr("no-show"))
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, change.Shift.Status)
	require.NotNil(t, change.Shift.ReasonIncomplete)
	assert.Equal(t, "no-show", *change.Shift.ReasonIncomplete)
	assert.Equal(t, StatusPending, change.Previous)
	assert.True(t, change.OfferReschedule)
	assert.False(t, change.MissingReason)

	again, err := svc.SetStatus(ctx, s.ID, StatusCanceled, nil)
	require.NoError(t, err)
	assert.False(t, again.OfferReschedule)
	assert.True(t, again.MissingReason)
}

func TestSetStatusWithoutReasonStillSucceeds(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	change, err := svc.SetStatus(context.Background(), s.ID, StatusCanceled, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, change.Shift.Status)
	assert.True(t, change.MissingReason)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetStatus(context.Background(), 1, Status("done"), nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReactivatingCanceledShiftRechecks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	s := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 60)

	_, err := svc.SetStatus(ctx, s.ID, StatusCanceled, strPtr("sick"))
	require.NoError(t, err)
	mustShift(t, svc, p.ID, "2024-03-04", "10:30", 30)

	_, err = svc.SetStatus(ctx, s.ID, StatusConfirmed, nil)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	stored, err := svc.GetShift(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, stored.Status)
}

func TestCancelFreesSlotEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	p2 := mustPatient(t, svc, "200")

	first, err := svc.CreateShift(ctx, ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 60, Status: StatusPending})
	require.NoError(t, err)

	candidate := ShiftInput{PatientID: p2.ID, Date: "2024-03-04", StartTime: "10:30", Duration: 30}
	_, err = svc.CreateShift(ctx, candidate)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, first.ID, ce.Conflicts[0].ID)

	_, err = svc.SetStatus(ctx, first.ID, StatusCanceled, strPtr("no-show"))
	require.NoError(t, err)

	second, err := svc.CreateShift(ctx, candidate)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, second.PatientID)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")
	orig, err := svc.CreateShift(ctx, ShiftInput{PatientID: p.ID, Date: "2024-03-04", StartTime: "10:00", Duration: 45, Details: strPtr("fasting")})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, orig.ID, StatusCanceled, strPtr("travel"))
	require.NoError(t, err)

	res, err := svc.Reschedule(ctx, orig.ID, RescheduleInput{Date: "2024-03-06", StartTime: "15:00"})
	require.NoError(t, err)

	assert.True(t, res.Original.Reprogramed)
	assert.Equal(t, StatusCanceled, res.Original.Status)
	assert.Equal(t, p.ID, res.Replacement.PatientID)
	assert.Equal(t, "2024-03-06", res.Replacement.Date)
	assert.Equal(t, 45, res.Replacement.Duration)
	assert.Equal(t, StatusPending, res.Replacement.Status)
	require.NotNil(t, res.Replacement.Details)
	assert.Equal(t, "fasting\nReprogramed from: 2024-03-04 to 2024-03-06", *res.Replacement.Details)

	events := repo.Events()
	assert.Equal(t, EventShiftRescheduled, events[len(events)-1].EventType)
}

func TestRescheduleRejectsSameDate(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	orig := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 45)

	_, err := svc.Reschedule(context.Background(), orig.ID, RescheduleInput{Date: "2024-03-04", StartTime: "15:00"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date", ve.Fields[0].Field)
}

func TestRescheduleConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	orig := mustShift(t, svc, p.ID, "2024-03-04", "10:00", 45)
	mustShift(t, svc, p.ID, "2024-03-06", "15:00", 30)

	_, err := svc.Reschedule(ctx, orig.ID, RescheduleInput{Date: "2024-03-06", StartTime: "15:15", Duration: 30})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	stored, err := svc.GetShift(ctx, orig.ID)
	require.NoError(t, err)
	assert.False(t, stored.Reprogramed)
}

func mondays(patientID int64) SeriesRequest {
	return SeriesRequest{
		PatientID: patientID,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		DaySchedules: []schedule.DaySpec{
			{Weekday: time.Monday, StartTime: "09:00", Duration: 60},
		},
	}
}

func TestPreviewSeriesExpansion(t *testing.T) {
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")

	req := mondays(p.ID)
	req.EndDate = "2024-01-14"
	preview, err := svc.PreviewSeries(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, preview.Candidates, 2)
	assert.Equal(t, "2024-01-01", preview.Candidates[0].Date)
	assert.Equal(t, "2024-01-08", preview.Candidates[1].Date)
	assert.Equal(t, StatusPending, preview.Candidates[0].Status)
	assert.Empty(t, preview.Conflicts)
	assert.Empty(t, repo.Events())
}

func TestPreviewSeriesAggregatesConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	other := mustPatient(t, svc, "200")
	mustShift(t, svc, other.ID, "2024-01-08", "09:30", 30)
	mustShift(t, svc, other.ID, "2024-01-22", "09:00", 15)

	preview, err := svc.PreviewSeries(context.Background(), mondays(p.ID))
	require.NoError(t, err)

	assert.Len(t, preview.Candidates, 5)
	require.Len(t, preview.Conflicts, 2)
	assert.Equal(t, SeriesConflict{
		Date:      "2024-01-08",
		Weekday:   "Monday",
		ShiftID:   1,
		PatientID: other.ID,
		StartTime: "09:30",
		Duration:  30,
		Message:   "Patient 2 is already booked on 2024-01-08 for 09:30 • 30 min",
	}, preview.Conflicts[0])
	assert.Equal(t, "2024-01-22", preview.Conflicts[1].Date)
}

func TestCreateSeriesSkipsConflicts(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	p := mustPatient(t, svc, "100")
	other := mustPatient(t, svc, "200")
	mustShift(t, svc, other.ID, "2024-01-08", "09:30", 30)
	mustShift(t, svc, other.ID, "2024-01-22", "09:00", 15)

	res, err := svc.CreateSeries(ctx, mondays(p.ID))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Created)
	require.Len(t, res.Shifts, 3)
	assert.Equal(t, "2024-01-01", res.Shifts[0].Date)
	assert.Equal(t, "2024-01-15", res.Shifts[1].Date)
	assert.Equal(t, "2024-01-29", res.Shifts[2].Date)
	assert.Len(t, res.Skipped, 2)

	events := repo.Events()
	assert.Equal(t, EventSeriesCommitted, events[len(events)-1].EventType)
}

func TestCreateSeriesRequireNoConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	other := mustPatient(t, svc, "200")
	mustShift(t, svc, other.ID, "2024-01-08", "09:30", 30)

	req := mondays(p.ID)
	req.RequireNoConflicts = true
	_, err := svc.CreateSeries(ctx, req)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"Monday Patient 2 is already booked on 2024-01-08 for 09:30 • 30 min"}, ce.AdditionalData)

	view, err := svc.ListMonth(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Len(t, view.Shifts, 1)
}

// failingInsertRepo fails the failOn-th InsertShift call and every call after it.
type failingInsertRepo struct {
	*MemoryRepository
	failOn int
	calls  int
}

func (r *failingInsertRepo) InsertShift(ctx context.Context, s Shift) (*Shift, error) {
	r.calls++
	if r.calls >= r.failOn {
		return nil, errors.New("disk full")
	}
	return r.MemoryRepository.InsertShift(ctx, s)
}

func TestCreateSeriesKeepsRowsBeforeUnexpectedError(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepository()
	p, err := mem.CreatePatient(ctx, PatientInput{Name: "Ana", Lastname: "Lopez", DNI: "100"})
	require.NoError(t, err)

	repo := &failingInsertRepo{MemoryRepository: mem, failOn: 4}
	svc := NewService(repo, redisclient.NewLocalDateLocker(), config.DefaultScheduling(),
		WithClock(func() time.Time { return testNow }))

	res, err := svc.CreateSeries(ctx, mondays(p.ID))

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Created)
	require.Len(t, res.Shifts, 3)
	assert.Equal(t, "2024-01-15", res.Shifts[2].Date)
	assert.Equal(t, 4, repo.calls, "loop stops at the failing candidate")

	view, err := svc.ListMonth(ctx, "2024-01-15")
	require.NoError(t, err)
	require.Len(t, view.Shifts, 3)
	assert.Equal(t, "2024-01-01", view.Shifts[0].Date)
	assert.Equal(t, "2024-01-08", view.Shifts[1].Date)
	assert.Equal(t, "2024-01-15", view.Shifts[2].Date)

	for _, ev := range mem.Events() {
		assert.NotEqual(t, EventSeriesCommitted, ev.EventType)
	}
}

func TestCreateSeriesValidation(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")

	tests := []struct {
		name   string
		mutate func(*SeriesRequest)
		field  string
	}{
		{"no days", func(r *SeriesRequest) { r.DaySchedules = nil }, "day_schedules"},
		{"reversed range", func(r *SeriesRequest) { r.EndDate = "2023-12-01" }, "end_date"},
		{"too long", func(r *SeriesRequest) { r.EndDate = "2026-01-01" }, "end_date"},
		{"duplicate weekday", func(r *SeriesRequest) {
			r.DaySchedules = append(r.DaySchedules, schedule.DaySpec{Weekday: time.Monday, StartTime: "14:00", Duration: 30})
		}, "day_schedules"},
		{"bad weekday", func(r *SeriesRequest) { r.DaySchedules[0].Weekday = 9 }, "day_schedules"},
		{"bad time", func(r *SeriesRequest) { r.DaySchedules[0].StartTime = "9am" }, "day_schedules[0].start_time"},
		{"signed time", func(r *SeriesRequest) { r.DaySchedules[0].StartTime = "+8:00" }, "day_schedules[0].start_time"},
		{"padded hour", func(r *SeriesRequest) { r.DaySchedules[0].StartTime = "008:00" }, "day_schedules[0].start_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mondays(p.ID)
			tt.mutate(&req)

			_, err := svc.CreateSeries(context.Background(), req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	mustShift(t, svc, p.ID, "2024-03-04", "09:00", 30)
	canceled := mustShift(t, svc, p.ID, "2024-03-04", "15:00", 60)
	_, err := svc.SetStatus(ctx, canceled.ID, StatusCanceled, strPtr("moved"))
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(ctx, "2024-03-04", 0)
	require.NoError(t, err)

	values := make(map[string]bool, len(slots))
	for _, s := range slots {
		values[s.Value] = true
	}
	assert.False(t, values["09:00"])
	assert.True(t, values["08:30"])
	assert.True(t, values["09:30"])
	assert.True(t, values["15:00"])
	assert.False(t, values["12:30"])
	assert.Len(t, slots, 19)

	_, err = svc.AvailableSlots(ctx, "tomorrow", 30)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCalendarViews(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	mustShift(t, svc, p.ID, "2024-03-04", "10:00", 30)
	mustShift(t, svc, p.ID, "2024-03-10", "08:00", 30)
	mustShift(t, svc, p.ID, "2024-03-11", "08:00", 30)
	mustShift(t, svc, p.ID, "2024-02-29", "08:00", 30)

	week, err := svc.ListWeek(ctx, "2024-03-06")
	require.NoError(t, err)
	assert.Equal(t, schedule.DateRange{Start: "2024-03-04", End: "2024-03-10"}, week.Range)
	require.Len(t, week.Shifts, 2)
	assert.Equal(t, "Ana", week.Shifts[0].PatientName)
	assert.Equal(t, "100", week.Shifts[0].PatientDNI)

	month, err := svc.ListMonth(ctx, "2024-02-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", month.Range.End)
	assert.Len(t, month.Shifts, 1)

	day, err := svc.ListDay(ctx, "2024-03-05")
	require.NoError(t, err)
	assert.NotNil(t, day.Shifts)
	assert.Empty(t, day.Shifts)
}

func TestSweepStalePending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")
	stale := mustShift(t, svc, p.ID, "2024-03-08", "10:00", 30)
	recent := mustShift(t, svc, p.ID, "2024-03-09", "10:00", 30)
	confirmed := mustShift(t, svc, p.ID, "2024-03-01", "10:00", 30)
	_, err := svc.SetStatus(ctx, confirmed.ID, StatusConfirmed, nil)
	require.NoError(t, err)

	n, err := svc.SweepStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetShift(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)
	require.NotNil(t, got.ReasonIncomplete)
	assert.Equal(t, SweepReason, *got.ReasonIncomplete)

	got, err = svc.GetShift(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	n, err = svc.SweepStalePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPatients(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustPatient(t, svc, "100")

	_, err := svc.CreatePatient(ctx, PatientInput{Name: "Bea", Lastname: "Diaz", DNI: " 100 "})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "dni", pe.Fields[0].Field)

	_, err = svc.CreatePatient(ctx, PatientInput{Name: "", Lastname: "Diaz", DNI: "300"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Fields[0].Field)

	name := "Ana Maria"
	updated, err := svc.UpdatePatient(ctx, p.ID, PatientPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)

	found, err := svc.ListPatients(ctx, "maria", 0, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, svc.DeletePatient(ctx, p.ID))
	_, err = svc.GetPatient(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	// The national ID is free again once its holder is deleted.
	_, err = svc.CreatePatient(ctx, PatientInput{Name: "Bea", Lastname: "Diaz", DNI: "100"})
	assert.NoError(t, err)

	empty, err := svc.ListPatients(ctx, "nobody", 500, -1)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
