package shift

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests. Its constraint
// errors carry the same field attribution as the Postgres schema.
type MemoryRepository struct {
	mu       sync.RWMutex
	now      func() time.Time
	patients map[int64]*Patient
	shifts   map[int64]*Shift
	events   []EventLog
	nextPID  int64
	nextSID  int64
	nextEID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:      time.Now,
		patients: make(map[int64]*Patient),
		shifts:   make(map[int64]*Shift),
	}
}

// Patients

func (m *MemoryRepository) GetPatientByID(_ context.Context, id int64) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) ListPatients(_ context.Context, search string, limit, offset int) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(search)
	var result []Patient
	for _, p := range m.patients {
		if p.DeletedAt != nil {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Lastname), q) &&
			!strings.HasPrefix(p.DNI, search) {
			continue
		}
		result = append(result, *p)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Lastname != b.Lastname {
			return a.Lastname < b.Lastname
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryRepository) dniTaken(dni string, exceptID int64) bool {
	for _, p := range m.patients {
		if p.DeletedAt == nil && p.DNI == dni && p.ID != exceptID {
			return true
		}
	}
	return false
}

func duplicateDNI() error {
	return &PersistenceError{
		Message: "patient national id must be unique",
		Fields:  []FieldError{constraintFields["patients_dni_active_key"]},
	}
}

func (m *MemoryRepository) CreatePatient(_ context.Context, in PatientInput) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dniTaken(in.DNI, 0) {
		return nil, duplicateDNI()
	}

	m.nextPID++
	p := &Patient{
		ID:        m.nextPID,
		Name:      in.Name,
		Lastname:  in.Lastname,
		DNI:       in.DNI,
		CreatedAt: m.now(),
	}
	m.patients[p.ID] = p

	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) UpdatePatient(_ context.Context, p *Patient) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.patients[p.ID]
	if !ok || cur.DeletedAt != nil {
		return nil, ErrPatientNotFound
	}
	if m.dniTaken(p.DNI, p.ID) {
		return nil, duplicateDNI()
	}

	now := m.now()
	cur.Name, cur.Lastname, cur.DNI = p.Name, p.Lastname, p.DNI
	cur.UpdatedAt = &now

	cp := *cur
	return &cp, nil
}

func (m *MemoryRepository) SoftDeletePatient(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return ErrPatientNotFound
	}
	now := m.now()
	p.DeletedAt = &now
	return nil
}

// Shifts

func (m *MemoryRepository) withPatient(s *Shift) ShiftWithPatient {
	out := ShiftWithPatient{Shift: *s}
	if p, ok := m.patients[s.PatientID]; ok {
		out.PatientName = p.Name
		out.PatientLastname = p.Lastname
		out.PatientDNI = p.DNI
	}
	return out
}

func (m *MemoryRepository) ListShiftsByDate(ctx context.Context, date string) ([]ShiftWithPatient, error) {
	return m.ListShiftsByDateRange(ctx, date, date)
}

func (m *MemoryRepository) ListShiftsByDateRange(_ context.Context, start, end string) ([]ShiftWithPatient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// ISO dates and zero padded clock values order lexically.
	var result []ShiftWithPatient
	for _, s := range m.shifts {
		if s.Date >= start && s.Date <= end {
			result = append(result, m.withPatient(s))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (m *MemoryRepository) GetShiftByID(_ context.Context, id int64) (*Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.shifts[id]
	if !ok {
		return nil, ErrShiftNotFound
	}
	cp := *s
	return &cp, nil
}

func missingPatient() error {
	return &PersistenceError{
		Message: "shift references an unknown patient",
		Fields:  []FieldError{constraintFields["shifts_patient_id_fkey"]},
	}
}

func (m *MemoryRepository) InsertShift(_ context.Context, s Shift) (*Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patients[s.PatientID]; !ok {
		return nil, missingPatient()
	}

	m.nextSID++
	s.ID = m.nextSID
	s.CreatedAt = m.now()
	s.UpdatedAt = nil
	m.shifts[s.ID] = &s

	cp := s
	return &cp, nil
}

func (m *MemoryRepository) UpdateShift(_ context.Context, s *Shift) (*Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.shifts[s.ID]
	if !ok {
		return nil, ErrShiftNotFound
	}
	if _, ok := m.patients[s.PatientID]; !ok {
		return nil, missingPatient()
	}

	now := m.now()
	next := *s
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = &now
	m.shifts[s.ID] = &next

	cp := next
	return &cp, nil
}

func (m *MemoryRepository) DeleteShift(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shifts[id]; !ok {
		return ErrShiftNotFound
	}
	delete(m.shifts, id)
	return nil
}

func (m *MemoryRepository) FindPendingBefore(_ context.Context, date string) ([]Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Shift
	for _, s := range m.shifts {
		if s.Status == StatusPending && s.Date < date {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEID++
	ev.ID = m.nextEID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = m.now()
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the event log, oldest first.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}
