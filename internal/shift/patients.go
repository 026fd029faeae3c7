package shift

import (
	"context"
	"strings"
)

const (
	defaultPatientLimit = 20
	maxPatientLimit     = 100
)

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.DNI = strings.TrimSpace(in.DNI)

	if err := s.validateStruct("invalid patient", in); err != nil {
		return nil, err
	}
	return s.repo.CreatePatient(ctx, in)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

// ListPatients pages through non-deleted patients matching search on name,
// lastname or national ID prefix.
func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = defaultPatientLimit
	}
	if limit > maxPatientLimit {
		limit = maxPatientLimit
	}
	if offset < 0 {
		offset = 0
	}

	patients, err := s.repo.ListPatients(ctx, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []Patient{}
	}
	return patients, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, patch PatientPatch) (*Patient, error) {
	if err := s.validateStruct("invalid patient", patch); err != nil {
		return nil, err
	}

	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Lastname != nil {
		p.Lastname = strings.TrimSpace(*patch.Lastname)
	}
	if patch.DNI != nil {
		p.DNI = strings.TrimSpace(*patch.DNI)
	}
	return s.repo.UpdatePatient(ctx, p)
}

// DeletePatient hides the patient. Their shifts stay on the calendar.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.repo.SoftDeletePatient(ctx, id)
}
