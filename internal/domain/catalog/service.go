package catalog

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// -- Services --

func (s *Service) CreateService(ctx context.Context, in ServiceInput) (*BillableService, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	svc, err := s.repo.CreateService(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("service_id", svc.ID).Str("name", svc.Name).Msg("service created")
	return svc, nil
}

func (s *Service) GetService(ctx context.Context, id int64) (*BillableService, error) {
	return s.repo.GetService(ctx, id)
}

func (s *Service) ServiceByName(ctx context.Context, name string) (*BillableService, error) {
	return s.repo.ServiceByName(ctx, strings.TrimSpace(name))
}

func (s *Service) ListServices(ctx context.Context) ([]*BillableService, error) {
	out, err := s.repo.ListServices(ctx)
	if out == nil && err == nil {
		out = []*BillableService{}
	}
	return out, err
}

func (s *Service) UpdateService(ctx context.Context, id int64, in ServiceInput) (*BillableService, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateService(ctx, id, in)
}

func (s *Service) DeleteService(ctx context.Context, id int64) error {
	return s.repo.DeleteService(ctx, id)
}

// -- Doctors and clinics --

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.CreateDoctor(ctx, in)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

func (s *Service) DoctorByName(ctx context.Context, name string) (*Doctor, error) {
	return s.repo.DoctorByName(ctx, strings.TrimSpace(name))
}

func (s *Service) ListDoctors(ctx context.Context, clinicID int64) ([]*Doctor, error) {
	out, err := s.repo.ListDoctors(ctx, clinicID)
	if out == nil && err == nil {
		out = []*Doctor{}
	}
	return out, err
}

func (s *Service) UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateDoctor(ctx, id, in)
}

func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	return s.repo.DeleteDoctor(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context) ([]*Clinic, error) {
	out, err := s.repo.ListClinics(ctx)
	if out == nil && err == nil {
		out = []*Clinic{}
	}
	return out, err
}

// -- Complaint templates --

func (s *Service) SaveComplaintTemplate(ctx context.Context, in ComplaintTemplateInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	return s.repo.CreateComplaintTemplate(ctx, in)
}

var emptyTemplateData = json.RawMessage("[]")

func (s *Service) ComplaintTemplates(ctx context.Context, department string) ([]*ComplaintTemplate, error) {
	out, err := s.repo.ListComplaintTemplates(ctx, strings.TrimSpace(department))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*ComplaintTemplate{}
	}
	for _, t := range out {
		if len(t.Data) == 0 {
			t.Data = emptyTemplateData
		}
	}
	return out, nil
}

// MedicineNames returns up to ten names starting with prefix.
func (s *Service) MedicineNames(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.repo.MedicineNames(ctx, strings.TrimSpace(prefix), medicineLookupMax)
	if out == nil && err == nil {
		out = []string{}
	}
	return out, err
}
