package catalog

import (
	"context"
	"sort"
	"strings"
	"time"
)

type mockRepo struct {
	services   map[int64]*BillableService
	doctors    map[int64]*Doctor
	clinics    []*Clinic
	templates  []*ComplaintTemplate
	medicines  []string
	nextID     int64
	lastLimit  int
	lastPrefix string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		services: make(map[int64]*BillableService),
		doctors:  make(map[int64]*Doctor),
	}
}

func (m *mockRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepo) CreateService(_ context.Context, in ServiceInput) (*BillableService, error) {
	s := &BillableService{ID: m.id(), Name: in.Name, DefaultPrice: in.DefaultPrice, RequiresTime: in.RequiresTime}
	m.services[s.ID] = s
	return s, nil
}

func (m *mockRepo) GetService(_ context.Context, id int64) (*BillableService, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) ServiceByName(_ context.Context, name string) (*BillableService, error) {
	for _, s := range m.services {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListServices(context.Context) ([]*BillableService, error) {
	var out []*BillableService
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) UpdateService(_ context.Context, id int64, in ServiceInput) (*BillableService, error) {
	if _, ok := m.services[id]; !ok {
		return nil, ErrNotFound
	}
	s := &BillableService{ID: id, Name: in.Name, DefaultPrice: in.DefaultPrice, RequiresTime: in.RequiresTime}
	m.services[id] = s
	return s, nil
}

func (m *mockRepo) DeleteService(_ context.Context, id int64) error {
	if _, ok := m.services[id]; !ok {
		return ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *mockRepo) CreateDoctor(_ context.Context, in DoctorInput) (*Doctor, error) {
	d := &Doctor{ID: m.id(), Name: in.Name, Speciality: in.Speciality, ContactNumber: in.ContactNumber, ClinicID: in.ClinicID}
	m.doctors[d.ID] = d
	return d, nil
}

func (m *mockRepo) GetDoctor(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) DoctorByName(_ context.Context, name string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListDoctors(_ context.Context, clinicID int64) ([]*Doctor, error) {
	var out []*Doctor
	for _, d := range m.doctors {
		if clinicID > 0 && (d.ClinicID == nil || *d.ClinicID != clinicID) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepo) UpdateDoctor(_ context.Context, id int64, in DoctorInput) (*Doctor, error) {
	if _, ok := m.doctors[id]; !ok {
		return nil, ErrNotFound
	}
	d := &Doctor{ID: id, Name: in.Name, Speciality: in.Speciality, ContactNumber: in.ContactNumber, ClinicID: in.ClinicID}
	m.doctors[id] = d
	return d, nil
}

func (m *mockRepo) DeleteDoctor(_ context.Context, id int64) error {
	if _, ok := m.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

func (m *mockRepo) ListClinics(context.Context) ([]*Clinic, error) { return m.clinics, nil }

func (m *mockRepo) CreateComplaintTemplate(_ context.Context, in ComplaintTemplateInput) (int64, error) {
	now := time.Now()
	t := &ComplaintTemplate{ID: m.id(), Name: in.Name, Department: in.Department, Data: in.Data, CreatedAt: &now}
	m.templates = append([]*ComplaintTemplate{t}, m.templates...)
	return t.ID, nil
}

func (m *mockRepo) ListComplaintTemplates(_ context.Context, department string) ([]*ComplaintTemplate, error) {
	var out []*ComplaintTemplate
	for _, t := range m.templates {
		if department == "" || t.Department == department {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepo) MedicineNames(_ context.Context, prefix string, limit int) ([]string, error) {
	m.lastPrefix, m.lastLimit = prefix, limit
	var out []string
	for _, n := range m.medicines {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(prefix)) && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}
