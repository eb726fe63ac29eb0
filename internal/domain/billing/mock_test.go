package billing

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/medassist/clinic/internal/domain/catalog"
	"github.com/medassist/clinic/internal/domain/patient"
	"github.com/medassist/clinic/internal/platform/events"
)

// -- Repository --

type mockRepo struct {
	bills        map[int64]*Bill
	appointments []AppointmentInput
	walkIns      []*Slot
	booked       []*Slot
	lastFilter   SlotFilter
	lastDay      time.Time
	billDate     time.Time
	nextID       int64
	failItem     bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		bills:    make(map[int64]*Bill),
		billDate: time.Date(2026, 3, 14, 4, 30, 0, 0, time.UTC),
	}
}

func (m *mockRepo) CreateBill(_ context.Context, b *Bill) error {
	m.nextID++
	b.ID = m.nextID
	b.BillDate = m.billDate
	cp := *b
	cp.Items = nil
	m.bills[b.ID] = &cp
	return nil
}

func (m *mockRepo) AddItem(_ context.Context, billID int64, it *BillItem) error {
	if m.failItem {
		return errors.New("insert bill item: connection reset")
	}
	b, ok := m.bills[billID]
	if !ok {
		return errors.New("no such bill")
	}
	m.nextID++
	it.ID = m.nextID
	b.Items = append(b.Items, it)
	return nil
}

func (m *mockRepo) GetBill(_ context.Context, id int64) (*Bill, error) {
	b, ok := m.bills[id]
	if !ok {
		return nil, notFound("Bill")
	}
	return b, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID int64) ([]*Bill, error) {
	var out []*Bill
	for _, b := range m.bills {
		if b.PatientID == patientID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepo) DeleteBill(_ context.Context, id int64) error {
	if _, ok := m.bills[id]; !ok {
		return notFound("Bill")
	}
	delete(m.bills, id)
	return nil
}

func (m *mockRepo) CreateAppointment(_ context.Context, in AppointmentInput) (int64, error) {
	m.appointments = append(m.appointments, in)
	return int64(len(m.appointments)), nil
}

func (m *mockRepo) Appointments(_ context.Context, day time.Time) ([]*Slot, error) {
	m.lastDay = day
	return m.walkIns, nil
}

func (m *mockRepo) BookedServices(_ context.Context, day time.Time, f SlotFilter) ([]*Slot, error) {
	m.lastDay, m.lastFilter = day, f
	return m.booked, nil
}

// mockTx drops bills created inside a failed transaction.
type mockTx struct {
	repo  *mockRepo
	calls int
}

func (t *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	before := make(map[int64]*Bill, len(t.repo.bills))
	for k, v := range t.repo.bills {
		before[k] = v
	}
	if err := fn(ctx); err != nil {
		t.repo.bills = before
		return err
	}
	return nil
}

// -- Catalog and patients --

type mockCatalog struct {
	services map[string]*catalog.BillableService
	doctors  map[string]*catalog.Doctor
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		services: map[string]*catalog.BillableService{
			"Consultation": {ID: 1, Name: "Consultation", DefaultPrice: 500, RequiresTime: true},
			"ECG":          {ID: 2, Name: "ECG", DefaultPrice: 300},
		},
		doctors: map[string]*catalog.Doctor{
			"Dr. Rao": {ID: 10, Name: "Dr. Rao", Speciality: "Cardiology"},
		},
	}
}

func (m *mockCatalog) ServiceByName(_ context.Context, name string) (*catalog.BillableService, error) {
	s, ok := m.services[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return s, nil
}

func (m *mockCatalog) DoctorByName(_ context.Context, name string) (*catalog.Doctor, error) {
	d, ok := m.doctors[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return d, nil
}

type mockPatients map[int64]*patient.Patient

func (m mockPatients) Get(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type recordingPublisher struct{ events []events.Event }

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}
