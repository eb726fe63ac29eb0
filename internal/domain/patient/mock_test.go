package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/medassist/clinic/internal/platform/events"
)

// -- Mock Repository --

type storedComplaint struct {
	patientID, versionID int64
	Complaint
}

type mockRepo struct {
	patients   map[int64]Patient
	versions   map[int64]Version
	complaints []storedComplaint
	nextID     int64

	failComplaints bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[int64]Patient),
		versions: make(map[int64]Version),
	}
}

func (m *mockRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepo) clone() *mockRepo {
	c := newMockRepo()
	for k, v := range m.patients {
		c.patients[k] = v
	}
	for k, v := range m.versions {
		c.versions[k] = v
	}
	c.complaints = append(c.complaints, m.complaints...)
	c.nextID = m.nextID
	return c
}

func (m *mockRepo) restore(from *mockRepo) {
	m.patients, m.versions, m.complaints, m.nextID = from.patients, from.versions, from.complaints, from.nextID
}

func (m *mockRepo) Create(_ context.Context, r *Record) (*Patient, error) {
	p := Patient{ID: m.id(), Record: *r, CreatedAt: time.Now()}
	m.patients[p.ID] = p
	return &p, nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *mockRepo) UpdateSnapshot(_ context.Context, id int64, r *Record) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.Record = *r
	m.patients[id] = p
	return nil
}

func (m *mockRepo) SetFinalChoices(_ context.Context, id int64, fc FinalChoices) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.applyFinalChoices(fc)
	m.patients[id] = p
	return nil
}

func (m *mockRepo) Search(_ context.Context, sp SearchParams) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.patients {
		if sp.ID != nil && p.ID != *sp.ID {
			continue
		}
		if sp.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(sp.Name)) {
			continue
		}
		if sp.Age > 0 && p.Age != sp.Age {
			continue
		}
		if sp.Gender != "" && sp.Gender != "Select Gender" && p.Gender != sp.Gender {
			continue
		}
		if sp.Contact != "" && !strings.Contains(p.ContactNumber, sp.Contact) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepo) InsertVersion(_ context.Context, patientID int64, at time.Time, r *Record) (int64, error) {
	v := Version{ID: m.id(), PatientID: patientID, Timestamp: at, Record: *r}
	m.versions[v.ID] = v
	return v.ID, nil
}

func (m *mockRepo) sortedVersions(patientID int64) []*Version {
	var out []*Version
	for _, v := range m.versions {
		if v.PatientID == patientID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *mockRepo) LatestVersion(_ context.Context, patientID int64) (*Version, error) {
	vs := m.sortedVersions(patientID)
	if len(vs) == 0 {
		return nil, ErrNotFound
	}
	return vs[0], nil
}

func (m *mockRepo) AmendFinalChoices(_ context.Context, versionID int64, fc FinalChoices) error {
	v, ok := m.versions[versionID]
	if !ok {
		return ErrNotFound
	}
	v.applyFinalChoices(fc)
	m.versions[versionID] = v
	return nil
}

func (m *mockRepo) ListVersions(_ context.Context, patientID int64) ([]*Version, error) {
	return m.sortedVersions(patientID), nil
}

func (m *mockRepo) GetVersion(_ context.Context, id int64) (*Version, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *mockRepo) InsertComplaints(_ context.Context, patientID, versionID int64, cs []Complaint) error {
	if m.failComplaints && len(cs) > 0 {
		return errors.New("insert complaint: connection reset")
	}
	for _, c := range cs {
		m.complaints = append(m.complaints, storedComplaint{patientID, versionID, c})
	}
	return nil
}

func (m *mockRepo) ListComplaints(_ context.Context, versionID int64) ([]Complaint, error) {
	var out []Complaint
	for _, c := range m.complaints {
		if c.versionID == versionID {
			out = append(out, c.Complaint)
		}
	}
	return out, nil
}

// -- Mock Transactions --

// mockTx restores the repository when fn fails.
type mockTx struct {
	repo  *mockRepo
	calls int
}

func (t *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	saved := t.repo.clone()
	if err := fn(ctx); err != nil {
		t.repo.restore(saved)
		return err
	}
	return nil
}

// -- Recording publisher --

type recordingPublisher struct{ events []events.Event }

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func testCtx() context.Context { return context.Background() }
