package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/medassist/clinic/internal/domain/patient"
	"github.com/medassist/clinic/internal/platform/events"
)

// -- Mock Repository --

type mockRepo struct {
	lines     []*StoredLine
	patientOf map[int64]int64
	urls      map[int64]string
	templates []*Template
	known     map[int64]bool
	nextID    int64

	failURL bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patientOf: make(map[int64]int64),
		urls:      make(map[int64]string),
		known:     make(map[int64]bool),
	}
}

func (m *mockRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepo) InsertMedicines(_ context.Context, patientID int64, versionID *int64, lines []MedicineLine) error {
	for _, l := range lines {
		s := &StoredLine{ID: m.id(), VersionID: versionID, MedicineLine: l, CreatedAt: time.Now()}
		m.lines = append(m.lines, s)
		m.patientOf[s.ID] = patientID
	}
	return nil
}

func (m *mockRepo) SetGeneratedURL(_ context.Context, patientID int64, url string) error {
	if m.failURL {
		return errors.New("update patient_info: connection reset")
	}
	if !m.known[patientID] {
		return ErrNotFound
	}
	m.urls[patientID] = url
	return nil
}

func (m *mockRepo) ListLines(_ context.Context, patientID int64) ([]*StoredLine, error) {
	var out []*StoredLine
	for _, l := range m.lines {
		if m.patientOf[l.ID] == patientID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateTemplate(_ context.Context, name string, data map[string]any) (int64, error) {
	now := time.Now()
	t := &Template{ID: m.id(), Name: name, Data: data, CreatedAt: &now}
	m.templates = append([]*Template{t}, m.templates...)
	return t.ID, nil
}

func (m *mockRepo) ListTemplates(context.Context) ([]*Template, error) {
	return m.templates, nil
}

// -- Mock Transactions --

type mockTx struct {
	repo  *mockRepo
	calls int
}

func (t *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	lines := append([]*StoredLine(nil), t.repo.lines...)
	if err := fn(ctx); err != nil {
		t.repo.lines = lines
		return err
	}
	return nil
}

// -- Patients --

type mockPatients struct {
	patients map[int64]*patient.Patient
	latest   map[int64]*patient.Version
}

func newMockPatients() *mockPatients {
	return &mockPatients{
		patients: make(map[int64]*patient.Patient),
		latest:   make(map[int64]*patient.Version),
	}
}

func (m *mockPatients) Get(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatients) LatestVersion(_ context.Context, id int64) (*patient.Version, error) {
	v, ok := m.latest[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return v, nil
}

// -- Recording publisher --

type recordingPublisher struct{ events []events.Event }

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func testCtx() context.Context { return context.Background() }
