package pharmacy

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/medassist/clinic/internal/platform/events"
	"github.com/medassist/clinic/pkg/pagination"
)

type mockRepo struct {
	medicines map[int64]*Medicine
	bills     map[int64]*Bill
	inUse     map[int64]bool
	nextID    int64
	billDate  time.Time
	lastPage  pagination.Params
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		medicines: make(map[int64]*Medicine),
		bills:     make(map[int64]*Bill),
		inUse:     make(map[int64]bool),
		billDate:  time.Date(2026, 3, 14, 20, 15, 0, 0, time.UTC),
	}
}

func (m *mockRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepo) sorted(keep func(*Medicine) bool, less func(a, b *Medicine) bool) []*Medicine {
	var out []*Medicine
	for _, med := range m.medicines {
		if keep(med) {
			cp := *med
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byName(a, b *Medicine) bool { return a.Name < b.Name }

func (m *mockRepo) CreateMedicine(_ context.Context, in MedicineInput) (*Medicine, error) {
	med := &Medicine{ID: m.id(), Name: in.Name, Manufacturer: in.Manufacturer, Quantity: in.Quantity, DefaultPrice: in.DefaultPrice}
	m.medicines[med.ID] = med
	cp := *med
	return &cp, nil
}

func (m *mockRepo) GetMedicine(_ context.Context, id int64) (*Medicine, error) {
	med, ok := m.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *med
	return &cp, nil
}

func (m *mockRepo) ListMedicines(context.Context) ([]*Medicine, error) {
	return m.sorted(func(*Medicine) bool { return true }, byName), nil
}

func (m *mockRepo) UpdateMedicine(_ context.Context, id int64, in MedicineInput) (*Medicine, error) {
	if _, ok := m.medicines[id]; !ok {
		return nil, ErrNotFound
	}
	m.medicines[id] = &Medicine{ID: id, Name: in.Name, Manufacturer: in.Manufacturer, Quantity: in.Quantity, DefaultPrice: in.DefaultPrice}
	return m.GetMedicine(context.Background(), id)
}

func (m *mockRepo) DeleteMedicine(_ context.Context, id int64) error {
	if _, ok := m.medicines[id]; !ok {
		return ErrNotFound
	}
	if m.inUse[id] {
		return ErrInUse
	}
	delete(m.medicines, id)
	return nil
}

func (m *mockRepo) AdjustQuantity(_ context.Context, id int64, delta int) (*Medicine, error) {
	med, ok := m.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	if med.Quantity+delta < 0 {
		return nil, ErrInsufficientStock
	}
	med.Quantity += delta
	cp := *med
	return &cp, nil
}

func (m *mockRepo) SearchMedicines(_ context.Context, query string) ([]*Medicine, error) {
	q := strings.ToLower(query)
	return m.sorted(func(med *Medicine) bool {
		return strings.Contains(strings.ToLower(med.Name), q) || strings.Contains(strings.ToLower(med.Manufacturer), q)
	}, byName), nil
}

func (m *mockRepo) LowStock(_ context.Context, threshold int) ([]*Medicine, error) {
	return m.sorted(func(med *Medicine) bool {
		return med.Quantity > 0 && med.Quantity <= threshold
	}, func(a, b *Medicine) bool { return a.Quantity < b.Quantity }), nil
}

func (m *mockRepo) CreateBill(_ context.Context, b *Bill) error {
	b.ID = m.id()
	b.BillDate = m.billDate
	m.bills[b.ID] = b
	return nil
}

func (m *mockRepo) AddItem(_ context.Context, _ int64, it *BillItem) error {
	it.ID = m.id()
	return nil
}

func (m *mockRepo) GetBill(_ context.Context, id int64) (*Bill, error) {
	b, ok := m.bills[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockRepo) billsWhere(keep func(*Bill) bool) []*Bill {
	var out []*Bill
	for _, b := range m.bills {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *mockRepo) RecentBills(_ context.Context, p pagination.Params) ([]*Bill, error) {
	m.lastPage = p
	out := m.billsWhere(func(*Bill) bool { return true })
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (m *mockRepo) BillsByStatus(_ context.Context, status string, p pagination.Params) ([]*Bill, error) {
	m.lastPage = p
	return m.billsWhere(func(b *Bill) bool { return b.PaymentStatus == status }), nil
}

func (m *mockRepo) BillsByPatient(_ context.Context, patientID int64) ([]*Bill, error) {
	return m.billsWhere(func(b *Bill) bool { return b.PatientID != nil && *b.PatientID == patientID }), nil
}

// mockTx restores stock levels and bills when fn fails.
type mockTx struct{ repo *mockRepo }

func (t *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	stock := make(map[int64]int, len(t.repo.medicines))
	for id, med := range t.repo.medicines {
		stock[id] = med.Quantity
	}
	bills := make(map[int64]*Bill, len(t.repo.bills))
	for id, b := range t.repo.bills {
		bills[id] = b
	}
	if err := fn(ctx); err != nil {
		for id, q := range stock {
			t.repo.medicines[id].Quantity = q
		}
		t.repo.bills = bills
		return err
	}
	return nil
}

type recordingPublisher struct{ events []events.Event }

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}
