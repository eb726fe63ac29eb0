package pharmacy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/internal/platform/document"
	"github.com/medassist/clinic/internal/platform/events"
	"github.com/medassist/clinic/pkg/pagination"
)

type Service struct {
	repo Repository
	tx   db.TxRunner
	loc  *time.Location
	now  func() time.Time
	log  zerolog.Logger

	letterhead Letterhead
	renderer   *document.Renderer
	publisher  events.Publisher
}

func NewService(repo Repository, tx db.TxRunner, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:       repo,
		tx:         tx,
		loc:        loc,
		now:        time.Now,
		log:        log,
		letterhead: Letterhead{Name: "Pharmacy"},
		renderer:   document.NewRenderer(),
		publisher:  events.NopPublisher{},
	}
}

func (s *Service) SetLetterhead(lh Letterhead) {
	if lh.Name != "" {
		s.letterhead = lh
	}
}

func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func medicineNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Msg: "Medicine not found"}
	}
	return err
}

// -- Inventory --

func (s *Service) CreateMedicine(ctx context.Context, in MedicineInput) (*Medicine, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.CreateMedicine(ctx, in)
}

func (s *Service) GetMedicine(ctx context.Context, id int64) (*Medicine, error) {
	m, err := s.repo.GetMedicine(ctx, id)
	return m, medicineNotFound(err)
}

func (s *Service) ListMedicines(ctx context.Context) ([]*Medicine, error) {
	return nonNil(s.repo.ListMedicines(ctx))
}

func (s *Service) UpdateMedicine(ctx context.Context, id int64, in MedicineInput) (*Medicine, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m, err := s.repo.UpdateMedicine(ctx, id, in)
	return m, medicineNotFound(err)
}

func (s *Service) DeleteMedicine(ctx context.Context, id int64) error {
	err := s.repo.DeleteMedicine(ctx, id)
	if errors.Is(err, ErrInUse) {
		return invalid("Medicine is referenced by pharmacy bills and cannot be deleted")
	}
	return medicineNotFound(err)
}

// AdjustQuantity applies a signed stock change.
func (s *Service) AdjustQuantity(ctx context.Context, id int64, delta int) (*Medicine, error) {
	m, err := s.repo.AdjustQuantity(ctx, id, delta)
	if errors.Is(err, ErrInsufficientStock) {
		return nil, invalid("Cannot reduce quantity below zero")
	}
	if err != nil {
		return nil, medicineNotFound(err)
	}
	s.log.Info().Int64("medicine_id", id).Int("delta", delta).Int("quantity", m.Quantity).Msg("stock adjusted")
	return m, nil
}

func (s *Service) SearchMedicines(ctx context.Context, query string) ([]*Medicine, error) {
	return nonNil(s.repo.SearchMedicines(ctx, strings.TrimSpace(query)))
}

// LowStock lists medicines with 0 < quantity <= threshold, scarcest first.
// A non-positive threshold means the default of 10.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	if threshold <= 0 {
		threshold = defaultLowStock
	}
	return nonNil(s.repo.LowStock(ctx, threshold))
}

func nonNil(out []*Medicine, err error) ([]*Medicine, error) {
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Medicine{}
	}
	return out, nil
}

// -- Bills --

// CreateBill records the sale and draws each line down from stock in one
// transaction. An unknown medicine or a line that would oversell rolls the
// whole bill back.
func (s *Service) CreateBill(ctx context.Context, req CreateBillRequest) (*Bill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.Patient
	bill := &Bill{
		PatientID:     p.ID,
		PatientName:   p.Name,
		PatientAge:    p.Age,
		PatientGender: p.Gender,
		PatientPhone:  p.Phone,
		PaymentMode:   req.Payment.Mode,
		PaymentStatus: req.Payment.Status,
		TotalAmount:   req.Payment.Total,
		Items:         make([]*BillItem, 0, len(req.Items)),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateBill(ctx, bill); err != nil {
			return err
		}
		for _, line := range req.Items {
			if _, err := s.repo.AdjustQuantity(ctx, line.MedicineID, -line.Quantity); err != nil {
				switch {
				case errors.Is(err, ErrNotFound):
					return &NotFoundError{Msg: fmt.Sprintf("Medicine with ID %d not found", line.MedicineID)}
				case errors.Is(err, ErrInsufficientStock):
					return invalid("Insufficient stock for " + line.Name)
				}
				return err
			}
			item := &BillItem{
				MedicineID:         line.MedicineID,
				MedicineName:       line.Name,
				Quantity:           line.Quantity,
				PricePerUnit:       line.Price,
				DiscountPercentage: line.Discount,
				ItemTotal:          line.Total(),
			}
			if err := s.repo.AddItem(ctx, bill.ID, item); err != nil {
				return err
			}
			bill.Items = append(bill.Items, item)
		}

		pdf, err := s.renderer.Render(BuildReceipt(s.letterhead, bill, s.loc))
		if err != nil {
			return fmt.Errorf("render pharmacy receipt: %w", err)
		}
		bill.PDFBase64 = base64.StdEncoding.EncodeToString(pdf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("pharmacy_bill_id", bill.ID).Int("items", len(bill.Items)).Msg("pharmacy bill created")
	ev := events.Event{Type: events.PharmacyBillCreated, Ref: bill.ID, OccurredAt: s.now().UTC()}
	if bill.PatientID != nil {
		ev.PatientID = *bill.PatientID
	}
	events.Emit(ctx, s.publisher, s.log, ev)
	return bill, nil
}

func billNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Msg: "Pharmacy bill not found"}
	}
	return err
}

func (s *Service) GetBill(ctx context.Context, id int64) (*Bill, error) {
	b, err := s.repo.GetBill(ctx, id)
	return b, billNotFound(err)
}

// PDF renders the receipt of a stored bill.
func (s *Service) PDF(ctx context.Context, id int64) ([]byte, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, billNotFound(err)
	}
	return s.renderer.Render(BuildReceipt(s.letterhead, b, s.loc))
}

func (s *Service) RecentBills(ctx context.Context, p pagination.Params) ([]*Bill, error) {
	if p.Limit <= 0 {
		p.Limit = defaultRecentLimit
	}
	return nonNilBills(s.repo.RecentBills(ctx, p))
}

func (s *Service) BillsByStatus(ctx context.Context, status string, p pagination.Params) ([]*Bill, error) {
	if p.Limit <= 0 {
		p.Limit = defaultStatusLimit
	}
	return nonNilBills(s.repo.BillsByStatus(ctx, strings.TrimSpace(status), p))
}

func (s *Service) BillsByPatient(ctx context.Context, patientID int64) ([]*Bill, error) {
	return nonNilBills(s.repo.BillsByPatient(ctx, patientID))
}

func nonNilBills(out []*Bill, err error) ([]*Bill, error) {
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Bill{}
	}
	return out, nil
}
