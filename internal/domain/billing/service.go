package billing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/clinic/internal/domain/catalog"
	"github.com/medassist/clinic/internal/domain/patient"
	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/internal/platform/document"
	"github.com/medassist/clinic/internal/platform/events"
)

// Catalog resolves bill rows to catalogue entries. *catalog.Service
// satisfies it.
type Catalog interface {
	ServiceByName(ctx context.Context, name string) (*catalog.BillableService, error)
	DoctorByName(ctx context.Context, name string) (*catalog.Doctor, error)
}

type PatientReader interface {
	Get(ctx context.Context, id int64) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	catalog  Catalog
	patients PatientReader
	tx       db.TxRunner
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger

	clinic    Clinic
	renderer  *document.Renderer
	publisher events.Publisher
}

func NewService(repo Repository, cat Catalog, patients PatientReader, tx db.TxRunner, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		catalog:   cat,
		patients:  patients,
		tx:        tx,
		loc:       loc,
		now:       time.Now,
		log:       log,
		clinic:    Clinic{Name: "Clinic"},
		renderer:  document.NewRenderer(),
		publisher: events.NopPublisher{},
	}
}

// SetClinic sets the letterhead printed on receipts.
func (s *Service) SetClinic(c Clinic) {
	if c.Name != "" {
		s.clinic = c
	}
}

func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// -- Bills --

// CreateBill stores the bill and its items and renders the receipt in
// one transaction. A missing patient, service or doctor aborts the whole
// bill.
func (s *Service) CreateBill(ctx context.Context, req CreateBillRequest) (*Bill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var bill *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.Get(ctx, req.PatientID)
		if err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				return notFound("Patient")
			}
			return err
		}

		bill = &Bill{
			PatientID:     req.PatientID,
			PaymentMode:   req.PaymentDetails.Mode,
			PaymentStatus: req.PaymentDetails.Status,
			TotalAmount:   req.PaymentDetails.Total,
			Items:         make([]*BillItem, 0, len(req.Rows)),
		}
		if err := s.repo.CreateBill(ctx, bill); err != nil {
			return err
		}

		for _, row := range req.Rows {
			item, err := s.resolve(ctx, row)
			if err != nil {
				return err
			}
			if err := s.repo.AddItem(ctx, bill.ID, item); err != nil {
				return err
			}
			bill.Items = append(bill.Items, item)
		}

		doc := BuildReceipt(s.clinic, bill, ReceiptPatient{
			Name:    p.Name,
			Age:     p.Age,
			Gender:  p.Gender,
			Contact: p.ContactNumber,
		}, req.Rows, s.loc)
		pdf, err := s.renderer.Render(doc)
		if err != nil {
			return fmt.Errorf("render bill receipt: %w", err)
		}
		bill.PDFBase64 = base64.StdEncoding.EncodeToString(pdf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("bill_id", bill.ID).Int64("patient_id", bill.PatientID).
		Int("items", len(bill.Items)).Msg("bill created")
	events.Emit(ctx, s.publisher, s.log, events.Event{
		Type:       events.BillCreated,
		PatientID:  bill.PatientID,
		Ref:        bill.ID,
		OccurredAt: s.now().UTC(),
	})
	return bill, nil
}

func (s *Service) resolve(ctx context.Context, row BillRow) (*BillItem, error) {
	svc, err := s.catalog.ServiceByName(ctx, row.Service)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("Service '%s'", row.Service))
		}
		return nil, err
	}
	doc, err := s.catalog.DoctorByName(ctx, row.Doctor)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, notFound(fmt.Sprintf("Doctor '%s'", row.Doctor))
		}
		return nil, err
	}
	date, tm := row.AppointmentDate, row.AppointmentTime
	return &BillItem{
		ServiceID:       svc.ID,
		DoctorID:        doc.ID,
		AppointmentDate: &date,
		AppointmentTime: &tm,
		Duration:        row.duration(),
		Price:           row.Price,
		Discount:        row.Discount,
		NetAmount:       row.NetAmount(),
	}, nil
}

func (s *Service) GetBill(ctx context.Context, id int64) (*Bill, error) {
	return s.repo.GetBill(ctx, id)
}

func (s *Service) ListPatientBills(ctx context.Context, patientID int64) ([]*Bill, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, notFound("Patient")
		}
		return nil, err
	}
	out, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Bill{}
	}
	return out, nil
}

func (s *Service) DeleteBill(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBill(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("bill_id", id).Msg("bill deleted")
	return nil
}

// -- Appointments --

func (s *Service) CreateAppointment(ctx context.Context, in AppointmentInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	return s.repo.CreateAppointment(ctx, in)
}

// Appointments returns the book for date (YYYY-MM-DD, today in the clinic
// zone when empty): walk-ins plus time-slotted bill items, ordered by
// slot with untimed entries first.
func (s *Service) Appointments(ctx context.Context, date string, f SlotFilter) (*Schedule, error) {
	var day time.Time
	if date = strings.TrimSpace(date); date == "" {
		day = s.today()
	} else {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, invalid("date must be YYYY-MM-DD")
		}
		day = d
	}

	var walkIns, booked []*Slot
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if walkIns, err = s.repo.Appointments(ctx, day); err != nil {
			return err
		}
		booked, err = s.repo.BookedServices(ctx, day, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	merged := make([]*Slot, 0, len(walkIns)+len(booked))
	merged = append(append(merged, walkIns...), booked...)
	sort.SliceStable(merged, func(i, j int) bool {
		return slotKey(merged[i]) < slotKey(merged[j])
	})
	return &Schedule{Date: day.Format(dateLayout), Appointments: merged}, nil
}

func (s *Service) TodayAppointments(ctx context.Context, f SlotFilter) (*Schedule, error) {
	return s.Appointments(ctx, "", f)
}

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func slotKey(s *Slot) string {
	if s.AppointmentTime == nil {
		return ""
	}
	return *s.AppointmentTime
}
