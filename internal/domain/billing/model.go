// Package billing records service bills with their line items and
// keeps the day's appointment book, merging walk-in appointments with
// bill items for services that are booked against a time slot.
package billing

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// NotFoundError names the missing record. It matches ErrNotFound.
type NotFoundError struct{ What string }

func (e *NotFoundError) Error() string        { return e.What + " not found" }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(what string) error { return &NotFoundError{What: what} }

// ValidationError is reported to the client as a 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"

	defaultPaymentMode   = "cash"
	defaultPaymentStatus = "paid"
	defaultDuration      = 30
)

// -- Bills --

type PaymentDetails struct {
	Mode   string  `json:"mode"`
	Status string  `json:"status"`
	Total  float64 `json:"total"`
}

// BillRow is one requested line. Service and doctor are referenced by name.
type BillRow struct {
	Service         string  `json:"service"`
	Doctor          string  `json:"doctor"`
	AppointmentDate string  `json:"appointmentDate"`
	AppointmentTime string  `json:"appointmentTime"`
	Duration        *int    `json:"duration"`
	Price           float64 `json:"price"`
	Discount        float64 `json:"discount"`
}

// NetAmount is the price less the percentage discount.
func (r BillRow) NetAmount() float64 {
	return r.Price - r.DiscountAmount()
}

func (r BillRow) DiscountAmount() float64 {
	return r.Price * r.Discount / 100
}

func (r BillRow) duration() int {
	if r.Duration == nil {
		return defaultDuration
	}
	return *r.Duration
}

type CreateBillRequest struct {
	PatientID      int64          `json:"patient_id"`
	Rows           []BillRow      `json:"rows"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
}

// Validate checks the request shape and fills payment defaults. Rows are
// checked before any lookup so a malformed time never reaches the store.
func (r *CreateBillRequest) Validate() error {
	if r.PatientID <= 0 {
		return invalid("patient_id is required")
	}
	pd := &r.PaymentDetails
	if pd.Mode = strings.TrimSpace(pd.Mode); pd.Mode == "" {
		pd.Mode = defaultPaymentMode
	}
	if pd.Status = strings.TrimSpace(pd.Status); pd.Status == "" {
		pd.Status = defaultPaymentStatus
	}
	for i := range r.Rows {
		row := &r.Rows[i]
		row.Service = strings.TrimSpace(row.Service)
		row.Doctor = strings.TrimSpace(row.Doctor)
		if row.Service == "" || row.Doctor == "" {
			return invalid("each row needs a service and a doctor")
		}
		if _, err := time.Parse(dateLayout, row.AppointmentDate); err != nil {
			return invalid("appointmentDate must be YYYY-MM-DD")
		}
		if _, err := time.Parse(slotLayout, row.AppointmentTime); err != nil {
			return invalid("appointmentTime must be HH:MM")
		}
		if row.Price < 0 {
			return invalid("price must not be negative")
		}
		if row.Discount < 0 || row.Discount > 100 {
			return invalid("discount must be between 0 and 100")
		}
		if row.Duration != nil && *row.Duration <= 0 {
			return invalid("duration must be positive")
		}
	}
	return nil
}

type BillItem struct {
	ID              int64   `json:"id"`
	ServiceID       int64   `json:"service_id"`
	DoctorID        int64   `json:"doctor_id"`
	AppointmentDate *string `json:"appointment_date"`
	AppointmentTime *string `json:"appointment_time"`
	Duration        int     `json:"duration"`
	Price           float64 `json:"price"`
	Discount        float64 `json:"discount"`
	NetAmount       float64 `json:"net_amount"`
}

type Bill struct {
	ID            int64       `json:"id"`
	PatientID     int64       `json:"patient_id"`
	BillDate      time.Time   `json:"bill_date"`
	PaymentMode   string      `json:"payment_mode"`
	PaymentStatus string      `json:"payment_status"`
	TotalAmount   float64     `json:"total_amount"`
	Items         []*BillItem `json:"items"`
	PDFBase64     string      `json:"pdf_base64,omitempty"`
}

// -- Appointments --

type AppointmentInput struct {
	PatientName     string `json:"patient_name"`
	Age             *int   `json:"age"`
	Gender          string `json:"gender"`
	ContactNumber   string `json:"contact_number"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// Validate accepts HH:MM or HH:MM:SS and normalises the time to HH:MM:SS.
func (in *AppointmentInput) Validate() error {
	if in.PatientName = strings.TrimSpace(in.PatientName); in.PatientName == "" {
		return invalid("Missing field: patient_name")
	}
	if _, err := time.Parse(dateLayout, in.AppointmentDate); err != nil {
		return invalid("appointment_date must be YYYY-MM-DD")
	}
	t, err := parseClock(in.AppointmentTime)
	if err != nil {
		return invalid("appointment_time must be HH:MM")
	}
	in.AppointmentTime = t.Format("15:04:05")
	if in.Age != nil && *in.Age < 0 {
		return invalid("age must not be negative")
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(slotLayout, s)
}

// Slot is one entry of the appointment book. Walk-in appointments carry no
// patient id, service or doctor.
type Slot struct {
	ID              int64   `json:"id"`
	AppointmentTime *string `json:"appointment_time"`
	PatientName     string  `json:"patient_name"`
	PatientID       *int64  `json:"patient_id"`
	ServiceName     *string `json:"service_name"`
	DoctorName      *string `json:"doctor_name"`
}

// SlotFilter narrows the billed side of the book. DoctorID wins over ClinicID.
type SlotFilter struct {
	ClinicID int64
	DoctorID int64
}

type Schedule struct {
	Date         string  `json:"date"`
	Appointments []*Slot `json:"appointments"`
}
