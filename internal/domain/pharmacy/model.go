// Package pharmacy manages the dispensary: the medicine inventory and the
// pharmacy bills that draw stock down from it.
package pharmacy

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock means a change would take a quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInUse means a medicine is still referenced by bill items.
	ErrInUse = errors.New("medicine is referenced by pharmacy bills")
)

// NotFoundError carries the client-facing message. It matches ErrNotFound.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string        { return e.Msg }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError is reported to the client as a 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

const (
	maxNameLength        = 255
	defaultLowStock      = 10
	defaultRecentLimit   = 10
	defaultStatusLimit   = 50
	defaultPaymentMode   = "cash"
	defaultPaymentStatus = "paid"
)

// -- Inventory --

type Medicine struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Manufacturer string     `json:"manufacturer"`
	Quantity     int        `json:"quantity"`
	DefaultPrice float64    `json:"default_price"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type MedicineInput struct {
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer"`
	Quantity     int     `json:"quantity"`
	DefaultPrice float64 `json:"default_price"`
}

func (in *MedicineInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Manufacturer = strings.TrimSpace(in.Manufacturer)
	if n := utf8.RuneCountInString(in.Name); n < 1 || n > maxNameLength {
		return invalid("name must be between 1 and 255 characters")
	}
	if in.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	if in.DefaultPrice < 0 {
		return invalid("default_price must not be negative")
	}
	return nil
}

// -- Bills --

// PatientSnapshot is copied onto the bill as entered; walk-in customers
// have no id.
type PatientSnapshot struct {
	ID     *int64  `json:"id"`
	Name   string  `json:"name"`
	Age    *int    `json:"age"`
	Gender *string `json:"gender"`
	Phone  string  `json:"phone"`
}

type Payment struct {
	Mode   string  `json:"mode"`
	Status string  `json:"status"`
	Total  float64 `json:"total"`
}

type BillLine struct {
	MedicineID int64   `json:"medicineId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Discount   float64 `json:"discount"`
}

// Total is quantity times price less the percentage discount.
func (l BillLine) Total() float64 {
	return float64(l.Quantity) * l.Price * (1 - l.Discount/100)
}

type CreateBillRequest struct {
	Patient PatientSnapshot `json:"patient"`
	Items   []BillLine      `json:"items"`
	Payment Payment         `json:"payment"`
}

func (r *CreateBillRequest) Validate() error {
	if r.Patient.Name = strings.TrimSpace(r.Patient.Name); r.Patient.Name == "" {
		return invalid("patient name is required")
	}
	if r.Payment.Mode = strings.TrimSpace(r.Payment.Mode); r.Payment.Mode == "" {
		r.Payment.Mode = defaultPaymentMode
	}
	if r.Payment.Status = strings.TrimSpace(r.Payment.Status); r.Payment.Status == "" {
		r.Payment.Status = defaultPaymentStatus
	}
	for i := range r.Items {
		it := &r.Items[i]
		it.Name = strings.TrimSpace(it.Name)
		switch {
		case it.MedicineID <= 0:
			return invalid("medicineId is required")
		case it.Quantity <= 0:
			return invalid("quantity must be positive")
		case it.Price < 0:
			return invalid("price must not be negative")
		case it.Discount < 0 || it.Discount > 100:
			return invalid("discount must be between 0 and 100")
		}
	}
	return nil
}

type BillItem struct {
	ID                 int64   `json:"id"`
	MedicineID         int64   `json:"medicine_id"`
	MedicineName       string  `json:"medicine_name"`
	Quantity           int     `json:"quantity"`
	PricePerUnit       float64 `json:"price_per_unit"`
	DiscountPercentage float64 `json:"discount_percentage"`
	ItemTotal          float64 `json:"item_total"`
}

type Bill struct {
	ID            int64       `json:"id"`
	PatientID     *int64      `json:"patient_id"`
	PatientName   string      `json:"patient_name"`
	PatientAge    *int        `json:"patient_age"`
	PatientGender *string     `json:"patient_gender"`
	PatientPhone  string      `json:"patient_phone"`
	BillDate      time.Time   `json:"bill_date"`
	PaymentMode   string      `json:"payment_mode"`
	PaymentStatus string      `json:"payment_status"`
	TotalAmount   float64     `json:"total_amount"`
	Items         []*BillItem `json:"items"`
	PDFBase64     string      `json:"pdf_base64,omitempty"`
}
