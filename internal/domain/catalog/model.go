// Package catalog holds the clinic's reference data: billable services,
// doctors and the clinics they work at, complaint templates and the
// medicine name list used for autocomplete.
package catalog

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrNotFound = errors.New("not found")

// ValidationError is reported to the client as a 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

const (
	maxNameLength     = 255
	defaultDepartment = "General Medicine"
	medicineLookupMax = 10
)

// -- Services --

// BillableService is a line item that can appear on a bill.
type BillableService struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	DefaultPrice float64 `json:"default_price"`
	RequiresTime bool    `json:"requires_time"`
}

type ServiceInput struct {
	Name         string  `json:"name"`
	DefaultPrice float64 `json:"default_price"`
	RequiresTime bool    `json:"requires_time"`
}

func (in *ServiceInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(in.Name); n < 1 || n > maxNameLength {
		return invalid("name must be between 1 and 255 characters")
	}
	if in.DefaultPrice <= 0 {
		return invalid("Price must be greater than zero")
	}
	return nil
}

// -- Doctors and clinics --

type Doctor struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Speciality    string  `json:"speciality"`
	ContactNumber *string `json:"contact_number"`
	ClinicID      *int64  `json:"clinic_id"`
}

type DoctorInput struct {
	Name          string  `json:"name"`
	Speciality    string  `json:"speciality"`
	ContactNumber *string `json:"contact_number"`
	ClinicID      *int64  `json:"clinic_id"`
}

func (in *DoctorInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Speciality = strings.TrimSpace(in.Speciality)
	if in.Name == "" {
		return invalid("Missing field: name")
	}
	if in.Speciality == "" {
		return invalid("Missing field: speciality")
	}
	return nil
}

type Clinic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// -- Complaint templates --

type ComplaintTemplate struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Department string          `json:"department"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  *time.Time      `json:"created_at"`
}

type ComplaintTemplateInput struct {
	Name       string          `json:"name"`
	Department string          `json:"department"`
	Data       json.RawMessage `json:"data"`
}

func (in *ComplaintTemplateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Department = strings.TrimSpace(in.Department); in.Department == "" {
		in.Department = defaultDepartment
	}
	if in.Name == "" || len(in.Data) == 0 || string(in.Data) == "null" {
		return invalid("Missing required fields")
	}
	return nil
}
