package billing

import (
	"context"
	"time"
)

type Repository interface {
	// CreateBill inserts the header and sets ID and BillDate.
	CreateBill(ctx context.Context, b *Bill) error
	AddItem(ctx context.Context, billID int64, item *BillItem) error
	GetBill(ctx context.Context, id int64) (*Bill, error)
	// ListByPatient returns bills newest first, each with its items.
	ListByPatient(ctx context.Context, patientID int64) ([]*Bill, error)
	DeleteBill(ctx context.Context, id int64) error

	CreateAppointment(ctx context.Context, in AppointmentInput) (int64, error)
	Appointments(ctx context.Context, day time.Time) ([]*Slot, error)
	// BookedServices lists bill items on day whose service requires a time slot.
	BookedServices(ctx context.Context, day time.Time, f SlotFilter) ([]*Slot, error)
}
