package pharmacy

import (
	"context"

	"github.com/medassist/clinic/pkg/pagination"
)

type Repository interface {
	CreateMedicine(ctx context.Context, in MedicineInput) (*Medicine, error)
	GetMedicine(ctx context.Context, id int64) (*Medicine, error)
	ListMedicines(ctx context.Context) ([]*Medicine, error)
	UpdateMedicine(ctx context.Context, id int64, in MedicineInput) (*Medicine, error)
	// DeleteMedicine returns ErrInUse while bill items reference the row.
	DeleteMedicine(ctx context.Context, id int64) error
	// AdjustQuantity adds delta to the stock. It returns ErrNotFound or
	// ErrInsufficientStock and leaves the row unchanged on either.
	AdjustQuantity(ctx context.Context, id int64, delta int) (*Medicine, error)
	SearchMedicines(ctx context.Context, query string) ([]*Medicine, error)
	LowStock(ctx context.Context, threshold int) ([]*Medicine, error)

	CreateBill(ctx context.Context, b *Bill) error
	AddItem(ctx context.Context, billID int64, item *BillItem) error
	GetBill(ctx context.Context, id int64) (*Bill, error)
	RecentBills(ctx context.Context, p pagination.Params) ([]*Bill, error)
	BillsByStatus(ctx context.Context, status string, p pagination.Params) ([]*Bill, error)
	BillsByPatient(ctx context.Context, patientID int64) ([]*Bill, error)
}
