package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/pkg/pagination"
)

const foreignKeyViolation = "23503"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// =========== Inventory ===========

const medicineCols = `id, name, COALESCE(manufacturer, ''), quantity, default_price::float8, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	if err := row.Scan(&m.ID, &m.Name, &m.Manufacturer, &m.Quantity, &m.DefaultPrice, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) medicines(ctx context.Context, q string, args ...any) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repoPG) CreateMedicine(ctx context.Context, in MedicineInput) (*Medicine, error) {
	return scanMedicine(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicines_inventory (name, manufacturer, quantity, default_price)
		VALUES ($1, $2, $3, $4)
		RETURNING `+medicineCols, in.Name, in.Manufacturer, in.Quantity, in.DefaultPrice))
}

func (r *repoPG) GetMedicine(ctx context.Context, id int64) (*Medicine, error) {
	return scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines_inventory WHERE id = $1`, id))
}

func (r *repoPG) ListMedicines(ctx context.Context) ([]*Medicine, error) {
	return r.medicines(ctx, `SELECT `+medicineCols+` FROM medicines_inventory ORDER BY name, id`)
}

func (r *repoPG) UpdateMedicine(ctx context.Context, id int64, in MedicineInput) (*Medicine, error) {
	return scanMedicine(r.conn(ctx).QueryRow(ctx, `
		UPDATE medicines_inventory
		SET name = $2, manufacturer = $3, quantity = $4, default_price = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+medicineCols, id, in.Name, in.Manufacturer, in.Quantity, in.DefaultPrice))
}

func (r *repoPG) DeleteMedicine(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicines_inventory WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete medicine %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) AdjustQuantity(ctx context.Context, id int64, delta int) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `
		UPDATE medicines_inventory
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+medicineCols, id, delta))
	if !errors.Is(err, ErrNotFound) {
		return m, err
	}
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM medicines_inventory WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrInsufficientStock
	}
	return nil, ErrNotFound
}

func (r *repoPG) SearchMedicines(ctx context.Context, query string) ([]*Medicine, error) {
	return r.medicines(ctx, `
		SELECT `+medicineCols+` FROM medicines_inventory
		WHERE name ILIKE $1 OR manufacturer ILIKE $1
		ORDER BY name ASC, id`, db.Contains(query))
}

func (r *repoPG) LowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	return r.medicines(ctx, `
		SELECT `+medicineCols+` FROM medicines_inventory
		WHERE quantity <= $1 AND quantity > 0
		ORDER BY quantity ASC, name`, threshold)
}

// =========== Bills ===========

const billCols = `id, patient_id::bigint, COALESCE(patient_name, ''), patient_age, patient_gender,
	COALESCE(patient_phone, ''), bill_date, payment_mode, payment_status, total_amount::float8`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.PatientName, &b.PatientAge, &b.PatientGender,
		&b.PatientPhone, &b.BillDate, &b.PaymentMode, &b.PaymentStatus, &b.TotalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) CreateBill(ctx context.Context, b *Bill) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pharmacy_bills (patient_id, patient_name, patient_age, patient_gender, patient_phone,
			payment_mode, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, bill_date`,
		b.PatientID, b.PatientName, b.PatientAge, b.PatientGender, b.PatientPhone,
		b.PaymentMode, b.PaymentStatus, b.TotalAmount,
	).Scan(&b.ID, &b.BillDate)
	if err != nil {
		return fmt.Errorf("insert pharmacy bill: %w", err)
	}
	return nil
}

func (r *repoPG) AddItem(ctx context.Context, billID int64, it *BillItem) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pharmacy_bill_items (bill_id, medicine_id, medicine_name, quantity,
			price_per_unit, discount_percentage, item_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		billID, it.MedicineID, it.MedicineName, it.Quantity, it.PricePerUnit, it.DiscountPercentage, it.ItemTotal,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert pharmacy bill item: %w", err)
	}
	return nil
}

func (r *repoPG) GetBill(ctx context.Context, id int64) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM pharmacy_bills WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if b.Items, err = r.items(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) RecentBills(ctx context.Context, p pagination.Params) ([]*Bill, error) {
	return r.bills(ctx, `SELECT `+billCols+` FROM pharmacy_bills
		ORDER BY bill_date DESC, id DESC `+p.SQL())
}

func (r *repoPG) BillsByStatus(ctx context.Context, status string, p pagination.Params) ([]*Bill, error) {
	return r.bills(ctx, `SELECT `+billCols+` FROM pharmacy_bills
		WHERE payment_status = $1
		ORDER BY bill_date DESC, id DESC `+p.SQL(), status)
}

func (r *repoPG) BillsByPatient(ctx context.Context, patientID int64) ([]*Bill, error) {
	return r.bills(ctx, `SELECT `+billCols+` FROM pharmacy_bills
		WHERE patient_id = $1
		ORDER BY bill_date DESC, id DESC`, patientID)
}

func (r *repoPG) bills(ctx context.Context, q string, args ...any) ([]*Bill, error) {
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, b := range out {
		if b.Items, err = r.items(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *repoPG) items(ctx context.Context, billID int64) ([]*BillItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medicine_id, medicine_name, quantity, price_per_unit::float8,
			discount_percentage::float8, item_total::float8
		FROM pharmacy_bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*BillItem{}
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.MedicineID, &it.MedicineName, &it.Quantity,
			&it.PricePerUnit, &it.DiscountPercentage, &it.ItemTotal); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}
