package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// =========== Bills ===========

func (r *repoPG) CreateBill(ctx context.Context, b *Bill) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (patient_id, payment_mode, payment_status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, bill_date`,
		b.PatientID, b.PaymentMode, b.PaymentStatus, b.TotalAmount,
	).Scan(&b.ID, &b.BillDate)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func (r *repoPG) AddItem(ctx context.Context, billID int64, it *BillItem) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bill_items (bill_id, service_id, doctor_id, appointment_date, appointment_time,
			duration_minutes, price, discount, net_amount)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8, $9)
		RETURNING id`,
		billID, it.ServiceID, it.DoctorID, it.AppointmentDate, it.AppointmentTime,
		it.Duration, it.Price, it.Discount, it.NetAmount,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert bill item: %w", err)
	}
	return nil
}

const billCols = `id, patient_id, bill_date, payment_mode, payment_status, total_amount::float8`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	if err := row.Scan(&b.ID, &b.PatientID, &b.BillDate, &b.PaymentMode, &b.PaymentStatus, &b.TotalAmount); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) GetBill(ctx context.Context, id int64) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("Bill")
		}
		return nil, err
	}
	if b.Items, err = r.items(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Bill, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bills WHERE patient_id = $1 ORDER BY bill_date DESC, id DESC`, patientID)
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
		SELECT id, service_id, doctor_id,
			to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
			COALESCE(duration_minutes, 0), price::float8, discount::float8, net_amount::float8
		FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*BillItem{}
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.ServiceID, &it.DoctorID, &it.AppointmentDate, &it.AppointmentTime,
			&it.Duration, &it.Price, &it.Discount, &it.NetAmount); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *repoPG) DeleteBill(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("Bill")
	}
	return nil
}

// =========== Appointments ===========

func (r *repoPG) CreateAppointment(ctx context.Context, in AppointmentInput) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_name, age, gender, contact_number, appointment_date, appointment_time)
		VALUES ($1, $2, $3, $4, $5::date, $6::time)
		RETURNING id`,
		in.PatientName, in.Age, in.Gender, in.ContactNumber, in.AppointmentDate, in.AppointmentTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert appointment: %w", err)
	}
	return id, nil
}

func (r *repoPG) Appointments(ctx context.Context, day time.Time) ([]*Slot, error) {
	return r.slots(ctx, `
		SELECT id, to_char(appointment_time, 'HH24:MI'), patient_name,
			NULL::bigint, NULL::text, NULL::text
		FROM appointments
		WHERE appointment_date = $1::date
		ORDER BY appointment_time ASC NULLS FIRST, id`, day.Format(dateLayout))
}

func (r *repoPG) BookedServices(ctx context.Context, day time.Time, f SlotFilter) ([]*Slot, error) {
	q := `
		SELECT bi.id, to_char(bi.appointment_time, 'HH24:MI'), pi.patient_name,
			b.patient_id::bigint, s.name, d.name
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		JOIN patient_info pi ON pi.id = b.patient_id
		JOIN services s ON s.id = bi.service_id
		JOIN doctors d ON d.id = bi.doctor_id
		WHERE s.requires_time = TRUE AND bi.appointment_date = $1::date`
	args := []any{day.Format(dateLayout)}
	switch {
	case f.DoctorID > 0:
		q += ` AND d.id = $2`
		args = append(args, f.DoctorID)
	case f.ClinicID > 0:
		q += ` AND d.clinic_id = $2`
		args = append(args, f.ClinicID)
	}
	return r.slots(ctx, q+` ORDER BY bi.appointment_time ASC NULLS FIRST, bi.id`, args...)
}

func (r *repoPG) slots(ctx context.Context, q string, args ...any) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.AppointmentTime, &s.PatientName, &s.PatientID, &s.ServiceName, &s.DoctorName); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
