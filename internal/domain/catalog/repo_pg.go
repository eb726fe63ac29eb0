package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func deleteByID(ctx context.Context, q db.Querier, table string, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Services ===========

const serviceCols = `id, name, default_price, requires_time`

func scanService(row pgx.Row) (*BillableService, error) {
	var s BillableService
	if err := row.Scan(&s.ID, &s.Name, &s.DefaultPrice, &s.RequiresTime); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *repoPG) CreateService(ctx context.Context, in ServiceInput) (*BillableService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services (name, default_price, requires_time) VALUES ($1, $2, $3)
		RETURNING `+serviceCols, in.Name, in.DefaultPrice, in.RequiresTime))
}

func (r *repoPG) GetService(ctx context.Context, id int64) (*BillableService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM services WHERE id = $1`, id))
}

func (r *repoPG) ServiceByName(ctx context.Context, name string) (*BillableService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM services WHERE name = $1`, name))
}

func (r *repoPG) ListServices(ctx context.Context) ([]*BillableService, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceCols+` FROM services ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BillableService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateService(ctx context.Context, id int64, in ServiceInput) (*BillableService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `
		UPDATE services SET name = $2, default_price = $3, requires_time = $4
		WHERE id = $1 RETURNING `+serviceCols, id, in.Name, in.DefaultPrice, in.RequiresTime))
}

func (r *repoPG) DeleteService(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.conn(ctx), "services", id)
}

// =========== Doctors ===========

const doctorCols = `id, name, COALESCE(speciality, ''), contact_number, clinic_id`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Speciality, &d.ContactNumber, &d.ClinicID); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *repoPG) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (name, speciality, contact_number, clinic_id) VALUES ($1, $2, $3, $4)
		RETURNING `+doctorCols, in.Name, in.Speciality, in.ContactNumber, in.ClinicID))
}

func (r *repoPG) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

// DoctorByName picks the lowest id when names repeat.
func (r *repoPG) DoctorByName(ctx context.Context, name string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE name = $1 ORDER BY id LIMIT 1`, name))
}

func (r *repoPG) ListDoctors(ctx context.Context, clinicID int64) ([]*Doctor, error) {
	q := `SELECT ` + doctorCols + ` FROM doctors`
	var args []any
	if clinicID > 0 {
		q += ` WHERE clinic_id = $1`
		args = append(args, clinicID)
	}
	rows, err := r.conn(ctx).Query(ctx, q+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET name = $2, speciality = $3, contact_number = $4, clinic_id = $5
		WHERE id = $1 RETURNING `+doctorCols, id, in.Name, in.Speciality, in.ContactNumber, in.ClinicID))
}

func (r *repoPG) DeleteDoctor(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.conn(ctx), "doctors", id)
}

func (r *repoPG) ListClinics(ctx context.Context) ([]*Clinic, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM clinics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// =========== Templates and medicine names ===========

func (r *repoPG) CreateComplaintTemplate(ctx context.Context, in ComplaintTemplateInput) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO complaint_templates (template_name, department, template_data)
		VALUES ($1, $2, $3) RETURNING id`, in.Name, in.Department, []byte(in.Data)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert complaint template: %w", err)
	}
	return id, nil
}

func (r *repoPG) ListComplaintTemplates(ctx context.Context, department string) ([]*ComplaintTemplate, error) {
	q := `SELECT id, template_name, department, template_data, created_at FROM complaint_templates`
	var args []any
	if department != "" {
		q += ` WHERE department = $1`
		args = append(args, department)
	}
	rows, err := r.conn(ctx).Query(ctx, q+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ComplaintTemplate
	for rows.Next() {
		var (
			t   ComplaintTemplate
			raw []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Department, &raw, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Data = raw
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *repoPG) MedicineNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT name FROM medicines WHERE name ILIKE $1 ORDER BY name LIMIT $2`, db.Prefix(prefix), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
