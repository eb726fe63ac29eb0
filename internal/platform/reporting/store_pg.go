package reporting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
)

const (
	isMale   = `gender ILIKE 'male'`
	isFemale = `gender ILIKE 'female'`
	isOther  = `gender NOT ILIKE 'male' AND gender NOT ILIKE 'female' AND gender NOT IN ('', 'Select Gender')`

	ageBuckets = `
		COUNT(*) FILTER (WHERE age BETWEEN 0 AND 18),
		COUNT(*) FILTER (WHERE age BETWEEN 19 AND 30),
		COUNT(*) FILTER (WHERE age BETWEEN 31 AND 60),
		COUNT(*) FILTER (WHERE age >= 61)`

	genderBuckets = `
		COUNT(*) FILTER (WHERE ` + isMale + `),
		COUNT(*) FILTER (WHERE ` + isFemale + `),
		COUNT(*) FILTER (WHERE ` + isOther + `)`

	month = `to_char(date_trunc('month', %s), 'YYYY-MM')`
)

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (s *storePG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

// collect scans every row with scan and returns a non-nil slice.
func collect[T any](ctx context.Context, q db.Querier, sql string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *storePG) Dashboard(ctx context.Context) (*Dashboard, error) {
	q := s.conn(ctx)
	d := &Dashboard{}

	if err := q.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM patient_info),
		       (SELECT COUNT(*) FROM appointments),
		       (SELECT COALESCE(SUM(total_amount), 0)::float8 FROM bills)`,
	).Scan(&d.Counts.TotalPatients, &d.Counts.TotalAppointments, &d.Counts.TotalRevenue); err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}

	if err := q.QueryRow(ctx, `SELECT `+genderBuckets+`,`+ageBuckets+` FROM patient_info`).Scan(
		&d.GenderRatio.Male, &d.GenderRatio.Female, &d.GenderRatio.Others,
		&d.AgeDistribution.Age0To18, &d.AgeDistribution.Age19To30,
		&d.AgeDistribution.Age31To60, &d.AgeDistribution.Age61Plus,
	); err != nil {
		return nil, fmt.Errorf("demographics: %w", err)
	}

	if err := q.QueryRow(ctx, `
		WITH counts AS (
			SELECT patient_id, COUNT(*) AS n FROM patient_info_versions GROUP BY patient_id
		)
		SELECT COUNT(*) FILTER (WHERE n = 1), COUNT(*) FILTER (WHERE n = 2),
		       COUNT(*) FILTER (WHERE n = 3), COUNT(*) FILTER (WHERE n >= 4)
		FROM counts`,
	).Scan(&d.RepeatVisits.One, &d.RepeatVisits.Two, &d.RepeatVisits.Three, &d.RepeatVisits.FourPlus); err != nil {
		return nil, fmt.Errorf("repeat visits: %w", err)
	}

	var err error
	if d.MonthlyFootfall, err = collect(ctx, q,
		`SELECT `+fmt.Sprintf(month, "version_timestamp")+`, COUNT(*) FROM patient_info_versions GROUP BY 1 ORDER BY 1`,
		func(r pgx.Rows, v *MonthCount) error { return r.Scan(&v.Month, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("footfall: %w", err)
	}

	// -- top lists --

	if d.TopDoctors, err = collect(ctx, q, `
		SELECT d.name, COUNT(bi.id) AS total FROM bill_items bi
		JOIN doctors d ON d.id = bi.doctor_id
		GROUP BY d.name ORDER BY total DESC, d.name LIMIT 5`,
		func(r pgx.Rows, v *DoctorCount) error { return r.Scan(&v.Doctor, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("top doctors: %w", err)
	}
	if d.TopServices, err = collect(ctx, q, `
		SELECT s.name, COUNT(bi.id) AS total FROM bill_items bi
		JOIN services s ON s.id = bi.service_id
		GROUP BY s.name ORDER BY total DESC, s.name LIMIT 5`,
		func(r pgx.Rows, v *ServiceCount) error { return r.Scan(&v.Service, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("top services: %w", err)
	}
	if d.TopDepartments, err = collect(ctx, q, `
		SELECT department, COUNT(*) AS total FROM patient_info
		WHERE department IS NOT NULL AND department <> ''
		GROUP BY department ORDER BY total DESC, department LIMIT 5`,
		func(r pgx.Rows, v *DepartmentCount) error { return r.Scan(&v.Department, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("top departments: %w", err)
	}
	if d.TopDiagnosis, err = collect(ctx, q, `
		WITH diag AS (
			SELECT trim(unnest(string_to_array(final_diagnosis, ','))) AS name
			FROM patient_info
			WHERE final_diagnosis IS NOT NULL AND final_diagnosis <> ''
		)
		SELECT name, COUNT(*) AS total FROM diag WHERE name <> ''
		GROUP BY name ORDER BY total DESC, name LIMIT 5`,
		func(r pgx.Rows, v *DiagnosisCount) error { return r.Scan(&v.Diagnosis, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("top diagnosis: %w", err)
	}

	if d.PaymentModeDistribution, err = collect(ctx, q,
		`SELECT COALESCE(NULLIF(payment_mode, ''), 'Unknown'), COUNT(*) FROM bills GROUP BY 1 ORDER BY 2 DESC, 1`,
		func(r pgx.Rows, v *ModeCount) error { return r.Scan(&v.Mode, &v.Count) },
	); err != nil {
		return nil, fmt.Errorf("payment modes: %w", err)
	}

	// -- monthly trends --

	if d.MonthlyGenderTrend, err = collect(ctx, q,
		`SELECT `+fmt.Sprintf(month, "created_at")+`,`+genderBuckets+` FROM patient_info GROUP BY 1 ORDER BY 1`,
		func(r pgx.Rows, v *MonthGender) error { return r.Scan(&v.Month, &v.Male, &v.Female, &v.Others) },
	); err != nil {
		return nil, fmt.Errorf("gender trend: %w", err)
	}
	if d.MonthlyAgeTrend, err = collect(ctx, q,
		`SELECT `+fmt.Sprintf(month, "created_at")+`,`+ageBuckets+` FROM patient_info GROUP BY 1 ORDER BY 1`,
		func(r pgx.Rows, v *MonthAge) error { return r.Scan(&v.Month, &v.Age0To18, &v.Age19To30, &v.Age31To60, &v.Age61Plus) },
	); err != nil {
		return nil, fmt.Errorf("age trend: %w", err)
	}
	if d.MonthlyRevenue, err = collect(ctx, q,
		`SELECT `+fmt.Sprintf(month, "bill_date")+`, COALESCE(SUM(total_amount), 0)::float8 FROM bills GROUP BY 1 ORDER BY 1`,
		func(r pgx.Rows, v *MonthRevenue) error { return r.Scan(&v.Month, &v.Revenue) },
	); err != nil {
		return nil, fmt.Errorf("revenue trend: %w", err)
	}

	return d, nil
}

// Rows runs sql and returns each row keyed by column name.
func (s *storePG) Rows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
