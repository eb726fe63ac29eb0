package prescription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// =========== Medicines ===========

const insertMedicine = `
	INSERT INTO prescription_medicines
		(patient_id, version_id, parent_id, position, medicine, dosage, unit, timing, duration, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`

func (r *repoPG) InsertMedicines(ctx context.Context, patientID int64, versionID *int64, lines []MedicineLine) error {
	q := r.conn(ctx)
	for i, m := range lines {
		var parentID int64
		err := q.QueryRow(ctx, insertMedicine, patientID, versionID, nil, i,
			m.Medicine.String(), m.Dosage.String(), m.Unit.String(),
			m.Timing.String(), m.Duration.String(), m.Notes.String()).Scan(&parentID)
		if err != nil {
			return fmt.Errorf("insert medicine: %w", err)
		}
		for j, v := range m.Variants {
			_, err := q.Exec(ctx, insertMedicine,
				patientID, versionID, parentID, j, m.Medicine.String(),
				v.Dosage.String(), v.Unit.String(), v.Timing.String(), v.Duration.String(), v.Notes.String())
			if err != nil {
				return fmt.Errorf("insert medicine variant: %w", err)
			}
		}
	}
	return nil
}

func (r *repoPG) SetGeneratedURL(ctx context.Context, patientID int64, url string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_info SET generated_prescription_url = $2 WHERE id = $1`, patientID, url)
	if err != nil {
		return fmt.Errorf("set prescription url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLines returns parent lines in insertion order with their variants
// attached.
func (r *repoPG) ListLines(ctx context.Context, patientID int64) ([]*StoredLine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, version_id, parent_id, medicine, dosage, unit, timing, duration, notes, created_at
		FROM prescription_medicines
		WHERE patient_id = $1
		ORDER BY COALESCE(parent_id, id), parent_id NULLS FIRST, position, id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out  []*StoredLine
		byID = make(map[int64]*StoredLine)
	)
	for rows.Next() {
		var (
			l        StoredLine
			parentID *int64
			med      string
			v        Variant
		)
		if err := rows.Scan(&l.ID, &l.VersionID, &parentID, &med,
			&v.Dosage, &v.Unit, &v.Timing, &v.Duration, &v.Notes, &l.CreatedAt); err != nil {
			return nil, err
		}
		if parentID != nil {
			if p, ok := byID[*parentID]; ok {
				p.Variants = append(p.Variants, v)
			}
			continue
		}
		l.Medicine = Text(med)
		l.Dosage, l.Unit, l.Timing, l.Duration, l.Notes = v.Dosage, v.Unit, v.Timing, v.Duration, v.Notes
		byID[l.ID] = &l
		out = append(out, &l)
	}
	return out, rows.Err()
}

// =========== Templates ===========

func (r *repoPG) CreateTemplate(ctx context.Context, name string, data map[string]any) (int64, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.conn(ctx).QueryRow(ctx,
		`INSERT INTO prescription_templates (template_name, template_data) VALUES ($1, $2) RETURNING id`,
		name, raw).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	return id, nil
}

func (r *repoPG) ListTemplates(ctx context.Context) ([]*Template, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, template_name, template_data, created_at
		FROM prescription_templates ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Template
	for rows.Next() {
		var (
			t   Template
			raw []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &raw, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &t.Data); err != nil {
				return nil, fmt.Errorf("template %d: %w", t.ID, err)
			}
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
