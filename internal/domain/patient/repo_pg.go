package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/clinic/internal/platform/db"
)

type colKind int

const (
	colText colKind = iota
	colInt
	colNullable
	colDate
)

type column struct {
	name  string
	kind  colKind
	field func(r *Record) any
}

// recordColumns maps Record fields to the columns shared by patient_info and
// patient_info_versions, in a fixed order.
var recordColumns = []column{
	{"patient_name", colText, func(r *Record) any { return &r.Name }},
	{"age", colInt, func(r *Record) any { return &r.Age }},
	{"gender", colText, func(r *Record) any { return &r.Gender }},
	{"contact_number", colText, func(r *Record) any { return &r.ContactNumber }},
	{"department", colText, func(r *Record) any { return &r.Department }},
	{"chief_complaint", colText, func(r *Record) any { return &r.ChiefComplaint }},
	{"history_presenting_illness", colText, func(r *Record) any { return &r.HistoryPresentingIllness }},
	{"past_history", colText, func(r *Record) any { return &r.PastHistory }},
	{"personal_history", colText, func(r *Record) any { return &r.PersonalHistory }},
	{"family_history", colText, func(r *Record) any { return &r.FamilyHistory }},
	{"obg_history", colText, func(r *Record) any { return &r.OBGHistory }},
	{"lab_report_url", colNullable, func(r *Record) any { return &r.LabReportURL }},
	{"medical_imaging_url", colNullable, func(r *Record) any { return &r.MedicalImagingURL }},
	{"previous_prescription_url", colNullable, func(r *Record) any { return &r.PreviousPrescriptionURL }},
	{"cardiology_imaging_type", colText, func(r *Record) any { return &r.CardiologyImagingType }},
	{"neurology_imaging_type", colText, func(r *Record) any { return &r.NeurologyImagingType }},
	{"medical_advice", colText, func(r *Record) any { return &r.MedicalAdvice }},
	{"case_summary", colText, func(r *Record) any { return &r.CaseSummary }},
	{"final_diagnosis", colText, func(r *Record) any { return &r.FinalDiagnosis }},
	{"final_tests", colText, func(r *Record) any { return &r.FinalTests }},
	{"final_treatment_plan", colText, func(r *Record) any { return &r.FinalTreatmentPlan }},
	{"blood_group", colText, func(r *Record) any { return &r.BloodGroup }},
	{"preferred_language", colText, func(r *Record) any { return &r.PreferredLanguage }},
	{"email", colText, func(r *Record) any { return &r.Email }},
	{"address", colText, func(r *Record) any { return &r.Address }},
	{"city", colText, func(r *Record) any { return &r.City }},
	{"pin", colText, func(r *Record) any { return &r.Pin }},
	{"referred_by", colText, func(r *Record) any { return &r.ReferredBy }},
	{"channel", colText, func(r *Record) any { return &r.Channel }},
	{"bp", colText, func(r *Record) any { return &r.BP }},
	{"pulse", colText, func(r *Record) any { return &r.Pulse }},
	{"height", colText, func(r *Record) any { return &r.Height }},
	{"weight", colText, func(r *Record) any { return &r.Weight }},
	{"head_round", colText, func(r *Record) any { return &r.HeadRound }},
	{"temperature", colText, func(r *Record) any { return &r.Temperature }},
	{"bmi", colText, func(r *Record) any { return &r.BMI }},
	{"spo2", colText, func(r *Record) any { return &r.SpO2 }},
	{"lmp", colDate, func(r *Record) any { return &r.LMP }},
	{"edd", colDate, func(r *Record) any { return &r.EDD }},
	{"allergies", colText, func(r *Record) any { return &r.Allergies }},
	{"medication_history", colText, func(r *Record) any { return &r.MedicationHistory }},
	{"surgical_history", colText, func(r *Record) any { return &r.SurgicalHistory }},
	{"uhid", colText, func(r *Record) any { return &r.UHID }},
	{"guardian_name", colText, func(r *Record) any { return &r.GuardianName }},
	{"consultant_doctor", colText, func(r *Record) any { return &r.ConsultantDoctor }},
}

var (
	recordSelect = buildSelect()
	recordNames  = buildNames()
)

func buildSelect() string {
	parts := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		switch c.kind {
		case colText:
			parts[i] = "COALESCE(" + c.name + ", '')"
		case colDate:
			parts[i] = "COALESCE(to_char(" + c.name + ", 'YYYY-MM-DD'), '')"
		default:
			parts[i] = c.name
		}
	}
	return strings.Join(parts, ", ")
}

func buildNames() string {
	names := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

// placeholder returns the bind expression for column c at position n.
func placeholder(c column, n int) string {
	if c.kind == colDate {
		return fmt.Sprintf("NULLIF($%d, '')::date", n)
	}
	return fmt.Sprintf("$%d", n)
}

// recordPlaceholders binds the record columns starting at $start.
func recordPlaceholders(start int) string {
	parts := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		parts[i] = placeholder(c, start+i)
	}
	return strings.Join(parts, ", ")
}

func recordAssignments(start int) string {
	parts := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		parts[i] = c.name + " = " + placeholder(c, start+i)
	}
	return strings.Join(parts, ", ")
}

func recordFields(r *Record) []any {
	out := make([]any, len(recordColumns))
	for i, c := range recordColumns {
		out[i] = c.field(r)
	}
	return out
}

// =========== Patient Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientSelect = `SELECT id, %s, generated_prescription_url, created_at FROM patient_info`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	dest := append([]any{&p.ID}, recordFields(&p.Record)...)
	dest = append(dest, &p.GeneratedPrescriptionURL, &p.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) (*Patient, error) {
	q := `INSERT INTO patient_info (` + recordNames + `) VALUES (` + recordPlaceholders(1) + `)
		RETURNING id, created_at`
	p := &Patient{Record: *rec}
	if err := r.conn(ctx).QueryRow(ctx, q, recordFields(rec)...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return p, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, fmt.Sprintf(patientSelect, recordSelect)+` WHERE id = $1`, id))
}

func (r *repoPG) UpdateSnapshot(ctx context.Context, id int64, rec *Record) error {
	q := `UPDATE patient_info SET ` + recordAssignments(2) + ` WHERE id = $1`
	args := append([]any{id}, recordFields(rec)...)
	tag, err := r.conn(ctx).Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetFinalChoices(ctx context.Context, id int64, fc FinalChoices) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_info
		SET final_diagnosis = $2, final_tests = $3, final_treatment_plan = $4, case_summary = $5
		WHERE id = $1`, id, fc.Diagnosis, fc.Tests, fc.TreatmentPlan, fc.CaseSummary)
	if err != nil {
		return fmt.Errorf("update final choices: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildSearch returns the WHERE clause and args for p.
func buildSearch(p SearchParams) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if p.ID != nil {
		add("id = $%d", *p.ID)
	}
	if p.Name != "" {
		add("patient_name ILIKE $%d", db.Contains(p.Name))
	}
	if p.Age > 0 {
		add("age = $%d", p.Age)
	}
	if p.Gender != "" && p.Gender != "Select Gender" {
		add("gender = $%d", p.Gender)
	}
	if p.Contact != "" {
		add("contact_number ILIKE $%d", db.Contains(p.Contact))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *repoPG) Search(ctx context.Context, p SearchParams) ([]*Patient, error) {
	where, args := buildSearch(p)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(patientSelect, recordSelect)+where+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		pt, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// =========== Versions ===========

const versionSelect = `SELECT id, patient_id, version_timestamp, %s FROM patient_info_versions`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	dest := append([]any{&v.ID, &v.PatientID, &v.Timestamp}, recordFields(&v.Record)...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) InsertVersion(ctx context.Context, patientID int64, at time.Time, rec *Record) (int64, error) {
	q := `INSERT INTO patient_info_versions (patient_id, version_timestamp, ` + recordNames + `)
		VALUES ($1, $2, ` + recordPlaceholders(3) + `) RETURNING id`
	args := append([]any{patientID, at}, recordFields(rec)...)
	var id int64
	if err := r.conn(ctx).QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	return id, nil
}

func (r *repoPG) LatestVersion(ctx context.Context, patientID int64) (*Version, error) {
	q := fmt.Sprintf(versionSelect, recordSelect) + `
		WHERE patient_id = $1 ORDER BY version_timestamp DESC, id DESC LIMIT 1`
	return scanVersion(r.conn(ctx).QueryRow(ctx, q, patientID))
}

func (r *repoPG) AmendFinalChoices(ctx context.Context, versionID int64, fc FinalChoices) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_info_versions
		SET final_diagnosis = $2, final_tests = $3, final_treatment_plan = $4, case_summary = $5
		WHERE id = $1`, versionID, fc.Diagnosis, fc.Tests, fc.TreatmentPlan, fc.CaseSummary)
	if err != nil {
		return fmt.Errorf("amend version %d: %w", versionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListVersions(ctx context.Context, patientID int64) ([]*Version, error) {
	q := fmt.Sprintf(versionSelect, recordSelect) + `
		WHERE patient_id = $1 ORDER BY version_timestamp DESC, id DESC`
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repoPG) GetVersion(ctx context.Context, id int64) (*Version, error) {
	return scanVersion(r.conn(ctx).QueryRow(ctx, fmt.Sprintf(versionSelect, recordSelect)+` WHERE id = $1`, id))
}

// =========== Complaints ===========

func (r *repoPG) InsertComplaints(ctx context.Context, patientID, versionID int64, cs []Complaint) error {
	if len(cs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range cs {
		batch.Queue(`
			INSERT INTO patient_chief_complaints (patient_id, version_id, complaint, frequency, severity, duration)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			patientID, versionID, c.Complaint, c.Frequency, c.Severity, c.Duration)
	}
	br := r.sendBatch(ctx, batch)
	defer br.Close()
	for range cs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert complaint: %w", err)
		}
	}
	return nil
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (r *repoPG) sendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx.SendBatch(ctx, b)
	}
	var s batchSender = r.pool
	return s.SendBatch(ctx, b)
}

func (r *repoPG) ListComplaints(ctx context.Context, versionID int64) ([]Complaint, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT complaint, frequency, severity, duration
		FROM patient_chief_complaints WHERE version_id = $1 ORDER BY id`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Complaint
	for rows.Next() {
		var c Complaint
		if err := rows.Scan(&c.Complaint, &c.Frequency, &c.Severity, &c.Duration); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
