package prescription

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// ValidationError is reported to the client as a 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Text decodes a JSON string, number, bool or null into a string.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// Flag is a boolean that also accepts "true"/"false" strings and 0/1.
// Anything else leaves it unset.
type Flag struct {
	set, val bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case bool:
		*f = Flag{set: true, val: x}
	case float64:
		if x == 0 || x == 1 {
			*f = Flag{set: true, val: x == 1}
		}
	case string:
		if p, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			*f = Flag{set: true, val: p}
		}
	}
	return nil
}

// Or returns the decoded value, or def when none was given.
func (f Flag) Or(def bool) bool {
	if !f.set {
		return def
	}
	return f.val
}

// FlexList holds either a JSON array or a single value. IsList records which
// one was sent so the document can render bullets or a single line.
type FlexList struct {
	Items  []string
	IsList bool
}

func List(items ...string) FlexList { return FlexList{Items: items, IsList: true} }

func (l *FlexList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*l = FlexList{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		l.IsList = true
		for _, r := range raw {
			var t Text
			if err := t.UnmarshalJSON(r); err != nil {
				return err
			}
			l.Items = append(l.Items, string(t))
		}
		return nil
	}
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	if t != "" {
		l.Items = []string{string(t)}
	}
	return nil
}

func (l FlexList) MarshalJSON() ([]byte, error) {
	if !l.IsList {
		if len(l.Items) == 0 {
			return []byte(`""`), nil
		}
		return json.Marshal(strings.Join(l.Items, ", "))
	}
	items := l.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// Empty reports whether no item carries text.
func (l FlexList) Empty() bool {
	for _, s := range l.Items {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// -- Medicine lines --

type Variant struct {
	Dosage   Text `json:"dosage"`
	Unit     Text `json:"unit"`
	Timing   Text `json:"when"`
	Duration Text `json:"duration"`
	Notes    Text `json:"notes"`
}

// MedicineLine is one row of the medicine table. Variants are alternate
// dosage or timing rows printed beneath it, in order.
type MedicineLine struct {
	Medicine Text      `json:"medicine"`
	Dosage   Text      `json:"dosage"`
	Unit     Text      `json:"unit"`
	Timing   Text      `json:"when"`
	Duration Text      `json:"duration"`
	Notes    Text      `json:"notes"`
	Variants []Variant `json:"subRows"`
}

func (m *MedicineLine) UnmarshalJSON(b []byte) error {
	type plain MedicineLine
	var aux struct {
		plain
		Variants json.RawMessage `json:"subRows"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*m = MedicineLine(aux.plain)
	m.Variants = nil
	var vs []Variant
	if len(aux.Variants) > 0 && json.Unmarshal(aux.Variants, &vs) == nil {
		m.Variants = vs
	}
	return nil
}

// MedicineTable decodes a list of medicine lines. Anything other than an
// array leaves the table empty so the drugs list is used instead.
type MedicineTable []MedicineLine

func (t *MedicineTable) UnmarshalJSON(b []byte) error {
	var lines []MedicineLine
	if err := json.Unmarshal(b, &lines); err != nil {
		*t = nil
		return nil
	}
	*t = lines
	return nil
}

// StoredLine is a persisted medicine line with its variants.
type StoredLine struct {
	ID        int64  `json:"id"`
	VersionID *int64 `json:"version_id"`
	MedicineLine
	CreatedAt time.Time `json:"created_at"`
}

// -- Requests --

// PatientRef accepts a numeric id, a numeric string, "" or null. Zero means
// no patient.
type PatientRef int64

func (p *PatientRef) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	s := t.String()
	if s == "" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &ValidationError{Msg: "patient_id must be an integer"}
	}
	*p = PatientRef(n)
	return nil
}

// SaveRequest is the body of a prescription save. Absent sections are not
// rendered.
type SaveRequest struct {
	PatientID      PatientRef    `json:"patient_id"`
	PatientName    Text          `json:"patient_name"`
	PatientAge     Text          `json:"patient_age"`
	PatientGender  Text          `json:"patient_gender"`
	PatientContact Text          `json:"patient_contact"`
	BP             Text          `json:"bp"`
	Pulse          Text          `json:"pulse"`
	Temperature    Text          `json:"temperature"`
	BMI            Text          `json:"bmi"`
	Complaints     Text          `json:"complaints"`
	Diagnosis      Text          `json:"diagnosis"`
	Tests          FlexList      `json:"tests"`
	Drugs          FlexList      `json:"drugs"`
	MedicineTable  MedicineTable `json:"medicineTable"`
	FollowUp       Text          `json:"follow_up"`

	ImagingAnalysis      Text  `json:"medical_imaging_analysis"`
	LabAnalysis          Text  `json:"lab_report_analysis"`
	PrescriptionAnalysis Text  `json:"prescription_analysis"`
	IncludeAnalysis      Flag  `json:"include_analysis"`
}

func (r *SaveRequest) includeAnalysis() bool {
	return r.IncludeAnalysis.Or(true)
}

type SaveResult struct {
	Message string `json:"message"`
	PDFURL  string `json:"pdf_url"`
}

// PatientInfo is the case context sent with a generation request when no
// stored patient is referenced.
type PatientInfo struct {
	PatientID                PatientRef `json:"patient_id"`
	Name                     Text       `json:"name"`
	Age                      Text       `json:"age"`
	Gender                   Text       `json:"gender"`
	Department               Text       `json:"department"`
	ChiefComplaint           Text       `json:"chief_complaint"`
	HistoryPresentingIllness Text       `json:"history_presenting_illness"`
	PastHistory              Text       `json:"past_history"`
	PersonalHistory          Text       `json:"personal_history"`
	FamilyHistory            Text       `json:"family_history"`
	OBGHistory               Text       `json:"obg_history"`
	Allergies                Text       `json:"allergies"`
	MedicationHistory        Text       `json:"medication_history"`
	SurgicalHistory          Text       `json:"surgical_history"`
	BP                       Text       `json:"bp"`
	Pulse                    Text       `json:"pulse"`
	Temperature              Text       `json:"temperature"`
	BMI                      Text       `json:"bmi"`
	SpO2                     Text       `json:"spo2"`
	ImageAnalysis            Text       `json:"image_analysis_text"`
	LabAnalysis              Text       `json:"lab_analysis_text"`
	PrescriptionAnalysis     Text       `json:"prescription_analysis_text"`
}

type GenerateRequest struct {
	PatientID   PatientRef  `json:"patient_id"`
	Diagnosis   Text        `json:"diagnosis"`
	Tests       FlexList    `json:"tests"`
	Treatments  FlexList    `json:"treatments"`
	PatientInfo PatientInfo `json:"patient_info"`
}

func (r *GenerateRequest) patientID() int64 {
	if r.PatientID != 0 {
		return int64(r.PatientID)
	}
	return int64(r.PatientInfo.PatientID)
}

// Generated is the AI-drafted prescription. Drugs may be strings or
// structured entries, so they pass through untouched.
type Generated struct {
	Diagnosis    Text     `json:"diagnosis"`
	Drugs        []any    `json:"drugs"`
	Instructions any      `json:"instructions"`
	Tests        FlexList `json:"tests"`
	FollowUp     Text     `json:"follow_up"`
}

const defaultFollowUp = "Follow up with your doctor."

func fallbackPrescription(diagnosis string, tests []string) *Generated {
	return &Generated{
		Diagnosis:    Text(diagnosis),
		Drugs:        []any{},
		Instructions: []string{},
		Tests:        List(tests...),
		FollowUp:     defaultFollowUp,
	}
}

// -- Templates --

type Template struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"template_data"`
	CreatedAt *time.Time     `json:"created_at"`
}

// patientKeys are stripped from template data so a template never carries
// one patient's identity into another's prescription.
var patientKeys = []string{"patientName", "patientAge", "patientGender", "patientContact"}

func stripPatient(data map[string]any) map[string]any {
	for _, k := range patientKeys {
		delete(data, k)
	}
	return data
}

// -- Final choices --

// ParsedChoices are the final choices split into items, with any
// ": explanation" suffix removed.
type ParsedChoices struct {
	Diagnoses  []string
	Tests      []string
	Treatments []string
}

func (p ParsedChoices) Any() bool {
	return len(p.Diagnoses) > 0 || len(p.Tests) > 0 || len(p.Treatments) > 0
}

func splitChoices(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		item, _, _ := strings.Cut(part, ":")
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseFinalChoices splits diagnosis and tests on commas and the treatment
// plan on newlines.
func ParseFinalChoices(diagnosis, tests, treatmentPlan string) ParsedChoices {
	return ParsedChoices{
		Diagnoses:  splitChoices(diagnosis, ","),
		Tests:      splitChoices(tests, ","),
		Treatments: splitChoices(treatmentPlan, "\n"),
	}
}
