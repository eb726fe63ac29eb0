package patient

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// ValidationError is surfaced to the caller as a 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Record holds the clinical fields shared by the patient snapshot and every
// version row.
type Record struct {
	Name                     string  `json:"patient_name"`
	Age                      int     `json:"age"`
	Gender                   string  `json:"gender"`
	ContactNumber            string  `json:"contact_number"`
	Department               string  `json:"department"`
	ChiefComplaint           string  `json:"chief_complaint"`
	HistoryPresentingIllness string  `json:"history_presenting_illness"`
	PastHistory              string  `json:"past_history"`
	PersonalHistory          string  `json:"personal_history"`
	FamilyHistory            string  `json:"family_history"`
	OBGHistory               string  `json:"obg_history"`
	LabReportURL             *string `json:"lab_report_url"`
	MedicalImagingURL        *string `json:"medical_imaging_url"`
	PreviousPrescriptionURL  *string `json:"previous_prescription_url"`
	CardiologyImagingType    string  `json:"cardiology_imaging_type"`
	NeurologyImagingType     string  `json:"neurology_imaging_type"`
	MedicalAdvice            string  `json:"medical_advice"`
	CaseSummary              string  `json:"case_summary"`
	FinalDiagnosis           string  `json:"final_diagnosis"`
	FinalTests               string  `json:"final_tests"`
	FinalTreatmentPlan       string  `json:"final_treatment_plan"`
	BloodGroup               string  `json:"blood_group"`
	PreferredLanguage        string  `json:"preferred_language"`
	Email                    string  `json:"email"`
	Address                  string  `json:"address"`
	City                     string  `json:"city"`
	Pin                      string  `json:"pin"`
	ReferredBy               string  `json:"referred_by"`
	Channel                  string  `json:"channel"`
	BP                       string  `json:"bp"`
	Pulse                    string  `json:"pulse"`
	Height                   string  `json:"height"`
	Weight                   string  `json:"weight"`
	HeadRound                string  `json:"head_round"`
	Temperature              string  `json:"temperature"`
	BMI                      string  `json:"bmi"`
	SpO2                     string  `json:"spo2"`
	// LMP and EDD are YYYY-MM-DD or empty.
	LMP               string `json:"lmp"`
	EDD               string `json:"edd"`
	Allergies         string `json:"allergies"`
	MedicationHistory string `json:"medication_history"`
	SurgicalHistory   string `json:"surgical_history"`
	UHID              string `json:"uhid"`
	GuardianName      string `json:"guardian_name"`
	ConsultantDoctor  string `json:"consultant_doctor"`
}

type Patient struct {
	ID int64 `json:"id"`
	Record
	GeneratedPrescriptionURL *string   `json:"generated_prescription_url"`
	CreatedAt                time.Time `json:"created_at"`
}

// Version is an immutable-intent copy of a patient's Record. Timestamp is
// clinic wall-clock time.
type Version struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Timestamp time.Time `json:"version_timestamp"`
	Record
}

type Complaint struct {
	Complaint string `json:"complaint"`
	Frequency string `json:"frequency"`
	Severity  string `json:"severity"`
	Duration  string `json:"duration"`
}

func (c Complaint) empty() bool {
	return c.Complaint == "" && c.Frequency == "" && c.Severity == "" && c.Duration == ""
}

// ParseComplaints decodes the chief_complaint_details payload. Malformed
// input yields no rows; blank rows are dropped.
func ParseComplaints(raw string) []Complaint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var in []Complaint
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil
	}
	out := in[:0]
	for _, c := range in {
		if !c.empty() {
			out = append(out, c)
		}
	}
	return out
}

// FinalChoices are the fields finalised after analysis.
type FinalChoices struct {
	Diagnosis     string `json:"final_diagnosis"`
	Tests         string `json:"final_tests"`
	TreatmentPlan string `json:"final_treatment_plan"`
	CaseSummary   string `json:"case_summary"`
}

func (r *Record) applyFinalChoices(fc FinalChoices) {
	r.FinalDiagnosis = fc.Diagnosis
	r.FinalTests = fc.Tests
	r.FinalTreatmentPlan = fc.TreatmentPlan
	r.CaseSummary = fc.CaseSummary
}

// FinalChoices returns the record's final-choice fields.
func (r *Record) FinalChoices() FinalChoices {
	return FinalChoices{
		Diagnosis:     r.FinalDiagnosis,
		Tests:         r.FinalTests,
		TreatmentPlan: r.FinalTreatmentPlan,
		CaseSummary:   r.CaseSummary,
	}
}

// HasFinalChoices reports whether diagnosis, tests or treatment plan is set.
func (r *Record) HasFinalChoices() bool {
	return r.FinalDiagnosis != "" || r.FinalTests != "" || r.FinalTreatmentPlan != ""
}

type FinalChoicesResult struct {
	VersionID int64 `json:"version_id"`
	Amended   bool  `json:"amended"`
}

// SearchParams are ANDed; zero values are ignored.
type SearchParams struct {
	// ID filters whenever it is set, zero included.
	ID   *int64
	Name string
	// Age filters only when positive; zero means no filter.
	Age     int
	Gender  string
	Contact string
}

// Upload is a file received with an intake or update form.
type Upload struct {
	Filename string
	Data     []byte
}

type Files struct {
	LabReport            *Upload
	MedicalImaging       *Upload
	PreviousPrescription *Upload
}

// IntakeForm is the multipart form for creating or updating a patient.
// Age stays a string so the service can report a non-numeric value.
type IntakeForm struct {
	Name                     string `schema:"name"`
	Age                      string `schema:"age"`
	Gender                   string `schema:"gender"`
	ContactNumber            string `schema:"contact_number"`
	Department               string `schema:"department"`
	ChiefComplaint           string `schema:"chief_complaint"`
	ChiefComplaintDetails    string `schema:"chief_complaint_details"`
	HistoryPresentingIllness string `schema:"history_presenting_illness"`
	PastHistory              string `schema:"past_history"`
	PersonalHistory          string `schema:"personal_history"`
	FamilyHistory            string `schema:"family_history"`
	OBGHistory               string `schema:"obg_history"`
	CardiologyImagingType    string `schema:"cardiology_imaging_type"`
	NeurologyImagingType     string `schema:"neurology_imaging_type"`
	BloodGroup               string `schema:"blood_group"`
	PreferredLanguage        string `schema:"preferred_language"`
	Email                    string `schema:"email"`
	Address                  string `schema:"address"`
	City                     string `schema:"city"`
	Pin                      string `schema:"pin"`
	ReferredBy               string `schema:"referred_by"`
	Channel                  string `schema:"channel"`
	BP                       string `schema:"bp"`
	Pulse                    string `schema:"pulse"`
	Height                   string `schema:"height"`
	Weight                   string `schema:"weight"`
	HeadRound                string `schema:"head_round"`
	Temperature              string `schema:"temperature"`
	BMI                      string `schema:"bmi"`
	SpO2                     string `schema:"spo2"`
	LMP                      string `schema:"lmp"`
	EDD                      string `schema:"edd"`
	Allergies                string `schema:"allergies"`
	MedicationHistory        string `schema:"medication_history"`
	SurgicalHistory          string `schema:"surgical_history"`
	UHID                     string `schema:"uhid"`
	GuardianName             string `schema:"guardian_name"`
	ConsultantDoctor         string `schema:"consultant_doctor"`
}

// UpdateRequest is the JSON body of a general update. Nil fields keep the
// stored value.
type UpdateRequest struct {
	Name                     *string `json:"name"`
	Age                      *int    `json:"age"`
	Gender                   *string `json:"gender"`
	ContactNumber            *string `json:"contact_number"`
	Department               *string `json:"department"`
	ChiefComplaint           *string `json:"chief_complaint"`
	HistoryPresentingIllness *string `json:"history_presenting_illness"`
	PastHistory              *string `json:"past_history"`
	PersonalHistory          *string `json:"personal_history"`
	FamilyHistory            *string `json:"family_history"`
	OBGHistory               *string `json:"obg_history"`
	LabReportURL             *string `json:"lab_report_url"`
	MedicalImagingURL        *string `json:"medical_imaging_url"`
	PreviousPrescriptionURL  *string `json:"previous_prescription_url"`
	CardiologyImagingType    *string `json:"cardiology_imaging_type"`
	NeurologyImagingType     *string `json:"neurology_imaging_type"`
	MedicalAdvice            *string `json:"medical_advice"`
	BloodGroup               *string `json:"blood_group"`
	PreferredLanguage        *string `json:"preferred_language"`
	Email                    *string `json:"email"`
	Address                  *string `json:"address"`
	City                     *string `json:"city"`
	Pin                      *string `json:"pin"`
	ReferredBy               *string `json:"referred_by"`
	Channel                  *string `json:"channel"`
	BP                       *string `json:"bp"`
	Pulse                    *string `json:"pulse"`
	Height                   *string `json:"height"`
	Weight                   *string `json:"weight"`
	HeadRound                *string `json:"head_round"`
	Temperature              *string `json:"temperature"`
	BMI                      *string `json:"bmi"`
	SpO2                     *string `json:"spo2"`
	LMP                      *string `json:"lmp"`
	EDD                      *string `json:"edd"`
	Allergies                *string `json:"allergies"`
	MedicationHistory        *string `json:"medication_history"`
	SurgicalHistory          *string `json:"surgical_history"`
	UHID                     *string `json:"uhid"`
	GuardianName             *string `json:"guardian_name"`
	ConsultantDoctor         *string `json:"consultant_doctor"`

	ChiefComplaintDetails string `json:"chief_complaint_details"`
}

// CreateResult is returned from intake.
type CreateResult struct {
	Message          string `json:"message"`
	PatientID        int64  `json:"patient_id"`
	VersionID        int64  `json:"version_id"`
	ExtractedLabText string `json:"extracted_lab_text"`
	ImageDataB64     string `json:"image_data_b64"`
}

// AdviceRequest toggles which uploaded artifacts feed the advice prompt.
// Nil flags default to true.
type AdviceRequest struct {
	PatientID           int64 `json:"patient_id"`
	IncludeLabReport    *bool `json:"include_lab_report"`
	IncludeImaging      *bool `json:"include_medical_imaging"`
	IncludePrescription *bool `json:"include_prescription"`
}

func flag(b *bool) bool { return b == nil || *b }

// Summary is the short patient view used by the prescription screen.
type Summary struct {
	PatientID                int64   `json:"patient_id"`
	Name                     string  `json:"patient_name"`
	Age                      int     `json:"age"`
	Gender                   string  `json:"gender"`
	ContactNumber            string  `json:"contact_number"`
	Department               string  `json:"department"`
	FinalDiagnosis           string  `json:"final_diagnosis"`
	FinalTests               string  `json:"final_tests"`
	FinalTreatmentPlan       string  `json:"final_treatment_plan"`
	CaseSummary              string  `json:"case_summary"`
	GeneratedPrescriptionURL *string `json:"generated_prescription_url"`
}

func (p *Patient) Summary() Summary {
	return Summary{
		PatientID:                p.ID,
		Name:                     p.Name,
		Age:                      p.Age,
		Gender:                   p.Gender,
		ContactNumber:            p.ContactNumber,
		Department:               p.Department,
		FinalDiagnosis:           p.FinalDiagnosis,
		FinalTests:               p.FinalTests,
		FinalTreatmentPlan:       p.FinalTreatmentPlan,
		CaseSummary:              p.CaseSummary,
		GeneratedPrescriptionURL: p.GeneratedPrescriptionURL,
	}
}

func (f *IntakeForm) fields(r *Record) []struct {
	src string
	dst *string
} {
	return []struct {
		src string
		dst *string
	}{
		{f.Name, &r.Name}, {f.Gender, &r.Gender}, {f.ContactNumber, &r.ContactNumber},
		{f.Department, &r.Department}, {f.ChiefComplaint, &r.ChiefComplaint},
		{f.HistoryPresentingIllness, &r.HistoryPresentingIllness},
		{f.PastHistory, &r.PastHistory}, {f.PersonalHistory, &r.PersonalHistory},
		{f.FamilyHistory, &r.FamilyHistory}, {f.OBGHistory, &r.OBGHistory},
		{f.CardiologyImagingType, &r.CardiologyImagingType}, {f.NeurologyImagingType, &r.NeurologyImagingType},
		{f.BloodGroup, &r.BloodGroup}, {f.PreferredLanguage, &r.PreferredLanguage},
		{f.Email, &r.Email}, {f.Address, &r.Address}, {f.City, &r.City}, {f.Pin, &r.Pin},
		{f.ReferredBy, &r.ReferredBy}, {f.Channel, &r.Channel},
		{f.BP, &r.BP}, {f.Pulse, &r.Pulse}, {f.Height, &r.Height}, {f.Weight, &r.Weight},
		{f.HeadRound, &r.HeadRound}, {f.Temperature, &r.Temperature}, {f.BMI, &r.BMI}, {f.SpO2, &r.SpO2},
		{f.LMP, &r.LMP}, {f.EDD, &r.EDD},
		{f.Allergies, &r.Allergies}, {f.MedicationHistory, &r.MedicationHistory},
		{f.SurgicalHistory, &r.SurgicalHistory}, {f.UHID, &r.UHID},
		{f.GuardianName, &r.GuardianName}, {f.ConsultantDoctor, &r.ConsultantDoctor},
	}
}

// apply copies every text field of the form onto r. Age is handled by the
// caller.
func (f *IntakeForm) apply(r *Record) {
	for _, p := range f.fields(r) {
		*p.dst = strings.TrimSpace(p.src)
	}
}

// merge copies only the non-blank text fields.
func (f *IntakeForm) merge(r *Record) {
	for _, p := range f.fields(r) {
		if v := strings.TrimSpace(p.src); v != "" {
			*p.dst = v
		}
	}
}

func (u *UpdateRequest) apply(r *Record) {
	if u.Age != nil {
		r.Age = *u.Age
	}
	for _, p := range []struct {
		src *string
		dst *string
	}{
		{u.Name, &r.Name}, {u.Gender, &r.Gender}, {u.ContactNumber, &r.ContactNumber},
		{u.Department, &r.Department}, {u.ChiefComplaint, &r.ChiefComplaint},
		{u.HistoryPresentingIllness, &r.HistoryPresentingIllness},
		{u.PastHistory, &r.PastHistory}, {u.PersonalHistory, &r.PersonalHistory},
		{u.FamilyHistory, &r.FamilyHistory}, {u.OBGHistory, &r.OBGHistory},
		{u.CardiologyImagingType, &r.CardiologyImagingType}, {u.NeurologyImagingType, &r.NeurologyImagingType},
		{u.MedicalAdvice, &r.MedicalAdvice},
		{u.BloodGroup, &r.BloodGroup}, {u.PreferredLanguage, &r.PreferredLanguage},
		{u.Email, &r.Email}, {u.Address, &r.Address}, {u.City, &r.City}, {u.Pin, &r.Pin},
		{u.ReferredBy, &r.ReferredBy}, {u.Channel, &r.Channel},
		{u.BP, &r.BP}, {u.Pulse, &r.Pulse}, {u.Height, &r.Height}, {u.Weight, &r.Weight},
		{u.HeadRound, &r.HeadRound}, {u.Temperature, &r.Temperature}, {u.BMI, &r.BMI}, {u.SpO2, &r.SpO2},
		{u.LMP, &r.LMP}, {u.EDD, &r.EDD},
		{u.Allergies, &r.Allergies}, {u.MedicationHistory, &r.MedicationHistory},
		{u.SurgicalHistory, &r.SurgicalHistory}, {u.UHID, &r.UHID},
		{u.GuardianName, &r.GuardianName}, {u.ConsultantDoctor, &r.ConsultantDoctor},
	} {
		if p.src != nil {
			*p.dst = *p.src
		}
	}
	for _, p := range []struct{ src, dst **string }{
		{&u.LabReportURL, &r.LabReportURL},
		{&u.MedicalImagingURL, &r.MedicalImagingURL},
		{&u.PreviousPrescriptionURL, &r.PreviousPrescriptionURL},
	} {
		if *p.src != nil {
			v := **p.src
			*p.dst = &v
		}
	}
}
