package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	labTextMaxTokens           = 2048
	prescriptionTextMaxTokens  = 1500
	imagingTextMaxTokens       = 2048
	adviceMaxTokens            = 4096
	generateMaxTokens          = 1800
	voiceTranscriptMaxTokens   = 600
	voicePrescriptionMaxTokens = 800
)

// Clinical binds an Analyzer to the prompt catalogue.
type Clinical struct {
	analyzer Analyzer
	prompts  *Catalogue
}

func NewClinical(a Analyzer, prompts *Catalogue) *Clinical {
	return &Clinical{analyzer: a, prompts: prompts}
}

func (c *Clinical) Prompts() *Catalogue { return c.prompts }

func (c *Clinical) completeTemplate(ctx context.Context, system, tmpl string, data any, maxTokens int) (string, error) {
	prompt, err := c.prompts.Render(tmpl, data)
	if err != nil {
		return "", err
	}
	return c.analyzer.Complete(ctx, system, prompt, maxTokens)
}

type textInput struct{ Text string }

func (c *Clinical) AnalyzeLabText(ctx context.Context, text string) (string, error) {
	return c.completeTemplate(ctx, c.prompts.System.Lab, TmplLabText, textInput{text}, labTextMaxTokens)
}

func (c *Clinical) AnalyzeLabImage(ctx context.Context, imageB64 string) (string, error) {
	return c.analyzer.DescribeImage(ctx, c.prompts.LabImage, imageB64)
}

func (c *Clinical) AnalyzeImagingText(ctx context.Context, text string) (string, error) {
	return c.completeTemplate(ctx, c.prompts.System.Imaging, TmplImagingText, textInput{text}, imagingTextMaxTokens)
}

// AnalyzeImage describes a scan using the department-specific prompt.
func (c *Clinical) AnalyzeImage(ctx context.Context, imageB64, department, cardiologyType, neurologyType string) (string, error) {
	return c.analyzer.DescribeImage(ctx, c.prompts.ImagingPrompt(department, cardiologyType, neurologyType), imageB64)
}

func (c *Clinical) AnalyzePrescriptionText(ctx context.Context, text string) (string, error) {
	return c.completeTemplate(ctx, c.prompts.System.Prescription, TmplPrescriptionText, textInput{text}, prescriptionTextMaxTokens)
}

func (c *Clinical) AnalyzePrescriptionImage(ctx context.Context, imageB64 string) (string, error) {
	return c.analyzer.DescribeImage(ctx, c.prompts.PrescriptionImage, imageB64)
}

// ---------------------------------------------------------------------------
// Advice and prescription generation
// ---------------------------------------------------------------------------

// CaseSummary is the patient context shared by the advice and generation
// prompts.
type CaseSummary struct {
	Name              string
	Age               string
	Gender            string
	Department        string
	ChiefComplaint    string
	HPI               string
	PastHistory       string
	PersonalHistory   string
	FamilyHistory     string
	OBGHistory        string
	Allergies         string
	MedicationHistory string
	SurgicalHistory   string

	BP          string
	Pulse       string
	Temperature string
	BMI         string
	SpO2        string

	ImageAnalysis        string
	LabAnalysis          string
	PrescriptionAnalysis string
}

type adviceInput struct {
	CaseSummary
	Context string
}

// MedicalAdvice returns the structured markdown advice for a case.
func (c *Clinical) MedicalAdvice(ctx context.Context, cs CaseSummary) (string, error) {
	in := adviceInput{CaseSummary: cs, Context: c.prompts.DepartmentContext(cs.Department)}
	return c.completeTemplate(ctx, c.prompts.System.Advice, TmplAdvice, in, adviceMaxTokens)
}

// AdviceFallback is the message stored when advice generation fails.
func (c *Clinical) AdviceFallback() string { return c.prompts.AdviceFallback }

type GenerateInput struct {
	CaseSummary
	Diagnosis  string
	Tests      []string
	Treatments []string
}

// GeneratePrescription asks for a JSON prescription and decodes it into out.
func (c *Clinical) GeneratePrescription(ctx context.Context, in GenerateInput, out any) error {
	reply, err := c.completeTemplate(ctx, c.prompts.System.Generate, TmplGenerate, in, generateMaxTokens)
	if err != nil {
		return err
	}
	return DecodeJSON(reply, out)
}

// ---------------------------------------------------------------------------
// Voice dictation
// ---------------------------------------------------------------------------

// StringList accepts either a JSON array of strings or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var many []any
	if err := json.Unmarshal(b, &many); err == nil {
		out := make(StringList, 0, len(many))
		for _, v := range many {
			if s := strings.TrimSpace(anyString(v)); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var one any
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if s := strings.TrimSpace(anyString(one)); s != "" {
		*l = StringList{s}
	} else {
		*l = StringList{}
	}
	return nil
}

// Text accepts a JSON string, number or null.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(anyString(v))
	return nil
}

func anyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

type Transcript struct {
	Complaints        StringList      `json:"complaints"`
	PastHistory       StringList      `json:"past_history"`
	PersonalHistory   StringList      `json:"personal_history"`
	FamilyHistory     StringList      `json:"family_history"`
	Allergies         StringList      `json:"allergies"`
	MedicationHistory StringList      `json:"medication_history"`
	SurgicalHistory   StringList      `json:"surgical_history"`
	HPI               Text            `json:"hpi"`
	Vitals            map[string]Text `json:"vitals"`
}

// EmptyTranscript is returned when the transcript is blank or unparseable.
func EmptyTranscript() Transcript {
	return Transcript{
		Complaints:        StringList{},
		PastHistory:       StringList{},
		PersonalHistory:   StringList{},
		FamilyHistory:     StringList{},
		Allergies:         StringList{},
		MedicationHistory: StringList{},
		SurgicalHistory:   StringList{},
		Vitals:            map[string]Text{},
	}
}

func (t *Transcript) fill() {
	e := EmptyTranscript()
	for _, p := range []struct{ dst, def *StringList }{
		{&t.Complaints, &e.Complaints}, {&t.PastHistory, &e.PastHistory},
		{&t.PersonalHistory, &e.PersonalHistory}, {&t.FamilyHistory, &e.FamilyHistory},
		{&t.Allergies, &e.Allergies}, {&t.MedicationHistory, &e.MedicationHistory},
		{&t.SurgicalHistory, &e.SurgicalHistory},
	} {
		if *p.dst == nil {
			*p.dst = *p.def
		}
	}
	if t.Vitals == nil {
		t.Vitals = map[string]Text{}
	}
}

// ParseTranscript classifies a dictated case history.
func (c *Clinical) ParseTranscript(ctx context.Context, transcript, department string) (Transcript, error) {
	if strings.TrimSpace(transcript) == "" {
		return EmptyTranscript(), nil
	}
	in := struct{ Transcript, Department string }{transcript, department}
	reply, err := c.completeTemplate(ctx, "", TmplVoiceTranscript, in, voiceTranscriptMaxTokens)
	if err != nil {
		return EmptyTranscript(), err
	}
	var out Transcript
	if err := DecodeJSON(reply, &out); err != nil {
		return EmptyTranscript(), err
	}
	out.fill()
	return out, nil
}

type VoiceMedicine struct {
	Medicine string `json:"medicine"`
	Dosage   Text   `json:"dosage"`
	Unit     Text   `json:"unit"`
	When     Text   `json:"when"`
	Duration Text   `json:"duration"`
	Notes    Text   `json:"notes"`
}

type VoicePrescription struct {
	PatientName    Text            `json:"patient_name"`
	PatientAge     Text            `json:"patient_age"`
	PatientGender  Text            `json:"patient_gender"`
	PatientContact Text            `json:"patient_contact"`
	Complaints     StringList      `json:"complaints"`
	Diagnosis      Text            `json:"diagnosis"`
	Tests          StringList      `json:"tests"`
	FollowUp       Text            `json:"follow_up"`
	Vitals         map[string]Text `json:"vitals"`
	Medicines      []VoiceMedicine `json:"medicines"`
}

func EmptyVoicePrescription() VoicePrescription {
	return VoicePrescription{
		Complaints: StringList{},
		Tests:      StringList{},
		Vitals:     map[string]Text{"temperature": "", "bp": "", "pulse": "", "bmi": ""},
		Medicines:  []VoiceMedicine{},
	}
}

// ParseVoicePrescription turns dictation into prescription form fields.
func (c *Clinical) ParseVoicePrescription(ctx context.Context, transcript string) (VoicePrescription, error) {
	if strings.TrimSpace(transcript) == "" {
		return EmptyVoicePrescription(), nil
	}
	in := struct{ Transcript string }{transcript}
	reply, err := c.completeTemplate(ctx, "", TmplVoicePrescription, in, voicePrescriptionMaxTokens)
	if err != nil {
		return EmptyVoicePrescription(), err
	}
	var out VoicePrescription
	if err := DecodeJSON(reply, &out); err != nil {
		return EmptyVoicePrescription(), fmt.Errorf("voice prescription: %w", err)
	}
	if out.Complaints == nil {
		out.Complaints = StringList{}
	}
	if out.Tests == nil {
		out.Tests = StringList{}
	}
	if out.Vitals == nil {
		out.Vitals = map[string]Text{}
	}
	if out.Medicines == nil {
		out.Medicines = []VoiceMedicine{}
	}
	return out, nil
}
