package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	system    string
	prompt    string
	maxTokens int
	image     string
}

type fakeAnalyzer struct {
	reply string
	err   error
	calls []call
}

func (f *fakeAnalyzer) Complete(_ context.Context, system, prompt string, maxTokens int) (string, error) {
	f.calls = append(f.calls, call{system: system, prompt: prompt, maxTokens: maxTokens})
	return f.reply, f.err
}

func (f *fakeAnalyzer) DescribeImage(_ context.Context, prompt, imageB64 string) (string, error) {
	f.calls = append(f.calls, call{prompt: prompt, image: imageB64})
	return f.reply, f.err
}

func newClinical(reply string, err error) (*Clinical, *fakeAnalyzer) {
	fa := &fakeAnalyzer{reply: reply, err: err}
	return NewClinical(fa, MustLoadCatalogue()), fa
}

func TestClinical_AnalyzeLabText(t *testing.T) {
	c, fa := newClinical("low haemoglobin", nil)
	out, err := c.AnalyzeLabText(context.Background(), "Hb 9.1 g/dL")
	require.NoError(t, err)
	assert.Equal(t, "low haemoglobin", out)

	require.Len(t, fa.calls, 1)
	assert.Equal(t, c.Prompts().System.Lab, fa.calls[0].system)
	assert.Contains(t, fa.calls[0].prompt, "Hb 9.1 g/dL")
	assert.Equal(t, labTextMaxTokens, fa.calls[0].maxTokens)
}

func TestClinical_AnalyzeImageUsesDepartmentPrompt(t *testing.T) {
	c, fa := newClinical("ok", nil)
	_, err := c.AnalyzeImage(context.Background(), "b64", "Neurology", "", "CT_HEAD")
	require.NoError(t, err)
	assert.Equal(t, c.Prompts().Neurology["CT_HEAD"], fa.calls[0].prompt)
	assert.Equal(t, "b64", fa.calls[0].image)
}

func TestClinical_MedicalAdviceAddsDepartmentContext(t *testing.T) {
	c, fa := newClinical("**Case Summary**\n- fine", nil)
	_, err := c.MedicalAdvice(context.Background(), CaseSummary{Department: "Dermatology", ChiefComplaint: "rash"})
	require.NoError(t, err)
	assert.Contains(t, fa.calls[0].prompt, "Common conditions in dermatology")
	assert.Contains(t, fa.calls[0].prompt, "Chief Complaint: rash")
}

func TestClinical_GeneratePrescription(t *testing.T) {
	c, _ := newClinical("```json\n{\"diagnosis\":\"Migraine\",\"tests\":[\"MRI\"]}\n```", nil)
	var out struct {
		Diagnosis string   `json:"diagnosis"`
		Tests     []string `json:"tests"`
	}
	require.NoError(t, c.GeneratePrescription(context.Background(), GenerateInput{Diagnosis: "Migraine"}, &out))
	assert.Equal(t, "Migraine", out.Diagnosis)
	assert.Equal(t, []string{"MRI"}, out.Tests)
}

func TestClinical_ParseTranscript(t *testing.T) {
	reply := `{"complaints":["headache","nausea"],"allergies":"penicillin","hpi":"3 days","vitals":{"bp":"130/85","pulse":88}}`
	c, _ := newClinical(reply, nil)

	out, err := c.ParseTranscript(context.Background(), "headache for three days", "Neurology")
	require.NoError(t, err)
	assert.Equal(t, StringList{"headache", "nausea"}, out.Complaints)
	assert.Equal(t, StringList{"penicillin"}, out.Allergies)
	assert.Equal(t, StringList{}, out.PastHistory)
	assert.Equal(t, Text("3 days"), out.HPI)
	assert.Equal(t, Text("88"), out.Vitals["pulse"])
}

func TestClinical_ParseTranscriptEmptyAndFailure(t *testing.T) {
	c, fa := newClinical("", errors.New("down"))

	out, err := c.ParseTranscript(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Equal(t, EmptyTranscript(), out)
	assert.Empty(t, fa.calls)

	out, err = c.ParseTranscript(context.Background(), "something", "")
	assert.Error(t, err)
	assert.Equal(t, EmptyTranscript(), out)
}

func TestClinical_ParseVoicePrescription(t *testing.T) {
	reply := `{"patient_name":"Ravi","patient_age":41,"diagnosis":"URTI","tests":"CBC",
		"medicines":[{"medicine":"Paracetamol","dosage":"500","unit":"mg","when":"after food","duration":"5 days","notes":""}]}`
	c, _ := newClinical(reply, nil)

	out, err := c.ParseVoicePrescription(context.Background(), "Ravi forty one")
	require.NoError(t, err)
	assert.Equal(t, Text("41"), out.PatientAge)
	assert.Equal(t, StringList{"CBC"}, out.Tests)
	assert.Equal(t, StringList{}, out.Complaints)
	require.Len(t, out.Medicines, 1)
	assert.Equal(t, Text("after food"), out.Medicines[0].When)
}

func TestClinical_ParseVoicePrescriptionBadJSON(t *testing.T) {
	c, _ := newClinical("I could not parse that", nil)
	out, err := c.ParseVoicePrescription(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, EmptyVoicePrescription(), out)
}
