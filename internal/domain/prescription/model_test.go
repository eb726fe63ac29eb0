package prescription

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseFinalChoices(t *testing.T) {
	got := ParseFinalChoices(
		"Migraine: recurrent unilateral headache, Tension headache ,  ",
		"MRI brain: rule out mass,CBC",
		"Sumatriptan 50mg: at onset\n\nHydration\n  Sleep hygiene  ",
	)
	want := ParsedChoices{
		Diagnoses:  []string{"Migraine", "Tension headache"},
		Tests:      []string{"MRI brain", "CBC"},
		Treatments: []string{"Sumatriptan 50mg", "Hydration", "Sleep hygiene"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !got.Any() {
		t.Error("expected Any to be true")
	}
	if ParseFinalChoices("", " , ", "\n").Any() {
		t.Error("expected blank choices to parse to nothing")
	}
}

func TestFlexList_Decode(t *testing.T) {
	tests := []struct {
		in     string
		items  []string
		isList bool
	}{
		{`["CBC", 12, null]`, []string{"CBC", "12", ""}, true},
		{`"CBC, LFT"`, []string{"CBC, LFT"}, false},
		{`""`, nil, false},
		{`null`, nil, false},
		{`42`, []string{"42"}, false},
	}
	for _, tt := range tests {
		var l FlexList
		if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if !reflect.DeepEqual(l.Items, tt.items) || l.IsList != tt.isList {
			t.Errorf("%s: got %+v", tt.in, l)
		}
	}
}

func TestSaveRequest_LenientOptionalFields(t *testing.T) {
	var req SaveRequest
	body := `{"patient_name": 42, "include_analysis": "false", "tests": {"a": 1}, "medicineTable": "oops"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("expected malformed optional fields to decode, got %v", err)
	}
	if req.PatientName.String() != "42" {
		t.Errorf("expected patient_name 42, got %q", req.PatientName)
	}
	if req.includeAnalysis() {
		t.Error("expected include_analysis \"false\" to disable analysis")
	}
}

func TestFlag_Decode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"false"`, false},
		{`" true "`, true},
		{`0`, false},
		{`1`, true},
		{`2`, true},
		{`"nope"`, true},
		{`[]`, true},
		{`null`, true},
	}
	for _, tt := range tests {
		var f Flag
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got := f.Or(true); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.in, got, tt.want)
		}
	}
	if (Flag{}).Or(false) {
		t.Error("expected an unset flag to return the default")
	}
}

func TestFlexList_Encode(t *testing.T) {
	b, _ := json.Marshal(List())
	if string(b) != "[]" {
		t.Errorf("expected [], got %s", b)
	}
	b, _ = json.Marshal(FlexList{Items: []string{"CBC"}})
	if string(b) != `"CBC"` {
		t.Errorf("expected a string, got %s", b)
	}
}

func TestMedicineLine_MalformedVariants(t *testing.T) {
	var m MedicineLine
	if err := json.Unmarshal([]byte(`{"medicine": "ORS", "when": "after stools", "subRows": "none"}`), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Medicine != "ORS" || m.Timing != "after stools" || m.Variants != nil {
		t.Errorf("unexpected line %+v", m)
	}
}

func TestPatientRef(t *testing.T) {
	tests := []struct {
		in   string
		want PatientRef
		err  bool
	}{
		{`12`, 12, false},
		{`"12"`, 12, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		var p PatientRef
		err := json.Unmarshal([]byte(tt.in), &p)
		if tt.err {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || p != tt.want {
			t.Errorf("%s: got %d, %v", tt.in, p, err)
		}
	}
}

func TestStripPatient(t *testing.T) {
	data := map[string]any{"patientName": "Asha", "patientAge": "34", "diagnosis": "Migraine", "patientContact": "1"}
	got := stripPatient(data)
	if !reflect.DeepEqual(got, map[string]any{"diagnosis": "Migraine"}) {
		t.Errorf("unexpected template data %v", got)
	}
}
