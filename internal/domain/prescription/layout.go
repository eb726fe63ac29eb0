package prescription

import (
	"time"

	"github.com/medassist/clinic/internal/platform/document"
)

const (
	stampLayout   = "02-Jan-2006 03:04 PM"
	variantMarker = "→ Variation"
)

var (
	medicineHeader = []string{"Medicine", "Dosage", "Unit", "Timing", "Duration", "Notes"}
	medicineWidths = []float64{1.6, 0.8, 0.6, 1.0, 0.8, 2.0}
)

// BuildLayout arranges a prescription. Every section except the title, date,
// patient box and signature is emitted only when it has content.
func BuildLayout(req *SaveRequest, patientName string, now time.Time) *document.Document {
	if patientName == "" {
		patientName = "Unknown"
	}
	doc := document.New("Prescription", now)
	doc.Add(
		document.Title("PRESCRIPTION"),
		document.Stamp("Date: "+now.Format(stampLayout)),
		patientBox(req, patientName),
	)

	if req.includeAnalysis() {
		sections := []struct {
			label string
			text  Text
		}{
			{"Medical Imaging Analysis:", req.ImagingAnalysis},
			{"Lab Report Analysis:", req.LabAnalysis},
			{"Previous Prescription Analysis:", req.PrescriptionAnalysis},
		}
		var blocks []document.Block
		for _, s := range sections {
			if t := s.text.String(); t != "" {
				blocks = append(blocks, document.SubHeading(s.label), document.Paragraph(t))
			}
		}
		if len(blocks) > 0 {
			doc.Add(document.Heading("Clinical Analysis"))
			doc.Add(blocks...)
		}
	}

	if d := req.Diagnosis.String(); d != "" {
		doc.Add(document.Heading("Diagnosis"), document.Paragraph(d))
	}

	if !req.Tests.Empty() {
		doc.Add(document.Heading("Tests Prescribed"), listBlock(req.Tests))
	}

	switch {
	case len(req.MedicineTable) > 0:
		doc.Add(document.Heading("Medications"), document.TableBlock(medicineTable(req.MedicineTable)))
	case !req.Drugs.Empty():
		doc.Add(document.Heading("Medications"), listBlock(req.Drugs))
	}

	if f := req.FollowUp.String(); f != "" {
		doc.Add(document.Heading("Follow Up Instructions"), document.Paragraph(f))
	}

	doc.Add(document.Signature("Doctor's Signature"))
	return doc
}

func patientBox(req *SaveRequest, name string) document.Block {
	fields := []document.Field{{Label: "Patient Name", Value: name}}
	for _, f := range []struct {
		label string
		value Text
	}{
		{"Age", req.PatientAge},
		{"Gender", req.PatientGender},
		{"Contact", req.PatientContact},
		{"BP", req.BP},
		{"Pulse", req.Pulse},
		{"Temperature", req.Temperature},
		{"BMI", req.BMI},
		{"Complaints", req.Complaints},
	} {
		if v := f.value.String(); v != "" {
			fields = append(fields, document.Field{Label: f.label, Value: v})
		}
	}
	return document.InfoBox(fields...)
}

// listBlock renders bullets for a list and a single line otherwise.
func listBlock(l FlexList) document.Block {
	if !l.IsList {
		return document.Paragraph(l.Items[0])
	}
	var items []string
	for _, s := range l.Items {
		if s != "" {
			items = append(items, s)
		}
	}
	return document.Bullets(items...)
}

func medicineTable(lines []MedicineLine) document.Table {
	t := document.Table{Header: medicineHeader, Widths: medicineWidths}
	for _, m := range lines {
		t.Rows = append(t.Rows, document.Row{Cells: []string{
			string(m.Medicine), string(m.Dosage), string(m.Unit),
			string(m.Timing), string(m.Duration), string(m.Notes),
		}})
		for _, v := range m.Variants {
			t.Rows = append(t.Rows, document.Row{Variant: true, Cells: []string{
				variantMarker, string(v.Dosage), string(v.Unit),
				string(v.Timing), string(v.Duration), string(v.Notes),
			}})
		}
	}
	return t
}
