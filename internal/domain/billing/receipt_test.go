package billing

import (
	"bytes"
	"testing"
	"time"

	"github.com/medassist/clinic/internal/platform/document"
)

func sampleReceipt() *document.Document {
	b := &Bill{
		ID:            7,
		PatientID:     3,
		BillDate:      time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
		PaymentMode:   "upi",
		PaymentStatus: "paid",
		TotalAmount:   950,
	}
	rows := []BillRow{
		{Service: "Consultation", Doctor: "Dr. Rao", AppointmentDate: "2026-03-15", AppointmentTime: "10:30", Price: 500, Discount: 10},
		{Service: "ECG", Doctor: "Dr. Rao", AppointmentDate: "2026-03-15", AppointmentTime: "11:00", Duration: intPtr(15), Price: 500},
	}
	ist := time.FixedZone("IST", 5*3600+1800)
	return BuildReceipt(Clinic{Name: "Health Plus Clinic", Address: "123 Medical Avenue"}, b,
		ReceiptPatient{Name: "Asha", Age: 34, Gender: "Female", Contact: "9800000000"}, rows, ist)
}

func TestBuildReceipt_Layout(t *testing.T) {
	doc := sampleReceipt()
	want := []document.Kind{
		document.KindTitle, document.KindStamp,
		document.KindSubHeading, document.KindInfoBox,
		document.KindSubHeading, document.KindInfoBox,
		document.KindTable, document.KindSummary,
		document.KindFooter, document.KindFooter,
	}
	got := doc.Kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %d blocks, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuildReceipt_Values(t *testing.T) {
	doc := sampleReceipt()

	details := doc.Blocks[5].Fields
	if details[1].Value != "15-03-2026" {
		t.Errorf("expected bill date in clinic zone, got %q", details[1].Value)
	}
	if details[2].Value != "Upi" || details[3].Value != "Paid" {
		t.Errorf("expected title-cased payment fields, got %+v", details[2:])
	}

	tbl := doc.Blocks[6].Table
	if len(tbl.Header) != 7 || len(tbl.Rows) != 2 {
		t.Fatalf("unexpected table %+v", tbl)
	}
	first := tbl.Rows[0].Cells
	if first[2] != "2026-03-15 at 10:30" || first[3] != "30 min" || first[5] != "10% (50.00)" || first[6] != "450.00" {
		t.Errorf("unexpected first row %v", first)
	}
	if tbl.Rows[1].Cells[3] != "15 min" {
		t.Errorf("expected explicit duration, got %v", tbl.Rows[1].Cells)
	}
	if doc.Blocks[7].Text != "Total Amount: Rs. 950.00" {
		t.Errorf("unexpected total %q", doc.Blocks[7].Text)
	}
}

func TestBuildReceipt_NoAddress(t *testing.T) {
	b := &Bill{ID: 1, BillDate: time.Now()}
	doc := BuildReceipt(Clinic{Name: "Clinic"}, b, ReceiptPatient{}, nil, time.UTC)
	if doc.Kinds()[1] != document.KindSubHeading {
		t.Errorf("expected no stamp without an address, got %v", doc.Kinds())
	}
}

func TestBuildReceipt_Renders(t *testing.T) {
	pdf, err := document.NewRenderer().Render(sampleReceipt())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("expected a PDF")
	}
}
