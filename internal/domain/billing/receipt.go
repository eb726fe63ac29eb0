package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medassist/clinic/internal/platform/document"
)

// Clinic is the letterhead printed on receipts.
type Clinic struct {
	Name    string
	Address string
}

var (
	receiptHeader = []string{"Service", "Doctor", "Date & Time", "Duration", "Price (Rs.)", "Discount", "Amount (Rs.)"}
	receiptWidths = []float64{2.2, 2, 2.2, 1.2, 1.4, 1.6, 1.4}
)

// ReceiptPatient is the patient block of a receipt.
type ReceiptPatient struct {
	Name    string
	Age     int
	Gender  string
	Contact string
}

// BuildReceipt lays out a bill receipt. rows are the request rows in the
// order their items were stored; the bill date is shown in loc.
func BuildReceipt(clinic Clinic, b *Bill, p ReceiptPatient, rows []BillRow, loc *time.Location) *document.Document {
	doc := document.New("Bill Receipt", b.BillDate)
	doc.Author = clinic.Name

	doc.Add(document.Title(clinic.Name))
	if clinic.Address != "" {
		doc.Add(document.Stamp(clinic.Address))
	}

	doc.Add(
		document.SubHeading("Patient Information"),
		document.InfoBox(
			document.Field{Label: "Name", Value: p.Name},
			document.Field{Label: "Age/Gender", Value: strconv.Itoa(p.Age) + "/" + p.Gender},
			document.Field{Label: "Contact", Value: p.Contact},
		),
		document.SubHeading("Bill Details"),
		document.InfoBox(
			document.Field{Label: "Bill #", Value: strconv.FormatInt(b.ID, 10)},
			document.Field{Label: "Date", Value: b.BillDate.In(loc).Format("02-01-2006")},
			document.Field{Label: "Payment Mode", Value: titleCase(b.PaymentMode)},
			document.Field{Label: "Status", Value: titleCase(b.PaymentStatus)},
		),
	)

	t := document.Table{Header: receiptHeader, Widths: receiptWidths}
	for _, r := range rows {
		t.Rows = append(t.Rows, document.Row{Cells: []string{
			r.Service,
			r.Doctor,
			r.AppointmentDate + " at " + r.AppointmentTime,
			fmt.Sprintf("%d min", r.duration()),
			money(r.Price),
			fmt.Sprintf("%s%% (%s)", strconv.FormatFloat(r.Discount, 'f', -1, 64), money(r.DiscountAmount())),
			money(r.NetAmount()),
		}})
	}

	return doc.Add(
		document.TableBlock(t),
		document.Summary("Total Amount: Rs. "+money(b.TotalAmount)),
		document.Footer(fmt.Sprintf("Thank you for choosing %s. Get well soon!", clinic.Name)),
		document.Footer("This is a computer-generated receipt and does not require a signature."),
	)
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
