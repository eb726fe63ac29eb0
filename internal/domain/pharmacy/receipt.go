package pharmacy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medassist/clinic/internal/platform/document"
)

// Letterhead heads pharmacy receipts.
type Letterhead struct {
	Name    string
	Address string
}

var (
	receiptHeader = []string{"Medicine", "Quantity", "Price (Rs.)", "Discount", "Amount (Rs.)"}
	receiptWidths = []float64{3.2, 1.2, 1.4, 1.8, 1.6}
)

// BuildReceipt lays out a stored pharmacy bill. Times are shown in loc.
func BuildReceipt(lh Letterhead, b *Bill, loc *time.Location) *document.Document {
	doc := document.New("Pharmacy Bill Receipt", b.BillDate)
	doc.Author = lh.Name
	doc.Accent = document.Teal

	doc.Add(document.Title(lh.Name))
	if lh.Address != "" {
		doc.Add(document.Stamp(lh.Address))
	}

	when := b.BillDate.In(loc)
	doc.Add(
		document.SubHeading("Patient Information"),
		document.InfoBox(
			document.Field{Label: "Name", Value: b.PatientName},
			document.Field{Label: "Age/Gender", Value: orNA(b.PatientAge) + "/" + orNAString(b.PatientGender)},
			document.Field{Label: "Contact", Value: b.PatientPhone},
		),
		document.SubHeading("Bill Details"),
		document.InfoBox(
			document.Field{Label: "Bill #", Value: strconv.FormatInt(b.ID, 10)},
			document.Field{Label: "Date", Value: when.Format("02-01-2006")},
			document.Field{Label: "Time", Value: when.Format("15:04")},
			document.Field{Label: "Payment Mode", Value: titleCase(b.PaymentMode)},
			document.Field{Label: "Status", Value: titleCase(b.PaymentStatus)},
		),
	)

	t := document.Table{Header: receiptHeader, Widths: receiptWidths}
	for _, it := range b.Items {
		gross := float64(it.Quantity) * it.PricePerUnit
		t.Rows = append(t.Rows, document.Row{Cells: []string{
			it.MedicineName,
			strconv.Itoa(it.Quantity),
			money(it.PricePerUnit),
			fmt.Sprintf("%s%% (%s)", strconv.FormatFloat(it.DiscountPercentage, 'f', -1, 64), money(gross*it.DiscountPercentage/100)),
			money(it.ItemTotal),
		}})
	}

	return doc.Add(
		document.TableBlock(t),
		document.Summary("Total Amount: Rs. "+money(b.TotalAmount)),
		document.Footer(fmt.Sprintf("Thank you for choosing %s. Get well soon!", lh.Name)),
		document.Footer("This is a computer-generated receipt and does not require a signature."),
	)
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func orNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func orNAString(v *string) string {
	if v == nil || *v == "" {
		return "N/A"
	}
	return *v
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
