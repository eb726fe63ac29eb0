package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 12.0
	bottomMargin = 15.0
	lineHeight   = 5.5
	cellPad      = 1.5
	fontFamily   = "Helvetica"
	variantInset = 3.0
)

// Characters the core fonts cannot encode.
var asciiFallback = strings.NewReplacer(
	"→", "->",
	"↳", "->",
	"₹", "Rs.",
	"≥", ">=",
	"≤", "<=",
	"µ", "u",
)

// Renderer writes Documents as A4 PDFs using the core Helvetica fonts.
type Renderer struct {
	// Compress deflates page streams. Tests switch it off to inspect text.
	Compress bool
}

func NewRenderer() *Renderer { return &Renderer{Compress: true} }

// Render produces the PDF bytes. Creation and modification dates come from
// doc.Created, so the same document always renders to the same bytes.
func (r *Renderer) Render(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.Created)
	pdf.SetModificationDate(doc.Created)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)

	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), accent: doc.Accent}
	if doc.Title != "" {
		pdf.SetTitle(w.text(doc.Title), false)
	}
	if doc.Author != "" {
		pdf.SetAuthor(w.text(doc.Author), false)
	}
	pdf.AddPage()

	for i, b := range doc.Blocks {
		if err := w.block(b); err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, b.Kind, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	accent RGB
}

func (w *writer) text(s string) string {
	return w.tr(asciiFallback.Replace(s))
}

func (w *writer) width() float64 {
	pw, _ := w.pdf.GetPageSize()
	l, _, r, _ := w.pdf.GetMargins()
	return pw - l - r
}

func (w *writer) fill(c RGB)  { w.pdf.SetFillColor(c.R, c.G, c.B) }
func (w *writer) color(c RGB) { w.pdf.SetTextColor(c.R, c.G, c.B) }
func (w *writer) black()      { w.pdf.SetTextColor(0, 0, 0) }

func (w *writer) block(b Block) error {
	pdf := w.pdf
	switch b.Kind {
	case KindTitle:
		pdf.SetFont(fontFamily, "B", 16)
		w.fill(w.accent)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(0, 11, w.text(b.Text), "", 1, "C", true, 0, "")
		w.black()
		pdf.Ln(4)

	case KindStamp:
		pdf.SetFont(fontFamily, "", 10)
		pdf.CellFormat(0, lineHeight, w.text(b.Text), "", 1, "L", false, 0, "")
		pdf.Ln(2)

	case KindInfoBox:
		w.infoBox(b.Fields)

	case KindHeading:
		pdf.Ln(1)
		pdf.SetFont(fontFamily, "B", 12)
		w.color(w.accent)
		pdf.CellFormat(0, 7, w.text(b.Text), "", 1, "L", false, 0, "")
		w.black()

	case KindSubHeading:
		pdf.SetFont(fontFamily, "B", 10.5)
		pdf.CellFormat(0, lineHeight+0.5, w.text(b.Text), "", 1, "L", false, 0, "")

	case KindParagraph:
		pdf.SetFont(fontFamily, "", 10)
		pdf.MultiCell(0, lineHeight, w.text(b.Text), "", "L", false)
		pdf.Ln(2)

	case KindBullets:
		pdf.SetFont(fontFamily, "", 10)
		left, _, _, _ := pdf.GetMargins()
		for _, item := range b.Items {
			pdf.SetX(left + 2)
			pdf.CellFormat(5, lineHeight, w.tr("•"), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, lineHeight, w.text(item), "", "L", false)
		}
		pdf.Ln(2)

	case KindTable:
		if b.Table == nil {
			return fmt.Errorf("table block without table")
		}
		w.table(*b.Table)

	case KindSummary:
		pdf.Ln(2)
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(0, 7, w.text(b.Text), "T", 1, "R", false, 0, "")

	case KindFooter:
		pdf.Ln(6)
		pdf.SetFont(fontFamily, "I", 8.5)
		w.color(Grey)
		pdf.MultiCell(0, 4.5, w.text(b.Text), "", "C", false)
		w.black()

	case KindSignature:
		pdf.Ln(14)
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(0, lineHeight, "________________________________________", "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10)
		pdf.CellFormat(0, lineHeight, w.text(b.Text), "", 1, "L", false, 0, "")

	default:
		return fmt.Errorf("unknown block kind %d", b.Kind)
	}
	return pdf.Error()
}

func (w *writer) infoBox(fields []Field) {
	pdf := w.pdf
	left, _, _, _ := pdf.GetMargins()
	width := w.width() * 0.9
	labelW := 32.0

	pdf.SetFont(fontFamily, "", 10.5)
	heights := make([]float64, len(fields))
	total := 2 * cellPad
	for i, f := range fields {
		lines := pdf.SplitLines([]byte(w.text(f.Value)), width-labelW-2*cellPad)
		n := len(lines)
		if n == 0 {
			n = 1
		}
		heights[i] = float64(n) * lineHeight
		total += heights[i]
	}

	w.ensureSpace(total)
	y0 := pdf.GetY()
	w.fill(PurpleTint)
	pdf.SetDrawColor(0xD1, 0xC4, 0xE9)
	pdf.Rect(left, y0, width, total, "FD")
	pdf.SetDrawColor(0, 0, 0)

	pdf.SetY(y0 + cellPad)
	for i, f := range fields {
		y := pdf.GetY()
		pdf.SetXY(left+cellPad, y)
		pdf.SetFont(fontFamily, "B", 10.5)
		pdf.CellFormat(labelW, lineHeight, w.text(f.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10.5)
		pdf.MultiCell(width-labelW-2*cellPad, lineHeight, w.text(f.Value), "", "L", false)
		pdf.SetY(y + heights[i])
	}
	pdf.SetY(y0 + total)
	pdf.Ln(4)
}

func (w *writer) ensureSpace(h float64) {
	_, ph := w.pdf.GetPageSize()
	if w.pdf.GetY()+h > ph-bottomMargin {
		w.pdf.AddPage()
	}
}

func (w *writer) columnWidths(t Table) []float64 {
	n := len(t.Header)
	widths := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		v := 1.0
		if i < len(t.Widths) && t.Widths[i] > 0 {
			v = t.Widths[i]
		}
		widths[i] = v
		sum += v
	}
	total := w.width()
	for i := range widths {
		widths[i] = widths[i] / sum * total
	}
	return widths
}

func (w *writer) table(t Table) {
	pdf := w.pdf
	widths := w.columnWidths(t)
	pdf.SetDrawColor(0xD3, 0xD3, 0xD3)

	header := func() {
		pdf.SetFont(fontFamily, "B", 9.5)
		w.fill(PurpleLight)
		cells := make([]string, len(t.Header))
		copy(cells, t.Header)
		w.tableRow(widths, cells, true, false)
	}
	header()

	for i, row := range t.Rows {
		style := ""
		if row.Variant {
			style = "I"
		}
		pdf.SetFont(fontFamily, style, 9.5)
		if i%2 == 1 {
			pdf.SetFillColor(0xFA, 0xF8, 0xFD)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		cells := make([]string, len(widths))
		copy(cells, row.Cells)

		h := w.rowHeight(widths, cells, row.Variant)
		_, ph := pdf.GetPageSize()
		if pdf.GetY()+h > ph-bottomMargin {
			pdf.AddPage()
			header()
			pdf.SetFont(fontFamily, style, 9.5)
		}
		w.tableRow(widths, cells, true, row.Variant)
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(4)
}

func (w *writer) rowHeight(widths []float64, cells []string, variant bool) float64 {
	maxLines := 1
	for i, cell := range cells {
		cw := widths[i] - 2*cellPad
		if variant && i == 0 {
			cw -= variantInset
		}
		if n := len(w.pdf.SplitLines([]byte(w.text(cell)), cw)); n > maxLines {
			maxLines = n
		}
	}
	return float64(maxLines)*lineHeight + 2*cellPad
}

func (w *writer) tableRow(widths []float64, cells []string, fill, variant bool) {
	pdf := w.pdf
	h := w.rowHeight(widths, cells, variant)
	left, _, _, _ := pdf.GetMargins()
	x, y := left, pdf.GetY()

	for i, cell := range cells {
		style := "D"
		if fill {
			style = "FD"
		}
		pdf.Rect(x, y, widths[i], h, style)

		inset := cellPad
		if variant && i == 0 {
			inset += variantInset
		}
		pdf.SetXY(x+inset, y+cellPad)
		pdf.MultiCell(widths[i]-inset-cellPad, lineHeight, w.text(cell), "", "L", false)
		x += widths[i]
	}
	pdf.SetXY(left, y+h)
}
