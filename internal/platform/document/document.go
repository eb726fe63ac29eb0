// Package document holds a small layout model for printable clinic
// documents (prescriptions, bill receipts) and renders it to PDF.
//
// Builders assemble a Document from ordered blocks; the renderer never
// reorders or drops blocks, so a missing section in the input is simply a
// missing block in the layout.
package document

import "time"

type Kind int

const (
	KindTitle Kind = iota
	KindStamp
	KindInfoBox
	KindHeading
	KindSubHeading
	KindParagraph
	KindBullets
	KindTable
	KindSummary
	KindFooter
	KindSignature
)

var kindNames = map[Kind]string{
	KindTitle:      "title",
	KindStamp:      "stamp",
	KindInfoBox:    "infobox",
	KindHeading:    "heading",
	KindSubHeading: "subheading",
	KindParagraph:  "paragraph",
	KindBullets:    "bullets",
	KindTable:      "table",
	KindSummary:    "summary",
	KindFooter:     "footer",
	KindSignature:  "signature",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// RGB is an 8-bit colour.
type RGB struct{ R, G, B int }

var (
	Purple      = RGB{0x67, 0x3A, 0xB7}
	PurpleTint  = RGB{0xF3, 0xF3, 0xFE}
	PurpleLight = RGB{0xED, 0xE7, 0xF6}
	Teal        = RGB{0x00, 0x79, 0x6B}
	Grey        = RGB{0x75, 0x75, 0x75}
)

type Field struct {
	Label string
	Value string
}

// Row is one table row. Variant rows render indented in italics beneath
// their parent.
type Row struct {
	Cells   []string
	Variant bool
}

type Table struct {
	Header []string
	// Widths are relative; they are scaled to the printable width.
	Widths []float64
	Rows   []Row
}

type Block struct {
	Kind   Kind
	Text   string
	Items  []string
	Fields []Field
	Table  *Table
}

type Document struct {
	Title   string
	Author  string
	Accent  RGB
	Created time.Time
	Blocks  []Block
}

func New(title string, created time.Time) *Document {
	return &Document{Title: title, Accent: Purple, Created: created}
}

func (d *Document) Add(blocks ...Block) *Document {
	d.Blocks = append(d.Blocks, blocks...)
	return d
}

// Kinds lists the block kinds in order.
func (d *Document) Kinds() []Kind {
	out := make([]Kind, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = b.Kind
	}
	return out
}

func Title(text string) Block      { return Block{Kind: KindTitle, Text: text} }
func Stamp(text string) Block      { return Block{Kind: KindStamp, Text: text} }
func Heading(text string) Block    { return Block{Kind: KindHeading, Text: text} }
func SubHeading(text string) Block { return Block{Kind: KindSubHeading, Text: text} }
func Paragraph(text string) Block  { return Block{Kind: KindParagraph, Text: text} }
func Summary(text string) Block    { return Block{Kind: KindSummary, Text: text} }
func Footer(text string) Block     { return Block{Kind: KindFooter, Text: text} }
func Signature(text string) Block  { return Block{Kind: KindSignature, Text: text} }

func InfoBox(fields ...Field) Block { return Block{Kind: KindInfoBox, Fields: fields} }
func Bullets(items ...string) Block { return Block{Kind: KindBullets, Items: items} }
func TableBlock(t Table) Block      { return Block{Kind: KindTable, Table: &t} }
