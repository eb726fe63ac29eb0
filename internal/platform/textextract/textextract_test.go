package textextract

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("report.pdf"))
	assert.True(t, IsPDF("https://b.s3.ap-south-1.amazonaws.com/u_REPORT.PDF"))
	assert.True(t, IsPDF("mem://k_lab.pdf?x=1"))
	assert.False(t, IsPDF("scan.png"))
	assert.False(t, IsPDF(""))
}

func TestIsImage(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "mem://u_d.Png"} {
		assert.True(t, IsImage(name), name)
	}
	for _, name := range []string{"a.pdf", "b.gif", "noext"} {
		assert.False(t, IsImage(name), name)
	}
}

func TestExtract_Empty(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestExtract_Corrupt(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestExtract_ReadsPagesInOrder(t *testing.T) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Text(20, 20, "Hemoglobin 13.5")
	doc.AddPage()
	doc.Text(20, 20, "Platelets 250000")

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	text, err := NewPDFExtractor().Extract(context.Background(), buf.Bytes())
	require.NoError(t, err)

	first := bytes.Index([]byte(text), []byte("Hemoglobin"))
	second := bytes.Index([]byte(text), []byte("Platelets"))
	assert.GreaterOrEqual(t, first, 0, "first page text missing: %q", text)
	assert.Greater(t, second, first, "pages out of order: %q", text)
}
