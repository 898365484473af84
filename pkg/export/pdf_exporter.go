package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a report as a printable table. Grade sheets go
// landscape to make room for the per-lesson columns; the issue log fits
// portrait.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the table out on A4 with the title as a heading. The LRN and
// name columns get extra width since lesson scores are short numerics.
func (e *PDFExporter) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("pdf export needs columns")
	}

	orientation := "P"
	pageWidth := 190.0
	if t.Wide {
		orientation = "L"
		pageWidth = 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, t.Title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	widths := columnWidths(t.Columns, pageWidth)

	pdf.SetFont("Arial", "B", 9)
	for i, column := range t.Columns {
		pdf.CellFormat(widths[i], 8, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range t.Rows {
		for i := range t.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths gives the name column double weight. Both reports keep names
// in the second column; everything after it is a date, status or score.
func columnWidths(columns []string, pageWidth float64) []float64 {
	weights := make([]float64, len(columns))
	total := 0.0
	for i := range columns {
		weights[i] = 1
		if i == 1 && len(columns) > 2 {
			weights[i] = 2
		}
		total += weights[i]
	}

	widths := make([]float64, len(columns))
	for i, w := range weights {
		widths[i] = pageWidth * w / total
	}
	return widths
}
