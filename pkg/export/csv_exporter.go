package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is a rendered report: an ordered header row plus data rows. Wide
// marks reports that grow a column per lesson (the grade sheet) so the PDF
// renderer can switch to landscape; the issue log stays at five columns.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
	Wide    bool
}

// CSVExporter writes a report as RFC 4180 CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the column row followed by every data row. The title is
// not emitted; CSV consumers get it from the file name.
func (e *CSVExporter) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("csv export needs columns")
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv columns: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("csv row %d has %d cells, expected %d", i, len(row), len(t.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
