package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders a report as a single-sheet workbook named after the
// report title.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the columns on row one and the data below it.
func (e *XLSXExporter) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("xlsx export needs columns")
	}

	sheet := sheetName(t.Title)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	if err := writeRow(f, sheet, 1, t.Columns); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("cell %d:%d: %w", col+1, rowNum, err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

// sheetName keeps workbook sheet titles inside Excel's 31-character limit
// and free of the characters it rejects.
func sheetName(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, title)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 31 {
		cleaned = strings.TrimSpace(cleaned[:31])
	}
	if cleaned == "" {
		return "Sheet1"
	}
	return cleaned
}
