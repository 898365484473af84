package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueTable() Table {
	return Table{
		Title:   "Attendance Issues - Math 7",
		Columns: []string{"Date", "LRN", "Name", "Status", "Time"},
		Rows: [][]string{
			{"2026-08-28", "100001", "Ana Reyes", "TARDY", "07:45"},
			{"2026-08-28", "100002", "Ben Santos", "ABSENT", ""},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(issueTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,LRN,Name,Status,Time", lines[0])
	assert.Contains(t, lines[1], "Ana Reyes")
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	table := issueTable()
	table.Rows[1] = []string{"2026-08-28", "100002"}

	_, err := NewCSVExporter().Render(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(issueTable())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))

	wide := issueTable()
	wide.Wide = true
	out, err = NewPDFExporter().Render(wide)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(issueTable())
	require.NoError(t, err)
	// XLSX is a zip container.
	assert.Equal(t, "PK", string(out[:2]))
}

func TestSheetName(t *testing.T) {
	name := sheetName("Attendance Issues - A Very Long Class Name Indeed")
	assert.LessOrEqual(t, len(name), 31)
	assert.NotEmpty(t, name)

	assert.Equal(t, "Grades 2026 2027", sheetName("Grades 2026/2027"))
	assert.Equal(t, "Sheet1", sheetName(""))
}
