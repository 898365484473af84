package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classrecord/classrecord-api/internal/models"
)

func newTestExportService(t *testing.T) *ExportService {
	t.Helper()
	classes := testClass()
	roster := &mockRosterRepo{students: map[string]*models.ClassStudent{
		rosterKey("c1", "100001"): {ID: "e1", ClassID: "c1", LRN: "100001", Name: "Ana Reyes", Scores: models.ScoreMap{"L1": 18}, FinalGrade: 90},
	}}
	days := &mockAttendanceRepo{days: map[string]*models.AttendanceDay{
		dayKey("c1", "2026-08-28"): {ClassID: "c1", DateKey: "2026-08-28", Records: models.RecordMap{
			"100001": {Status: models.AttendanceStatusTardy, Time: "07:45"},
		}},
	}}

	classSvc := NewClassService(classes, &mockClassCascade{}, &mockAttendanceCascade{}, nil, nil, zap.NewNop())
	rosterSvc := NewRosterService(roster, classes, &mockStudentAccounts{}, &mockRosterAttendance{}, nil, nil, zap.NewNop(), RosterConfig{})
	attendanceSvc := NewAttendanceService(days, roster, classes, nil, nil, zap.NewNop())
	return NewExportService(classSvc, rosterSvc, attendanceSvc, zap.NewNop())
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = ParseExportFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = ParseExportFormat("docx")
	require.Error(t, err)
}

func TestExportGradeSheetCSV(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.GradeSheet(context.Background(), "c1", models.RoleTeacher, "mcruz", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "math-7-grades.csv", file.FileName)

	body := string(file.Content)
	assert.Contains(t, body, "Quiz 1 (WW/20)")
	assert.Contains(t, body, "Ana Reyes")
	assert.Contains(t, body, "90")
}

func TestExportGradeSheetPDF(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.GradeSheet(context.Background(), "c1", models.RoleTeacher, "mcruz", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportGradeSheetXLSX(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.GradeSheet(context.Background(), "c1", models.RoleTeacher, "mcruz", FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)
	assert.NotEmpty(t, file.Content)
	// XLSX is a zip container.
	assert.Equal(t, "PK", string(file.Content[:2]))
}

func TestExportIssueLogCSV(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.IssueLog(context.Background(), "c1", models.RoleTeacher, "mcruz", FormatCSV)
	require.NoError(t, err)

	body := string(file.Content)
	assert.Contains(t, body, "2026-08-28")
	assert.Contains(t, body, "TARDY")
	assert.Contains(t, body, "Ana Reyes")
}

func TestExportOwnershipEnforced(t *testing.T) {
	svc := newTestExportService(t)

	_, err := svc.GradeSheet(context.Background(), "c1", models.RoleTeacher, "other", FormatCSV)
	require.Error(t, err)
}
