package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/export"
)

// ExportFormat identifies a supported output encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat validates the format query parameter, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders grade sheets and attendance issue logs.
type ExportService struct {
	classes    *ClassService
	roster     *RosterService
	attendance *AttendanceService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	xlsx       *export.XLSXExporter
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(classes *ClassService, roster *RosterService, attendance *AttendanceService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		classes:    classes,
		roster:     roster,
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		logger:     logger,
	}
}

// GradeSheet renders the roster-by-lessons matrix with final grades.
func (s *ExportService) GradeSheet(ctx context.Context, classID string, role models.UserRole, username string, format ExportFormat) (*ExportFile, error) {
	class, err := s.classes.Get(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.List(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}

	columns := []string{"LRN", "Name"}
	for _, lesson := range class.Lessons {
		columns = append(columns, fmt.Sprintf("%s (%s/%s)", lesson.Name, lesson.Category, formatNumber(lesson.Max)))
	}
	columns = append(columns, "Final Grade")

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		row := []string{student.LRN, student.Name}
		for _, lesson := range class.Lessons {
			value := ""
			if score, ok := student.Scores[lesson.Key]; ok {
				value = formatNumber(score)
			}
			row = append(row, value)
		}
		row = append(row, strconv.Itoa(student.FinalGrade))
		rows = append(rows, row)
	}

	table := export.Table{
		Title:   fmt.Sprintf("Grade Sheet - %s", class.Name),
		Columns: columns,
		Rows:    rows,
		Wide:    true,
	}
	return s.render(table, format, slugify(class.Name)+"-grades")
}

// IssueLog renders the class-wide attendance issue view.
func (s *ExportService) IssueLog(ctx context.Context, classID string, role models.UserRole, username string, format ExportFormat) (*ExportFile, error) {
	class, err := s.classes.Get(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}
	issues, err := s.attendance.Issues(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{issue.DateKey, issue.LRN, issue.Name, string(issue.Status), issue.Time})
	}

	table := export.Table{
		Title:   fmt.Sprintf("Attendance Issues - %s", class.Name),
		Columns: []string{"Date", "LRN", "Name", "Status", "Time"},
		Rows:    rows,
	}
	return s.render(table, format, slugify(class.Name)+"-attendance")
}

func (s *ExportService) render(table export.Table, format ExportFormat, baseName string) (*ExportFile, error) {
	var (
		content     []byte
		contentType string
		err         error
	)
	switch format {
	case FormatCSV:
		content, err = s.csv.Render(table)
		contentType = "text/csv"
	case FormatPDF:
		content, err = s.pdf.Render(table)
		contentType = "application/pdf"
	case FormatXLSX:
		content, err = s.xlsx.Render(table)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		FileName:    fmt.Sprintf("%s.%s", baseName, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "class"
	}
	return b.String()
}
