package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classrecord/classrecord-api/internal/models"
)

func sampleRoster() []models.ClassStudent {
	return []models.ClassStudent{
		{LRN: "100001", Name: "Cruz, Ana"},
		{LRN: "100002", Name: "Reyes, Ben"},
		{LRN: "100003", Name: "Santos, Carla"},
	}
}

func sampleDays() []models.AttendanceDay {
	return []models.AttendanceDay{
		{
			ClassID: "c1", DateKey: "2024-01-10",
			Records: models.RecordMap{
				"100001": {Status: models.AttendanceStatusAbsent},
				"100002": {Status: models.AttendanceStatusTardy, Time: "08:12"},
			},
		},
		{
			ClassID: "c1", DateKey: "2024-01-12",
			Records: models.RecordMap{
				"100001": {Status: models.AttendanceStatusTardy, Time: "07:55"},
				"999999": {Status: models.AttendanceStatusAbsent},
			},
		},
	}
}

func TestClassIssuesOrderedAndJoined(t *testing.T) {
	issues := ClassIssues(sampleDays(), sampleRoster())

	require.Len(t, issues, 3)
	assert.Equal(t, "2024-01-12", issues[0].DateKey)
	assert.Equal(t, "100001", issues[0].LRN)
	assert.Equal(t, "Cruz, Ana", issues[0].Name)
	assert.Equal(t, models.AttendanceStatusTardy, issues[0].Status)
	assert.Equal(t, "07:55", issues[0].Time)

	assert.Equal(t, "2024-01-10", issues[1].DateKey)
	assert.Equal(t, "2024-01-10", issues[2].DateKey)
}

func TestClassIssuesDropsDepartedStudents(t *testing.T) {
	issues := ClassIssues(sampleDays(), sampleRoster())
	for _, issue := range issues {
		assert.NotEqual(t, "999999", issue.LRN)
	}

	// removing a student from the roster removes them from the view even
	// though historical rows still reference the LRN
	roster := sampleRoster()[1:]
	issues = ClassIssues(sampleDays(), roster)
	for _, issue := range issues {
		assert.NotEqual(t, "100001", issue.LRN)
	}
	require.Len(t, issues, 1)
}

func TestStudentHistoryDescending(t *testing.T) {
	history := StudentHistory(sampleDays(), "100001")

	require.Len(t, history, 2)
	assert.Equal(t, "2024-01-12", history[0].DateKey)
	assert.Equal(t, models.AttendanceStatusTardy, history[0].Status)
	assert.Equal(t, "2024-01-10", history[1].DateKey)
	assert.Equal(t, models.AttendanceStatusAbsent, history[1].Status)
}

func TestStudentHistoryEmpty(t *testing.T) {
	assert.Empty(t, StudentHistory(sampleDays(), "100003"))
	assert.Empty(t, StudentHistory(nil, "100001"))
}

func TestDaySummaryCountsUnmarkedAsPresent(t *testing.T) {
	records := models.RecordMap{
		"100001": {Status: models.AttendanceStatusAbsent},
		"100002": {Status: models.AttendanceStatusTardy},
	}

	summary := DaySummary("c1", "2024-01-10", records, sampleRoster())

	assert.Equal(t, 3, summary.Enrolled)
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 1, summary.Tardy)
	assert.Equal(t, 1, summary.Absent)
	assert.InDelta(t, 33.33, summary.PresentPercent, 0.01)
}

func TestDaySummaryNoRecords(t *testing.T) {
	summary := DaySummary("c1", "2024-01-10", models.RecordMap{}, sampleRoster())
	assert.Equal(t, 3, summary.Present)
	assert.InDelta(t, 100, summary.PresentPercent, 0.001)

	empty := DaySummary("c1", "2024-01-10", models.RecordMap{}, nil)
	assert.Zero(t, empty.PresentPercent)
}
