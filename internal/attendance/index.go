// Package attendance builds read-side views over the per-class attendance
// day containers. Storage holds exceptions only: a student with no record
// for a day is implicitly present, so every view here filters and joins
// rather than reconstructing full roster snapshots.
package attendance

import (
	"sort"

	"github.com/classrecord/classrecord-api/internal/models"
)

// ClassIssues flattens all TARDY/ABSENT entries across the given days into
// a single view ordered by date descending, annotated with student names
// from the current roster. Entries whose LRN is not on the roster anymore
// are dropped silently: the join is against current enrollment, not a
// historical snapshot.
func ClassIssues(days []models.AttendanceDay, roster []models.ClassStudent) []models.AttendanceIssue {
	names := make(map[string]string, len(roster))
	for _, student := range roster {
		names[student.LRN] = student.Name
	}

	sorted := sortDaysDescending(days)

	issues := make([]models.AttendanceIssue, 0)
	for _, day := range sorted {
		for _, lrn := range sortedLRNs(day.Records) {
			name, enrolled := names[lrn]
			if !enrolled {
				continue
			}
			record := day.Records[lrn]
			if !record.Status.Issue() {
				continue
			}
			issues = append(issues, models.AttendanceIssue{
				DateKey: day.DateKey,
				LRN:     lrn,
				Name:    name,
				Status:  record.Status,
				Time:    record.Time,
			})
		}
	}
	return issues
}

// StudentHistory extracts one student's own issues ordered by date
// descending. PRESENT entries do not exist in storage, so there is nothing
// to filter beyond the student's key.
func StudentHistory(days []models.AttendanceDay, lrn string) []models.AttendanceHistoryEntry {
	sorted := sortDaysDescending(days)

	history := make([]models.AttendanceHistoryEntry, 0)
	for _, day := range sorted {
		record, ok := day.Records[lrn]
		if !ok || !record.Status.Issue() {
			continue
		}
		history = append(history, models.AttendanceHistoryEntry{
			DateKey: day.DateKey,
			Status:  record.Status,
			Time:    record.Time,
		})
	}
	return history
}

// DaySummary computes the roll-up statistic for one class day. Enrolled
// students with no stored record count as present, consistent with the
// implicit-PRESENT invariant. Records referencing departed students are
// ignored.
func DaySummary(classID, dateKey string, records models.RecordMap, roster []models.ClassStudent) models.AttendanceDaySummary {
	summary := models.AttendanceDaySummary{
		ClassID:  classID,
		DateKey:  dateKey,
		Enrolled: len(roster),
	}

	for _, student := range roster {
		record, ok := records[student.LRN]
		if !ok || !record.Status.Issue() {
			summary.Present++
			continue
		}
		switch record.Status {
		case models.AttendanceStatusTardy:
			summary.Tardy++
		case models.AttendanceStatusAbsent:
			summary.Absent++
		}
	}

	if summary.Enrolled > 0 {
		summary.PresentPercent = float64(summary.Present) / float64(summary.Enrolled) * 100
	}
	return summary
}

func sortDaysDescending(days []models.AttendanceDay) []models.AttendanceDay {
	sorted := make([]models.AttendanceDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateKey > sorted[j].DateKey
	})
	return sorted
}

func sortedLRNs(records models.RecordMap) []string {
	lrns := make([]string, 0, len(records))
	for lrn := range records {
		lrns = append(lrns, lrn)
	}
	sort.Strings(lrns)
	return lrns
}
