package grading

import "strings"

// Canonical category codes for the three weighted buckets.
const (
	CategoryWrittenWork     = "WW"
	CategoryPerformanceTask = "PT"
	CategoryQuarterlyExam   = "QE"
)

// NormalizeCategory maps a free-text category label onto one of the three
// canonical codes. The stored data carries two label vocabularies ("WW" vs
// "Written Works"), so every category read goes through this single
// translation point. Labels matching no rule come back uppercased and are
// later excluded from grading.
func NormalizeCategory(label string) string {
	c := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case c == CategoryWrittenWork || strings.Contains(c, "WRITTEN"):
		return CategoryWrittenWork
	case c == CategoryPerformanceTask || strings.Contains(c, "PERFORMANCE"):
		return CategoryPerformanceTask
	case c == CategoryQuarterlyExam || strings.Contains(c, "QUARTER") || strings.Contains(c, "EXAM"):
		return CategoryQuarterlyExam
	default:
		return c
	}
}
