package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusTardy   AttendanceStatus = "TARDY"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusTardy, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Issue reports whether the status is persisted. PRESENT is the implicit
// default and never stored.
func (s AttendanceStatus) Issue() bool {
	return s == AttendanceStatusTardy || s == AttendanceStatusAbsent
}

// AttendanceRecord is a single stored exception for one student on one day.
type AttendanceRecord struct {
	Status AttendanceStatus `json:"status"`
	Time   string           `json:"time"`
}

// RecordMap maps LRN to the stored exception for a day. Students without an
// entry are implicitly present.
type RecordMap map[string]AttendanceRecord

// Value implements driver.Valuer.
func (m RecordMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *RecordMap) Scan(src interface{}) error {
	return scanJSON(src, m, "attendance records")
}

// AttendanceDay is the per-class per-date container. At most one row exists
// per (class_id, date_key).
type AttendanceDay struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	DateKey   string    `db:"date_key" json:"date_key"`
	Records   RecordMap `db:"records" json:"records"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceIssue is one TARDY/ABSENT entry annotated with the student name
// from the current roster.
type AttendanceIssue struct {
	DateKey string           `json:"date_key"`
	LRN     string           `json:"lrn"`
	Name    string           `json:"name"`
	Status  AttendanceStatus `json:"status"`
	Time    string           `json:"time"`
}

// AttendanceHistoryEntry is one issue from a single student's history.
type AttendanceHistoryEntry struct {
	DateKey string           `json:"date_key"`
	Status  AttendanceStatus `json:"status"`
	Time    string           `json:"time"`
}

// AttendanceDaySummary is the roll-up statistic for one class day. Students
// with no stored record count as present.
type AttendanceDaySummary struct {
	ClassID        string  `json:"class_id"`
	DateKey        string  `json:"date_key"`
	Enrolled       int     `json:"enrolled"`
	Present        int     `json:"present"`
	Tardy          int     `json:"tardy"`
	Absent         int     `json:"absent"`
	PresentPercent float64 `json:"present_percent"`
}
