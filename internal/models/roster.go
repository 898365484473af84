package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ScoreMap is the sparse lesson-key to score mapping for one enrollment.
// A missing key means the lesson has not been scored yet.
type ScoreMap map[string]float64

// Value implements driver.Valuer.
func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *ScoreMap) Scan(src interface{}) error {
	return scanJSON(src, m, "score map")
}

// ClassStudent is one student's enrollment in one class. The same LRN may
// be enrolled in many classes but at most once per class.
type ClassStudent struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	LRN        string    `db:"lrn" json:"lrn"`
	Name       string    `db:"name" json:"name"`
	Scores     ScoreMap  `db:"scores" json:"scores"`
	FinalGrade int       `db:"final_grade" json:"final_grade"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentEnrollmentView is the student-facing projection joining class info.
type StudentEnrollmentView struct {
	ClassID    string   `db:"class_id" json:"class_id"`
	ClassName  string   `db:"class_name" json:"class_name"`
	LRN        string   `db:"lrn" json:"lrn"`
	Name       string   `db:"name" json:"name"`
	FinalGrade int      `db:"final_grade" json:"final_grade"`
	Scores     ScoreMap `db:"scores" json:"scores"`
}

// EnlistResult reports per-item outcomes for a batch enrollment.
type EnlistResult struct {
	CreatedCount int            `json:"created_count"`
	Skipped      []string       `json:"skipped"`
	Created      []ClassStudent `json:"created"`
}
