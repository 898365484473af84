package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Lesson is a single graded activity inside a class. Key associates scores
// with the lesson and never changes after creation.
type Lesson struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Max      float64 `json:"max"`
	Key      string  `json:"key"`
}

// LessonList stores the ordered lesson sequence as a JSONB document.
type LessonList []Lesson

// Value implements driver.Valuer.
func (l LessonList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LessonList) Scan(src interface{}) error {
	return scanJSON(src, l, "lesson list")
}

// RawWeights carries the class weight configuration verbatim. The stored
// value may be an object {ww,pt,qe} or an array [{category,percentage}];
// resolution into a canonical triple happens at read time, never here.
type RawWeights json.RawMessage

// MarshalJSON passes the stored document through unchanged.
func (w RawWeights) MarshalJSON() ([]byte, error) {
	if len(w) == 0 {
		return []byte("null"), nil
	}
	return w, nil
}

// UnmarshalJSON keeps the document verbatim.
func (w *RawWeights) UnmarshalJSON(data []byte) error {
	*w = append((*w)[0:0], data...)
	return nil
}

// Value implements driver.Valuer.
func (w RawWeights) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	return []byte(w), nil
}

// Scan implements sql.Scanner.
func (w *RawWeights) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		*w = append((*w)[0:0], v...)
		return nil
	case string:
		*w = RawWeights(v)
		return nil
	default:
		return fmt.Errorf("scan weights: unsupported type %T", src)
	}
}

// Class represents a teacher-owned class with its grading configuration.
type Class struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	TeacherUsername string     `db:"teacher_username" json:"teacher_username"`
	Weights         RawWeights `db:"weights" json:"weights"`
	Lessons         LessonList `db:"lessons" json:"lessons"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func scanJSON(src, dest interface{}, label string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		if err := json.Unmarshal(v, dest); err != nil {
			return fmt.Errorf("scan %s: %w", label, err)
		}
		return nil
	case string:
		if v == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), dest); err != nil {
			return fmt.Errorf("scan %s: %w", label, err)
		}
		return nil
	default:
		return fmt.Errorf("scan %s: unsupported type %T", label, src)
	}
}
