package models

import "encoding/json"

// CreateClassRequest creates a class for the authenticated teacher.
type CreateClassRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateClassRequest rewrites the mutable class fields. Nil fields keep the
// stored value.
type UpdateClassRequest struct {
	Name    *string         `json:"name,omitempty"`
	Weights json.RawMessage `json:"weights,omitempty"`
	Lessons *[]Lesson       `json:"lessons,omitempty"`
}

// AddLessonRequest appends one lesson to a class.
type AddLessonRequest struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category" validate:"required"`
	Max      float64 `json:"max" validate:"required,gt=0"`
}

// EnlistItem is one student in a batch enrollment.
type EnlistItem struct {
	LRN  string `json:"lrn" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// EnlistRequest enrolls one or more students into a class.
type EnlistRequest struct {
	Students []EnlistItem `json:"students" validate:"required,min=1,dive"`
}

// PutScoreRequest sets one score cell. ScoreValue accepts whatever JSON the
// client sends; non-numeric input coerces to 0.
type PutScoreRequest struct {
	LRN        string      `json:"lrn" validate:"required"`
	ScoreKey   string      `json:"score_key" validate:"required"`
	ScoreValue interface{} `json:"score_value"`
}

// MarkAttendanceRequest records one student's status for a date.
type MarkAttendanceRequest struct {
	LRN    string `json:"lrn" validate:"required"`
	Status string `json:"status" validate:"required"`
	Time   string `json:"time"`
}

// CreateTeacherRequest provisions a teacher account.
type CreateTeacherRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"omitempty,min=6"`
}
