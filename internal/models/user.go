package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// AdminAccount represents an administrator login stored in admin_accounts.
type AdminAccount struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherAccount represents a teacher login stored in teacher_accounts.
// Username doubles as the class ownership key.
type TeacherAccount struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Disabled     bool      `db:"disabled" json:"disabled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentAccount represents a student login keyed by LRN. One account per
// LRN regardless of how many classes the student is enrolled in.
type StudentAccount struct {
	ID                 string    `db:"id" json:"id"`
	LRN                string    `db:"lrn" json:"lrn"`
	Name               string    `db:"name" json:"name"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	MustChangePassword bool      `db:"must_change_password" json:"must_change_password"`
	Disabled           bool      `db:"disabled" json:"disabled"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
