package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. The identifier
// depends on the role: teachers log in with username or email, admins with
// email, students with their LRN.
type LoginRequest struct {
	Role      string `json:"role" validate:"required,oneof=admin teacher student ADMIN TEACHER STUDENT"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	LRN       string `json:"lrn"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Role               UserRole `json:"role"`
	Username           string   `json:"username,omitempty"`
	Email              string   `json:"email,omitempty"`
	LRN                string   `json:"lrn,omitempty"`
	MustChangePassword bool     `json:"must_change_password,omitempty"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshToken is a persisted opaque refresh token.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	Role      UserRole   `db:"role" json:"role"`
	Subject   string     `db:"subject" json:"subject"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
}

// ChangePasswordRequest payload for updating a password. Subject is the
// username (teacher) or LRN (student) of the account being changed.
type ChangePasswordRequest struct {
	Role            string `json:"role" validate:"required,oneof=teacher student TEACHER STUDENT"`
	Subject         string `json:"subject" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// JWTClaims represents the JWT payload for access tokens. Subject carries
// the role-specific identifier (username, email or LRN).
type JWTClaims struct {
	Role    UserRole `json:"role"`
	Subject string   `json:"subject"`
	Name    string   `json:"name"`
	jwt.RegisteredClaims
}
