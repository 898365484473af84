package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type authAccountRepository interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminAccount, error)
	FindTeacherByLogin(ctx context.Context, identifier string) (*models.TeacherAccount, error)
	FindStudentByLRN(ctx context.Context, lrn string) (*models.StudentAccount, error)
	UpdateTeacherPassword(ctx context.Context, username, passwordHash string) (bool, error)
	UpdateStudentPassword(ctx context.Context, lrn, passwordHash string, mustChange bool) (bool, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeSubjectTokens(ctx context.Context, role models.UserRole, subject string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	BcryptCost         int
}

// AuthService provides login, token refresh and password change for the
// three account roles. The JWT subject carries the role-specific
// identifier: email for admins, username for teachers, LRN for students.
type AuthService struct {
	repo      authAccountRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authAccountRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Login authenticates against the account store for the requested role and
// returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	role := models.UserRole(strings.ToUpper(req.Role))

	var (
		hash     string
		disabled bool
		info     models.UserInfo
	)

	switch role {
	case models.RoleAdmin:
		account, err := s.repo.FindAdminByEmail(ctx, req.Email)
		if err != nil {
			return nil, loginLookupError(err)
		}
		hash = account.PasswordHash
		info = models.UserInfo{ID: account.ID, Name: account.Name, Role: models.RoleAdmin, Email: account.Email}
	case models.RoleTeacher:
		identifier := req.Username
		if identifier == "" {
			identifier = req.Email
		}
		account, err := s.repo.FindTeacherByLogin(ctx, identifier)
		if err != nil {
			return nil, loginLookupError(err)
		}
		hash = account.PasswordHash
		disabled = account.Disabled
		info = models.UserInfo{ID: account.ID, Name: account.Name, Role: models.RoleTeacher, Username: account.Username}
		if account.Email != nil {
			info.Email = *account.Email
		}
	case models.RoleStudent:
		account, err := s.repo.FindStudentByLRN(ctx, req.LRN)
		if err != nil {
			return nil, loginLookupError(err)
		}
		hash = account.PasswordHash
		disabled = account.Disabled
		info = models.UserInfo{ID: account.ID, Name: account.Name, Role: models.RoleStudent, LRN: account.LRN, MustChangePassword: account.MustChangePassword}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if disabled {
		return nil, appErrors.Clone(appErrors.ErrDisabledAccount, "account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	subject := subjectFor(info)

	accessToken, err := s.generateAccessToken(role, subject, info.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := s.issueRefreshToken(ctx, role, subject, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         info,
	}, nil
}

// RefreshToken exchanges a refresh token for a new token pair. The used
// token is revoked so each value works once.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	if stored.Revoked || time.Now().UTC().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	name, err := s.subjectName(ctx, stored.Role, stored.Subject)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	accessToken, err := s.generateAccessToken(stored.Role, stored.Subject, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access token")
	}

	newRefresh, err := s.issueRefreshToken(ctx, stored.Role, stored.Subject, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// Logout revokes the provided refresh token for the given subject.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, role models.UserRole, subject string) error {
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}

	if stored.Role != role || stored.Subject != subject {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to account")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	return nil
}

// ChangePassword verifies the current password and stores a new hash for a
// teacher or student account. A student changing their own password clears
// the forced-change flag set when the account was auto-provisioned.
func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	role := models.UserRole(strings.ToUpper(req.Role))

	var currentHash string
	switch role {
	case models.RoleTeacher:
		account, err := s.repo.FindTeacherByLogin(ctx, req.Subject)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "account not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
		}
		currentHash = account.PasswordHash
	case models.RoleStudent:
		account, err := s.repo.FindStudentByLRN(ctx, req.Subject)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "account not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
		}
		currentHash = account.PasswordHash
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "current password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	switch role {
	case models.RoleTeacher:
		if _, err := s.repo.UpdateTeacherPassword(ctx, req.Subject, string(newHash)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
	case models.RoleStudent:
		if _, err := s.repo.UpdateStudentPassword(ctx, req.Subject, string(newHash), false); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
	}

	if err := s.repo.RevokeSubjectTokens(ctx, role, req.Subject); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
	}

	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) subjectName(ctx context.Context, role models.UserRole, subject string) (string, error) {
	switch role {
	case models.RoleAdmin:
		account, err := s.repo.FindAdminByEmail(ctx, subject)
		if err != nil {
			return "", refreshLookupError(err)
		}
		return account.Name, nil
	case models.RoleTeacher:
		account, err := s.repo.FindTeacherByLogin(ctx, subject)
		if err != nil {
			return "", refreshLookupError(err)
		}
		if account.Disabled {
			return "", appErrors.Clone(appErrors.ErrDisabledAccount, "account is disabled")
		}
		return account.Name, nil
	case models.RoleStudent:
		account, err := s.repo.FindStudentByLRN(ctx, subject)
		if err != nil {
			return "", refreshLookupError(err)
		}
		if account.Disabled {
			return "", appErrors.Clone(appErrors.ErrDisabledAccount, "account is disabled")
		}
		return account.Name, nil
	}
	return "", appErrors.Clone(appErrors.ErrUnauthorized, "unknown token role")
}

func (s *AuthService) issueRefreshToken(ctx context.Context, role models.UserRole, subject, ip, userAgent string) (*models.RefreshToken, error) {
	value, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		Role:      role,
		Subject:   subject,
		Token:     value,
		ExpiresAt: time.Now().UTC().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now().UTC(),
		Revoked:   false,
		IPAddress: ip,
		UserAgent: userAgent,
	}

	if err := s.repo.CreateRefreshToken(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return token, nil
}

func (s *AuthService) generateAccessToken(role models.UserRole, subject, name string) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		Role:    role,
		Subject: subject,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func subjectFor(info models.UserInfo) string {
	switch info.Role {
	case models.RoleAdmin:
		return info.Email
	case models.RoleTeacher:
		return info.Username
	default:
		return info.LRN
	}
}

func loginLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
}

func refreshLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "associated account no longer exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
