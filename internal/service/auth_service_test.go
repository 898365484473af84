package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type mockAccountRepo struct {
	admin   *models.AdminAccount
	teacher *models.TeacherAccount
	student *models.StudentAccount

	refreshTokens   map[string]*models.RefreshToken
	revokedSubjects []string

	teacherPassword    string
	studentPassword    string
	studentMustChange  *bool
	teacherPasswordSet bool
}

func (m *mockAccountRepo) FindAdminByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	if m.admin == nil || m.admin.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.admin, nil
}

func (m *mockAccountRepo) FindTeacherByLogin(ctx context.Context, identifier string) (*models.TeacherAccount, error) {
	if m.teacher == nil {
		return nil, sql.ErrNoRows
	}
	if m.teacher.Username != identifier && (m.teacher.Email == nil || *m.teacher.Email != identifier) {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func (m *mockAccountRepo) FindStudentByLRN(ctx context.Context, lrn string) (*models.StudentAccount, error) {
	if m.student == nil || m.student.LRN != lrn {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

func (m *mockAccountRepo) UpdateTeacherPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	m.teacherPassword = passwordHash
	m.teacherPasswordSet = true
	return true, nil
}

func (m *mockAccountRepo) UpdateStudentPassword(ctx context.Context, lrn, passwordHash string, mustChange bool) (bool, error) {
	m.studentPassword = passwordHash
	m.studentMustChange = &mustChange
	return true, nil
}

func (m *mockAccountRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAccountRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAccountRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAccountRepo) RevokeSubjectTokens(ctx context.Context, role models.UserRole, subject string) error {
	m.revokedSubjects = append(m.revokedSubjects, subject)
	return nil
}

func newTestAuthService(repo *mockAccountRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	})
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceTeacherLogin(t *testing.T) {
	repo := &mockAccountRepo{teacher: &models.TeacherAccount{
		ID: "t1", Username: "mcruz", Name: "Maria Cruz", PasswordHash: hashPassword(t, "password"),
	}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: "teacher", Username: "mcruz", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	assert.Equal(t, "mcruz", res.User.Username)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "mcruz", claims.Subject)
}

func TestAuthServiceStudentLoginCarriesMustChange(t *testing.T) {
	repo := &mockAccountRepo{student: &models.StudentAccount{
		ID: "s1", LRN: "100001", Name: "Ana Reyes", PasswordHash: hashPassword(t, "Student123"), MustChangePassword: true,
	}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Role: "student", LRN: "100001", Password: "Student123"})
	require.NoError(t, err)
	assert.True(t, res.User.MustChangePassword)
	assert.Equal(t, "100001", res.User.LRN)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAccountRepo{teacher: &models.TeacherAccount{
		Username: "mcruz", PasswordHash: hashPassword(t, "password"),
	}}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: "teacher", Username: "mcruz", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownAccount(t *testing.T) {
	svc := newTestAuthService(&mockAccountRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: "teacher", Username: "ghost", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginDisabledAccount(t *testing.T) {
	repo := &mockAccountRepo{teacher: &models.TeacherAccount{
		Username: "mcruz", PasswordHash: hashPassword(t, "password"), Disabled: true,
	}}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Role: "teacher", Username: "mcruz", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDisabledAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := &mockAccountRepo{teacher: &models.TeacherAccount{
		Username: "mcruz", Name: "Maria Cruz", PasswordHash: hashPassword(t, "password"),
	}}
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Role: "teacher", Username: "mcruz", Password: "password"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceChangePasswordClearsMustChange(t *testing.T) {
	repo := &mockAccountRepo{student: &models.StudentAccount{
		LRN: "100001", PasswordHash: hashPassword(t, "Student123"), MustChangePassword: true,
	}}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		Role:            "student",
		Subject:         "100001",
		CurrentPassword: "Student123",
		NewPassword:     "newpassword",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.studentMustChange)
	assert.False(t, *repo.studentMustChange)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.studentPassword), []byte("newpassword")))
	assert.Contains(t, repo.revokedSubjects, "100001")
}

func TestAuthServiceChangePasswordWrongCurrent(t *testing.T) {
	repo := &mockAccountRepo{teacher: &models.TeacherAccount{
		Username: "mcruz", PasswordHash: hashPassword(t, "password"),
	}}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		Role:            "teacher",
		Subject:         "mcruz",
		CurrentPassword: "wrong",
		NewPassword:     "newpassword",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.False(t, repo.teacherPasswordSet)
}

func TestAuthServiceChangePasswordTooShort(t *testing.T) {
	svc := newTestAuthService(&mockAccountRepo{})

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		Role:            "teacher",
		Subject:         "mcruz",
		CurrentPassword: "password",
		NewPassword:     "abc",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
