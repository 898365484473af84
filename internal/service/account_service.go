package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type accountAdminRepository interface {
	TeacherExists(ctx context.Context, username, email string) (bool, error)
	CreateTeacher(ctx context.Context, account *models.TeacherAccount) error
	ListTeachers(ctx context.Context) ([]models.TeacherAccount, error)
	UpdateTeacherPassword(ctx context.Context, username, passwordHash string) (bool, error)
	SetTeacherDisabled(ctx context.Context, username string, disabled bool) (bool, error)
	ListStudents(ctx context.Context) ([]models.StudentAccount, error)
	UpdateStudentPassword(ctx context.Context, lrn, passwordHash string, mustChange bool) (bool, error)
	SetStudentDisabled(ctx context.Context, lrn string, disabled bool) (bool, error)
	DeleteStudent(ctx context.Context, lrn string) (int64, error)
	RevokeSubjectTokens(ctx context.Context, role models.UserRole, subject string) error
}

type accountRosterCascade interface {
	DeleteByLRN(ctx context.Context, lrn string) (int64, error)
}

type accountAttendanceCascade interface {
	RemoveStudentEverywhere(ctx context.Context, lrn string) error
}

// AccountConfig carries the well-known reset passwords.
type AccountConfig struct {
	TeacherDefaultPassword string
	StudentDefaultPassword string
	BcryptCost             int
}

// AccountService implements the admin-side account lifecycle.
type AccountService struct {
	accounts   accountAdminRepository
	roster     accountRosterCascade
	attendance accountAttendanceCascade
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	config     AccountConfig
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts accountAdminRepository, roster accountRosterCascade, attendance accountAttendanceCascade, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config AccountConfig) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TeacherDefaultPassword == "" {
		config.TeacherDefaultPassword = "Teacher123"
	}
	if config.StudentDefaultPassword == "" {
		config.StudentDefaultPassword = "Student123"
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{accounts: accounts, roster: roster, attendance: attendance, cache: cache, validator: validate, logger: logger, config: config}
}

// CreateTeacher provisions a teacher login. An omitted password falls back
// to the well-known default.
func (s *AccountService) CreateTeacher(ctx context.Context, req models.CreateTeacherRequest) (*models.TeacherAccount, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := s.accounts.TeacherExists(ctx, username, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher account")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already in use")
	}

	password := req.Password
	if password == "" {
		password = s.config.TeacherDefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.TeacherAccount{
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	}
	if email != "" {
		account.Email = &email
	}
	if err := s.accounts.CreateTeacher(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher account")
	}
	s.logger.Info("teacher account created", zap.String("username", username))
	return account, nil
}

// ListTeachers returns all teacher accounts.
func (s *AccountService) ListTeachers(ctx context.Context) ([]models.TeacherAccount, error) {
	accounts, err := s.accounts.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return accounts, nil
}

// ListStudents returns all student accounts.
func (s *AccountService) ListStudents(ctx context.Context) ([]models.StudentAccount, error) {
	accounts, err := s.accounts.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return accounts, nil
}

// ResetTeacherPassword restores the well-known teacher default and revokes
// outstanding sessions.
func (s *AccountService) ResetTeacherPassword(ctx context.Context, username string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.TeacherDefaultPassword), s.config.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	updated, err := s.accounts.UpdateTeacherPassword(ctx, username, string(hash))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	s.revokeSessions(ctx, models.RoleTeacher, username)
	return nil
}

// SetTeacherDisabled toggles the teacher login. Disabling also revokes
// outstanding sessions.
func (s *AccountService) SetTeacherDisabled(ctx context.Context, username string, disabled bool) error {
	updated, err := s.accounts.SetTeacherDisabled(ctx, username, disabled)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher account")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if disabled {
		s.revokeSessions(ctx, models.RoleTeacher, username)
	}
	return nil
}

// ResetStudentPassword restores the well-known student default and forces a
// change on next login.
func (s *AccountService) ResetStudentPassword(ctx context.Context, lrn string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.StudentDefaultPassword), s.config.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	updated, err := s.accounts.UpdateStudentPassword(ctx, lrn, string(hash), true)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.revokeSessions(ctx, models.RoleStudent, lrn)
	return nil
}

// SetStudentDisabled toggles the student login.
func (s *AccountService) SetStudentDisabled(ctx context.Context, lrn string, disabled bool) error {
	updated, err := s.accounts.SetStudentDisabled(ctx, lrn, disabled)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student account")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if disabled {
		s.revokeSessions(ctx, models.RoleStudent, lrn)
	}
	return nil
}

// DeleteStudent removes the login account together with every enrollment
// and every attendance record the LRN appears in.
func (s *AccountService) DeleteStudent(ctx context.Context, lrn string) error {
	deleted, err := s.accounts.DeleteStudent(ctx, lrn)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student account")
	}
	if deleted == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if _, err := s.roster.DeleteByLRN(ctx, lrn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollments")
	}
	if err := s.attendance.RemoveStudentEverywhere(ctx, lrn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove attendance records")
	}

	s.revokeSessions(ctx, models.RoleStudent, lrn)
	if err := s.cache.Invalidate(ctx, attendanceCachePrefix+"*"); err != nil {
		s.logger.Debug("attendance cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("student account deleted", zap.String("lrn", lrn))
	return nil
}

func (s *AccountService) revokeSessions(ctx context.Context, role models.UserRole, subject string) {
	if err := s.accounts.RevokeSubjectTokens(ctx, role, subject); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("subject", subject), zap.Error(err))
	}
}
