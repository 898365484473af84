package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classrecord/classrecord-api/internal/grading"
	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type rosterRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassStudent, error)
	FindByClassAndLRN(ctx context.Context, classID, lrn string) (*models.ClassStudent, error)
	Exists(ctx context.Context, classID, lrn string) (bool, error)
	Create(ctx context.Context, student *models.ClassStudent) error
	UpdateScores(ctx context.Context, id string, scores models.ScoreMap, finalGrade int) error
	UpdateFinalGrade(ctx context.Context, id string, finalGrade int) error
	Delete(ctx context.Context, classID, lrn string) (bool, error)
	ListByLRN(ctx context.Context, lrn string) ([]models.StudentEnrollmentView, error)
}

type rosterClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type rosterStudentAccounts interface {
	FindStudentByLRN(ctx context.Context, lrn string) (*models.StudentAccount, error)
	CreateStudent(ctx context.Context, account *models.StudentAccount) error
}

type rosterAttendanceCascade interface {
	RemoveStudent(ctx context.Context, classID, lrn string) error
}

// RosterConfig carries account-provisioning settings for enrollments.
type RosterConfig struct {
	StudentDefaultPassword string
	BcryptCost             int
}

// RosterService manages enrollments, score writes and the cached final
// grade each write keeps in sync.
type RosterService struct {
	roster     rosterRepository
	classes    rosterClassRepository
	accounts   rosterStudentAccounts
	attendance rosterAttendanceCascade
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	config     RosterConfig
}

// NewRosterService constructs a RosterService.
func NewRosterService(roster rosterRepository, classes rosterClassRepository, accounts rosterStudentAccounts, attendance rosterAttendanceCascade, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config RosterConfig) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.StudentDefaultPassword == "" {
		config.StudentDefaultPassword = "Student123"
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &RosterService{roster: roster, classes: classes, accounts: accounts, attendance: attendance, cache: cache, validator: validate, logger: logger, config: config}
}

// List returns the roster for a class, ordered by student name.
func (s *RosterService) List(ctx context.Context, classID string, role models.UserRole, username string) ([]models.ClassStudent, error) {
	if _, err := s.loadOwnedClass(ctx, classID, role, username); err != nil {
		return nil, err
	}
	students, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return students, nil
}

// Enlist enrolls a batch of students. Each item is processed on its own:
// duplicates within the class are skipped and reported, and every new LRN
// gets a login account with the default password if none exists yet.
func (s *RosterService) Enlist(ctx context.Context, classID string, role models.UserRole, username string, req models.EnlistRequest) (*models.EnlistResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enlist payload")
	}

	if _, err := s.loadOwnedClass(ctx, classID, role, username); err != nil {
		return nil, err
	}

	result := &models.EnlistResult{Skipped: []string{}, Created: []models.ClassStudent{}}
	for _, item := range req.Students {
		lrn := strings.TrimSpace(item.LRN)
		name := strings.TrimSpace(item.Name)

		exists, err := s.roster.Exists(ctx, classID, lrn)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if exists {
			result.Skipped = append(result.Skipped, lrn)
			continue
		}

		if err := s.ensureStudentAccount(ctx, lrn, name); err != nil {
			return nil, err
		}

		student := &models.ClassStudent{
			ClassID: classID,
			LRN:     lrn,
			Name:    name,
			Scores:  models.ScoreMap{},
		}
		if err := s.roster.Create(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
		}
		result.CreatedCount++
		result.Created = append(result.Created, *student)
	}

	if result.CreatedCount > 0 {
		s.invalidateAttendanceCaches(ctx, classID)
	}
	return result, nil
}

// PutScore writes one score cell and recomputes the final grade in the same
// statement, keeping the pair consistent. Non-numeric values coerce to 0.
func (s *RosterService) PutScore(ctx context.Context, classID string, role models.UserRole, username string, req models.PutScoreRequest) (*models.ClassStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	class, err := s.loadOwnedClass(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}

	student, err := s.roster.FindByClassAndLRN(ctx, classID, req.LRN)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if student.Scores == nil {
		student.Scores = models.ScoreMap{}
	}
	student.Scores[req.ScoreKey] = coerceScore(req.ScoreValue)

	weights := grading.ResolveWeights(class.Weights)
	student.FinalGrade = grading.ComputeFinalGrade(student.Scores, class.Lessons, weights)

	if err := s.roster.UpdateScores(ctx, student.ID, student.Scores, student.FinalGrade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store score")
	}
	return student, nil
}

// Remove deletes one enrollment and strips the student's attendance records
// for this class. The login account is untouched; the student may still be
// enrolled elsewhere.
func (s *RosterService) Remove(ctx context.Context, classID string, role models.UserRole, username, lrn string) error {
	if _, err := s.loadOwnedClass(ctx, classID, role, username); err != nil {
		return err
	}

	removed, err := s.roster.Delete(ctx, classID, lrn)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}

	if err := s.attendance.RemoveStudent(ctx, classID, lrn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove attendance records")
	}

	s.invalidateAttendanceCaches(ctx, classID)
	return nil
}

// EnrollmentsByLRN returns the student-facing view across all classes.
func (s *RosterService) EnrollmentsByLRN(ctx context.Context, lrn string) ([]models.StudentEnrollmentView, error) {
	views, err := s.roster.ListByLRN(ctx, lrn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return views, nil
}

// Recalculate recomputes the final grade for the whole roster. Useful after
// weight or lesson edits. Returns the number of enrollments whose grade
// changed.
func (s *RosterService) Recalculate(ctx context.Context, classID string, role models.UserRole, username string) (int, error) {
	class, err := s.loadOwnedClass(ctx, classID, role, username)
	if err != nil {
		return 0, err
	}

	students, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}

	weights := grading.ResolveWeights(class.Weights)
	updated := 0
	for _, student := range students {
		final := grading.ComputeFinalGrade(student.Scores, class.Lessons, weights)
		if final == student.FinalGrade {
			continue
		}
		if err := s.roster.UpdateFinalGrade(ctx, student.ID, final); err != nil {
			return updated, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store final grade")
		}
		updated++
	}
	return updated, nil
}

func (s *RosterService) ensureStudentAccount(ctx context.Context, lrn, name string) error {
	_, err := s.accounts.FindStudentByLRN(ctx, lrn)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.StudentDefaultPassword), s.config.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash default password")
	}
	account := &models.StudentAccount{
		LRN:                lrn,
		Name:               name,
		PasswordHash:       string(hash),
		MustChangePassword: true,
	}
	if err := s.accounts.CreateStudent(ctx, account); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision student account")
	}
	s.logger.Info("student account provisioned", zap.String("lrn", lrn))
	return nil
}

// invalidateAttendanceCaches drops the cached issue view, which joins names
// against the roster and must not survive a roster change.
func (s *RosterService) invalidateAttendanceCaches(ctx context.Context, classID string) {
	if err := s.cache.Invalidate(ctx, attendanceCachePrefix+classID+":*"); err != nil {
		s.logger.Debug("attendance cache invalidation failed", zap.Error(err))
	}
}

func (s *RosterService) loadOwnedClass(ctx context.Context, classID string, role models.UserRole, username string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if role == models.RoleTeacher && class.TeacherUsername != username {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return class, nil
}

// coerceScore mirrors the loose numeric handling score cells always had:
// numbers pass through, numeric strings parse, everything else becomes 0.
func coerceScore(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case int:
		return float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
