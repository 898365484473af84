package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classrecord/classrecord-api/internal/attendance"
	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type attendanceRepository interface {
	FindByClassAndDate(ctx context.Context, classID, dateKey string) (*models.AttendanceDay, error)
	ListByClass(ctx context.Context, classID string) ([]models.AttendanceDay, error)
	UpsertRecord(ctx context.Context, classID, dateKey, lrn string, record models.AttendanceRecord) error
	DeleteRecord(ctx context.Context, classID, dateKey, lrn string) error
}

type attendanceRosterReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassStudent, error)
	Exists(ctx context.Context, classID, lrn string) (bool, error)
}

type attendanceClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AttendanceService records daily statuses and serves the issue views
// derived from the stored exceptions.
type AttendanceService struct {
	days      attendanceRepository
	roster    attendanceRosterReader
	classes   attendanceClassReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(days attendanceRepository, roster attendanceRosterReader, classes attendanceClassReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{days: days, roster: roster, classes: classes, cache: cache, validator: validate, logger: logger}
}

const attendanceCachePrefix = "attendance:"

// Day returns the stored records for one class date. Dates with no stored
// exceptions come back as an empty map, meaning everyone is present.
func (s *AttendanceService) Day(ctx context.Context, classID, dateKey string, role models.UserRole, username string) (models.RecordMap, error) {
	if _, err := s.ownedClass(ctx, classID, role, username); err != nil {
		return nil, err
	}

	day, err := s.days.FindByClassAndDate(ctx, classID, dateKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordMap{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance day")
	}
	if day.Records == nil {
		return models.RecordMap{}, nil
	}
	return day.Records, nil
}

// Mark applies one status. PRESENT removes the stored record so presence
// stays implicit; TARDY and ABSENT upsert it.
func (s *AttendanceService) Mark(ctx context.Context, classID, dateKey string, role models.UserRole, username string, req models.MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	status := models.AttendanceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "status must be PRESENT, TARDY or ABSENT")
	}

	if _, err := s.ownedClass(ctx, classID, role, username); err != nil {
		return err
	}

	enrolled, err := s.roster.Exists(ctx, classID, req.LRN)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}

	if status == models.AttendanceStatusPresent {
		if err := s.days.DeleteRecord(ctx, classID, dateKey, req.LRN); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear attendance record")
		}
	} else {
		record := models.AttendanceRecord{Status: status, Time: req.Time}
		if err := s.days.UpsertRecord(ctx, classID, dateKey, req.LRN, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance record")
		}
	}

	if err := s.cache.Invalidate(ctx, attendanceCachePrefix+classID+":*"); err != nil {
		s.logger.Debug("attendance cache invalidation failed", zap.Error(err))
	}
	return nil
}

// Issues returns the class-wide issue view, newest date first, with names
// joined from the current roster.
func (s *AttendanceService) Issues(ctx context.Context, classID string, role models.UserRole, username string) ([]models.AttendanceIssue, error) {
	if _, err := s.ownedClass(ctx, classID, role, username); err != nil {
		return nil, err
	}

	key := attendanceCachePrefix + classID + ":issues"
	var cached []models.AttendanceIssue
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	issues, err := s.buildIssues(ctx, classID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, issues, 0); err != nil {
		s.logger.Debug("issue cache write failed", zap.Error(err))
	}
	return issues, nil
}

// History returns one student's issue entries for a class, newest first.
// Teachers must own the class; students reach this only for their own LRN,
// which the route middleware has already checked.
func (s *AttendanceService) History(ctx context.Context, classID, lrn string, role models.UserRole, username string) ([]models.AttendanceHistoryEntry, error) {
	if role != models.RoleStudent {
		if _, err := s.ownedClass(ctx, classID, role, username); err != nil {
			return nil, err
		}
	}

	days, err := s.days.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance days")
	}
	return attendance.StudentHistory(days, lrn), nil
}

// Summary reports the presence counts for one class date. Students without
// a stored record count as present.
func (s *AttendanceService) Summary(ctx context.Context, classID, dateKey string, role models.UserRole, username string) (*models.AttendanceDaySummary, error) {
	if _, err := s.ownedClass(ctx, classID, role, username); err != nil {
		return nil, err
	}

	records := models.RecordMap{}
	day, err := s.days.FindByClassAndDate(ctx, classID, dateKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance day")
	}
	if day != nil && day.Records != nil {
		records = day.Records
	}

	roster, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	summary := attendance.DaySummary(classID, dateKey, records, roster)
	return &summary, nil
}

func (s *AttendanceService) buildIssues(ctx context.Context, classID string) ([]models.AttendanceIssue, error) {
	days, err := s.days.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance days")
	}
	roster, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return attendance.ClassIssues(days, roster), nil
}

func (s *AttendanceService) ownedClass(ctx context.Context, classID string, role models.UserRole, username string) (*models.Class, error) {
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
