package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classrecord/classrecord-api/internal/grading"
	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type classRepository interface {
	ListAll(ctx context.Context) ([]models.Class, error)
	ListByTeacher(ctx context.Context, teacherUsername string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classRosterCascade interface {
	DeleteByClass(ctx context.Context, classID string) error
}

type classAttendanceCascade interface {
	DeleteByClass(ctx context.Context, classID string) error
}

// ClassService manages classes, their lesson lists and weight documents.
type ClassService struct {
	classes    classRepository
	roster     classRosterCascade
	attendance classAttendanceCascade
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(classes classRepository, roster classRosterCascade, attendance classAttendanceCascade, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{classes: classes, roster: roster, attendance: attendance, cache: cache, validator: validate, logger: logger}
}

const classListCachePrefix = "classes:"

// List returns every class for admins and owned classes for teachers.
func (s *ClassService) List(ctx context.Context, role models.UserRole, username string) ([]models.Class, error) {
	key := classListCachePrefix + "all"
	if role == models.RoleTeacher {
		key = classListCachePrefix + "teacher:" + username
	}

	var cached []models.Class
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	var (
		classes []models.Class
		err     error
	)
	switch role {
	case models.RoleAdmin:
		classes, err = s.classes.ListAll(ctx)
	case models.RoleTeacher:
		classes, err = s.classes.ListByTeacher(ctx, username)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can list classes")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	if err := s.cache.Set(ctx, key, classes, 0); err != nil {
		s.logger.Debug("class list cache write failed", zap.Error(err))
	}
	return classes, nil
}

// Create registers a new class owned by the teacher. Weights start at the
// default 40/30/30 object and lessons start empty.
func (s *ClassService) Create(ctx context.Context, teacherUsername string, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := &models.Class{
		Name:            strings.TrimSpace(req.Name),
		TeacherUsername: teacherUsername,
		Weights:         defaultWeightsDocument(),
		Lessons:         models.LessonList{},
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.invalidateClassCaches(ctx)
	return class, nil
}

// Get loads a class and enforces ownership for teachers.
func (s *ClassService) Get(ctx context.Context, classID string, role models.UserRole, username string) (*models.Class, error) {
	return s.loadOwned(ctx, classID, role, username)
}

// Update rewrites name, weights and lessons. Weight documents arriving in
// the legacy array shape are resolved to the object shape before storage.
func (s *ClassService) Update(ctx context.Context, classID string, role models.UserRole, username string, req models.UpdateClassRequest) (*models.Class, error) {
	class, err := s.loadOwned(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class name cannot be empty")
		}
		class.Name = name
	}
	if req.Weights != nil {
		class.Weights = normalizeWeightsDocument(req.Weights)
	}
	if req.Lessons != nil {
		lessons := make(models.LessonList, 0, len(*req.Lessons))
		for _, lesson := range *req.Lessons {
			lesson.Category = grading.NormalizeCategory(lesson.Category)
			lessons = append(lessons, lesson)
		}
		class.Lessons = lessons
	}

	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}

	s.invalidateClassCaches(ctx)
	return class, nil
}

// Delete removes the class together with its roster and attendance days.
func (s *ClassService) Delete(ctx context.Context, classID string, role models.UserRole, username string) error {
	if _, err := s.loadOwned(ctx, classID, role, username); err != nil {
		return err
	}

	if err := s.roster.DeleteByClass(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove class roster")
	}
	if err := s.attendance.DeleteByClass(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove class attendance")
	}
	if err := s.classes.Delete(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}

	s.invalidateClassCaches(ctx)
	return nil
}

// AddLesson appends a lesson with a generated key and normalized category.
func (s *ClassService) AddLesson(ctx context.Context, classID string, role models.UserRole, username string, req models.AddLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	class, err := s.loadOwned(ctx, classID, role, username)
	if err != nil {
		return nil, err
	}

	lesson := models.Lesson{
		Name:     strings.TrimSpace(req.Name),
		Category: grading.NormalizeCategory(req.Category),
		Max:      req.Max,
		Key:      nextLessonKey(class.Lessons),
	}
	class.Lessons = append(class.Lessons, lesson)

	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store lesson")
	}

	s.invalidateClassCaches(ctx)
	return &lesson, nil
}

// RemoveLesson drops the lesson with the given key. Orphaned score entries
// are left in place; they stop counting once the lesson is gone.
func (s *ClassService) RemoveLesson(ctx context.Context, classID string, role models.UserRole, username, key string) error {
	class, err := s.loadOwned(ctx, classID, role, username)
	if err != nil {
		return err
	}

	filtered := make(models.LessonList, 0, len(class.Lessons))
	found := false
	for _, lesson := range class.Lessons {
		if lesson.Key == key {
			found = true
			continue
		}
		filtered = append(filtered, lesson)
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	class.Lessons = filtered

	if err := s.classes.Update(ctx, class); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove lesson")
	}

	s.invalidateClassCaches(ctx)
	return nil
}

// ResolvedWeights returns the canonical weight triple for the class.
func (s *ClassService) ResolvedWeights(ctx context.Context, classID string, role models.UserRole, username string) (grading.WeightTriple, error) {
	class, err := s.loadOwned(ctx, classID, role, username)
	if err != nil {
		return grading.WeightTriple{}, err
	}
	return grading.ResolveWeights(class.Weights), nil
}

func (s *ClassService) loadOwned(ctx context.Context, classID string, role models.UserRole, username string) (*models.Class, error) {
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

func (s *ClassService) invalidateClassCaches(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, classListCachePrefix+"*"); err != nil {
		s.logger.Debug("class cache invalidation failed", zap.Error(err))
	}
}

func defaultWeightsDocument() models.RawWeights {
	defaults := grading.DefaultWeights()
	return weightsDocument(defaults)
}

func weightsDocument(triple grading.WeightTriple) models.RawWeights {
	doc, _ := json.Marshal(map[string]float64{"ww": triple.WW, "pt": triple.PT, "qe": triple.QE})
	return models.RawWeights(doc)
}

func normalizeWeightsDocument(raw json.RawMessage) models.RawWeights {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return weightsDocument(grading.ResolveWeights(models.RawWeights(raw)))
	}
	return models.RawWeights(raw)
}

// nextLessonKey derives a key from the current clock, suffixing a counter
// when two lessons land on the same millisecond.
func nextLessonKey(existing models.LessonList) string {
	base := fmt.Sprintf("L%d", time.Now().UnixMilli())
	key := base
	for i := 1; lessonKeyTaken(existing, key); i++ {
		key = fmt.Sprintf("%s-%d", base, i)
	}
	return key
}

func lessonKeyTaken(lessons models.LessonList, key string) bool {
	for _, lesson := range lessons {
		if lesson.Key == key {
			return true
		}
	}
	return false
}
