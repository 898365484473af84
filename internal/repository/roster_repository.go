package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classrecord/classrecord-api/internal/models"
)

// RosterRepository handles persistence of class enrollments together with
// their sparse score documents.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

const rosterColumns = "id, class_id, lrn, name, scores, final_grade, created_at, updated_at"

// ListByClass returns the roster ordered by student name.
func (r *RosterRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM class_students WHERE class_id = $1 ORDER BY name ASC", rosterColumns)
	var students []models.ClassStudent
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// FindByClassAndLRN returns a single enrollment.
func (r *RosterRepository) FindByClassAndLRN(ctx context.Context, classID, lrn string) (*models.ClassStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM class_students WHERE class_id = $1 AND lrn = $2", rosterColumns)
	var student models.ClassStudent
	if err := r.db.GetContext(ctx, &student, query, classID, lrn); err != nil {
		return nil, err
	}
	return &student, nil
}

// Exists reports whether the (classID, lrn) pair is already enrolled.
func (r *RosterRepository) Exists(ctx context.Context, classID, lrn string) (bool, error) {
	const query = "SELECT 1 FROM class_students WHERE class_id = $1 AND lrn = $2 LIMIT 1"
	var one int
	if err := r.db.GetContext(ctx, &one, query, classID, lrn); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment.
func (r *RosterRepository) Create(ctx context.Context, student *models.ClassStudent) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Scores == nil {
		student.Scores = models.ScoreMap{}
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO class_students (id, class_id, lrn, name, scores, final_grade, created_at, updated_at)
        VALUES (:id, :class_id, :lrn, :name, :scores, :final_grade, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateScores rewrites the score document and cached final grade in one
// statement so the pair stays consistent.
func (r *RosterRepository) UpdateScores(ctx context.Context, id string, scores models.ScoreMap, finalGrade int) error {
	const query = `UPDATE class_students SET scores = $2, final_grade = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, scores, finalGrade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update scores: %w", err)
	}
	return nil
}

// UpdateFinalGrade refreshes only the cached final grade.
func (r *RosterRepository) UpdateFinalGrade(ctx context.Context, id string, finalGrade int) error {
	const query = `UPDATE class_students SET final_grade = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, finalGrade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update final grade: %w", err)
	}
	return nil
}

// Delete removes one enrollment, reporting whether a row existed.
func (r *RosterRepository) Delete(ctx context.Context, classID, lrn string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM class_students WHERE class_id = $1 AND lrn = $2", classID, lrn)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	return affected > 0, nil
}

// DeleteByClass removes the whole roster of a class.
func (r *RosterRepository) DeleteByClass(ctx context.Context, classID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM class_students WHERE class_id = $1", classID); err != nil {
		return fmt.Errorf("delete class roster: %w", err)
	}
	return nil
}

// DeleteByLRN removes a student's enrollments across every class, returning
// the number of rows removed.
func (r *RosterRepository) DeleteByLRN(ctx context.Context, lrn string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM class_students WHERE lrn = $1", lrn)
	if err != nil {
		return 0, fmt.Errorf("delete enrollments by lrn: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete enrollments by lrn: %w", err)
	}
	return affected, nil
}

// ListByLRN returns the student-facing enrollment view across classes.
func (r *RosterRepository) ListByLRN(ctx context.Context, lrn string) ([]models.StudentEnrollmentView, error) {
	const query = `SELECT cs.class_id, c.name AS class_name, cs.lrn, cs.name, cs.final_grade, cs.scores
        FROM class_students cs
        JOIN classes c ON c.id = cs.class_id
        WHERE cs.lrn = $1
        ORDER BY cs.created_at DESC`
	var views []models.StudentEnrollmentView
	if err := r.db.SelectContext(ctx, &views, query, lrn); err != nil {
		return nil, fmt.Errorf("list enrollments by lrn: %w", err)
	}
	return views, nil
}
