package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classrecord/classrecord-api/internal/models"
)

// ClassRepository handles persistence of classes including their embedded
// lesson and weight documents.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, name, teacher_username, weights, lessons, created_at, updated_at"

// ListAll returns every class ordered by creation descending.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes ORDER BY created_at DESC", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListByTeacher returns classes owned by the teacher username.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherUsername string) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE teacher_username = $1 ORDER BY created_at DESC", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherUsername); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1", classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, teacher_username, weights, lessons, created_at, updated_at)
        VALUES (:id, :name, :teacher_username, :weights, :lessons, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update rewrites the mutable class fields (name, weights, lessons).
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, weights = :weights, lessons = :lessons, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update class %s: no rows affected", class.ID)
	}
	return nil
}

// Delete removes the class row. Roster and attendance cascades are the
// caller's responsibility.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
