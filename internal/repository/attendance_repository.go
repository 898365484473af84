package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classrecord/classrecord-api/internal/models"
)

// AttendanceRepository persists per-class per-day containers holding the
// sparse exception records. PRESENT is never written; marking a student
// present removes their entry instead.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = "id, class_id, date_key, records, created_at, updated_at"

// FindByClassAndDate returns the day container, or sql.ErrNoRows when the
// class has no stored exceptions for the date.
func (r *AttendanceRepository) FindByClassAndDate(ctx context.Context, classID, dateKey string) (*models.AttendanceDay, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_days WHERE class_id = $1 AND date_key = $2", attendanceColumns)
	var day models.AttendanceDay
	if err := r.db.GetContext(ctx, &day, query, classID, dateKey); err != nil {
		return nil, err
	}
	return &day, nil
}

// ListByClass returns every day container for the class ordered by date
// descending.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID string) ([]models.AttendanceDay, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_days WHERE class_id = $1 ORDER BY date_key DESC", attendanceColumns)
	var days []models.AttendanceDay
	if err := r.db.SelectContext(ctx, &days, query, classID); err != nil {
		return nil, fmt.Errorf("list attendance days: %w", err)
	}
	return days, nil
}

// UpsertRecord writes one student's exception for a date, creating the day
// container when absent. Existing entries for the same student are replaced.
func (r *AttendanceRepository) UpsertRecord(ctx context.Context, classID, dateKey, lrn string, record models.AttendanceRecord) error {
	payload, err := json.Marshal(models.RecordMap{lrn: record})
	if err != nil {
		return fmt.Errorf("marshal attendance record: %w", err)
	}
	now := time.Now().UTC()
	const query = `INSERT INTO attendance_days (id, class_id, date_key, records, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (class_id, date_key)
        DO UPDATE SET records = attendance_days.records || EXCLUDED.records, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), classID, dateKey, payload, now); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

// DeleteRecord removes one student's entry for a date, restoring the
// implicit-present default. Missing containers are a no-op.
func (r *AttendanceRepository) DeleteRecord(ctx context.Context, classID, dateKey, lrn string) error {
	const query = `UPDATE attendance_days SET records = records - $3, updated_at = $4 WHERE class_id = $1 AND date_key = $2`
	if _, err := r.db.ExecContext(ctx, query, classID, dateKey, lrn, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	return nil
}

// RemoveStudent strips a student's entries from every date of one class.
// Used when an enrollment is removed so historical rows stop referencing
// the departed student.
func (r *AttendanceRepository) RemoveStudent(ctx context.Context, classID, lrn string) error {
	const query = `UPDATE attendance_days SET records = records - $2, updated_at = $3 WHERE class_id = $1`
	if _, err := r.db.ExecContext(ctx, query, classID, lrn, time.Now().UTC()); err != nil {
		return fmt.Errorf("remove student attendance: %w", err)
	}
	return nil
}

// RemoveStudentEverywhere strips a student's entries across all classes.
// Used by the admin account-deletion cascade.
func (r *AttendanceRepository) RemoveStudentEverywhere(ctx context.Context, lrn string) error {
	const query = `UPDATE attendance_days SET records = records - $1, updated_at = $2 WHERE records ? $1`
	if _, err := r.db.ExecContext(ctx, query, lrn, time.Now().UTC()); err != nil {
		return fmt.Errorf("remove student attendance everywhere: %w", err)
	}
	return nil
}

// DeleteByClass removes all day containers for a class.
func (r *AttendanceRepository) DeleteByClass(ctx context.Context, classID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM attendance_days WHERE class_id = $1", classID); err != nil {
		return fmt.Errorf("delete class attendance: %w", err)
	}
	return nil
}
