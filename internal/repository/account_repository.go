package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classrecord/classrecord-api/internal/models"
)

// AccountRepository persists the three account kinds (admin, teacher,
// student) and refresh tokens.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository constructs the repository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const (
	adminColumns   = "id, email, name, password_hash, created_at, updated_at"
	teacherColumns = "id, username, email, name, password_hash, disabled, created_at, updated_at"
	studentColumns = "id, lrn, name, password_hash, must_change_password, disabled, created_at, updated_at"
)

// FindAdminByEmail returns the admin account for the email.
func (r *AccountRepository) FindAdminByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM admin_accounts WHERE email = $1 LIMIT 1", adminColumns)
	var account models.AdminAccount
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindTeacherByLogin matches the identifier against username or email, the
// way the login form accepts either.
func (r *AccountRepository) FindTeacherByLogin(ctx context.Context, identifier string) (*models.TeacherAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_accounts WHERE username = $1 OR email = $2 LIMIT 1", teacherColumns)
	var account models.TeacherAccount
	if err := r.db.GetContext(ctx, &account, query, identifier, identifier); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindTeacherByUsername returns the teacher account for the username.
func (r *AccountRepository) FindTeacherByUsername(ctx context.Context, username string) (*models.TeacherAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_accounts WHERE username = $1 LIMIT 1", teacherColumns)
	var account models.TeacherAccount
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		return nil, err
	}
	return &account, nil
}

// TeacherExists reports whether the username or (optional) email is taken.
func (r *AccountRepository) TeacherExists(ctx context.Context, username, email string) (bool, error) {
	query := "SELECT 1 FROM teacher_accounts WHERE username = $1"
	args := []interface{}{username}
	if email != "" {
		query += " OR email = $2"
		args = append(args, email)
	}
	query += " LIMIT 1"
	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher exists: %w", err)
	}
	return true, nil
}

// CreateTeacher persists a new teacher account.
func (r *AccountRepository) CreateTeacher(ctx context.Context, account *models.TeacherAccount) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	const query = `INSERT INTO teacher_accounts (id, username, email, name, password_hash, disabled, created_at, updated_at)
        VALUES (:id, :username, :email, :name, :password_hash, :disabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create teacher account: %w", err)
	}
	return nil
}

// ListTeachers returns teacher accounts ordered by creation descending.
func (r *AccountRepository) ListTeachers(ctx context.Context) ([]models.TeacherAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_accounts ORDER BY created_at DESC", teacherColumns)
	var accounts []models.TeacherAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return accounts, nil
}

// UpdateTeacherPassword overwrites the stored hash.
func (r *AccountRepository) UpdateTeacherPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	const query = `UPDATE teacher_accounts SET password_hash = $2, updated_at = $3 WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username, passwordHash, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update teacher password: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// SetTeacherDisabled toggles the disabled flag.
func (r *AccountRepository) SetTeacherDisabled(ctx context.Context, username string, disabled bool) (bool, error) {
	const query = `UPDATE teacher_accounts SET disabled = $2, updated_at = $3 WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username, disabled, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set teacher disabled: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// FindStudentByLRN returns the student account for the LRN.
func (r *AccountRepository) FindStudentByLRN(ctx context.Context, lrn string) (*models.StudentAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM student_accounts WHERE lrn = $1 LIMIT 1", studentColumns)
	var account models.StudentAccount
	if err := r.db.GetContext(ctx, &account, query, lrn); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateStudent persists a new student account.
func (r *AccountRepository) CreateStudent(ctx context.Context, account *models.StudentAccount) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	const query = `INSERT INTO student_accounts (id, lrn, name, password_hash, must_change_password, disabled, created_at, updated_at)
        VALUES (:id, :lrn, :name, :password_hash, :must_change_password, :disabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create student account: %w", err)
	}
	return nil
}

// ListStudents returns student accounts ordered by creation descending.
func (r *AccountRepository) ListStudents(ctx context.Context) ([]models.StudentAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM student_accounts ORDER BY created_at DESC", studentColumns)
	var accounts []models.StudentAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return accounts, nil
}

// UpdateStudentPassword overwrites the stored hash and the forced-change
// flag in one statement.
func (r *AccountRepository) UpdateStudentPassword(ctx context.Context, lrn, passwordHash string, mustChange bool) (bool, error) {
	const query = `UPDATE student_accounts SET password_hash = $2, must_change_password = $3, updated_at = $4 WHERE lrn = $1`
	result, err := r.db.ExecContext(ctx, query, lrn, passwordHash, mustChange, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update student password: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// SetStudentDisabled toggles the disabled flag.
func (r *AccountRepository) SetStudentDisabled(ctx context.Context, lrn string, disabled bool) (bool, error) {
	const query = `UPDATE student_accounts SET disabled = $2, updated_at = $3 WHERE lrn = $1`
	result, err := r.db.ExecContext(ctx, query, lrn, disabled, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set student disabled: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// DeleteStudent removes the student login account, returning the count.
func (r *AccountRepository) DeleteStudent(ctx context.Context, lrn string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM student_accounts WHERE lrn = $1", lrn)
	if err != nil {
		return 0, fmt.Errorf("delete student account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete student account: %w", err)
	}
	return affected, nil
}

// CreateRefreshToken persists a refresh token.
func (r *AccountRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, role, subject, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
        VALUES (:id, :role, :subject, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks up a refresh token by its opaque value.
func (r *AccountRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, role, subject, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
        FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks one token revoked.
func (r *AccountRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeSubjectTokens revokes all outstanding tokens for a role+subject.
func (r *AccountRepository) RevokeSubjectTokens(ctx context.Context, role models.UserRole, subject string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $3 WHERE role = $1 AND subject = $2 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, role, subject, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke subject tokens: %w", err)
	}
	return nil
}
