package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classrecord/classrecord-api/internal/models"
)

func TestFindTeacherByLogin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	email := "mcruz@school.edu"
	rows := sqlmock.NewRows([]string{"id", "username", "email", "name", "password_hash", "disabled", "created_at", "updated_at"}).
		AddRow("t1", "mcruz", email, "Maria Cruz", "hash", false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, name, password_hash, disabled, created_at, updated_at FROM teacher_accounts WHERE username = $1 OR email = $2 LIMIT 1")).
		WithArgs("mcruz", "mcruz").
		WillReturnRows(rows)

	account, err := repo.FindTeacherByLogin(context.Background(), "mcruz")
	require.NoError(t, err)
	assert.Equal(t, "Maria Cruz", account.Name)
	assert.False(t, account.Disabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudentByLRN(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "lrn", "name", "password_hash", "must_change_password", "disabled", "created_at", "updated_at"}).
		AddRow("s1", "100001", "Ana Reyes", "hash", true, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lrn, name, password_hash, must_change_password, disabled, created_at, updated_at FROM student_accounts WHERE lrn = $1 LIMIT 1")).
		WithArgs("100001").
		WillReturnRows(rows)

	account, err := repo.FindStudentByLRN(context.Background(), "100001")
	require.NoError(t, err)
	assert.True(t, account.MustChangePassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO student_accounts").WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.StudentAccount{LRN: "100001", Name: "Ana Reyes", PasswordHash: "hash", MustChangePassword: true}
	err := repo.CreateStudent(context.Background(), account)
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStudentPassword(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_accounts SET password_hash = $2, must_change_password = $3, updated_at = $4 WHERE lrn = $1")).
		WithArgs("100001", "newhash", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStudentPassword(context.Background(), "100001", "newhash", false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTeacherDisabled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teacher_accounts SET disabled = $2, updated_at = $3 WHERE username = $1")).
		WithArgs("mcruz", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.SetTeacherDisabled(context.Background(), "mcruz", true)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{
		ID:        "r1",
		Role:      models.RoleTeacher,
		Subject:   "mcruz",
		Token:     "token",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
