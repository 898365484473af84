package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classrecord/classrecord-api/internal/models"
)

func TestAttendanceFindByClassAndDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "date_key", "records", "created_at", "updated_at"}).
		AddRow("a1", "c1", "2026-08-28", []byte(`{"100001":{"status":"TARDY","time":"07:45"}}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, date_key, records, created_at, updated_at FROM attendance_days WHERE class_id = $1 AND date_key = $2")).
		WithArgs("c1", "2026-08-28").
		WillReturnRows(rows)

	day, err := repo.FindByClassAndDate(context.Background(), "c1", "2026-08-28")
	require.NoError(t, err)
	require.Contains(t, day.Records, "100001")
	assert.Equal(t, models.AttendanceStatusTardy, day.Records["100001"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceFindByClassAndDateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT id, class_id, date_key").
		WithArgs("c1", "2026-08-29").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByClassAndDate(context.Background(), "c1", "2026-08-29")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceUpsertRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_days").
		WithArgs(sqlmock.AnyArg(), "c1", "2026-08-28", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertRecord(context.Background(), "c1", "2026-08-28", "100001", models.AttendanceRecord{Status: models.AttendanceStatusAbsent, Time: "07:30"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceDeleteRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_days SET records = records - $3, updated_at = $4 WHERE class_id = $1 AND date_key = $2")).
		WithArgs("c1", "2026-08-28", "100001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteRecord(context.Background(), "c1", "2026-08-28", "100001")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRemoveStudentEverywhere(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_days SET records = records - $1, updated_at = $2 WHERE records ? $1")).
		WithArgs("100001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.RemoveStudentEverywhere(context.Background(), "100001")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
