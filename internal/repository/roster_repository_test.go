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

func TestRosterListByClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "lrn", "name", "scores", "final_grade", "created_at", "updated_at"}).
		AddRow("s1", "c1", "100001", "Ana Reyes", []byte(`{"L1":18}`), 90, now, now).
		AddRow("s2", "c1", "100002", "Ben Santos", []byte(`{}`), 0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, lrn, name, scores, final_grade, created_at, updated_at FROM class_students WHERE class_id = $1 ORDER BY name ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ana Reyes", students[0].Name)
	assert.InDelta(t, 18, students[0].Scores["L1"], 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_students WHERE class_id = $1 AND lrn = $2 LIMIT 1")).
		WithArgs("c1", "100001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := repo.Exists(context.Background(), "c1", "100001")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_students WHERE class_id = $1 AND lrn = $2 LIMIT 1")).
		WithArgs("c1", "999999").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err = repo.Exists(context.Background(), "c1", "999999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterUpdateScores(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_students SET scores = $2, final_grade = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("s1", sqlmock.AnyArg(), 85, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateScores(context.Background(), "s1", models.ScoreMap{"L1": 17}, 85)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_students WHERE class_id = $1 AND lrn = $2")).
		WithArgs("c1", "100001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.Delete(context.Background(), "c1", "100001")
	require.NoError(t, err)
	assert.True(t, removed)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_students WHERE class_id = $1 AND lrn = $2")).
		WithArgs("c1", "999999").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err = repo.Delete(context.Background(), "c1", "999999")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterListByLRN(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "class_name", "lrn", "name", "final_grade", "scores"}).
		AddRow("c1", "Math 7", "100001", "Ana Reyes", 90, []byte(`{"L1":18}`)).
		AddRow("c2", "Science 7", "100001", "Ana Reyes", 84, []byte(`{}`))
	mock.ExpectQuery("SELECT cs.class_id, c.name AS class_name").
		WithArgs("100001").
		WillReturnRows(rows)

	views, err := repo.ListByLRN(context.Background(), "100001")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Math 7", views[0].ClassName)
	assert.Equal(t, 84, views[1].FinalGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}
