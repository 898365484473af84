package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classrecord/classrecord-api/internal/models"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
)

type mockAdminRepo struct {
	teachers map[string]*models.TeacherAccount
	students map[string]*models.StudentAccount

	revoked [][2]string
}

func (m *mockAdminRepo) TeacherExists(ctx context.Context, username, email string) (bool, error) {
	if _, ok := m.teachers[username]; ok {
		return true, nil
	}
	if email != "" {
		for _, teacher := range m.teachers {
			if teacher.Email != nil && *teacher.Email == email {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockAdminRepo) CreateTeacher(ctx context.Context, account *models.TeacherAccount) error {
	if m.teachers == nil {
		m.teachers = map[string]*models.TeacherAccount{}
	}
	m.teachers[account.Username] = account
	return nil
}

func (m *mockAdminRepo) ListTeachers(ctx context.Context) ([]models.TeacherAccount, error) {
	var out []models.TeacherAccount
	for _, teacher := range m.teachers {
		out = append(out, *teacher)
	}
	return out, nil
}

func (m *mockAdminRepo) UpdateTeacherPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	teacher, ok := m.teachers[username]
	if !ok {
		return false, nil
	}
	teacher.PasswordHash = passwordHash
	return true, nil
}

func (m *mockAdminRepo) SetTeacherDisabled(ctx context.Context, username string, disabled bool) (bool, error) {
	teacher, ok := m.teachers[username]
	if !ok {
		return false, nil
	}
	teacher.Disabled = disabled
	return true, nil
}

func (m *mockAdminRepo) ListStudents(ctx context.Context) ([]models.StudentAccount, error) {
	var out []models.StudentAccount
	for _, student := range m.students {
		out = append(out, *student)
	}
	return out, nil
}

func (m *mockAdminRepo) UpdateStudentPassword(ctx context.Context, lrn, passwordHash string, mustChange bool) (bool, error) {
	student, ok := m.students[lrn]
	if !ok {
		return false, nil
	}
	student.PasswordHash = passwordHash
	student.MustChangePassword = mustChange
	return true, nil
}

func (m *mockAdminRepo) SetStudentDisabled(ctx context.Context, lrn string, disabled bool) (bool, error) {
	student, ok := m.students[lrn]
	if !ok {
		return false, nil
	}
	student.Disabled = disabled
	return true, nil
}

func (m *mockAdminRepo) DeleteStudent(ctx context.Context, lrn string) (int64, error) {
	if _, ok := m.students[lrn]; !ok {
		return 0, nil
	}
	delete(m.students, lrn)
	return 1, nil
}

func (m *mockAdminRepo) RevokeSubjectTokens(ctx context.Context, role models.UserRole, subject string) error {
	m.revoked = append(m.revoked, [2]string{string(role), subject})
	return nil
}

type mockAccountRoster struct {
	deletedLRNs []string
}

func (m *mockAccountRoster) DeleteByLRN(ctx context.Context, lrn string) (int64, error) {
	m.deletedLRNs = append(m.deletedLRNs, lrn)
	return 2, nil
}

type mockAccountAttendance struct {
	removedLRNs []string
}

func (m *mockAccountAttendance) RemoveStudentEverywhere(ctx context.Context, lrn string) error {
	m.removedLRNs = append(m.removedLRNs, lrn)
	return nil
}

func newTestAccountService(repo *mockAdminRepo) (*AccountService, *mockAccountRoster, *mockAccountAttendance) {
	roster := &mockAccountRoster{}
	attendance := &mockAccountAttendance{}
	svc := NewAccountService(repo, roster, attendance, nil, validator.New(), zap.NewNop(), AccountConfig{
		TeacherDefaultPassword: "Teacher123",
		StudentDefaultPassword: "Student123",
		BcryptCost:             bcrypt.MinCost,
	})
	return svc, roster, attendance
}

func TestAccountServiceCreateTeacher(t *testing.T) {
	repo := &mockAdminRepo{}
	svc, _, _ := newTestAccountService(repo)

	account, err := svc.CreateTeacher(context.Background(), models.CreateTeacherRequest{
		Username: "MCruz", Email: "MCruz@school.edu", Name: "Maria Cruz",
	})
	require.NoError(t, err)
	assert.Equal(t, "mcruz", account.Username)
	require.NotNil(t, account.Email)
	assert.Equal(t, "mcruz@school.edu", *account.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("Teacher123")))
}

func TestAccountServiceCreateTeacherDuplicate(t *testing.T) {
	repo := &mockAdminRepo{teachers: map[string]*models.TeacherAccount{
		"mcruz": {Username: "mcruz"},
	}}
	svc, _, _ := newTestAccountService(repo)

	_, err := svc.CreateTeacher(context.Background(), models.CreateTeacherRequest{Username: "mcruz", Name: "Maria Cruz"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAccountServiceResetTeacherPassword(t *testing.T) {
	repo := &mockAdminRepo{teachers: map[string]*models.TeacherAccount{
		"mcruz": {Username: "mcruz", PasswordHash: "old"},
	}}
	svc, _, _ := newTestAccountService(repo)

	require.NoError(t, svc.ResetTeacherPassword(context.Background(), "mcruz"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.teachers["mcruz"].PasswordHash), []byte("Teacher123")))
	assert.Contains(t, repo.revoked, [2]string{"TEACHER", "mcruz"})

	err := svc.ResetTeacherPassword(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAccountServiceResetStudentPasswordForcesChange(t *testing.T) {
	repo := &mockAdminRepo{students: map[string]*models.StudentAccount{
		"100001": {LRN: "100001", PasswordHash: "old", MustChangePassword: false},
	}}
	svc, _, _ := newTestAccountService(repo)

	require.NoError(t, svc.ResetStudentPassword(context.Background(), "100001"))
	student := repo.students["100001"]
	assert.True(t, student.MustChangePassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("Student123")))
}

func TestAccountServiceDisableRevokesSessions(t *testing.T) {
	repo := &mockAdminRepo{teachers: map[string]*models.TeacherAccount{
		"mcruz": {Username: "mcruz"},
	}}
	svc, _, _ := newTestAccountService(repo)

	require.NoError(t, svc.SetTeacherDisabled(context.Background(), "mcruz", true))
	assert.True(t, repo.teachers["mcruz"].Disabled)
	assert.Contains(t, repo.revoked, [2]string{"TEACHER", "mcruz"})

	repo.revoked = nil
	require.NoError(t, svc.SetTeacherDisabled(context.Background(), "mcruz", false))
	assert.False(t, repo.teachers["mcruz"].Disabled)
	assert.Empty(t, repo.revoked)
}

func TestAccountServiceDeleteStudentCascades(t *testing.T) {
	repo := &mockAdminRepo{students: map[string]*models.StudentAccount{
		"100001": {LRN: "100001"},
	}}
	svc, roster, attendance := newTestAccountService(repo)

	require.NoError(t, svc.DeleteStudent(context.Background(), "100001"))
	assert.Empty(t, repo.students)
	assert.Equal(t, []string{"100001"}, roster.deletedLRNs)
	assert.Equal(t, []string{"100001"}, attendance.removedLRNs)
	assert.Contains(t, repo.revoked, [2]string{"STUDENT", "100001"})

	err := svc.DeleteStudent(context.Background(), "100001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
