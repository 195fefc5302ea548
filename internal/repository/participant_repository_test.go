package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altitutor/admin-api/internal/models"
)

func TestParticipantRepositoryListStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipantRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "student_id", "student_name", "planned_absence", "is_rescheduled", "rescheduled_session_student_id", "is_credited", "created_by", "created_at", "updated_at"}).
		AddRow("ss-1", "sess-1", "stu-1", "Ava Brown", true, true, "ss-9", false, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ss.session_id = $1 ORDER BY student_name ASC")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ava Brown", students[0].StudentName)
	require.NotNil(t, students[0].RescheduledSessionStudentID)
	assert.Equal(t, "ss-9", *students[0].RescheduledSessionStudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepositoryApplyStudentPlanCreatesMakeup(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions_students")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions_students SET planned_absence")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	row := &models.SessionStudent{ID: "ss-1", SessionID: "sess-1", StudentID: "stu-1", PlannedAbsence: true, IsRescheduled: true}
	makeup := &models.SessionStudent{SessionID: "sess-2", StudentID: "stu-1"}
	require.NoError(t, repo.ApplyStudentPlan(context.Background(), row, makeup))
	require.NotEmpty(t, makeup.ID)
	require.NotNil(t, row.RescheduledSessionStudentID)
	assert.Equal(t, makeup.ID, *row.RescheduledSessionStudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepositoryApplyStaffPlanRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipantRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions_staff SET planned_absence")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	row := &models.SessionStaff{ID: "sf-1", SessionID: "sess-1", StaffID: "staff-1", PlannedAbsence: true}
	err := repo.ApplyStaffPlan(context.Background(), row, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepositoryDeleteStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipantRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions_students WHERE session_id = $1 AND student_id = $2")).
		WithArgs("sess-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteStudent(context.Background(), "sess-1", "stu-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
