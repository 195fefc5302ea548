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

func TestTutorLogRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs (id, session_id")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs_student_attendance")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs_staff_attendance")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs_topics (id, tutor_log_id, topic_id)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "topic-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs_topics_students")).WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	detail := &models.TutorLogDetail{
		TutorLog:          models.TutorLog{SessionID: "sess-1", CreatedBy: "staff-1"},
		StudentAttendance: []models.TutorLogStudentAttendance{{StudentID: "stu-1", Attended: true}},
		StaffAttendance:   []models.TutorLogStaffAttendance{{StaffID: "staff-1", Attended: true, Type: models.LoggedRolePrimary}},
		Topics:            []models.TutorLogTopic{{TopicID: "topic-1", StudentIDs: []string{"stu-1", "stu-2"}}},
		Notes:             []models.Note{{Note: "worked through past paper"}},
	}
	require.NoError(t, repo.Create(context.Background(), detail))
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, detail.ID, detail.StudentAttendance[0].TutorLogID)
	assert.Equal(t, models.NoteTargetTutorLog, detail.Notes[0].TargetType)
	assert.Equal(t, "staff-1", detail.Notes[0].CreatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorLogRepositoryCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_logs (id, session_id")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.TutorLogDetail{TutorLog: models.TutorLog{SessionID: "sess-1", CreatedBy: "staff-1"}})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorLogRepositoryListTopics(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorLogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tutor_logs_topics t")).
		WithArgs("log-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tutor_log_id", "ref_id", "student_ids"}).
			AddRow("t-1", "log-1", "topic-1", "{stu-1,stu-2}"))

	topics, err := repo.ListTopics(context.Background(), "log-1")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "topic-1", topics[0].TopicID)
	assert.Equal(t, []string{"stu-1", "stu-2"}, topics[0].StudentIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorLogRepositoryFindBySession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTutorLogRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, created_by, created_at FROM tutor_logs WHERE session_id = $1")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "created_by", "created_at"}).AddRow("log-1", "sess-1", "staff-1", now))

	log, err := repo.FindBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "log-1", log.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
