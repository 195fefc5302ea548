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

func TestClassRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "subject_id", "subject_name", "level", "day_of_week", "start_time", "end_time", "room", "status", "notes", "created_by", "created_at", "updated_at"}).
		AddRow("class-1", "sub-1", "Maths Methods", "Year 11", 1, "16:00:00", "17:30:00", "Room 2", models.ClassStatusActive, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.status = $1 ORDER BY c.day_of_week ASC, c.start_time ASC")).
		WithArgs(models.ClassStatusActive).
		WillReturnRows(rows)

	classes, err := repo.ListByStatus(context.Background(), models.ClassStatusActive)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 1, classes[0].DayOfWeek)
	require.NotNil(t, classes[0].SubjectName)
	assert.Equal(t, "Maths Methods", *classes[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.ClassStatusInactive, sqlmock.AnyArg(), "class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "class-1", models.ClassStatusInactive))
	require.NoError(t, mock.ExpectationsWereMet())
}
