package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryListActiveByTerm(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	room := "room-a"
	rows := sqlmock.NewRows([]string{"id", "term_id", "class_id", "subject_id", "teacher_id", "room_id", "day_of_week", "slot_index", "is_active", "generation_id", "created_at"}).
		AddRow("e-1", "term-1", "class-1", "math", "teacher-1", room, 1, 1, true, "gen-1", time.Now()).
		AddRow("e-2", "term-1", "class-1", "phy", "teacher-2", nil, 1, 2, true, "gen-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries\nWHERE term_id = $1 AND is_active = TRUE ORDER BY class_id, day_of_week, slot_index")).
		WithArgs("term-1").
		WillReturnRows(rows)

	entries, err := repo.ListActiveByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].RoomID)
	assert.Equal(t, "room-a", *entries[0].RoomID)
	assert.Nil(t, entries[1].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeactivateByTerm(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET is_active = FALSE WHERE term_id = $1 AND is_active = TRUE")).
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	affected, err := repo.DeactivateByTerm(context.Background(), nil, "term-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeactivateInsideTx(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_entries SET is_active = FALSE")).
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	_, err = repo.DeactivateByTerm(context.Background(), tx, "term-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryInsertEntriesFillsDefaults(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WillReturnResult(sqlmock.NewResult(1, 2))

	entries := []models.TimetableEntry{
		{TermID: "term-1", ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", DayOfWeek: 1, SlotIndex: 1},
		{TermID: "term-1", ClassID: "class-1", SubjectID: "phy", TeacherID: "teacher-2", DayOfWeek: 1, SlotIndex: 2},
	}
	require.NoError(t, repo.InsertEntries(context.Background(), nil, entries))

	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.True(t, e.IsActive)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryInsertEntriesEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	require.NoError(t, repo.InsertEntries(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCountActiveByTerm(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_entries WHERE term_id = $1 AND is_active = TRUE")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	count, err := repo.CountActiveByTerm(context.Background(), nil, "term-1")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
