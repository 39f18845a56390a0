package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func newGenerationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGenerationRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
		WithArgs(sqlmock.AnyArg(), "term-1", "greedy", sqlmock.AnyArg(), "admin",
			sqlmock.AnyArg(), nil, string(models.GenerationStatusRunning), nil, 0, 0, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	gen := &models.Generation{TermID: "term-1", Algorithm: "greedy", StartedBy: "admin"}
	require.NoError(t, repo.Create(context.Background(), nil, gen))

	assert.NotEmpty(t, gen.ID)
	assert.Equal(t, models.GenerationStatusRunning, gen.Status)
	assert.Equal(t, types.JSONText(`{}`), gen.Params)
	assert.False(t, gen.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationRepositoryCreateRequiresTerm(t *testing.T) {
	db, _, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	err := repo.Create(context.Background(), nil, &models.Generation{Algorithm: "greedy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "term_id")
}

func TestGenerationRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	completed := time.Now().UTC()
	score := 92.5
	mock.ExpectExec(regexp.QuoteMeta("UPDATE generations SET")).
		WithArgs(string(models.GenerationStatusCompleted), completed, score, nil, nil, nil, "gen-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), nil, "gen-1", models.GenerationUpdate{
		Status:            models.GenerationStatusCompleted,
		CompletedAt:       &completed,
		OptimizationScore: &score,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE generations SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, "gen-missing", models.GenerationUpdate{
		Status: models.GenerationStatusFailed,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGenerationRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "algorithm", "params", "started_by", "started_at", "completed_at", "status", "optimization_score", "conflict_count", "unassigned_count", "error_message"}).
		AddRow("gen-2", "term-1", "genetic", types.JSONText(`{}`), "admin", time.Now(), nil, string(models.GenerationStatusRunning), nil, 0, 0, nil).
		AddRow("gen-1", "term-1", "greedy", types.JSONText(`{}`), "admin", time.Now().Add(-time.Hour), nil, string(models.GenerationStatusCompleted), 88.0, 0, 0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM generations\nWHERE term_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("term-1", 10, 0).
		WillReturnRows(rows)

	list, err := repo.ListByTerm(context.Background(), "term-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gen-2", list[0].ID)
	require.NotNil(t, list[1].OptimizationScore)
	assert.Equal(t, 88.0, *list[1].OptimizationScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationRepositoryCountByTerm(t *testing.T) {
	db, mock, cleanup := newGenerationRepoMock(t)
	defer cleanup()
	repo := NewGenerationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM generations WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
