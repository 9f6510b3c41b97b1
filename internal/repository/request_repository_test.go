package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var requestColumnList = []string{
	"id", "creator_id", "creator_role", "kind", "purpose", "amount", "state",
	"director_validator_id", "director_validated_at", "director_comment",
	"finance_validator_id", "finance_validated_at", "finance_comment",
	"general_validator_id", "general_validated_at", "general_comment",
	"recall_reason", "submitted_at", "created_at", "updated_at",
}

func pendingDirectorRow(id string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(requestColumnList).AddRow(
		id, "rep-1", "FIELD_REP", "STANDARD", "team offsite", "1200.00", "PENDING_DIRECTOR",
		nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, now, now, now,
	)
}

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.Request{CreatorID: "rep-1", CreatorRole: models.RoleFieldRep, Kind: models.KindStandard, Purpose: "team offsite"}
	require.NoError(t, repo.Create(context.Background(), req))

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.StateDraft, req.State)
	assert.False(t, req.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE id = $1")).
			WithArgs("req-1").
			WillReturnRows(pendingDirectorRow("req-1"))

		req, err := repo.GetByID(context.Background(), "req-1")
		require.NoError(t, err)
		assert.Equal(t, "req-1", req.ID)
		assert.Equal(t, models.StatePendingDirector, req.State)
		assert.Equal(t, "1200", req.Amount.String())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE id = $1")).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "ghost")
		assert.True(t, IsNotFound(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	t.Run("by creator and state", func(t *testing.T) {
		mock.ExpectQuery(`state IN \(\$1\) AND creator_id = \$2`).
			WithArgs("PENDING_FINANCE", "rep-1").
			WillReturnRows(sqlmock.NewRows(requestColumnList))

		_, err := repo.List(context.Background(), models.RequestFilter{
			States:    []models.RequestState{models.StatePendingFinance},
			CreatorID: "rep-1",
		})
		require.NoError(t, err)
	})

	t.Run("by team director", func(t *testing.T) {
		mock.ExpectQuery(`creator_id = \$1 OR creator_id IN \(SELECT id FROM actors WHERE supervising_director_id = \$2\)`).
			WithArgs("dir-1", "dir-1").
			WillReturnRows(sqlmock.NewRows(requestColumnList))

		_, err := repo.List(context.Background(), models.RequestFilter{TeamDirectorID: "dir-1"})
		require.NoError(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForTransitionCommitsAppliedChange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(pendingDirectorRow("req-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateForTransition(context.Background(), "req-1", func(req *models.Request) error {
		req.State = models.StatePendingFinance
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFinance, updated.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForTransitionRollsBackOnApplyError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(pendingDirectorRow("req-1"))
	mock.ExpectRollback()

	boom := errors.New("slot already recorded")
	_, err := repo.UpdateForTransition(context.Background(), "req-1", func(*models.Request) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForTransitionMissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.UpdateForTransition(context.Background(), "ghost", func(*models.Request) error {
		t.Fatal("apply must not run without a row")
		return nil
	})
	assert.True(t, IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
