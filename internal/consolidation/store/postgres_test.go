package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketparticipant/internal/consolidation"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
)

var consolidationColumns = []string{"id", "from_actor_id", "to_actor_id", "consolidate_at", "status", "executed_at"}

func TestPostgresListDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	cid, from, to := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT id, from_actor_id, to_actor_id, consolidate_at, status, executed_at FROM actor_consolidations WHERE status").
		WithArgs("Pending", now).
		WillReturnRows(sqlmock.NewRows(consolidationColumns).
			AddRow(cid.String(), from.String(), to.String(), now.Add(-time.Hour), "Pending", nil))

	due, err := NewPostgres(db).ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id.ConsolidationID(cid), due[0].ID)
	assert.Equal(t, id.ActorID(from), due[0].From)
	assert.Equal(t, id.ActorID(to), due[0].To)
	assert.Equal(t, consolidation.StatusPending, due[0].Status)
	assert.Nil(t, due[0].ExecutedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE actor_consolidations").WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).Update(context.Background(), &consolidation.ActorConsolidation{
		ID:     id.ConsolidationID(uuid.New()),
		Status: consolidation.StatusExecuted,
	})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
