package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"restaurant-assistant/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestPostgres_Get(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("restaurants", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"ownerId":"u1"}`)))

	doc, err := s.Get(context.Background(), "restaurants", "r1")

	require.NoError(t, err)
	assert.Equal(t, "u1", doc["ownerId"])
	assert.Equal(t, "r1", doc.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs("restaurants", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Get(context.Background(), "restaurants", "nope")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindFiltersByTenant(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, data FROM documents\\s+WHERE collection = \\$1 AND restaurant_id = \\$2\\s+ORDER BY seq").
		WithArgs("orders", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("o1", []byte(`{"totalAmount":120}`)).
			AddRow("o2", []byte(`{"totalAmount":80}`)))

	docs, err := s.Find(context.Background(), "orders", "r1")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "o1", docs[0].ID())
	assert.Equal(t, float64(80), docs[1]["totalAmount"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindRequiresTenant(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.Find(context.Background(), "orders", "")

	assert.ErrorIs(t, err, ErrMissingTenant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitBatch(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET data = data").
		WithArgs("orders", "o1", "r1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents SET data = data").
		WithArgs("orders", "o2", "r1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationUpdate, Collection: "orders", ID: "o1", RestaurantID: "r1", Data: models.Document{"status": "CANCELLED"}},
		{Type: MutationUpdate, Collection: "orders", ID: "o2", RestaurantID: "r1", Data: models.Document{"status": "CANCELLED"}},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitRollsBackOnMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").
		WithArgs("tables", "t9", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationDelete, Collection: "tables", ID: "t9", RestaurantID: "r1"},
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("tables", "t1", "r1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationCreate, Collection: "tables", ID: "t1", RestaurantID: "r1", Data: models.Document{"name": "1"}},
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitSurfacesDriverErrors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("ON CONFLICT \\(collection, id\\) DO UPDATE").
		WithArgs("conversationContexts", "u1_r1", "r1", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationMerge, Collection: "conversationContexts", ID: "u1_r1", RestaurantID: "r1", Data: models.Document{"lastTableNumber": "5"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitRejectsMissingTenant(t *testing.T) {
	s, mock := newMockStore(t)

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationCreate, Collection: "tables", ID: "t1", Data: models.Document{}},
	})

	assert.ErrorIs(t, err, ErrMissingTenant)
	assert.NoError(t, mock.ExpectationsWereMet())
}
