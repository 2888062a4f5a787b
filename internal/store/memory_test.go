package store

import (
	"context"
	"testing"

	"restaurant-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTables(t *testing.T, s *Memory) {
	t.Helper()
	require.NoError(t, s.Commit(context.Background(), []Mutation{
		{Type: MutationCreate, Collection: "tables", ID: "t1", RestaurantID: "r1", Data: models.Document{"name": "1"}},
		{Type: MutationCreate, Collection: "tables", ID: "t2", RestaurantID: "r1", Data: models.Document{"name": "2"}},
		{Type: MutationCreate, Collection: "tables", ID: "t3", RestaurantID: "r2", Data: models.Document{"name": "1"}},
	}))
}

func TestMemory_FindIsTenantScopedAndOrdered(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)

	docs, err := s.Find(context.Background(), "tables", "r1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "t1", docs[0].ID())
	assert.Equal(t, "t2", docs[1].ID())

	_, err = s.Find(context.Background(), "tables", "")
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestMemory_CommitIsAtomic(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationUpdate, Collection: "tables", ID: "t1", RestaurantID: "r1", Data: models.Document{"status": "OCCUPIED"}},
		{Type: MutationUpdate, Collection: "tables", ID: "missing", RestaurantID: "r1", Data: models.Document{"status": "OCCUPIED"}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := s.Get(context.Background(), "tables", "t1")
	require.NoError(t, err)
	assert.Nil(t, doc["status"])
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)

	require.NoError(t, s.Commit(context.Background(), []Mutation{
		{Type: MutationUpdate, Collection: "tables", ID: "t1", RestaurantID: "r1", Data: models.Document{"status": "OCCUPIED"}},
	}))

	doc, err := s.Get(context.Background(), "tables", "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", doc["name"])
	assert.Equal(t, "OCCUPIED", doc["status"])
}

func TestMemory_CrossTenantWritesRejected(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)

	err := s.Commit(context.Background(), []Mutation{
		{Type: MutationDelete, Collection: "tables", ID: "t3", RestaurantID: "r1"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Commit(context.Background(), []Mutation{
		{Type: MutationMerge, Collection: "tables", ID: "t3", RestaurantID: "r1", Data: models.Document{"name": "x"}},
	})
	assert.ErrorIs(t, err, ErrConflict)

	doc, err := s.Get(context.Background(), "tables", "t3")
	require.NoError(t, err)
	assert.Equal(t, "1", doc["name"])
}

func TestMemory_MergeUpserts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, []Mutation{
		{Type: MutationMerge, Collection: "conversationContexts", ID: "u1_r1", RestaurantID: "r1", Data: models.Document{"lastTableNumber": "5"}},
	}))
	require.NoError(t, s.Commit(ctx, []Mutation{
		{Type: MutationMerge, Collection: "conversationContexts", ID: "u1_r1", RestaurantID: "r1", Data: models.Document{"lastCustomerName": "Asha"}},
	}))

	doc, err := s.Get(ctx, "conversationContexts", "u1_r1")
	require.NoError(t, err)
	assert.Equal(t, "5", doc["lastTableNumber"])
	assert.Equal(t, "Asha", doc["lastCustomerName"])
}

func TestMemory_DeleteAndDuplicateCreate(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)
	ctx := context.Background()

	err := s.Commit(ctx, []Mutation{{Type: MutationCreate, Collection: "tables", ID: "t1", RestaurantID: "r1", Data: models.Document{}}})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.Commit(ctx, []Mutation{{Type: MutationDelete, Collection: "tables", ID: "t1", RestaurantID: "r1"}}))
	_, err = s.Get(ctx, "tables", "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Commit(ctx, nil), ErrEmptyBatch)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	s := NewMemory()
	seedTables(t, s)

	doc, err := s.Get(context.Background(), "tables", "t1")
	require.NoError(t, err)
	doc["name"] = "mutated"

	again, err := s.Get(context.Background(), "tables", "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", again["name"])
}
