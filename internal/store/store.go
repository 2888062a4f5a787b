// Package store is the tenant document store. Every partition read takes exactly
// one restaurant id and every write carries one; implementations enforce both.
package store

import (
	"context"
	"errors"

	"restaurant-assistant/internal/models"
)

var (
	ErrNotFound      = errors.New("DOCUMENT_NOT_FOUND")
	ErrConflict      = errors.New("DOCUMENT_CONFLICT")
	ErrMissingTenant = errors.New("TENANT_ID_REQUIRED")
	ErrEmptyBatch    = errors.New("EMPTY_BATCH")
)

type MutationType string

const (
	// MutationCreate inserts a new document and fails with ErrConflict if the id exists.
	MutationCreate MutationType = "create"
	// MutationUpdate merges data into an existing document of the same tenant.
	MutationUpdate MutationType = "update"
	// MutationMerge upserts: it creates the document or merges into the tenant's existing one.
	MutationMerge MutationType = "merge"
	// MutationDelete removes a document of the same tenant.
	MutationDelete MutationType = "delete"
)

type Mutation struct {
	Type         MutationType
	Collection   string
	ID           string
	RestaurantID string
	Data         models.Document
}

// Store is the collaborator every pipeline stage reads and writes through.
type Store interface {
	// Get returns one document by id or ErrNotFound.
	Get(ctx context.Context, collection, id string) (models.Document, error)
	// Find returns the whole tenant partition of a collection in insertion order.
	Find(ctx context.Context, collection, restaurantID string) ([]models.Document, error)
	// Commit applies all mutations atomically.
	Commit(ctx context.Context, batch []Mutation) error
}

func validateBatch(batch []Mutation) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	for _, m := range batch {
		if m.RestaurantID == "" {
			return ErrMissingTenant
		}
		if m.Collection == "" || m.ID == "" {
			return errors.New("mutation requires collection and id")
		}
	}
	return nil
}
