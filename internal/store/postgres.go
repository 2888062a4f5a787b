package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"restaurant-assistant/internal/models"

	"github.com/lib/pq"
)

const (
	queryGet = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	queryFind = `SELECT id, data FROM documents
		WHERE collection = $1 AND restaurant_id = $2
		ORDER BY seq`

	execCreate = `INSERT INTO documents (collection, id, restaurant_id, data)
		VALUES ($1, $2, $3, $4)`

	execUpdate = `UPDATE documents SET data = data || $4::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2 AND restaurant_id = $3`

	execMerge = `INSERT INTO documents (collection, id, restaurant_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = documents.data || EXCLUDED.data, updated_at = now()
		WHERE documents.restaurant_id = EXCLUDED.restaurant_id`

	execDelete = `DELETE FROM documents WHERE collection = $1 AND id = $2 AND restaurant_id = $3`
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Postgres stores documents as JSONB rows in a single documents table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (models.Document, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, queryGet, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(id, raw)
}

func (p *Postgres) Find(ctx context.Context, collection, restaurantID string) ([]models.Document, error) {
	if restaurantID == "" {
		return nil, ErrMissingTenant
	}

	rows, err := p.db.QueryContext(ctx, queryFind, collection, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (p *Postgres) Commit(ctx context.Context, batch []Mutation) (err error) {
	if err := validateBatch(batch); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, mut := range batch {
		if err = apply(ctx, tx, mut); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func apply(ctx context.Context, tx *sql.Tx, mut Mutation) error {
	var payload []byte
	if mut.Type != MutationDelete {
		doc := models.Document{}
		for k, v := range mut.Data {
			doc[k] = v
		}
		doc[models.FieldID] = mut.ID
		var err error
		if payload, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("encode %s/%s: %w", mut.Collection, mut.ID, err)
		}
	}

	var (
		res sql.Result
		err error
	)
	switch mut.Type {
	case MutationCreate:
		res, err = tx.ExecContext(ctx, execCreate, mut.Collection, mut.ID, mut.RestaurantID, payload)
	case MutationUpdate:
		res, err = tx.ExecContext(ctx, execUpdate, mut.Collection, mut.ID, mut.RestaurantID, payload)
	case MutationMerge:
		res, err = tx.ExecContext(ctx, execMerge, mut.Collection, mut.ID, mut.RestaurantID, payload)
	case MutationDelete:
		res, err = tx.ExecContext(ctx, execDelete, mut.Collection, mut.ID, mut.RestaurantID)
	default:
		return fmt.Errorf("unknown mutation type %q", mut.Type)
	}

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("%s %s/%s: %w", mut.Type, mut.Collection, mut.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", mut.Type, mut.Collection, mut.ID, err)
	}
	if affected == 0 {
		// Merge hits zero rows only when the id belongs to another tenant.
		if mut.Type == MutationMerge {
			return ErrConflict
		}
		return ErrNotFound
	}
	return nil
}

func decode(id string, raw []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	doc[models.FieldID] = id
	return doc, nil
}
