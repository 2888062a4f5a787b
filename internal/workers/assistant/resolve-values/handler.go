// internal/workers/assistant/resolve-values/handler.go
package resolvevalues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/store"
)

const (
	TaskType = "resolve-values"
)

var (
	ErrCatalogUnavailable = errors.New("CATALOG_UNAVAILABLE")
)

// catalogCollections are the collections a reference may name.
var catalogCollections = map[string]bool{
	models.CollectionMenuItems: true,
}

type Handler struct {
	config *Config
	store  store.Store
	logger logger.Logger
}

func NewHandler(config *Config, s store.Store, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		store:  s,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute resolves every reference carried by the operations against the
// tenant's catalogs. Operations without references are returned unchanged.
// A reference with no match is recorded on its operation, never guessed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.RestaurantID == "" {
		return nil, fmt.Errorf("%w: restaurantId is required", ErrCatalogUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	catalogs := map[string][]CatalogEntry{}
	out := &Output{Operations: make([]models.Operation, 0, len(input.Operations))}

	for _, op := range input.Operations {
		if len(op.References) == 0 {
			out.Operations = append(out.Operations, op)
			continue
		}

		resolved := op
		resolved.Data = models.Document(op.Data).Clone()
		resolved.Unresolved = append([]string(nil), op.Unresolved...)

		for _, ref := range op.References {
			if !catalogCollections[ref.Collection] {
				resolved.Unresolved = append(resolved.Unresolved, ref.Phrase)
				out.Unresolved = append(out.Unresolved, ref.Phrase)
				h.logger.Warn("reference to a non-catalog collection", map[string]interface{}{
					"collection": ref.Collection,
					"phrase":     ref.Phrase,
				})
				continue
			}
			catalog, ok := catalogs[ref.Collection]
			if !ok {
				var err error
				catalog, err = h.loadCatalog(ctx, ref.Collection, input.RestaurantID)
				if err != nil {
					return nil, err
				}
				catalogs[ref.Collection] = catalog
			}

			entry, found := Resolve(ref.Phrase, catalog)
			if !found {
				resolved.Unresolved = append(resolved.Unresolved, ref.Phrase)
				out.Unresolved = append(out.Unresolved, ref.Phrase)
				h.logger.Info("reference unresolved", map[string]interface{}{
					"collection": ref.Collection,
					"phrase":     ref.Phrase,
				})
				continue
			}
			apply(resolved.Data, ref, entry)
		}
		out.Operations = append(out.Operations, resolved)
	}

	return out, nil
}

func (h *Handler) loadCatalog(ctx context.Context, collection, restaurantID string) ([]CatalogEntry, error) {
	docs, err := h.store.Find(ctx, collection, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	catalog := make([]CatalogEntry, 0, len(docs))
	for _, doc := range docs {
		entry := CatalogEntry{ID: doc.ID(), Name: doc.String("name")}
		if price, ok := doc.Float("price"); ok {
			entry.Price = &price
		}
		catalog = append(catalog, entry)
	}
	return catalog, nil
}

// apply writes the canonical id, name and price into the referenced list element.
func apply(data models.Document, ref models.Reference, entry CatalogEntry) {
	list, ok := data[ref.Field].([]interface{})
	if !ok || ref.Index < 0 || ref.Index >= len(list) {
		return
	}
	item, ok := list[ref.Index].(map[string]interface{})
	if !ok {
		return
	}
	item["menuItemId"] = entry.ID
	item["name"] = entry.Name
	if entry.Price != nil {
		item["price"] = *entry.Price
	}
}

// Resolve returns the catalog entry a free-text reference names. An exact
// case-insensitive match wins; otherwise the first entry in storage order
// whose name contains the reference or is contained by it, either as a
// whole or token by token ("del burger" names "Delhi Burger").
func Resolve(reference string, catalog []CatalogEntry) (CatalogEntry, bool) {
	ref := normalize(reference)
	if ref == "" {
		return CatalogEntry{}, false
	}

	for _, entry := range catalog {
		if normalize(entry.Name) == ref {
			return entry, true
		}
	}

	refTokens := strings.Fields(ref)
	for _, entry := range catalog {
		name := normalize(entry.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, ref) || strings.Contains(ref, name) {
			return entry, true
		}
		nameTokens := strings.Fields(name)
		if tokensWithin(refTokens, nameTokens) || tokensWithin(nameTokens, refTokens) {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

// tokensWithin reports whether every token of a is a substring of some token of b.
func tokensWithin(a, b []string) bool {
	if len(a) == 0 {
		return false
	}
	for _, ta := range a {
		found := false
		for _, tb := range b {
			if strings.Contains(tb, ta) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
