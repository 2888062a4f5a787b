// internal/workers/assistant/build-snapshot/handler.go
package buildsnapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/querylang"
	"restaurant-assistant/internal/store"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

const TaskType = "build-snapshot"

var ErrSnapshotFailed = errors.New("SNAPSHOT_FAILED")

// hiddenFields never leave the store in a snapshot sample.
var hiddenFields = map[string]bool{
	models.FieldRestaurantID: true,
	models.FieldCreatedBy:    true,
	models.FieldUpdatedBy:    true,
	"customerPhone":          true,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.RestaurantID == "" {
		return nil, fmt.Errorf("%w: restaurantId is required", ErrSnapshotFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	collections := input.Collections
	if len(collections) == 0 {
		collections = models.TenantCollections
	}

	snap := &Snapshot{
		Operations: OperationCatalog{
			Kinds:        []string{string(models.KindRead), string(models.KindCreate), string(models.KindUpdate), string(models.KindDelete)},
			Aggregations: []string{"count", "sum", "average", "groupBy", "list"},
			DateWindows:  filter.WindowNames(),
			Comparators:  filter.ComparatorNames(),
		},
		Enums: map[string][]string{
			"tables.status": models.TableStatuses,
			"orders.status": models.OrderStatuses,
		},
		Collections: make(map[string]CollectionSummary, len(collections)),
	}

	for _, collection := range collections {
		if !models.IsTenantCollection(collection) {
			continue
		}
		docs, err := h.store.Find(ctx, collection, input.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
		}
		snap.Collections[collection] = h.summarize(docs)

		switch collection {
		case models.CollectionMenuItems:
			snap.MenuItems = names(docs, "name")
		case models.CollectionTables:
			snap.TableNames = names(docs, "name")
		}
	}

	snap.Rendered = render(snap)

	h.logger.Debug("snapshot built", map[string]interface{}{
		"restaurantId": input.RestaurantID,
		"collections":  len(snap.Collections),
	})

	return &Output{Snapshot: snap}, nil
}

// Build satisfies the generator's snapshot source.
func (h *Handler) Build(ctx context.Context, restaurantID string) (*Snapshot, error) {
	out, err := h.Execute(ctx, &Input{RestaurantID: restaurantID})
	if err != nil {
		return nil, err
	}
	return out.Snapshot, nil
}

func (h *Handler) summarize(docs []models.Document) CollectionSummary {
	fieldSet := map[string]bool{}
	for _, doc := range docs {
		for k := range doc {
			if !hiddenFields[k] {
				fieldSet[k] = true
			}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	limit := h.config.SampleSize
	if limit > len(docs) {
		limit = len(docs)
	}
	sample := make([]map[string]interface{}, 0, limit)
	for _, doc := range docs[:limit] {
		row := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			if !hiddenFields[k] {
				row[k] = v
			}
		}
		sample = append(sample, row)
	}

	return CollectionSummary{Count: len(docs), Fields: fields, Sample: sample}
}

func names(docs []models.Document, field string) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if name := doc.String(field); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func render(snap *Snapshot) string {
	var b strings.Builder

	b.WriteString("Operation language:\n")
	b.WriteString("  query {\"operations\":[...]} for reads, mutation {\"operations\":[...]} for writes.\n")
	fmt.Fprintf(&b, "  kinds: %s\n", strings.Join(snap.Operations.Kinds, ", "))
	fmt.Fprintf(&b, "  aggregations: %s\n", strings.Join(snap.Operations.Aggregations, ", "))
	fmt.Fprintf(&b, "  date windows for createdAt/updatedAt filters: %s\n", strings.Join(snap.Operations.DateWindows, ", "))
	fmt.Fprintf(&b, "  comparison filters: {\"field\": {\"<op>\": value}} with op in %s\n", strings.Join(snap.Operations.Comparators, ", "))
	fmt.Fprintf(&b, "  example: %s\n", querylang.Format([]models.Operation{{
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: models.AggregationSum,
		Filters:     map[string]interface{}{"createdAt": "today"},
		Fields:      []string{"totalAmount"},
	}}))

	b.WriteString("Enums:\n")
	enumKeys := make([]string, 0, len(snap.Enums))
	for k := range snap.Enums {
		enumKeys = append(enumKeys, k)
	}
	sort.Strings(enumKeys)
	for _, k := range enumKeys {
		fmt.Fprintf(&b, "  %s: %s\n", k, strings.Join(snap.Enums[k], ", "))
	}

	b.WriteString("Collections:\n")
	collKeys := make([]string, 0, len(snap.Collections))
	for k := range snap.Collections {
		collKeys = append(collKeys, k)
	}
	sort.Strings(collKeys)
	for _, k := range collKeys {
		summary := snap.Collections[k]
		fmt.Fprintf(&b, "  %s (%d documents) fields: %s\n", k, summary.Count, strings.Join(summary.Fields, ", "))
		if len(summary.Sample) > 0 {
			sample, _ := json.Marshal(summary.Sample)
			fmt.Fprintf(&b, "    sample: %s\n", sample)
		}
	}

	if len(snap.MenuItems) > 0 {
		fmt.Fprintf(&b, "Menu items: %s\n", strings.Join(snap.MenuItems, ", "))
	}
	if len(snap.TableNames) > 0 {
		fmt.Fprintf(&b, "Tables: %s\n", strings.Join(snap.TableNames, ", "))
	}
	return b.String()
}
