// internal/workers/assistant/execute-operation/mutate.go
package executeoperation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/sanitize"
	"restaurant-assistant/internal/store"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

// protectedFields are stamped by the engine and never taken from operation data.
var protectedFields = map[string]bool{
	models.FieldID:           true,
	models.FieldRestaurantID: true,
	models.FieldCreatedAt:    true,
	models.FieldCreatedBy:    true,
	models.FieldUpdatedAt:    true,
	models.FieldUpdatedBy:    true,
}

// derivedFields are computed on create and cannot be patched afterwards.
var derivedFields = map[string][]string{
	models.CollectionOrders: {"items", "itemNames", "totalAmount", "orderNumber"},
}

var numericFields = []string{"capacity", "price", "quantity", "reorderLevel", "totalAmount"}

const anonymousCustomer = "Customer"

func writable(data map[string]interface{}) models.Document {
	doc := models.Document{}
	for k, v := range sanitize.Map(data) {
		if !protectedFields[k] {
			doc[k] = v
		}
	}
	return doc
}

func (h *Handler) create(ctx context.Context, grant *models.AccessGrant, op *models.Operation, res *models.OperationResult) error {
	doc := writable(op.Data)
	if err := coerceNumbers(doc); err != nil {
		return err
	}

	var err error
	switch op.Collection {
	case models.CollectionTables:
		err = h.prepareTable(ctx, grant, doc)
	case models.CollectionOrders:
		err = h.prepareOrder(ctx, grant, doc)
	case models.CollectionMenuItems:
		if _, ok := doc["available"]; !ok {
			doc["available"] = true
		}
	case models.CollectionInventory:
		if _, ok := doc["quantity"]; !ok {
			doc["quantity"] = 0.0
		}
	}
	if err != nil {
		return err
	}

	result, err := createSchemas.Validate(op.Collection, map[string]interface{}(doc))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return apperrors.NewValidationFailedError(result.Error())
	}

	id := uuid.NewString()
	doc[models.FieldID] = id
	doc[models.FieldRestaurantID] = grant.RestaurantID
	doc[models.FieldCreatedAt] = models.Timestamp(h.now())
	doc[models.FieldCreatedBy] = grant.UserID

	err = h.store.Commit(ctx, []store.Mutation{{
		Type:         store.MutationCreate,
		Collection:   op.Collection,
		ID:           id,
		RestaurantID: grant.RestaurantID,
		Data:         doc,
	}})
	if err != nil {
		return storeError(op.Collection, err)
	}

	res.Success = true
	res.ID = id
	res.Affected = 1
	res.Items = []map[string]interface{}{project(doc, nil)}
	res.Message = "created"
	return nil
}

func (h *Handler) prepareTable(ctx context.Context, grant *models.AccessGrant, doc models.Document) error {
	if _, ok := doc["name"]; ok {
		doc["name"] = strings.TrimSpace(doc.String("name"))
	}
	if v, ok := doc["capacity"]; !ok || v == nil {
		doc["capacity"] = float64(h.config.DefaultCapacity)
	}
	if _, ok := doc["status"]; !ok {
		doc["status"] = models.TableStatusAvailable
	}
	if err := normalizeStatus(models.CollectionTables, doc); err != nil {
		return err
	}

	name := doc.String("name")
	if name == "" {
		return nil
	}
	existing, err := h.store.Find(ctx, models.CollectionTables, grant.RestaurantID)
	if err != nil {
		return storeError(models.CollectionTables, err)
	}
	for _, table := range existing {
		if strings.EqualFold(table.String("name"), name) {
			return apperrors.NewConflictError(fmt.Sprintf("table %s", name))
		}
	}
	return nil
}

func (h *Handler) prepareOrder(ctx context.Context, grant *models.AccessGrant, doc models.Document) error {
	if _, ok := doc["tableNumber"]; ok {
		doc["tableNumber"] = strings.TrimSpace(doc.String("tableNumber"))
	}
	if doc.String("customerName") == "" {
		doc["customerName"] = anonymousCustomer
	}
	if _, ok := doc["status"]; !ok {
		doc["status"] = models.OrderStatusPending
	}
	if err := normalizeStatus(models.CollectionOrders, doc); err != nil {
		return err
	}
	doc["orderNumber"] = newOrderNumber()

	items, err := orderItems(doc["items"])
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}
	if len(items) == 0 {
		return nil
	}

	menu, err := h.store.Find(ctx, models.CollectionMenuItems, grant.RestaurantID)
	if err != nil {
		return storeError(models.CollectionMenuItems, err)
	}
	byID := make(map[string]models.Document, len(menu))
	for _, m := range menu {
		byID[m.ID()] = m
	}

	total := 0.0
	list := make([]interface{}, 0, len(items))
	names := make([]interface{}, 0, len(items))
	for _, item := range items {
		qty, ok := models.ToFloat(item["quantity"])
		if !ok || qty <= 0 {
			qty = 1
		}
		item["quantity"] = qty

		// Prices come from the tenant menu only.
		delete(item, "price")
		id, _ := item["menuItemId"].(string)
		menuItem, found := byID[id]
		if id == "" || !found {
			return apperrors.NewResolutionFailedError(itemLabel(item))
		}
		if available, ok := menuItem["available"].(bool); ok && !available {
			return apperrors.NewValidationFailedError(fmt.Sprintf("%s is unavailable", menuItem.String("name")))
		}
		item["name"] = menuItem.String("name")
		if price, ok := menuItem.Float("price"); ok {
			item["price"] = price
			total += price * qty
		}
		list = append(list, item)
		names = append(names, item["name"])
	}

	doc["items"] = list
	doc["itemNames"] = names
	doc["totalAmount"] = math.Round(total*100) / 100
	return nil
}

func itemLabel(item map[string]interface{}) string {
	if name, _ := item["name"].(string); strings.TrimSpace(name) != "" {
		return name
	}
	return "item"
}

func (h *Handler) update(ctx context.Context, grant *models.AccessGrant, op *models.Operation, res *models.OperationResult) error {
	if len(op.Filters) == 0 {
		return apperrors.NewValidationFailedError("update requires a filter")
	}
	patch := writable(op.Data)
	for _, field := range derivedFields[op.Collection] {
		delete(patch, field)
	}
	if len(patch) == 0 {
		return apperrors.NewValidationFailedError("update has no fields")
	}
	if err := coerceNumbers(patch); err != nil {
		return err
	}
	if err := normalizeStatus(op.Collection, patch); err != nil {
		return err
	}

	docs, err := h.store.Find(ctx, op.Collection, grant.RestaurantID)
	if err != nil {
		return storeError(op.Collection, err)
	}
	matched, err := h.evaluator().Apply(docs, op.Filters)
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}
	if len(matched) == 0 {
		return apperrors.NewNotFoundError(op.Collection)
	}

	patch[models.FieldUpdatedAt] = models.Timestamp(h.now())
	patch[models.FieldUpdatedBy] = grant.UserID

	batch := make([]store.Mutation, 0, len(matched))
	items := make([]map[string]interface{}, 0, len(matched))
	for _, doc := range matched {
		batch = append(batch, store.Mutation{
			Type:         store.MutationUpdate,
			Collection:   op.Collection,
			ID:           doc.ID(),
			RestaurantID: grant.RestaurantID,
			Data:         patch,
		})
		merged := doc.Clone()
		for k, v := range patch {
			merged[k] = v
		}
		items = append(items, project(merged, nil))
	}

	if err := h.store.Commit(ctx, batch); err != nil {
		return storeError(op.Collection, err)
	}

	res.Success = true
	res.Affected = len(matched)
	if len(matched) == 1 {
		res.ID = matched[0].ID()
	}
	res.Items = items
	res.Message = "updated"
	return nil
}

// remove deletes exactly one document. List targets and multi-document
// matches are refused so a single call can never bulk delete.
func (h *Handler) remove(ctx context.Context, grant *models.AccessGrant, op *models.Operation, res *models.OperationResult) error {
	if len(op.Filters) == 0 {
		return apperrors.NewValidationFailedError("delete requires a filter")
	}
	if filter.HasListTarget(op.Filters) {
		return apperrors.NewValidationFailedError("delete accepts a single target only")
	}

	docs, err := h.store.Find(ctx, op.Collection, grant.RestaurantID)
	if err != nil {
		return storeError(op.Collection, err)
	}
	matched, err := h.evaluator().Apply(docs, op.Filters)
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}
	switch {
	case len(matched) == 0:
		return apperrors.NewNotFoundError(op.Collection)
	case len(matched) > 1:
		return apperrors.NewValidationFailedError(fmt.Sprintf("delete matched %d documents", len(matched)))
	}

	target := matched[0]
	err = h.store.Commit(ctx, []store.Mutation{{
		Type:         store.MutationDelete,
		Collection:   op.Collection,
		ID:           target.ID(),
		RestaurantID: grant.RestaurantID,
	}})
	if err != nil {
		return storeError(op.Collection, err)
	}

	res.Success = true
	res.ID = target.ID()
	res.Affected = 1
	res.Items = []map[string]interface{}{project(target, nil)}
	res.Message = "deleted"
	return nil
}

func normalizeStatus(collection string, doc models.Document) error {
	v, ok := doc["status"]
	if !ok {
		return nil
	}
	var allowed []string
	switch collection {
	case models.CollectionTables:
		allowed = models.TableStatuses
	case models.CollectionOrders:
		allowed = models.OrderStatuses
	default:
		return nil
	}
	status := strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
	for _, s := range allowed {
		if s == status {
			doc["status"] = status
			return nil
		}
	}
	return apperrors.NewValidationFailedError(fmt.Sprintf("invalid status %q", status))
}

func coerceNumbers(doc models.Document) error {
	for _, field := range numericFields {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		f, ok := models.ToFloat(v)
		if !ok {
			return apperrors.NewValidationFailedError(fmt.Sprintf("%s must be a number", field))
		}
		doc[field] = f
	}
	return nil
}

func orderItems(v interface{}) ([]map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("items must be a list of objects")
	}
	return items, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
