// internal/workers/assistant/generate-operation/templates/orders.go
package templates

import (
	"restaurant-assistant/internal/models"
)

const anonymousCustomer = "Customer"

var orderListFields = []string{"orderNumber", "tableNumber", "customerName", "status", "totalAmount", "itemNames"}

func openStatuses() map[string]interface{} {
	list := make([]interface{}, 0, len(models.OpenOrderStatuses))
	for _, s := range models.OpenOrderStatuses {
		list = append(list, s)
	}
	return map[string]interface{}{"$in": list}
}

func PlaceOrder(x *Extraction) ([]models.Operation, error) {
	table := x.TableOrContext()
	if table == "" || len(x.Slots.Items) == 0 {
		return nil, ErrMissingSlot
	}

	items := make([]interface{}, 0, len(x.Slots.Items))
	refs := make([]models.Reference, 0, len(x.Slots.Items))
	for i, item := range x.Slots.Items {
		items = append(items, map[string]interface{}{
			"name":     item.Phrase,
			"quantity": item.Quantity,
		})
		refs = append(refs, models.Reference{
			Phrase:     item.Phrase,
			Collection: models.CollectionMenuItems,
			Field:      "items",
			Index:      i,
		})
	}

	customer := x.CustomerNameOrContext()
	if customer == "" {
		customer = anonymousCustomer
	}
	data := map[string]interface{}{
		"tableNumber":  table,
		"customerName": customer,
		"items":        items,
	}
	if phone := x.CustomerPhoneOrContext(); phone != "" {
		data["customerPhone"] = phone
	}

	return []models.Operation{{
		Name:       "createOrder",
		Kind:       models.KindCreate,
		Collection: models.CollectionOrders,
		Data:       data,
		References: refs,
	}}, nil
}

func CancelOrder(x *Extraction) ([]models.Operation, error) {
	var filters map[string]interface{}
	switch {
	case x.Slots.OrderNumber != "":
		filters = map[string]interface{}{"orderNumber": x.Slots.OrderNumber}
	case x.TableOrContext() != "":
		filters = map[string]interface{}{"tableNumber": x.TableOrContext(), "status": openStatuses()}
	default:
		return nil, ErrMissingSlot
	}

	return []models.Operation{{
		Name:       "cancelOrder",
		Kind:       models.KindUpdate,
		Collection: models.CollectionOrders,
		Filters:    filters,
		Data:       map[string]interface{}{"status": models.OrderStatusCancelled},
	}}, nil
}

func OrderStatus(x *Extraction) ([]models.Operation, error) {
	filters := map[string]interface{}{}
	switch {
	case x.Slots.OrderNumber != "":
		filters["orderNumber"] = x.Slots.OrderNumber
	case x.TableOrContext() != "":
		filters["tableNumber"] = x.TableOrContext()
		filters["status"] = openStatuses()
	default:
		filters["status"] = openStatuses()
	}

	return []models.Operation{{
		Name:        "orderStatus",
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: models.AggregationList,
		Filters:     filters,
		Fields:      orderListFields,
	}}, nil
}

// orderFilters narrows by the window, status and table the utterance names.
// The conversation's last table is deliberately not applied to listings.
func orderFilters(x *Extraction) map[string]interface{} {
	filters := map[string]interface{}{}
	if x.Slots.Window != "" {
		filters[models.FieldCreatedAt] = x.Slots.Window
	}
	if x.Slots.OrderStatus != "" {
		filters["status"] = x.Slots.OrderStatus
	}
	if x.Slots.TableNumber != "" {
		filters["tableNumber"] = x.Slots.TableNumber
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func ShowOrders(x *Extraction) ([]models.Operation, error) {
	return []models.Operation{{
		Name:        "orders",
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: models.AggregationList,
		Filters:     orderFilters(x),
		Fields:      orderListFields,
	}}, nil
}

func OrderCount(x *Extraction) ([]models.Operation, error) {
	return []models.Operation{{
		Name:        "orderCount",
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: models.AggregationCount,
		Filters:     orderFilters(x),
	}}, nil
}

// RevenueQuery sums order totals, for today unless another window is named.
func RevenueQuery(x *Extraction) ([]models.Operation, error) {
	window := x.Slots.Window
	if window == "" {
		window = "today"
	}
	aggregation := models.AggregationSum
	if x.Slots.Average {
		aggregation = models.AggregationAverage
	}

	return []models.Operation{{
		Name:        "revenue",
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: aggregation,
		Filters:     map[string]interface{}{models.FieldCreatedAt: window},
		Fields:      []string{"totalAmount"},
	}}, nil
}

func PopularItems(x *Extraction) ([]models.Operation, error) {
	var filters map[string]interface{}
	if x.Slots.Window != "" {
		filters = map[string]interface{}{models.FieldCreatedAt: x.Slots.Window}
	}
	return []models.Operation{{
		Name:        "popularItems",
		Kind:        models.KindRead,
		Collection:  models.CollectionOrders,
		Aggregation: models.AggregationGroupBy,
		Filters:     filters,
		Fields:      []string{"itemNames"},
	}}, nil
}
