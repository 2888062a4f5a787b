// internal/workers/assistant/generate-operation/templates/templates_test.go
package templates

import (
	"testing"

	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func build(t *testing.T, intent models.Intent, utterance string, convo *models.ConversationContext) []models.Operation {
	t.Helper()
	ops, err := Build(intent, Extract(utterance, convo))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	return ops
}

// ==========================
// Registry Tests
// ==========================

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())

	for _, spec := range models.AllIntents() {
		_, templated := Registry[spec.Intent]
		assert.NotEqual(t, templated, FallbackOnly[spec.Intent], "intent %s", spec.Intent)
	}
}

func TestBuild_UnknownTemplate(t *testing.T) {
	_, err := Build(models.IntentAddMenuItem, Extract("add paneer tikka to the menu for 250", nil))
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

// ==========================
// Extraction Tests
// ==========================

func TestExtract_Slots(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      Slots
	}{
		{
			name:      "table and capacity",
			utterance: "add table 5 with capacity 6",
			want:      Slots{TableNumber: "5", Capacity: 6},
		},
		{
			name:      "seats phrasing",
			utterance: "create a new table 12 for 8 people",
			want:      Slots{TableNumber: "12", Capacity: 8},
		},
		{
			name:      "table number with leading zero",
			utterance: "is table no. 07 free?",
			want:      Slots{TableNumber: "7", TableStatus: models.TableStatusAvailable},
		},
		{
			name:      "order number",
			utterance: "cancel order ORD-ab12cd",
			want:      Slots{OrderNumber: "ORD-AB12CD"},
		},
		{
			name:      "window and average",
			utterance: "what was the average order value last week",
			want:      Slots{Window: filter.WindowLastWeek, Average: true},
		},
		{
			name:      "possessive today",
			utterance: "show today's revenue",
			want:      Slots{Window: filter.WindowToday},
		},
		{
			name:      "order status word",
			utterance: "list pending orders this month",
			want:      Slots{Window: filter.WindowThisMonth, OrderStatus: models.OrderStatusPending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.utterance, nil).Slots
			got.Items = nil
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Items(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      []Item
	}{
		{
			name:      "leading quantity",
			utterance: "order 2 delhi burger for table 5",
			want:      []Item{{Phrase: "delhi burger", Quantity: 2}},
		},
		{
			name:      "number words and conjunction",
			utterance: "order 2 delhi burger and a masala dosa for table 3",
			want:      []Item{{Phrase: "delhi burger", Quantity: 2}, {Phrase: "masala dosa", Quantity: 1}},
		},
		{
			name:      "table before items",
			utterance: "place an order for table 3 of paneer tikka",
			want:      []Item{{Phrase: "paneer tikka", Quantity: 1}},
		},
		{
			name:      "trailing quantities",
			utterance: "order paneer tikka x2, masala dosa 3 for table 4",
			want:      []Item{{Phrase: "paneer tikka", Quantity: 2}, {Phrase: "masala dosa", Quantity: 3}},
		},
		{
			name:      "word starting with a",
			utterance: "order aloo paratha for table 2",
			want:      []Item{{Phrase: "aloo paratha", Quantity: 1}},
		},
		{
			name:      "leading verb without order",
			utterance: "get 3 plates of masala dosa for table 1",
			want:      []Item{{Phrase: "masala dosa", Quantity: 3}},
		},
		{
			name:      "no dish",
			utterance: "show all tables",
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.utterance, nil).Slots.Items)
		})
	}
}

func TestExtract_CustomerAndPhone(t *testing.T) {
	x := Extract("order 2 masala dosa for table 1 customer name is asha rao phone 9876543210", nil)

	assert.Equal(t, "Asha Rao", x.Slots.CustomerName)
	assert.Equal(t, "9876543210", x.Slots.CustomerPhone)
	assert.Equal(t, []Item{{Phrase: "masala dosa", Quantity: 2}}, x.Slots.Items)
}

func TestExtract_IsPure(t *testing.T) {
	convo := &models.ConversationContext{LastTableNumber: "4", LastCustomerName: "Ravi"}

	first := Extract("order 2 delhi burger", convo)
	second := Extract("order 2 delhi burger", convo)

	assert.Equal(t, first, second)
	assert.Equal(t, "4", convo.LastTableNumber)
	assert.Equal(t, "Ravi", convo.LastCustomerName)
	assert.Empty(t, first.Slots.TableNumber)
	assert.Equal(t, "4", first.TableOrContext())
}

// ==========================
// Template Tests
// ==========================

func TestAddTable_Descriptor(t *testing.T) {
	ops := build(t, models.IntentAddTable, "add table 5 with capacity 6", nil)

	op := ops[0]
	assert.Equal(t, "createTable", op.Name)
	assert.Equal(t, models.KindCreate, op.Kind)
	assert.Equal(t, models.CollectionTables, op.Collection)
	assert.Equal(t, map[string]interface{}{"name": "5", "capacity": 6}, op.Data)
}

func TestRevenueQuery_Descriptor(t *testing.T) {
	ops := build(t, models.IntentRevenueQuery, "show today's revenue", nil)

	op := ops[0]
	assert.Equal(t, models.KindRead, op.Kind)
	assert.Equal(t, models.CollectionOrders, op.Collection)
	assert.Equal(t, models.AggregationSum, op.Aggregation)
	assert.Equal(t, map[string]interface{}{"createdAt": "today"}, op.Filters)
	assert.Equal(t, []string{"totalAmount"}, op.Fields)
}

func TestRevenueQuery_AverageAndWindow(t *testing.T) {
	op := build(t, models.IntentRevenueQuery, "average sales this month", nil)[0]

	assert.Equal(t, models.AggregationAverage, op.Aggregation)
	assert.Equal(t, filter.WindowThisMonth, op.Filters["createdAt"])
}

func TestPlaceOrder(t *testing.T) {
	t.Run("items become references", func(t *testing.T) {
		op := build(t, models.IntentPlaceOrder, "order 2 del burger and a masala dosa for table 5", nil)[0]

		assert.Equal(t, "createOrder", op.Name)
		assert.Equal(t, "5", op.Data["tableNumber"])
		assert.Equal(t, anonymousCustomer, op.Data["customerName"])
		assert.NotContains(t, op.Data, "customerPhone")
		require.Len(t, op.References, 2)
		assert.Equal(t, models.Reference{Phrase: "del burger", Collection: models.CollectionMenuItems, Field: "items", Index: 0}, op.References[0])
		assert.Equal(t, 1, op.References[1].Index)
	})

	t.Run("table and customer from context", func(t *testing.T) {
		convo := &models.ConversationContext{LastTableNumber: "3", LastCustomerName: "Asha", LastCustomerPhone: "9876543210"}
		op := build(t, models.IntentPlaceOrder, "order 2 masala dosa", convo)[0]

		assert.Equal(t, "3", op.Data["tableNumber"])
		assert.Equal(t, "Asha", op.Data["customerName"])
		assert.Equal(t, "9876543210", op.Data["customerPhone"])
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := Build(models.IntentPlaceOrder, Extract("order 2 masala dosa", nil))
		assert.ErrorIs(t, err, ErrMissingSlot)
	})

	t.Run("missing items", func(t *testing.T) {
		_, err := Build(models.IntentPlaceOrder, Extract("place an order for table 3", nil))
		assert.ErrorIs(t, err, ErrMissingSlot)
	})
}

func TestCancelOrder(t *testing.T) {
	byNumber := build(t, models.IntentCancelOrder, "cancel order ORD-ab12cd", nil)[0]
	assert.Equal(t, map[string]interface{}{"orderNumber": "ORD-AB12CD"}, byNumber.Filters)
	assert.Equal(t, models.OrderStatusCancelled, byNumber.Data["status"])

	byTable := build(t, models.IntentCancelOrder, "cancel the order for table 4", nil)[0]
	assert.Equal(t, "4", byTable.Filters["tableNumber"])
	assert.Contains(t, byTable.Filters["status"], filter.OpIn)

	_, err := Build(models.IntentCancelOrder, Extract("cancel the order", nil))
	assert.ErrorIs(t, err, ErrMissingSlot)
}

func TestTableTemplates_ContextRules(t *testing.T) {
	convo := &models.ConversationContext{LastTableNumber: "2"}

	status := build(t, models.IntentTableStatus, "is it free", convo)[0]
	assert.Equal(t, map[string]interface{}{"name": "2"}, status.Filters)

	update := build(t, models.IntentUpdateTableStatus, "mark it as occupied", convo)[0]
	assert.Equal(t, map[string]interface{}{"name": "2"}, update.Filters)
	assert.Equal(t, models.TableStatusOccupied, update.Data["status"])

	_, err := Build(models.IntentDeleteTable, Extract("delete it", convo))
	assert.ErrorIs(t, err, ErrMissingSlot)

	_, err = Build(models.IntentAddTable, Extract("add a table", convo))
	assert.ErrorIs(t, err, ErrMissingSlot)

	del := build(t, models.IntentDeleteTable, "delete table 9", convo)[0]
	assert.Equal(t, models.KindDelete, del.Kind)
	assert.Equal(t, map[string]interface{}{"name": "9"}, del.Filters)
}

func TestShowOrders_IgnoresContextTable(t *testing.T) {
	convo := &models.ConversationContext{LastTableNumber: "2"}

	op := build(t, models.IntentShowOrders, "show today's orders", convo)[0]

	assert.Equal(t, map[string]interface{}{"createdAt": "today"}, op.Filters)
	assert.Equal(t, models.AggregationList, op.Aggregation)
}

func TestReadTemplates(t *testing.T) {
	tests := []struct {
		intent      models.Intent
		utterance   string
		name        string
		collection  string
		aggregation models.Aggregation
	}{
		{models.IntentOrderCount, "how many orders today", "orderCount", models.CollectionOrders, models.AggregationCount},
		{models.IntentPopularItems, "top dishes this week", "popularItems", models.CollectionOrders, models.AggregationGroupBy},
		{models.IntentShowTables, "which tables are available", "tables", models.CollectionTables, models.AggregationList},
		{models.IntentShowMenu, "show the menu", "menu", models.CollectionMenuItems, models.AggregationList},
		{models.IntentInventoryStatus, "show inventory", "inventory", models.CollectionInventory, models.AggregationList},
		{models.IntentLowStock, "what's running low", "lowStock", models.CollectionInventory, models.AggregationList},
		{models.IntentOrderStatus, "is order ORD-ab12cd ready", "orderStatus", models.CollectionOrders, models.AggregationList},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			op := build(t, tt.intent, tt.utterance, nil)[0]
			assert.Equal(t, tt.name, op.Name)
			assert.Equal(t, models.KindRead, op.Kind)
			assert.Equal(t, tt.collection, op.Collection)
			assert.Equal(t, tt.aggregation, op.Aggregation)
		})
	}
}
