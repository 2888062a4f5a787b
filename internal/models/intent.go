package models

import "strings"

// IntentSetVersion identifies the closed intent set and the fast-path template table built on it.
const IntentSetVersion = "v1"

type Intent string

const (
	IntentPlaceOrder        Intent = "PLACE_ORDER"
	IntentCancelOrder       Intent = "CANCEL_ORDER"
	IntentOrderStatus       Intent = "ORDER_STATUS"
	IntentShowOrders        Intent = "SHOW_ORDERS"
	IntentOrderCount        Intent = "ORDER_COUNT"
	IntentRevenueQuery      Intent = "REVENUE_QUERY"
	IntentPopularItems      Intent = "POPULAR_ITEMS"
	IntentTableStatus       Intent = "TABLE_STATUS"
	IntentShowTables        Intent = "SHOW_TABLES"
	IntentAddTable          Intent = "ADD_TABLE"
	IntentUpdateTableStatus Intent = "UPDATE_TABLE_STATUS"
	IntentDeleteTable       Intent = "DELETE_TABLE"
	IntentShowMenu          Intent = "SHOW_MENU"
	IntentAddMenuItem       Intent = "ADD_MENU_ITEM"
	IntentInventoryStatus   Intent = "INVENTORY_STATUS"
	IntentLowStock          Intent = "LOW_STOCK"
	IntentUnknown           Intent = "UNKNOWN"
)

// IntentSpec carries the prompt material for one intent. Keywords and examples are
// only ever shown to the completion service; nothing infers intents from them locally.
type IntentSpec struct {
	Intent      Intent
	Description string
	Keywords    []string
	Examples    []string
}

var intentCatalog = []IntentSpec{
	{IntentPlaceOrder, "create a new order for a table", []string{"order", "place", "get"}, []string{"order 2 delhi burger for table 5", "place an order for table 3 of paneer tikka"}},
	{IntentCancelOrder, "cancel an open order", []string{"cancel", "void"}, []string{"cancel the order for table 4", "cancel order ORD-AB12CD"}},
	{IntentOrderStatus, "status of an order or a table's orders", []string{"status", "ready", "where is"}, []string{"what's the status of table 2's order", "is order ORD-AB12CD ready"}},
	{IntentShowOrders, "list orders", []string{"show", "list", "orders"}, []string{"show today's orders", "list pending orders"}},
	{IntentOrderCount, "count orders", []string{"how many", "count", "number of"}, []string{"how many orders today", "count orders this week"}},
	{IntentRevenueQuery, "revenue or sales totals", []string{"revenue", "sales", "earnings", "income"}, []string{"show today's revenue", "what was revenue last month"}},
	{IntentPopularItems, "most ordered menu items", []string{"popular", "best selling", "top"}, []string{"what are the most popular items", "top dishes this week"}},
	{IntentTableStatus, "status of one table", []string{"table", "free", "available", "occupied"}, []string{"is table 5 free", "status of table 2"}},
	{IntentShowTables, "list tables", []string{"tables", "show tables"}, []string{"show all tables", "which tables are available"}},
	{IntentAddTable, "create a table", []string{"add table", "new table", "create table"}, []string{"add table 5 with capacity 6", "create a new table 12"}},
	{IntentUpdateTableStatus, "change a table's status", []string{"mark", "set", "free up"}, []string{"mark table 3 as occupied", "set table 7 to cleaning"}},
	{IntentDeleteTable, "remove a table", []string{"delete", "remove"}, []string{"delete table 2", "remove table 9"}},
	{IntentShowMenu, "list the menu", []string{"menu", "dishes", "items"}, []string{"show the menu", "what's on the menu"}},
	{IntentAddMenuItem, "create a menu item", []string{"add item", "new dish"}, []string{"add paneer tikka to the menu for 250", "new dish masala dosa price 120"}},
	{IntentInventoryStatus, "list inventory", []string{"inventory", "stock"}, []string{"show inventory", "how much stock do we have"}},
	{IntentLowStock, "inventory items at or below their threshold", []string{"low stock", "running out", "reorder"}, []string{"what's running low", "which items need reorder"}},
	{IntentUnknown, "anything else", nil, []string{"tell me a joke"}},
}

// AllIntents returns the closed intent set in prompt order.
func AllIntents() []IntentSpec {
	out := make([]IntentSpec, len(intentCatalog))
	copy(out, intentCatalog)
	return out
}

func (i Intent) Valid() bool {
	for _, spec := range intentCatalog {
		if spec.Intent == i {
			return true
		}
	}
	return false
}

// ParseIntent accepts only an exact member of the closed set after case folding.
func ParseIntent(s string) (Intent, bool) {
	candidate := Intent(strings.ToUpper(strings.TrimSpace(s)))
	if candidate.Valid() {
		return candidate, true
	}
	return IntentUnknown, false
}
