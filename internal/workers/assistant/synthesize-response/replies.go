// internal/workers/assistant/synthesize-response/replies.go
package synthesizeresponse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

type replyFunc func(op *models.Operation, res *models.OperationResult, limit int) string

// replies is keyed by operation name.
var replies = map[string]replyFunc{
	"createTable":       replyCreateTable,
	"updateTableStatus": replyUpdateTableStatus,
	"deleteTable":       replyDeleteTable,
	"tables":            replyTables,
	"tableStatus":       replyTableStatus,
	"createOrder":       replyCreateOrder,
	"cancelOrder":       replyCancelOrder,
	"orders":            replyOrders,
	"orderStatus":       replyOrderStatus,
	"orderCount":        replyOrderCount,
	"revenue":           replyRevenue,
	"popularItems":      replyPopularItems,
	"menu":              replyMenu,
	"menuItems":         replyMenu,
	"createMenuItem":    replyCreateMenuItem,
	"inventory":         replyInventory,
	"lowStock":          replyLowStock,
}

// Offline renders a reply without any external call. Unknown operation names
// get a generic acknowledgment.
func Offline(op *models.Operation, res *models.OperationResult, limit int) string {
	if res == nil {
		return "Operation executed successfully, 0 result(s)."
	}
	if op != nil {
		if fn, ok := replies[op.Name]; ok {
			if text := fn(op, res, limit); text != "" {
				return text
			}
		}
	}
	return fmt.Sprintf("Operation executed successfully, %d result(s).", res.Size())
}

func replyCreateTable(op *models.Operation, res *models.OperationResult, limit int) string {
	item := first(res)
	name := str(item, "name")
	if name == "" {
		return "The table has been added."
	}
	if capacity := num(item["capacity"]); capacity != "" {
		return fmt.Sprintf("Table %s has been added with capacity %s.", name, capacity)
	}
	return fmt.Sprintf("Table %s has been added.", name)
}

func replyUpdateTableStatus(op *models.Operation, res *models.OperationResult, limit int) string {
	item := first(res)
	name := str(item, "name")
	status := str(item, "status")
	if name == "" || status == "" {
		return "The table has been updated."
	}
	return fmt.Sprintf("Table %s is now %s.", name, status)
}

func replyDeleteTable(op *models.Operation, res *models.OperationResult, limit int) string {
	if name, _ := op.Filters["name"].(string); name != "" {
		return fmt.Sprintf("Table %s has been removed.", name)
	}
	return "The table has been removed."
}

func replyTables(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	if len(res.Items) == 0 {
		return "No tables found."
	}
	parts := make([]string, 0, len(res.Items))
	for _, item := range capped(res.Items, limit) {
		parts = append(parts, fmt.Sprintf("%s (%s)", str(item, "name"), str(item, "status")))
	}
	return fmt.Sprintf("There %s %d %s: %s.", plural(len(res.Items), "is", "are"), len(res.Items),
		plural(len(res.Items), "table", "tables"), strings.Join(parts, ", ")+more(res.Items, limit))
}

func replyTableStatus(op *models.Operation, res *models.OperationResult, limit int) string {
	if len(res.Items) != 1 {
		return replyTables(op, res, limit)
	}
	item := res.Items[0]
	text := fmt.Sprintf("Table %s is %s", str(item, "name"), str(item, "status"))
	if capacity := num(item["capacity"]); capacity != "" {
		text += fmt.Sprintf(" (seats %s)", capacity)
	}
	return text + "."
}

func replyCreateOrder(op *models.Operation, res *models.OperationResult, limit int) string {
	item := first(res)
	number := str(item, "orderNumber")
	if number == "" {
		return "The order has been placed."
	}
	text := fmt.Sprintf("Order %s placed for table %s", number, str(item, "tableNumber"))
	if total, ok := models.ToFloat(item["totalAmount"]); ok {
		text += fmt.Sprintf(". Total: %.2f", total)
	}
	return text + "."
}

func replyCancelOrder(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Affected > 1 {
		return fmt.Sprintf("%d orders have been cancelled.", res.Affected)
	}
	if number := str(first(res), "orderNumber"); number != "" {
		return fmt.Sprintf("Order %s has been cancelled.", number)
	}
	return "The order has been cancelled."
}

func replyOrders(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	window := windowLabel(op)
	if len(res.Items) == 0 {
		return strings.TrimSpace("No orders found "+window) + "."
	}
	parts := make([]string, 0, len(res.Items))
	for _, item := range capped(res.Items, limit) {
		parts = append(parts, describeOrder(item))
	}
	head := fmt.Sprintf("Found %d %s", len(res.Items), plural(len(res.Items), "order", "orders"))
	if window != "" {
		head += " " + window
	}
	return fmt.Sprintf("%s: %s.", head, strings.Join(parts, "; ")+more(res.Items, limit))
}

func replyOrderStatus(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	switch len(res.Items) {
	case 0:
		return "There are no open orders matching that."
	case 1:
		item := res.Items[0]
		return fmt.Sprintf("Order %s for table %s is %s.", str(item, "orderNumber"), str(item, "tableNumber"), str(item, "status"))
	}
	return replyOrders(op, res, limit)
}

func replyOrderCount(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Count == nil {
		return ""
	}
	text := fmt.Sprintf("You have %d %s", *res.Count, plural(*res.Count, "order", "orders"))
	if window := windowLabel(op); window != "" {
		text += " " + window
	}
	return text + "."
}

func replyRevenue(op *models.Operation, res *models.OperationResult, limit int) string {
	window := windowLabel(op)
	if window != "" {
		window = " " + window
	}
	switch {
	case res.Average != nil:
		return fmt.Sprintf("Average order value%s is %.2f.", window, *res.Average)
	case res.Sum != nil:
		return fmt.Sprintf("Total revenue%s is %.2f.", window, *res.Sum)
	}
	return ""
}

func replyPopularItems(op *models.Operation, res *models.OperationResult, limit int) string {
	if len(res.Grouped) == 0 {
		return "No orders yet to rank items by."
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(res.Grouped))
	for name, count := range res.Grouped {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	top := 5
	if len(entries) < top {
		top = len(entries)
	}
	parts := make([]string, 0, top)
	for _, e := range entries[:top] {
		parts = append(parts, fmt.Sprintf("%s (%d)", e.name, e.count))
	}
	return "Most popular items: " + strings.Join(parts, ", ") + "."
}

func replyMenu(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	if len(res.Items) == 0 {
		return "The menu is empty."
	}
	parts := make([]string, 0, len(res.Items))
	for _, item := range capped(res.Items, limit) {
		if price, ok := models.ToFloat(item["price"]); ok {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", str(item, "name"), price))
			continue
		}
		parts = append(parts, str(item, "name"))
	}
	return fmt.Sprintf("The menu has %d %s: %s.", len(res.Items), plural(len(res.Items), "item", "items"),
		strings.Join(parts, ", ")+more(res.Items, limit))
}

func replyCreateMenuItem(op *models.Operation, res *models.OperationResult, limit int) string {
	if name := str(first(res), "name"); name != "" {
		return fmt.Sprintf("%s has been added to the menu.", name)
	}
	return "The menu item has been added."
}

func replyInventory(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	if len(res.Items) == 0 {
		return "No inventory items found."
	}
	return fmt.Sprintf("Inventory: %s.", strings.Join(stockLines(res.Items, limit, false), ", ")+more(res.Items, limit))
}

func replyLowStock(op *models.Operation, res *models.OperationResult, limit int) string {
	if res.Items == nil {
		return ""
	}
	if len(res.Items) == 0 {
		return "Nothing is running low right now."
	}
	return fmt.Sprintf("%d %s running low: %s.", len(res.Items), plural(len(res.Items), "item is", "items are"),
		strings.Join(stockLines(res.Items, limit, true), ", ")+more(res.Items, limit))
}

func stockLines(items []map[string]interface{}, limit int, withThreshold bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range capped(items, limit) {
		line := fmt.Sprintf("%s: %s", str(item, "name"), num(item["quantity"]))
		if unit := str(item, "unit"); unit != "" {
			line += " " + unit
		}
		if withThreshold {
			if reorder := num(item["reorderLevel"]); reorder != "" {
				line += fmt.Sprintf(" (reorder at %s)", reorder)
			}
		}
		out = append(out, line)
	}
	return out
}

func describeOrder(item map[string]interface{}) string {
	parts := []string{}
	if table := str(item, "tableNumber"); table != "" {
		parts = append(parts, "table "+table)
	}
	if status := str(item, "status"); status != "" {
		parts = append(parts, status)
	}
	if total, ok := models.ToFloat(item["totalAmount"]); ok {
		parts = append(parts, fmt.Sprintf("%.2f", total))
	}
	label := str(item, "orderNumber")
	if label == "" {
		label = str(item, models.FieldID)
	}
	if len(parts) == 0 {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(parts, ", "))
}

func windowLabel(op *models.Operation) string {
	if op == nil {
		return ""
	}
	name, _ := op.Filters[models.FieldCreatedAt].(string)
	return filter.Label(name)
}

func first(res *models.OperationResult) map[string]interface{} {
	if len(res.Items) == 0 {
		return nil
	}
	return res.Items[0]
}

func str(item map[string]interface{}, key string) string {
	if item == nil {
		return ""
	}
	switch v := item[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return num(v)
	}
}

func num(v interface{}) string {
	f, ok := models.ToFloat(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func capped(items []map[string]interface{}, limit int) []map[string]interface{} {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func more(items []map[string]interface{}, limit int) string {
	if limit > 0 && len(items) > limit {
		return fmt.Sprintf(" and %d more", len(items)-limit)
	}
	return ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
