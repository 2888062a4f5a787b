package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	CollectionRestaurants          = "restaurants"
	CollectionUserRestaurants      = "userRestaurants"
	CollectionTables               = "tables"
	CollectionOrders               = "orders"
	CollectionMenuItems            = "menuItems"
	CollectionInventory            = "inventory"
	CollectionConversationContexts = "conversationContexts"
)

// TenantCollections are the collections reachable from a natural-language operation.
var TenantCollections = []string{
	CollectionTables,
	CollectionOrders,
	CollectionMenuItems,
	CollectionInventory,
}

func IsTenantCollection(name string) bool {
	for _, c := range TenantCollections {
		if c == name {
			return true
		}
	}
	return false
}

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
	TableStatusCleaning  = "CLEANING"
)

var TableStatuses = []string{TableStatusAvailable, TableStatusOccupied, TableStatusReserved, TableStatusCleaning}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

var OrderStatuses = []string{OrderStatusPending, OrderStatusPreparing, OrderStatusServed, OrderStatusCompleted, OrderStatusCancelled}

// OpenOrderStatuses are the states an order can still be cancelled from.
var OpenOrderStatuses = []string{OrderStatusPending, OrderStatusPreparing}

const (
	FieldID           = "id"
	FieldRestaurantID = "restaurantId"
	FieldCreatedAt    = "createdAt"
	FieldCreatedBy    = "createdBy"
	FieldUpdatedAt    = "updatedAt"
	FieldUpdatedBy    = "updatedBy"
)

// Document is a schemaless record as stored in a tenant collection.
type Document map[string]interface{}

func (d Document) ID() string {
	return d.String(FieldID)
}

func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (d Document) Float(key string) (float64, bool) {
	return ToFloat(d[key])
}

// Clone deep-copies through JSON so every store hands out the same value types.
func (d Document) Clone() Document {
	raw, err := json.Marshal(d)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return Document{}
	}
	return out
}

// ToFloat converts JSON-ish numeric values, including numeric strings.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Timestamp formats times the way documents store them.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp accepts stored timestamps and time.Time values.
func ParseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
