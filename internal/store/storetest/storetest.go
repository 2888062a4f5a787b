// Package storetest seeds two restaurants into a store and records store traffic for tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/store"

	"github.com/stretchr/testify/require"
)

const (
	RestaurantID      = "rest-1"
	OtherRestaurantID = "rest-2"

	OwnerID      = "owner-1"
	ManagerID    = "manager-1"
	StaffID      = "staff-1"
	WaiterID     = "waiter-1"
	OtherOwnerID = "owner-2"
	StrangerID   = "stranger"
)

// Now is the request time the seeded timestamps are relative to (a Wednesday).
var Now = time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)

func Clock() time.Time { return Now }

func doc(id string, fields models.Document) models.Document {
	fields[models.FieldID] = id
	return fields
}

// Seed fills s with two tenants. rest-1 has members, tables 1 and 2, three
// menu items, three orders (two today, one yesterday) and two inventory rows.
func Seed(t testing.TB, s store.Store) {
	t.Helper()

	today := models.Timestamp(Now.Add(-2 * time.Hour))
	yesterday := models.Timestamp(Now.Add(-26 * time.Hour))

	create := func(collection, restaurantID, id string, fields models.Document) store.Mutation {
		fields[models.FieldRestaurantID] = restaurantID
		return store.Mutation{
			Type:         store.MutationCreate,
			Collection:   collection,
			ID:           id,
			RestaurantID: restaurantID,
			Data:         doc(id, fields),
		}
	}

	batch := []store.Mutation{
		create(models.CollectionRestaurants, RestaurantID, RestaurantID, models.Document{"name": "Spice Route", "ownerId": OwnerID}),
		create(models.CollectionRestaurants, OtherRestaurantID, OtherRestaurantID, models.Document{"name": "Napoli", "ownerId": OtherOwnerID}),

		create(models.CollectionUserRestaurants, RestaurantID, "ur-manager", models.Document{"userId": ManagerID, "role": "MANAGER", "permissions": []interface{}{"read", "write", "delete"}}),
		create(models.CollectionUserRestaurants, RestaurantID, "ur-staff", models.Document{"userId": StaffID, "role": "STAFF"}),
		create(models.CollectionUserRestaurants, RestaurantID, "ur-waiter", models.Document{"userId": WaiterID, "role": "WAITER", "permissions": []interface{}{"read"}}),

		create(models.CollectionTables, RestaurantID, "table-1", models.Document{"name": "1", "capacity": 4.0, "status": models.TableStatusAvailable}),
		create(models.CollectionTables, RestaurantID, "table-2", models.Document{"name": "2", "capacity": 2.0, "status": models.TableStatusOccupied}),
		create(models.CollectionTables, OtherRestaurantID, "table-r2-1", models.Document{"name": "1", "capacity": 6.0, "status": models.TableStatusAvailable}),

		create(models.CollectionMenuItems, RestaurantID, "menu-burger", models.Document{"name": "Delhi Burger", "price": 180.0, "available": true}),
		create(models.CollectionMenuItems, RestaurantID, "menu-paneer", models.Document{"name": "Paneer Tikka", "price": 250.0, "available": true}),
		create(models.CollectionMenuItems, RestaurantID, "menu-dosa", models.Document{"name": "Masala Dosa", "price": 120.0, "available": true}),
		create(models.CollectionMenuItems, OtherRestaurantID, "menu-pizza", models.Document{"name": "Margherita Pizza", "price": 400.0, "available": true}),

		create(models.CollectionOrders, RestaurantID, "order-1", models.Document{
			"orderNumber": "ORD-AAA111", "tableNumber": "1", "customerName": "Asha", "status": models.OrderStatusPending,
			"items": []interface{}{
				map[string]interface{}{"menuItemId": "menu-burger", "name": "Delhi Burger", "price": 180.0, "quantity": 2.0},
				map[string]interface{}{"menuItemId": "menu-dosa", "name": "Masala Dosa", "price": 120.0, "quantity": 1.0},
			},
			"itemNames":   []interface{}{"Delhi Burger", "Masala Dosa"},
			"totalAmount": 480.0, "createdAt": today,
		}),
		create(models.CollectionOrders, RestaurantID, "order-2", models.Document{
			"orderNumber": "ORD-BBB222", "tableNumber": "2", "customerName": "Ravi", "status": models.OrderStatusServed,
			"items": []interface{}{
				map[string]interface{}{"menuItemId": "menu-burger", "name": "Delhi Burger", "price": 180.0, "quantity": 1.0},
			},
			"itemNames":   []interface{}{"Delhi Burger"},
			"totalAmount": 180.0, "createdAt": today,
		}),
		create(models.CollectionOrders, RestaurantID, "order-3", models.Document{
			"orderNumber": "ORD-CCC333", "tableNumber": "1", "customerName": "Customer", "status": models.OrderStatusCompleted,
			"items": []interface{}{
				map[string]interface{}{"menuItemId": "menu-paneer", "name": "Paneer Tikka", "price": 250.0, "quantity": 1.0},
			},
			"itemNames":   []interface{}{"Paneer Tikka"},
			"totalAmount": 250.0, "createdAt": yesterday,
		}),
		create(models.CollectionOrders, OtherRestaurantID, "order-r2-1", models.Document{
			"orderNumber": "ORD-ZZZ999", "tableNumber": "1", "customerName": "Luca", "status": models.OrderStatusPending,
			"itemNames":   []interface{}{"Margherita Pizza"},
			"totalAmount": 9999.0, "createdAt": today,
		}),

		create(models.CollectionInventory, RestaurantID, "inv-rice", models.Document{"name": "Rice", "quantity": 2.0, "unit": "kg", "reorderLevel": 5.0}),
		create(models.CollectionInventory, RestaurantID, "inv-oil", models.Document{"name": "Oil", "quantity": 20.0, "unit": "l", "reorderLevel": 5.0}),
	}

	require.NoError(t, s.Commit(context.Background(), batch))
}

// NewSeeded returns a seeded in-memory store.
func NewSeeded(t testing.TB) *store.Memory {
	s := store.NewMemory()
	Seed(t, s)
	return s
}

type Call struct {
	Method       string
	Collection   string
	RestaurantID string
}

// Recorder wraps a store and remembers every call.
type Recorder struct {
	store.Store

	mu    sync.Mutex
	calls []Call
}

func NewRecorder(s store.Store) *Recorder {
	return &Recorder{Store: s}
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) Get(ctx context.Context, collection, id string) (models.Document, error) {
	r.add(Call{Method: "Get", Collection: collection, RestaurantID: id})
	return r.Store.Get(ctx, collection, id)
}

func (r *Recorder) Find(ctx context.Context, collection, restaurantID string) ([]models.Document, error) {
	r.add(Call{Method: "Find", Collection: collection, RestaurantID: restaurantID})
	return r.Store.Find(ctx, collection, restaurantID)
}

func (r *Recorder) Commit(ctx context.Context, batch []store.Mutation) error {
	for _, m := range batch {
		r.add(Call{Method: "Commit", Collection: m.Collection, RestaurantID: m.RestaurantID})
	}
	return r.Store.Commit(ctx, batch)
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// TouchedTenantData reports whether any tenant collection or conversation
// context was read or written for restaurantID.
func (r *Recorder) TouchedTenantData(restaurantID string) bool {
	for _, c := range r.Calls() {
		if c.Collection == models.CollectionRestaurants || c.Collection == models.CollectionUserRestaurants {
			continue
		}
		if c.RestaurantID == restaurantID || c.Method == "Get" {
			return true
		}
	}
	return false
}

// Writes counts committed mutations.
func (r *Recorder) Writes() int {
	n := 0
	for _, c := range r.Calls() {
		if c.Method == "Commit" {
			n++
		}
	}
	return n
}
