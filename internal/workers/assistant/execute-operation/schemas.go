// internal/workers/assistant/execute-operation/schemas.go
package executeoperation

import (
	"fmt"

	"restaurant-assistant/internal/common/validation"
	"restaurant-assistant/internal/models"
)

// createSchemas hold the required fields of each collection, checked after defaults are applied.
var createSchemas = mustSchemas(map[string]map[string]interface{}{
	models.CollectionTables: {
		"type":     "object",
		"required": []string{"name", "capacity", "status"},
		"properties": map[string]interface{}{
			"name":     map[string]interface{}{"type": "string", "minLength": 1},
			"capacity": map[string]interface{}{"type": "number", "minimum": 1},
			"status":   map[string]interface{}{"type": "string", "enum": models.TableStatuses},
		},
	},
	models.CollectionOrders: {
		"type":     "object",
		"required": []string{"tableNumber", "items", "customerName", "status", "totalAmount"},
		"properties": map[string]interface{}{
			"tableNumber":  map[string]interface{}{"type": "string", "minLength": 1},
			"customerName": map[string]interface{}{"type": "string"},
			"status":       map[string]interface{}{"type": "string", "enum": models.OrderStatuses},
			"totalAmount":  map[string]interface{}{"type": "number", "minimum": 0},
			"items": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"name", "quantity", "price"},
					"properties": map[string]interface{}{
						"name":     map[string]interface{}{"type": "string", "minLength": 1},
						"quantity": map[string]interface{}{"type": "number", "minimum": 1},
						"price":    map[string]interface{}{"type": "number", "minimum": 0},
					},
				},
			},
		},
	},
	models.CollectionMenuItems: {
		"type":     "object",
		"required": []string{"name", "price"},
		"properties": map[string]interface{}{
			"name":      map[string]interface{}{"type": "string", "minLength": 1},
			"price":     map[string]interface{}{"type": "number", "minimum": 0},
			"available": map[string]interface{}{"type": "boolean"},
		},
	},
	models.CollectionInventory: {
		"type":     "object",
		"required": []string{"name", "quantity"},
		"properties": map[string]interface{}{
			"name":         map[string]interface{}{"type": "string", "minLength": 1},
			"quantity":     map[string]interface{}{"type": "number", "minimum": 0},
			"reorderLevel": map[string]interface{}{"type": "number", "minimum": 0},
		},
	},
})

func mustSchemas(schemas map[string]map[string]interface{}) *validation.SchemaSet {
	set := validation.NewSchemaSet()
	for name, schema := range schemas {
		if err := set.Register(name, schema); err != nil {
			panic(fmt.Sprintf("create schema %s: %v", name, err))
		}
	}
	return set
}
