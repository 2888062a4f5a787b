// internal/workers/assistant/generate-operation/templates/catalog.go
package templates

import (
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

var inventoryFields = []string{"name", "quantity", "unit", "reorderLevel"}

func ShowMenu(x *Extraction) ([]models.Operation, error) {
	return []models.Operation{{
		Name:        "menu",
		Kind:        models.KindRead,
		Collection:  models.CollectionMenuItems,
		Aggregation: models.AggregationList,
		Fields:      []string{"name", "price", "category", "available"},
	}}, nil
}

func InventoryStatus(x *Extraction) ([]models.Operation, error) {
	return []models.Operation{{
		Name:        "inventory",
		Kind:        models.KindRead,
		Collection:  models.CollectionInventory,
		Aggregation: models.AggregationList,
		Fields:      inventoryFields,
	}}, nil
}

func LowStock(x *Extraction) ([]models.Operation, error) {
	return []models.Operation{{
		Name:        "lowStock",
		Kind:        models.KindRead,
		Collection:  models.CollectionInventory,
		Aggregation: models.AggregationList,
		Filters: map[string]interface{}{
			"quantity": map[string]interface{}{filter.OpLteField: "reorderLevel"},
		},
		Fields: inventoryFields,
	}}, nil
}
