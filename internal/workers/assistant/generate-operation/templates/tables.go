// internal/workers/assistant/generate-operation/templates/tables.go
package templates

import (
	"restaurant-assistant/internal/models"
)

var tableListFields = []string{"name", "status", "capacity"}

func TableStatus(x *Extraction) ([]models.Operation, error) {
	var filters map[string]interface{}
	if table := x.TableOrContext(); table != "" {
		filters = map[string]interface{}{"name": table}
	}
	return []models.Operation{{
		Name:        "tableStatus",
		Kind:        models.KindRead,
		Collection:  models.CollectionTables,
		Aggregation: models.AggregationList,
		Filters:     filters,
		Fields:      tableListFields,
	}}, nil
}

func ShowTables(x *Extraction) ([]models.Operation, error) {
	var filters map[string]interface{}
	if x.Slots.TableStatus != "" {
		filters = map[string]interface{}{"status": x.Slots.TableStatus}
	}
	return []models.Operation{{
		Name:        "tables",
		Kind:        models.KindRead,
		Collection:  models.CollectionTables,
		Aggregation: models.AggregationList,
		Filters:     filters,
		Fields:      tableListFields,
	}}, nil
}

// AddTable only takes the table number from the utterance itself.
func AddTable(x *Extraction) ([]models.Operation, error) {
	if x.Slots.TableNumber == "" {
		return nil, ErrMissingSlot
	}
	data := map[string]interface{}{"name": x.Slots.TableNumber}
	if x.Slots.Capacity > 0 {
		data["capacity"] = x.Slots.Capacity
	}
	return []models.Operation{{
		Name:       "createTable",
		Kind:       models.KindCreate,
		Collection: models.CollectionTables,
		Data:       data,
	}}, nil
}

func UpdateTableStatus(x *Extraction) ([]models.Operation, error) {
	table := x.TableOrContext()
	if table == "" || x.Slots.TableStatus == "" {
		return nil, ErrMissingSlot
	}
	return []models.Operation{{
		Name:       "updateTableStatus",
		Kind:       models.KindUpdate,
		Collection: models.CollectionTables,
		Filters:    map[string]interface{}{"name": table},
		Data:       map[string]interface{}{"status": x.Slots.TableStatus},
	}}, nil
}

// DeleteTable never falls back to the conversation's last table.
func DeleteTable(x *Extraction) ([]models.Operation, error) {
	if x.Slots.TableNumber == "" {
		return nil, ErrMissingSlot
	}
	return []models.Operation{{
		Name:       "deleteTable",
		Kind:       models.KindDelete,
		Collection: models.CollectionTables,
		Filters:    map[string]interface{}{"name": x.Slots.TableNumber},
	}}, nil
}
