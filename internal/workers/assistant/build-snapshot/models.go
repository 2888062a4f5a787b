// internal/workers/assistant/build-snapshot/models.go
package buildsnapshot

type Input struct {
	RestaurantID string   `json:"restaurantId"`
	Collections  []string `json:"collections,omitempty"`
}

type Output struct {
	Snapshot *Snapshot `json:"snapshot"`
}

// Snapshot is the schema and live-data context sent to the completion service.
type Snapshot struct {
	Operations  OperationCatalog             `json:"operations"`
	Enums       map[string][]string          `json:"enums"`
	Collections map[string]CollectionSummary `json:"collections"`
	MenuItems   []string                     `json:"menuItems,omitempty"`
	TableNames  []string                     `json:"tableNames,omitempty"`
	Rendered    string                       `json:"-"`
}

type OperationCatalog struct {
	Kinds        []string `json:"kinds"`
	Aggregations []string `json:"aggregations"`
	DateWindows  []string `json:"dateWindows"`
	Comparators  []string `json:"comparators"`
}

type CollectionSummary struct {
	Count  int                      `json:"count"`
	Fields []string                 `json:"fields"`
	Sample []map[string]interface{} `json:"sample,omitempty"`
}
