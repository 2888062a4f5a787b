// internal/workers/assistant/resolve-values/models.go
package resolvevalues

import "restaurant-assistant/internal/models"

type Input struct {
	RestaurantID string             `json:"restaurantId" validate:"required"`
	Operations   []models.Operation `json:"operations"`
}

type Output struct {
	Operations []models.Operation `json:"operations"`
	Unresolved []string           `json:"unresolved,omitempty"`
}

// CatalogEntry is one resolvable record, in storage order.
type CatalogEntry struct {
	ID    string
	Name  string
	Price *float64
}
