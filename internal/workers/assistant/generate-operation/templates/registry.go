// internal/workers/assistant/generate-operation/templates/registry.go
package templates

import (
	"errors"
	"fmt"

	"restaurant-assistant/internal/models"
)

// Version identifies the extractor table; it moves with the intent set.
const Version = models.IntentSetVersion

var (
	ErrMissingSlot     = errors.New("missing required slot")
	ErrUnknownTemplate = errors.New("unknown template")
)

// TemplateFunc builds operations from an extraction or returns ErrMissingSlot.
type TemplateFunc func(x *Extraction) ([]models.Operation, error)

var Registry = map[models.Intent]TemplateFunc{
	models.IntentPlaceOrder:        PlaceOrder,
	models.IntentCancelOrder:       CancelOrder,
	models.IntentOrderStatus:       OrderStatus,
	models.IntentShowOrders:        ShowOrders,
	models.IntentOrderCount:        OrderCount,
	models.IntentRevenueQuery:      RevenueQuery,
	models.IntentPopularItems:      PopularItems,
	models.IntentTableStatus:       TableStatus,
	models.IntentShowTables:        ShowTables,
	models.IntentAddTable:          AddTable,
	models.IntentUpdateTableStatus: UpdateTableStatus,
	models.IntentDeleteTable:       DeleteTable,
	models.IntentShowMenu:          ShowMenu,
	models.IntentInventoryStatus:   InventoryStatus,
	models.IntentLowStock:          LowStock,
}

// FallbackOnly lists intents that always go to the completion service.
var FallbackOnly = map[models.Intent]bool{
	models.IntentAddMenuItem: true,
	models.IntentUnknown:     true,
}

// Validate checks that every intent is either templated or fallback-only, never both.
func Validate() error {
	for _, spec := range models.AllIntents() {
		_, templated := Registry[spec.Intent]
		fallback := FallbackOnly[spec.Intent]
		switch {
		case templated && fallback:
			return fmt.Errorf("intent %s is both templated and fallback-only", spec.Intent)
		case !templated && !fallback:
			return fmt.Errorf("intent %s has no template and is not fallback-only", spec.Intent)
		}
	}
	for intent := range Registry {
		if !intent.Valid() {
			return fmt.Errorf("template registered for unknown intent %s", intent)
		}
	}
	return nil
}

// Build runs the template for intent.
func Build(intent models.Intent, x *Extraction) ([]models.Operation, error) {
	fn, exists := Registry[intent]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, intent)
	}
	return fn(x)
}
