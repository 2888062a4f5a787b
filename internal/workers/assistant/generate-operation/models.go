// internal/workers/assistant/generate-operation/models.go
package generateoperation

import (
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/generate-operation/templates"
)

type Input struct {
	RestaurantID string                      `json:"restaurantId" validate:"required"`
	Utterance    string                      `json:"utterance" validate:"required"`
	Intent       models.Intent               `json:"intent"`
	Context      *models.ConversationContext `json:"context,omitempty"`
}

type Output struct {
	Plan  *models.Plan    `json:"plan"`
	Slots templates.Slots `json:"slots"`
}
