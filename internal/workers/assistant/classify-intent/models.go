// internal/workers/assistant/classify-intent/models.go
package classifyintent

import "restaurant-assistant/internal/models"

type Input struct {
	Utterance string                      `json:"utterance" validate:"required"`
	Context   *models.ConversationContext `json:"context,omitempty"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
	// Fallback is set when the completion service failed and UNKNOWN was substituted.
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
