// internal/workers/assistant/natural-language-query/models.go
package naturallanguagequery

import "restaurant-assistant/internal/models"

// Input is one chat turn.
type Input struct {
	Utterance    string `json:"utterance"`
	RestaurantID string `json:"restaurantId"`
	UserID       string `json:"userId"`
	ClientIP     string `json:"clientIp,omitempty"`
}

// QueryInput is a structured query sent directly, bypassing classification
// and generation.
type QueryInput struct {
	Query        string `json:"query"`
	RestaurantID string `json:"restaurantId"`
	UserID       string `json:"userId"`
	ClientIP     string `json:"clientIp,omitempty"`
}

// Output is the job variable shape; it mirrors models.Response.
type Output struct {
	Success  bool          `json:"success"`
	Response string        `json:"response"`
	Data     interface{}   `json:"data,omitempty"`
	Intent   models.Intent `json:"intent,omitempty"`
}
