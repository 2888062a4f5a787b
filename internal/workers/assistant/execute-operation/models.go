// internal/workers/assistant/execute-operation/models.go
package executeoperation

import "restaurant-assistant/internal/models"

type Input struct {
	UserID       string             `json:"userId" validate:"required"`
	RestaurantID string             `json:"restaurantId" validate:"required"`
	Operations   []models.Operation `json:"operations" validate:"required,min=1,max=5"`
}

type Output struct {
	Success bool                               `json:"success"`
	Role    models.Role                        `json:"role"`
	Results map[string]*models.OperationResult `json:"results"`
}
