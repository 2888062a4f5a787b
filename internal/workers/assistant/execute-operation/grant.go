// internal/workers/assistant/execute-operation/grant.go
package executeoperation

import (
	"context"
	"errors"
	"strings"

	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/store"
)

// ResolveGrant computes the caller's Access Grant for one restaurant: the
// recorded owner first, then a membership record, otherwise FORBIDDEN.
// Only the restaurant record and its membership partition are read.
func (h *Handler) ResolveGrant(ctx context.Context, userID, restaurantID string) (*models.AccessGrant, error) {
	if userID == "" {
		return nil, apperrors.NewSessionExpiredError()
	}
	if restaurantID == "" {
		return nil, h.denyGrant(ctx, userID, restaurantID, "restaurant not specified")
	}

	restaurant, err := h.store.Get(ctx, models.CollectionRestaurants, restaurantID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, h.denyGrant(ctx, userID, restaurantID, "restaurant not found")
	case err != nil:
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	if owner := restaurant.String("ownerId"); owner != "" && owner == userID {
		return &models.AccessGrant{
			UserID:       userID,
			RestaurantID: restaurantID,
			Role:         models.RoleOwner,
			Permissions:  models.DefaultPermissions(models.RoleOwner),
		}, nil
	}

	members, err := h.store.Find(ctx, models.CollectionUserRestaurants, restaurantID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	for _, member := range members {
		if member.String("userId") != userID {
			continue
		}
		role := models.Role(strings.ToUpper(member.String("role")))
		if !role.Valid() {
			return nil, h.denyGrant(ctx, userID, restaurantID, "unknown role "+string(role))
		}
		if active, ok := member["active"].(bool); ok && !active {
			return nil, h.denyGrant(ctx, userID, restaurantID, "membership inactive")
		}
		perms := permissionsOf(member["permissions"])
		if len(perms) == 0 {
			perms = models.DefaultPermissions(role)
		}
		return &models.AccessGrant{
			UserID:       userID,
			RestaurantID: restaurantID,
			Role:         role,
			Permissions:  perms,
		}, nil
	}

	return nil, h.denyGrant(ctx, userID, restaurantID, "no ownership or membership")
}

func permissionsOf(v interface{}) []models.Permission {
	var raw []string
	switch list := v.(type) {
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = list
	}

	out := make([]models.Permission, 0, len(raw))
	for _, s := range raw {
		out = append(out, models.Permission(strings.ToLower(strings.TrimSpace(s))))
	}
	return out
}
