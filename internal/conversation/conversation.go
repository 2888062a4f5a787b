// Package conversation loads and saves the per-(user, restaurant) Conversation Context.
// Saves merge into the stored document; concurrent turns are last-writer-wins.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/store"
)

type Repository struct {
	store store.Store
	limit int
	now   func() time.Time
}

func NewRepository(s store.Store, messageLimit int, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{store: s, limit: messageLimit, now: now}
}

// Load returns the stored context or a fresh empty one. Contexts are never shared
// across tenants: a document whose restaurantId differs is treated as absent.
func (r *Repository) Load(ctx context.Context, userID, restaurantID string) (*models.ConversationContext, error) {
	fresh := &models.ConversationContext{UserID: userID, RestaurantID: restaurantID}

	doc, err := r.store.Get(ctx, models.CollectionConversationContexts, models.ContextID(userID, restaurantID))
	if errors.Is(err, store.ErrNotFound) {
		return fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation context: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode conversation context: %w", err)
	}
	var convo models.ConversationContext
	if err := json.Unmarshal(raw, &convo); err != nil {
		return nil, fmt.Errorf("decode conversation context: %w", err)
	}
	if convo.RestaurantID != restaurantID || convo.UserID != userID {
		return fresh, nil
	}
	return &convo, nil
}

// Update describes what one turn learned. Empty fields leave stored values untouched.
type Update struct {
	TableNumber   string
	CustomerName  string
	CustomerPhone string
	Preferences   map[string]interface{}
	Messages      []models.ContextMessage
}

// Save applies update on top of current and merges the changed fields into the store.
func (r *Repository) Save(ctx context.Context, current *models.ConversationContext, update Update) (*models.ConversationContext, error) {
	next := *current
	patch := models.Document{
		"userId":       current.UserID,
		"restaurantId": current.RestaurantID,
	}

	if update.TableNumber != "" {
		next.LastTableNumber = update.TableNumber
		patch["lastTableNumber"] = update.TableNumber
	}
	if update.CustomerName != "" {
		next.LastCustomerName = update.CustomerName
		patch["lastCustomerName"] = update.CustomerName
	}
	if update.CustomerPhone != "" {
		next.LastCustomerPhone = update.CustomerPhone
		patch["lastCustomerPhone"] = update.CustomerPhone
	}
	if len(update.Preferences) > 0 {
		prefs := make(map[string]interface{}, len(current.Preferences)+len(update.Preferences))
		for k, v := range current.Preferences {
			prefs[k] = v
		}
		for k, v := range update.Preferences {
			prefs[k] = v
		}
		next.Preferences = prefs
		patch["preferences"] = prefs
	}
	if len(update.Messages) > 0 {
		next.Messages = append([]models.ContextMessage(nil), current.Messages...)
		for _, msg := range update.Messages {
			next.AppendMessage(msg, r.limit)
		}
		patch["messages"] = next.Messages
	}

	next.UpdatedAt = models.Timestamp(r.now())
	patch[models.FieldUpdatedAt] = next.UpdatedAt

	err := r.store.Commit(ctx, []store.Mutation{{
		Type:         store.MutationMerge,
		Collection:   models.CollectionConversationContexts,
		ID:           models.ContextID(current.UserID, current.RestaurantID),
		RestaurantID: current.RestaurantID,
		Data:         patch,
	}})
	if err != nil {
		return nil, fmt.Errorf("save conversation context: %w", err)
	}
	return &next, nil
}
