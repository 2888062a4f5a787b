package models

import (
	"net/url"
	"time"
)

// ConversationContext is stored per (user, restaurant) and updated by merge.
type ConversationContext struct {
	UserID            string                 `json:"userId"`
	RestaurantID      string                 `json:"restaurantId"`
	LastTableNumber   string                 `json:"lastTableNumber,omitempty"`
	LastCustomerName  string                 `json:"lastCustomerName,omitempty"`
	LastCustomerPhone string                 `json:"lastCustomerPhone,omitempty"`
	Preferences       map[string]interface{} `json:"preferences,omitempty"`
	Messages          []ContextMessage       `json:"messages,omitempty"`
	UpdatedAt         string                 `json:"updatedAt,omitempty"`
}

type ContextMessage struct {
	Role   string    `json:"role"`
	Text   string    `json:"text"`
	Intent Intent    `json:"intent,omitempty"`
	At     time.Time `json:"at"`
}

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Preference keys written by the pipeline.
const (
	PreferenceLastOrderNumber = "lastOrderNumber"
	PreferenceLastOrderItems  = "lastOrderItems"
)

// ContextID is the document id for a (user, restaurant) pair. Both parts are
// query-escaped so the ':' separator never occurs inside either one.
func ContextID(userID, restaurantID string) string {
	return url.QueryEscape(userID) + ":" + url.QueryEscape(restaurantID)
}

// AppendMessage keeps only the newest limit messages.
func (c *ConversationContext) AppendMessage(msg ContextMessage, limit int) {
	c.Messages = append(c.Messages, msg)
	if limit > 0 && len(c.Messages) > limit {
		c.Messages = append([]ContextMessage(nil), c.Messages[len(c.Messages)-limit:]...)
	}
}
