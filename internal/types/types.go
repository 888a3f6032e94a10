// Package types provides common type definitions for the Pizoo client engine.
package types

import "time"

// SwipeKind represents the decision taken on a candidate profile
type SwipeKind string

const (
	// SwipeLike represents a positive swipe
	SwipeLike SwipeKind = "like"
	// SwipePass represents a negative swipe
	SwipePass SwipeKind = "pass"
	// SwipeSuperLike represents an emphasized positive swipe
	SwipeSuperLike SwipeKind = "super_like"
)

// Valid reports whether the kind is one of the known swipe actions
func (k SwipeKind) Valid() bool {
	switch k {
	case SwipeLike, SwipePass, SwipeSuperLike:
		return true
	}
	return false
}

// MessageStatus represents the delivery state of a chat message
type MessageStatus string

const (
	// MessageSent represents a message delivered but not yet read
	MessageSent MessageStatus = "sent"
	// MessageRead represents a message the recipient has read
	MessageRead MessageStatus = "read"
)

// SubscriptionState represents the billing state of an account
type SubscriptionState string

const (
	// SubscriptionTrial represents an account inside the free trial window
	SubscriptionTrial SubscriptionState = "trial"
	// SubscriptionActive represents a paying account
	SubscriptionActive SubscriptionState = "active"
	// SubscriptionCancelled represents a cancelled account still inside its paid period
	SubscriptionCancelled SubscriptionState = "cancelled"
	// SubscriptionExpired represents an account whose access has lapsed
	SubscriptionExpired SubscriptionState = "expired"
)

// Profile represents a candidate profile as returned by the discovery API.
// Profiles are immutable once fetched.
type Profile struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio,omitempty"`
	Location    string   `json:"location,omitempty"`
	Occupation  string   `json:"occupation,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

// OwnProfile represents the authenticated user's own account view
type OwnProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SubscriptionStatus string    `json:"subscription_status"`
	TrialEndDate       time.Time `json:"trial_end_date"`
	CreatedAt          time.Time `json:"created_at"`
}

// SwipeAction represents a single swipe submission. A SwipeAction is sent at
// most once per user action and never retried automatically.
type SwipeAction struct {
	SwipedUserID string    `json:"swiped_user_id"`
	Action       SwipeKind `json:"action"`
}

// MatchResult represents the backend's synchronous answer to a swipe
type MatchResult struct {
	IsMatch bool   `json:"is_match"`
	MatchID string `json:"match_id,omitempty"`
}

// LastMessage represents the preview line of a conversation
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation represents one entry in the conversation list. UnreadCount is
// a server-computed snapshot and read-only on the client.
type Conversation struct {
	MatchID     string      `json:"match_id"`
	User        Profile     `json:"user"`
	LastMessage LastMessage `json:"last_message"`
	UnreadCount int         `json:"unread_count"`
}

// Message represents a single chat message. The backend is authoritative for
// id assignment.
type Message struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"sender_id"`
	ReceiverID string        `json:"receiver_id"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     MessageStatus `json:"status"`
}

// Before reports canonical message order: created_at ascending, ties broken
// by id.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// SubscriptionSnapshot represents the backend's view of the account's
// subscription. Snapshots are replaced wholesale on each fetch, never merged
// field by field.
type SubscriptionSnapshot struct {
	Status          SubscriptionState `json:"status"`
	DaysRemaining   int               `json:"days_remaining"`
	TrialEndDate    time.Time         `json:"trial_end_date"`
	NextPaymentDate *time.Time        `json:"next_payment_date,omitempty"`
	AnnualAmount    float64           `json:"annual_amount"`
	Currency        string            `json:"currency"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
