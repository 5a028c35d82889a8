package domain

import (
	"encoding/json"
	"time"
)

// NotificationType discriminates notification payloads on the wire.
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationNewFollower    NotificationType = "new_follower"
	NotificationPostLike       NotificationType = "post_like"
	NotificationPostComment    NotificationType = "post_comment"
	NotificationMessage        NotificationType = "message"
	NotificationSystem         NotificationType = "system"
)

// Notification is a server-originated event delivered to a single recipient.
// Rows are soft-deleted; IsDeleted entries stay out of every listing until
// the sweeper purges them.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	SenderID    string           `json:"sender_id,omitempty"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Data        json.RawMessage  `json:"data,omitempty"`
	IsRead      bool             `json:"is_read"`
	IsClicked   bool             `json:"is_clicked"`
	IsDeleted   bool             `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	ClickedAt   *time.Time       `json:"clicked_at,omitempty"`

	Sender *UserSummary `json:"sender,omitempty"`
}

// UserSummary is the sender projection embedded in notification payloads.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}
