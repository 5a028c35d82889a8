package repository

import (
	"context"
	"time"

	"github.com/vibesocial/backend/domain"
)

// NotificationFilter narrows a listing. Zero values mean "no constraint".
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Type        string
	Limit       int
	Skip        int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	MarkClicked(ctx context.Context, recipientID, id string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	SoftDelete(ctx context.Context, recipientID, id string) error
	SoftDeleteAll(ctx context.Context, recipientID string) error
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error)
}
