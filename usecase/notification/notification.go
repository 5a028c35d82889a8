package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

// Pusher delivers a notification to the recipient's live connections, if
// any. The hub implements it; use cases stay transport-agnostic.
type Pusher interface {
	SendNotification(userID string, n *domain.Notification) bool
}

type UseCase struct {
	notifications repository.NotificationRepository
	pusher        Pusher
	logger        *zap.Logger
}

func New(notifications repository.NotificationRepository, pusher Pusher, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// CreateInput describes a notification to emit.
type CreateInput struct {
	RecipientID string
	SenderID    string
	Type        domain.NotificationType
	Title       string
	Message     string
	Data        json.RawMessage
}

// Create stores the notification and pushes it to the recipient's live
// connections. Push failure is not an error: the row is the source of
// truth, the socket is best-effort delivery.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	if in.RecipientID == "" || in.Type == "" {
		return nil, domain.ErrInvalidPayload
	}

	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		Data:        in.Data,
	}
	if err := uc.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	if uc.pusher != nil {
		if delivered := uc.pusher.SendNotification(in.RecipientID, n); !delivered {
			uc.logger.Debug("recipient not connected, notification stored only",
				zap.String("recipient_id", in.RecipientID))
		}
	}
	return n, nil
}

// List returns the recipient's notifications, newest first.
func (uc *UseCase) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	return uc.notifications.List(ctx, filter)
}

// UnreadCount returns the recipient's unread total.
func (uc *UseCase) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return uc.notifications.UnreadCount(ctx, recipientID)
}

// MarkRead marks one notification read.
func (uc *UseCase) MarkRead(ctx context.Context, recipientID, id string) error {
	return uc.notifications.MarkRead(ctx, recipientID, id)
}

// MarkClicked marks one notification clicked; clicking implies reading.
func (uc *UseCase) MarkClicked(ctx context.Context, recipientID, id string) error {
	return uc.notifications.MarkClicked(ctx, recipientID, id)
}

// MarkAllRead marks every unread notification read.
func (uc *UseCase) MarkAllRead(ctx context.Context, recipientID string) error {
	return uc.notifications.MarkAllRead(ctx, recipientID)
}

// Delete soft-deletes one notification.
func (uc *UseCase) Delete(ctx context.Context, recipientID, id string) error {
	return uc.notifications.SoftDelete(ctx, recipientID, id)
}

// ClearAll soft-deletes every notification for the recipient.
func (uc *UseCase) ClearAll(ctx context.Context, recipientID string) error {
	return uc.notifications.SoftDeleteAll(ctx, recipientID)
}
