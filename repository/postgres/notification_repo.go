package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates a Postgres-backed notification
// repository. Deletion is soft; PurgeDeleted hard-deletes old tombstones.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n == nil || n.RecipientID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO notifications (id, recipient_id, sender_id, type, title, message, data, created_at)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NOW())
	RETURNING created_at;
	`
	return r.pool.QueryRow(ctx, query,
		n.ID, n.RecipientID, n.SenderID, n.Type, n.Title, n.Message, nullBytes(n.Data),
	).Scan(&n.CreatedAt)
}

func (r *notificationRepository) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	query := `
	SELECT n.id, n.recipient_id, COALESCE(n.sender_id::text, ''), n.type, n.title, n.message,
		n.data, n.is_read, n.is_clicked, n.created_at, n.read_at, n.clicked_at,
		s.id, s.first_name, s.last_name, s.username, s.avatar
	FROM notifications n
	LEFT JOIN users s ON s.id = n.sender_id
	WHERE n.recipient_id = $1 AND n.is_deleted = FALSE
	`
	args := []interface{}{filter.RecipientID}

	if filter.UnreadOnly {
		query += ` AND n.is_read = FALSE`
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND n.type = $2`
	}

	query += ` ORDER BY n.created_at DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	args = append(args, limit, filter.Skip)
	query += ` LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Notification
	for rows.Next() {
		var (
			n        domain.Notification
			senderID *string
			first    *string
			last     *string
			username *string
			avatar   *string
		)
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Title, &n.Message,
			&n.Data, &n.IsRead, &n.IsClicked, &n.CreatedAt, &n.ReadAt, &n.ClickedAt,
			&senderID, &first, &last, &username, &avatar,
		); err != nil {
			return nil, err
		}
		if senderID != nil {
			n.Sender = &domain.UserSummary{
				ID:        *senderID,
				FirstName: deref(first),
				LastName:  deref(last),
				Username:  deref(username),
				Avatar:    deref(avatar),
			}
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `
	SELECT COUNT(*) FROM notifications
	WHERE recipient_id = $1 AND is_read = FALSE AND is_deleted = FALSE
	`
	var count int
	err := r.pool.QueryRow(ctx, query, recipientID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	const query = `
	UPDATE notifications SET is_read = TRUE, read_at = NOW()
	WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE
	`
	return r.guarded(ctx, query, id, recipientID)
}

func (r *notificationRepository) MarkClicked(ctx context.Context, recipientID, id string) error {
	// Clicking implies reading.
	const query = `
	UPDATE notifications
	SET is_clicked = TRUE, clicked_at = NOW(),
		is_read = TRUE, read_at = COALESCE(read_at, NOW())
	WHERE id = $1 AND recipient_id = $2 AND is_clicked = FALSE
	`
	return r.guarded(ctx, query, id, recipientID)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	const query = `
	UPDATE notifications SET is_read = TRUE, read_at = NOW()
	WHERE recipient_id = $1 AND is_read = FALSE AND is_deleted = FALSE
	`
	_, err := r.pool.Exec(ctx, query, recipientID)
	return err
}

func (r *notificationRepository) SoftDelete(ctx context.Context, recipientID, id string) error {
	const query = `
	UPDATE notifications SET is_deleted = TRUE
	WHERE id = $1 AND recipient_id = $2 AND is_deleted = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) SoftDeleteAll(ctx context.Context, recipientID string) error {
	const query = `
	UPDATE notifications SET is_deleted = TRUE
	WHERE recipient_id = $1 AND is_deleted = FALSE
	`
	_, err := r.pool.Exec(ctx, query, recipientID)
	return err
}

func (r *notificationRepository) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `
	DELETE FROM notifications WHERE is_deleted = TRUE AND created_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// guarded runs an update that must affect an existing, owned row. A no-op
// update (already read/clicked) is not an error, so existence is checked
// separately when nothing was touched.
func (r *notificationRepository) guarded(ctx context.Context, query, id, recipientID string) error {
	tag, err := r.pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	const exists = `
	SELECT 1 FROM notifications WHERE id = $1 AND recipient_id = $2 AND is_deleted = FALSE
	`
	var one int
	if err := r.pool.QueryRow(ctx, exists, id, recipientID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotificationNotFound
		}
		return err
	}
	return nil
}
