package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

type memNotifications struct {
	mu   sync.Mutex
	rows map[string]*domain.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: make(map[string]*domain.Notification)}
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	copy := *n
	m.rows[n.ID] = &copy
	return nil
}

func (m *memNotifications) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.rows {
		if n.RecipientID == filter.RecipientID && !n.IsDeleted {
			if filter.UnreadOnly && n.IsRead {
				continue
			}
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memNotifications) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.rows {
		if n.RecipientID == recipientID && !n.IsRead && !n.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) get(recipientID, id string) (*domain.Notification, error) {
	n, ok := m.rows[id]
	if !ok || n.RecipientID != recipientID || n.IsDeleted {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(recipientID, id)
	if err != nil {
		return err
	}
	n.IsRead = true
	return nil
}

func (m *memNotifications) MarkClicked(ctx context.Context, recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(recipientID, id)
	if err != nil {
		return err
	}
	n.IsClicked = true
	n.IsRead = true
	return nil
}

func (m *memNotifications) MarkAllRead(ctx context.Context, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.RecipientID == recipientID && !n.IsDeleted {
			n.IsRead = true
		}
	}
	return nil
}

func (m *memNotifications) SoftDelete(ctx context.Context, recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(recipientID, id)
	if err != nil {
		return err
	}
	n.IsDeleted = true
	return nil
}

func (m *memNotifications) SoftDeleteAll(ctx context.Context, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.RecipientID == recipientID {
			n.IsDeleted = true
		}
	}
	return nil
}

func (m *memNotifications) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, n := range m.rows {
		if n.IsDeleted && n.CreatedAt.Before(olderThan) {
			delete(m.rows, id)
			purged++
		}
	}
	return purged, nil
}

type fakePusher struct {
	mu        sync.Mutex
	delivered []string
	connected bool
}

func (p *fakePusher) SendNotification(userID string, n *domain.Notification) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return false
	}
	p.delivered = append(p.delivered, n.ID)
	return true
}

func TestCreateStoresAndPushes(t *testing.T) {
	repo := newMemNotifications()
	pusher := &fakePusher{connected: true}
	uc := New(repo, pusher, nil)

	n, err := uc.Create(context.Background(), CreateInput{
		RecipientID: "u-1",
		SenderID:    "u-2",
		Type:        domain.NotificationFriendRequest,
		Title:       "Friend request",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID == "" {
		t.Fatal("no id assigned")
	}
	if _, ok := repo.rows[n.ID]; !ok {
		t.Fatal("row not stored")
	}
	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	if len(pusher.delivered) != 1 || pusher.delivered[0] != n.ID {
		t.Fatalf("pushed = %v", pusher.delivered)
	}
}

func TestCreateWithOfflineRecipient(t *testing.T) {
	repo := newMemNotifications()
	uc := New(repo, &fakePusher{connected: false}, nil)

	// The socket is best-effort; the row is still written.
	n, err := uc.Create(context.Background(), CreateInput{
		RecipientID: "u-1",
		Type:        domain.NotificationMessage,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := repo.rows[n.ID]; !ok {
		t.Fatal("row not stored for offline recipient")
	}
}

func TestCreateRejectsIncompleteInput(t *testing.T) {
	uc := New(newMemNotifications(), nil, nil)
	if _, err := uc.Create(context.Background(), CreateInput{Type: domain.NotificationMessage}); err == nil {
		t.Fatal("missing recipient accepted")
	}
	if _, err := uc.Create(context.Background(), CreateInput{RecipientID: "u-1"}); err == nil {
		t.Fatal("missing type accepted")
	}
}

func TestReadLifecycle(t *testing.T) {
	repo := newMemNotifications()
	uc := New(repo, nil, nil)
	ctx := context.Background()

	first, _ := uc.Create(ctx, CreateInput{RecipientID: "u-1", Type: domain.NotificationPostLike})
	second, _ := uc.Create(ctx, CreateInput{RecipientID: "u-1", Type: domain.NotificationPostComment})

	count, err := uc.UnreadCount(ctx, "u-1")
	if err != nil || count != 2 {
		t.Fatalf("unread = %d err=%v, want 2", count, err)
	}

	if err := uc.MarkRead(ctx, "u-1", first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Clicking implies reading.
	if err := uc.MarkClicked(ctx, "u-1", second.ID); err != nil {
		t.Fatalf("mark clicked: %v", err)
	}
	count, _ = uc.UnreadCount(ctx, "u-1")
	if count != 0 {
		t.Fatalf("unread = %d after read+click, want 0", count)
	}

	// Another user cannot touch these rows.
	if err := uc.MarkRead(ctx, "u-2", first.ID); err == nil {
		t.Fatal("foreign recipient marked a row read")
	}
}

func TestDeleteIsSoft(t *testing.T) {
	repo := newMemNotifications()
	uc := New(repo, nil, nil)
	ctx := context.Background()

	n, _ := uc.Create(ctx, CreateInput{RecipientID: "u-1", Type: domain.NotificationSystem})
	if err := uc.Delete(ctx, "u-1", n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, _ := uc.List(ctx, repository.NotificationFilter{RecipientID: "u-1"})
	if len(list) != 0 {
		t.Fatalf("list = %d rows after delete, want 0", len(list))
	}
	// The tombstone still exists until the sweeper purges it.
	if repo.rows[n.ID] == nil || !repo.rows[n.ID].IsDeleted {
		t.Fatal("row hard-deleted instead of tombstoned")
	}

	purged, err := repo.PurgeDeleted(ctx, time.Now().Add(time.Minute))
	if err != nil || purged != 1 {
		t.Fatalf("purged = %d err=%v, want 1", purged, err)
	}
}
