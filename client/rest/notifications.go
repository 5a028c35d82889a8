package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vibesocial/backend/domain"
)

// ListOptions filters a notification listing.
type ListOptions struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Skip       int
}

// Notifications fetches the user's notifications, newest first.
func (c *Client) Notifications(ctx context.Context, token string, opts ListOptions) ([]domain.Notification, error) {
	params := url.Values{}
	if opts.UnreadOnly {
		params.Set("unread_only", "true")
	}
	if opts.Type != "" {
		params.Set("notification_type", opts.Type)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Skip > 0 {
		params.Set("skip", strconv.Itoa(opts.Skip))
	}

	path := "/notifications/"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list []domain.Notification
	if err := c.do(ctx, http.MethodGet, path, token, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context, token string) (int, error) {
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/count", token, nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%s/read", id), token, nil, nil)
}

// MarkClicked marks one notification clicked (which implies read).
func (c *Client) MarkClicked(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%s/click", id), token, nil, nil)
}

// MarkAllRead marks every notification read.
func (c *Client) MarkAllRead(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-read", token, nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/notifications/%s", id), token, nil, nil)
}

// ClearNotifications removes every notification.
func (c *Client) ClearNotifications(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/clear-all", token, nil, nil)
}
