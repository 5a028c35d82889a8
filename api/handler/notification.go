package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/api/transport"
	"github.com/vibesocial/backend/pkg/httpcontext"
	"github.com/vibesocial/backend/repository"
	notificationUC "github.com/vibesocial/backend/usecase/notification"
)

type NotificationHandler struct {
	baseHandler
	uc *notificationUC.UseCase
}

func NewNotificationHandler(uc *notificationUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List notifications
// @Tags notifications
// @Router /notifications/ [get]
func (h *NotificationHandler) List(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := repository.NotificationFilter{
		RecipientID: userID,
		UnreadOnly:  string(ctx.QueryArgs().Peek("unread_only")) == "true",
		Type:        string(ctx.QueryArgs().Peek("notification_type")),
		Limit:       parseInt(string(ctx.QueryArgs().Peek("limit")), 20),
		Skip:        parseInt(string(ctx.QueryArgs().Peek("skip")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	list, err := h.uc.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(list, transport.ListMeta{
		Count: len(list),
		Limit: filter.Limit,
		Skip:  filter.Skip,
	}))
}

// @Summary Unread notification count
// @Tags notifications
// @Router /notifications/count [get]
func (h *NotificationHandler) Count(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.uc.UnreadCount(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"unread_count": count})
}

// @Summary Mark one notification read
// @Tags notifications
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	h.mutateOne(ctx, h.uc.MarkRead)
}

// @Summary Mark one notification clicked
// @Tags notifications
// @Router /notifications/{id}/click [post]
func (h *NotificationHandler) MarkClicked(ctx *fasthttp.RequestCtx) {
	h.mutateOne(ctx, h.uc.MarkClicked)
}

// @Summary Mark every notification read
// @Tags notifications
// @Router /notifications/mark-all-read [post]
func (h *NotificationHandler) MarkAllRead(ctx *fasthttp.RequestCtx) {
	h.mutateAll(ctx, h.uc.MarkAllRead)
}

// @Summary Delete one notification
// @Tags notifications
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(ctx *fasthttp.RequestCtx) {
	h.mutateOne(ctx, h.uc.Delete)
}

// @Summary Delete every notification
// @Tags notifications
// @Router /notifications/clear-all [delete]
func (h *NotificationHandler) ClearAll(ctx *fasthttp.RequestCtx) {
	h.mutateAll(ctx, h.uc.ClearAll)
}

func (h *NotificationHandler) mutateOne(ctx *fasthttp.RequestCtx, op func(ctx context.Context, recipientID, id string) error) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := op(stdCtx, userID, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"ok": true})
}

func (h *NotificationHandler) mutateAll(ctx *fasthttp.RequestCtx, op func(ctx context.Context, recipientID string) error) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := op(stdCtx, userID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"ok": true})
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
		return parsed
	}
	return fallback
}
