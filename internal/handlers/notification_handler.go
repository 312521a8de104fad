package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

const notificationsPrefix = "/api/notifications/"

// NotificationReader reads and acknowledges in-app notifications
type NotificationReader interface {
	List(ctx context.Context, recipient models.Recipient, unreadOnly bool, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, recipient models.Recipient) (int, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
}

type NotificationHandler struct {
	notifications NotificationReader
	logger        arbor.ILogger
}

func NewNotificationHandler(notifications NotificationReader, logger arbor.ILogger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// ListHandler - GET /api/notifications?user_id= (or guest_id=)&unread=true&limit=
func (h *NotificationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	q := r.URL.Query()
	var recipient models.Recipient
	switch {
	case q.Get("user_id") != "":
		recipient = models.Recipient{Type: models.RecipientUser, ID: q.Get("user_id")}
	case q.Get("guest_id") != "":
		recipient = models.Recipient{Type: models.RecipientGuest, ID: q.Get("guest_id")}
	default:
		WriteError(w, http.StatusBadRequest, "user_id or guest_id is required")
		return
	}

	limit, err := QueryInt(r, "limit", 50)
	if err != nil || limit < 0 {
		WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	unreadOnly := q.Get("unread") == "true"

	list, err := h.notifications.List(r.Context(), recipient, unreadOnly, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("recipient_id", recipient.ID).Msg("Failed to list notifications")
		WriteError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), recipient)
	if err != nil {
		h.logger.Error().Err(err).Str("recipient_id", recipient.ID).Msg("Failed to count notifications")
		WriteError(w, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	if list == nil {
		list = []*models.Notification{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"unread_count":  unread,
	})
}

// MarkReadHandler - POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	id := PathID(r.URL.Path, notificationsPrefix)
	n, err := h.notifications.MarkRead(r.Context(), id)
	if errors.Is(err, interfaces.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Notification not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("notification_id", id).Msg("Failed to mark notification read")
		WriteError(w, http.StatusInternalServerError, "Failed to mark notification read")
		return
	}
	WriteJSON(w, http.StatusOK, n)
}
