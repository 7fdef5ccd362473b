package handler

import (
	"log/slog"
	"net/http"

	"github.com/evandyer/cleanloop/internal/auth"
	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, logger: logger}
}

// ListUnread returns the caller's unread notifications, oldest first.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	notifs, err := h.notifications.ListUnread(userID)
	if err != nil {
		h.logger.Error("list notifications", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifs == nil {
		notifs = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifs)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	userID := auth.UserID(r.Context())

	if err := h.notifications.MarkRead(id, userID); err != nil {
		h.logger.Error("mark notification read", "notification_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
