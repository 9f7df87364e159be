package api

import (
	"context"
	"fmt"
	"net/http"
)

// NotificationService covers the in-app notification endpoints.
type NotificationService struct {
	client *Client
}

// Notification is one in-app notification, as listed by the backend and as
// pushed over the notification WebSocket channel.
type Notification struct {
	ID        int    `json:"id"`
	Title     string `json:"titre"`
	Message   string `json:"message"`
	Kind      string `json:"type_notif"`
	KindLabel string `json:"type_label"`
	IsRead    bool   `json:"is_read"`
	Link      string `json:"lien"`
	CreatedAt string `json:"date_creation"`
}

// List fetches the user's notifications, optionally restricted to unread
// ones.
func (s *NotificationService) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	path := "/api/notifications/"
	if unreadOnly {
		path += "?is_read=false"
	}

	var notifications []Notification
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead marks a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id int) error {
	return s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/lire/", id), nil, nil)
}

// MarkAllRead marks every notification as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.client.Do(ctx, http.MethodPost, "/api/notifications/tout_lire/", nil, nil)
}
