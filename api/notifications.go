package api

import (
	"context"
	"net/http"

	"github.com/pocketledger/pocketledger-go/gateway"
)

// Notification is an in-app notification.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// NotificationsClient accesses the notifications resource.
type NotificationsClient struct {
	gw *gateway.Client
}

// NewNotificationsClient creates a NotificationsClient issuing calls through gw.
func NewNotificationsClient(gw *gateway.Client) *NotificationsClient {
	return &NotificationsClient{gw: gw}
}

// List fetches all notifications, newest first.
func (c *NotificationsClient) List(ctx context.Context) ([]Notification, error) {
	out, err := do[[]Notification](ctx, c.gw, getRequest("/notifications"))
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// MarkRead marks a notification as read.
func (c *NotificationsClient) MarkRead(ctx context.Context, id string) error {
	req, err := jsonRequest(http.MethodPut, "/notifications/"+id+"/read", nil)
	if err != nil {
		return err
	}
	_, err = do[message](ctx, c.gw, req)
	return err
}

// Delete removes a notification.
func (c *NotificationsClient) Delete(ctx context.Context, id string) error {
	_, err := do[message](ctx, c.gw, deleteRequest("/notifications/"+id))
	return err
}
