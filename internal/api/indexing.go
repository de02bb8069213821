package api

import (
	"context"
	"fmt"

	indexing "google.golang.org/api/indexing/v3"
	"google.golang.org/api/option"

	"siteinsight/internal/settings"
)

// URL notification types accepted by the Indexing API.
const (
	NotificationURLUpdated = "URL_UPDATED"
	NotificationURLDeleted = "URL_DELETED"
)

// IndexingClient wraps the Indexing API: URL notification publishing and
// notification metadata lookup.
type IndexingClient struct {
	svc *indexing.Service
}

// NewIndexingClient creates an Indexing API client authenticated as the
// configured service account.
func NewIndexingClient(ctx context.Context, s settings.Settings) (*IndexingClient, error) {
	httpClient := serviceAccountClient(ctx, s, IndexingScope)
	svc, err := indexing.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Indexing service: %w", err)
	}
	return &IndexingClient{svc: svc}, nil
}

// Publish notifies Google that a URL was updated or deleted.
// notificationType is one of NotificationURLUpdated or NotificationURLDeleted.
func (c *IndexingClient) Publish(ctx context.Context, url, notificationType string) (*indexing.PublishUrlNotificationResponse, error) {
	notification := &indexing.UrlNotification{
		Url:  url,
		Type: notificationType,
	}
	return c.svc.UrlNotifications.Publish(notification).Context(ctx).Do()
}

// GetMetadata returns the latest notification state Google holds for a URL.
func (c *IndexingClient) GetMetadata(ctx context.Context, url string) (*indexing.UrlNotificationMetadata, error) {
	return c.svc.UrlNotifications.GetMetadata().Url(url).Context(ctx).Do()
}
