package report

import (
	"context"

	indexing "google.golang.org/api/indexing/v3"

	"siteinsight/internal/store"
)

// PublishURL notifies the Indexing API that a URL was updated or deleted.
// notificationType is api.NotificationURLUpdated or api.NotificationURLDeleted.
func (s *Service) PublishURL(ctx context.Context, url, notificationType string, opts Options) (*indexing.PublishUrlNotificationResponse, error) {
	client, err := s.registry.Indexing(ctx)
	if err != nil {
		return nil, err
	}

	response, err := client.Publish(ctx, url, notificationType)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategoryIndexing, "publish_url"); err != nil {
		return nil, err
	}
	return response, nil
}

// NotificationStatus returns the latest notification metadata the Indexing
// API holds for a URL.
func (s *Service) NotificationStatus(ctx context.Context, url string, opts Options) (*indexing.UrlNotificationMetadata, error) {
	client, err := s.registry.Indexing(ctx)
	if err != nil {
		return nil, err
	}

	response, err := client.GetMetadata(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := s.persist(opts, response, store.CategoryIndexing, "notification_status"); err != nil {
		return nil, err
	}
	return response, nil
}
