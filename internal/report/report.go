// Package report exposes the high-level analysis functions: each one
// normalizes its date range, assembles a family-specific request with
// sensible defaults, invokes the cached client, and persists the raw
// response through the result store. Responses are returned exactly as the
// API produced them; no reshaping happens here.
package report

import (
	"log/slog"

	"siteinsight/internal/api"
	"siteinsight/internal/daterange"
	"siteinsight/internal/settings"
	"siteinsight/internal/store"
)

// Options controls persistence for a single call. The zero value persists
// nothing; use DefaultOptions for the standard persist-everything behavior.
type Options struct {
	// Persist writes the raw response to the result store.
	Persist bool
	// ExtraInfo is an optional tag appended to the stored filename.
	ExtraInfo string
}

// DefaultOptions returns the standard options: persist every response.
func DefaultOptions() Options {
	return Options{Persist: true}
}

// Service composes the client registry and the result store into the
// analysis functions. All calls are strictly sequential; a failure in any
// step propagates immediately.
type Service struct {
	registry *api.Registry
	store    *store.Store
	log      *slog.Logger
}

// NewService creates a report service over a registry and a store.
func NewService(registry *api.Registry, st *store.Store) *Service {
	return &Service{
		registry: registry,
		store:    st,
		log:      slog.Default(),
	}
}

// Store exposes the underlying result store for listing and lookup.
func (s *Service) Store() *store.Store {
	return s.store
}

// rangeOrDefault substitutes the configured default date range for an
// empty spec.
func rangeOrDefault(dr daterange.Spec) daterange.Spec {
	if dr.IsZero() {
		return daterange.Shorthand(settings.Load().DefaultDateRange)
	}
	return dr
}

// persist saves data when opts asks for it. Storage failures propagate as
// plain I/O errors.
func (s *Service) persist(opts Options, data interface{}, category, operation string) error {
	if !opts.Persist {
		return nil
	}
	path, err := s.store.Save(data, category, operation, opts.ExtraInfo)
	if err != nil {
		return err
	}
	s.log.Debug("saved result", "category", category, "operation", operation, "path", path)
	return nil
}
