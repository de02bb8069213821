package api

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"siteinsight/internal/settings"
)

// CredentialError reports missing credentials discovered when a client
// handle is first requested. It lists every missing field at once.
type CredentialError struct {
	Missing []string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("Invalid GA4 credentials: %s", strings.Join(e.Missing, "; "))
}

// Registry owns one lazily constructed client handle per API family.
// Handles are built on first use and reused for the registry's lifetime,
// so callers get strict pointer identity across calls. Reset exists for
// test isolation; holders of an already-returned handle keep it.
//
// Only credential presence is validated up front. Structurally invalid key
// material surfaces as an error from the first network call, unwrapped.
type Registry struct {
	mu            sync.Mutex
	ga4           *DataClient
	searchConsole *SearchConsoleClient
	indexing      *IndexingClient
	cache         CacheInterface
}

// NewRegistry creates an empty registry. cache may be nil; when set it is
// attached to the GA4 data client on construction.
func NewRegistry(cache CacheInterface) *Registry {
	return &Registry{cache: cache}
}

// GA4 returns the cached GA4 Data API client, constructing it on first use.
func (r *Registry) GA4(ctx context.Context) (*DataClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ga4 != nil {
		return r.ga4, nil
	}

	s, err := validatedSettings()
	if err != nil {
		return nil, err
	}

	httpClient := serviceAccountClient(ctx, s, AnalyticsReadOnlyScope)
	if r.cache != nil {
		r.ga4 = NewDataClientWithCache(httpClient, r.cache)
	} else {
		r.ga4 = NewDataClient(httpClient)
	}
	return r.ga4, nil
}

// SearchConsole returns the cached Search Console client, constructing it
// on first use.
func (r *Registry) SearchConsole(ctx context.Context) (*SearchConsoleClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.searchConsole != nil {
		return r.searchConsole, nil
	}

	s, err := validatedSettings()
	if err != nil {
		return nil, err
	}

	client, err := NewSearchConsoleClient(ctx, s)
	if err != nil {
		return nil, err
	}
	r.searchConsole = client
	return r.searchConsole, nil
}

// Indexing returns the cached Indexing API client, constructing it on
// first use.
func (r *Registry) Indexing(ctx context.Context) (*IndexingClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexing != nil {
		return r.indexing, nil
	}

	s, err := validatedSettings()
	if err != nil {
		return nil, err
	}

	client, err := NewIndexingClient(ctx, s)
	if err != nil {
		return nil, err
	}
	r.indexing = client
	return r.indexing, nil
}

// PropertyID returns the GA4 property resource name, freshly computed from
// the live environment on every call, unlike the cached client handles.
func (r *Registry) PropertyID() string {
	return "properties/" + settings.Load().PropertyID
}

// SiteURL returns the configured Search Console site URL verbatim.
func (r *Registry) SiteURL() string {
	return settings.Load().SiteURL
}

// SetGA4 seeds the cached GA4 handle in place of lazy construction, so a
// client bound to a stub endpoint can stand in for the real one.
func (r *Registry) SetGA4(client *DataClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ga4 = client
}

// Reset clears all cached handles; the next accessor call reconstructs.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ga4 = nil
	r.searchConsole = nil
	r.indexing = nil
}

func validatedSettings() (settings.Settings, error) {
	validation := settings.Validate()
	if !validation.Valid {
		return settings.Settings{}, &CredentialError{Missing: validation.Errors}
	}
	return settings.Load(), nil
}
