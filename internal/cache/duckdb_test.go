package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Client {
	t.Helper()
	client, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestMetadataRoundTrip(t *testing.T) {
	client := newTestCache(t)
	ctx := context.Background()

	payload := map[string]string{"name": "properties/123456/metadata"}
	if err := client.CacheMetadata(ctx, "123456", "metadata", payload, 24); err != nil {
		t.Fatalf("CacheMetadata: %v", err)
	}

	var result map[string]string
	found, err := client.GetCachedMetadata(ctx, "123456", "metadata", &result)
	if err != nil {
		t.Fatalf("GetCachedMetadata: %v", err)
	}
	if !found {
		t.Fatal("fresh metadata entry not found")
	}
	if result["name"] != payload["name"] {
		t.Errorf("cached metadata = %v", result)
	}
}

func TestMetadataExpiry(t *testing.T) {
	client := newTestCache(t)
	ctx := context.Background()

	// ttlHours -1 puts expires_at in the past, so the entry is already stale.
	if err := client.CacheMetadata(ctx, "123456", "metadata", map[string]string{"k": "v"}, -1); err != nil {
		t.Fatal(err)
	}

	var result map[string]string
	found, err := client.GetCachedMetadata(ctx, "123456", "metadata", &result)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expired entry served as a hit")
	}
}

func TestReportRoundTrip(t *testing.T) {
	client := newTestCache(t)
	ctx := context.Background()

	request := map[string]string{"property": "properties/123456"}
	response := map[string]int{"rowCount": 3}
	if err := client.CacheReport(ctx, "123456", "hash-abc", request, response, 3, 1); err != nil {
		t.Fatalf("CacheReport: %v", err)
	}

	var result map[string]int
	found, err := client.GetCachedReport(ctx, "hash-abc", &result)
	if err != nil {
		t.Fatalf("GetCachedReport: %v", err)
	}
	if !found {
		t.Fatal("fresh report entry not found")
	}
	if result["rowCount"] != 3 {
		t.Errorf("cached report = %v", result)
	}

	// Unknown hash is a miss, not an error.
	found, err = client.GetCachedReport(ctx, "no-such-hash", &result)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unknown hash reported as a hit")
	}
}

func TestStatsAndCleanup(t *testing.T) {
	client := newTestCache(t)
	ctx := context.Background()

	var sink map[string]string
	client.GetCachedReport(ctx, "miss-1", &sink)
	client.GetCachedReport(ctx, "miss-2", &sink)

	if err := client.CacheReport(ctx, "123456", "h1", "req", "resp", 0, -1); err != nil {
		t.Fatal(err)
	}
	if err := client.CacheMetadata(ctx, "123456", "metadata", "data", 24); err != nil {
		t.Fatal(err)
	}

	stats, err := client.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalMisses < 2 {
		t.Errorf("TotalMisses = %d, want at least 2", stats.TotalMisses)
	}
	if stats.EntriesCount != 2 {
		t.Errorf("EntriesCount = %d, want 2", stats.EntriesCount)
	}

	deleted, err := client.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("CleanupExpired deleted %d entries, want 1", deleted)
	}

	stats, err = client.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntriesCount != 1 {
		t.Errorf("EntriesCount after cleanup = %d, want 1", stats.EntriesCount)
	}
	if stats.LastCleanup == nil {
		t.Error("LastCleanup not stamped")
	}
}
