// Package cache provides a DuckDB-backed TTL cache for GA4 responses.
// Caching only short-circuits upstream calls; saved result artifacts are
// written unconditionally by the store and never read from here.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

const cacheDirName = ".siteinsight"

// Client handles DuckDB-based caching of GA4 metadata and report responses.
// It satisfies the data client's CacheInterface.
type Client struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the cache database under ~/.siteinsight/cache.
func New(name string) (*Client, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	cacheDir := filepath.Join(homeDir, cacheDirName, "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return Open(filepath.Join(cacheDir, name+".db"))
}

// Open opens a cache database at an explicit path. Used by tests.
func Open(path string) (*Client, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	client := &Client{db: db, path: path}
	if err := client.initializeTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache tables: %w", err)
	}
	return client, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) initializeTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS metadata_cache (
			property_id VARCHAR NOT NULL,
			cache_type VARCHAR NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			expires_at TIMESTAMP NOT NULL,
			PRIMARY KEY (property_id, cache_type)
		)`,

		`CREATE TABLE IF NOT EXISTS report_cache (
			request_hash VARCHAR PRIMARY KEY,
			property_id VARCHAR NOT NULL,
			request TEXT NOT NULL,
			response TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			expires_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cache_stats (
			id INTEGER PRIMARY KEY,
			total_hits INTEGER DEFAULT 0,
			total_misses INTEGER DEFAULT 0,
			last_cleanup TIMESTAMP,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := c.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	_, err := c.db.Exec(`INSERT OR IGNORE INTO cache_stats (id) VALUES (1)`)
	return err
}

// CacheMetadata stores property metadata with a TTL in hours.
func (c *Client) CacheMetadata(ctx context.Context, propertyID, cacheType string, data interface{}, ttlHours int) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO metadata_cache (property_id, cache_type, data, expires_at)
		VALUES (?, ?, ?, ?)
	`, propertyID, cacheType, string(payload), expiresAt)
	return err
}

// GetCachedMetadata retrieves cached metadata when present and unexpired.
func (c *Client) GetCachedMetadata(ctx context.Context, propertyID, cacheType string, result interface{}) (bool, error) {
	var data string
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT data, expires_at FROM metadata_cache
		WHERE property_id = ? AND cache_type = ?
	`, propertyID, cacheType).Scan(&data, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			c.incrementMisses()
			return false, nil
		}
		return false, fmt.Errorf("failed to query cache: %w", err)
	}

	if time.Now().After(expiresAt) {
		c.incrementMisses()
		c.db.ExecContext(ctx, `
			DELETE FROM metadata_cache WHERE property_id = ? AND cache_type = ?
		`, propertyID, cacheType)
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	c.incrementHits()
	return true, nil
}

// CacheReport stores a report response keyed by its request hash.
func (c *Client) CacheReport(ctx context.Context, propertyID, requestHash string, request, response interface{}, rowCount, ttlHours int) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	respJSON, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO report_cache
		(request_hash, property_id, request, response, row_count, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, requestHash, propertyID, string(reqJSON), string(respJSON), rowCount, expiresAt)
	return err
}

// GetCachedReport retrieves a cached report response when unexpired.
func (c *Client) GetCachedReport(ctx context.Context, requestHash string, result interface{}) (bool, error) {
	var data string
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT response, expires_at FROM report_cache WHERE request_hash = ?
	`, requestHash).Scan(&data, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			c.incrementMisses()
			return false, nil
		}
		return false, fmt.Errorf("failed to query cache: %w", err)
	}

	if time.Now().After(expiresAt) {
		c.incrementMisses()
		c.db.ExecContext(ctx, `DELETE FROM report_cache WHERE request_hash = ?`, requestHash)
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	c.incrementHits()
	return true, nil
}

// Stats summarizes cache effectiveness.
type Stats struct {
	TotalHits    int        `json:"total_hits"`
	TotalMisses  int        `json:"total_misses"`
	HitRate      float64    `json:"hit_rate"`
	EntriesCount int        `json:"entries_count"`
	LastCleanup  *time.Time `json:"last_cleanup,omitempty"`
}

// GetStats returns cache performance statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := c.db.QueryRowContext(ctx, `
		SELECT total_hits, total_misses, last_cleanup FROM cache_stats WHERE id = 1
	`).Scan(&stats.TotalHits, &stats.TotalMisses, &stats.LastCleanup)
	if err != nil {
		return nil, err
	}

	if total := stats.TotalHits + stats.TotalMisses; total > 0 {
		stats.HitRate = float64(stats.TotalHits) / float64(total) * 100
	}

	var metadataCount, reportCount int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metadata_cache`).Scan(&metadataCount); err != nil {
		return nil, err
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_cache`).Scan(&reportCount); err != nil {
		return nil, err
	}
	stats.EntriesCount = metadataCount + reportCount

	return &stats, nil
}

// CleanupExpired removes expired cache entries and returns how many were
// deleted.
func (c *Client) CleanupExpired(ctx context.Context) (int, error) {
	result1, err := c.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	deleted1, _ := result1.RowsAffected()

	result2, err := c.db.ExecContext(ctx, `DELETE FROM report_cache WHERE expires_at < NOW()`)
	if err != nil {
		return int(deleted1), err
	}
	deleted2, _ := result2.RowsAffected()

	_, err = c.db.ExecContext(ctx, `
		UPDATE cache_stats SET last_cleanup = NOW(), updated_at = NOW() WHERE id = 1
	`)
	return int(deleted1 + deleted2), err
}

func (c *Client) incrementHits() {
	c.db.Exec(`UPDATE cache_stats SET total_hits = total_hits + 1, updated_at = NOW() WHERE id = 1`)
}

func (c *Client) incrementMisses() {
	c.db.Exec(`UPDATE cache_stats SET total_misses = total_misses + 1, updated_at = NOW() WHERE id = 1`)
}
