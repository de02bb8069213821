// Package export loads saved result envelopes into a DuckDB database so
// the history of raw API responses can be queried with SQL.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"siteinsight/internal/store"
)

// Parser streams result files from a results directory into DuckDB tables.
type Parser struct {
	dbPath     string
	resultsDir string
	batchSize  int
}

// NewParser creates a parser writing to dbPath from resultsDir.
func NewParser(dbPath, resultsDir string) *Parser {
	return &Parser{
		dbPath:     dbPath,
		resultsDir: resultsDir,
		batchSize:  20, // files per transaction
	}
}

// SetBatchSize updates the number of files processed per transaction.
func (p *Parser) SetBatchSize(size int) {
	if size > 0 {
		p.batchSize = size
	}
}

// ParseAll streams every saved envelope under the results directory into
// the results table, returning the number of files loaded. Files that are
// not valid envelopes are skipped, not fatal; a result store directory may
// accumulate unrelated files over years of operator use.
func (p *Parser) ParseAll(ctx context.Context) (int, error) {
	db, err := sql.Open("duckdb", p.dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	if err := p.initializeSchema(ctx, db); err != nil {
		return 0, fmt.Errorf("failed to initialize database: %w", err)
	}

	files, err := p.resultFiles()
	if err != nil {
		return 0, fmt.Errorf("failed to list result files: %w", err)
	}

	loaded := 0
	for i := 0; i < len(files); i += p.batchSize {
		end := i + p.batchSize
		if end > len(files) {
			end = len(files)
		}
		n, err := p.loadBatch(ctx, db, files[i:end])
		if err != nil {
			return loaded, err
		}
		loaded += n
	}
	return loaded, nil
}

func (p *Parser) initializeSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS results (
			path VARCHAR PRIMARY KEY,
			category VARCHAR NOT NULL,
			operation VARCHAR NOT NULL,
			property_id VARCHAR,
			saved_at VARCHAR,
			data JSON
		)
	`)
	return err
}

// resultFiles collects every .json file under the results root, sorted by
// path so reruns process in a stable order.
func (p *Parser) resultFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.resultsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (p *Parser) loadBatch(ctx context.Context, db *sql.DB, files []string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loaded := 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var envelope store.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Metadata.Operation == "" {
			continue // not a result envelope
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO results
			(path, category, operation, property_id, saved_at, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`, path, envelope.Metadata.Category, envelope.Metadata.Operation,
			envelope.Metadata.PropertyID, envelope.Metadata.SavedAt, string(envelope.Data))
		if err != nil {
			return loaded, fmt.Errorf("failed to insert %s: %w", path, err)
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return loaded, fmt.Errorf("failed to commit batch: %w", err)
	}
	return loaded, nil
}
