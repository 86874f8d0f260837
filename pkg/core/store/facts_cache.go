package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/gzip"
)

// FactsCache caches raw companyfacts payloads.
// Supports Hybrid Vault: DB (Primary) + File System (Fallback/Local)
type FactsCache struct {
	pool    *pgxpool.Pool
	fileDir string
	ttl     time.Duration // 0 means entries never expire
	now     func() time.Time
}

// NewFactsCache creates a cache. With a nil pool, payloads are gzip files under dir
// (default .cache/edgar/companyfacts).
func NewFactsCache(pool *pgxpool.Pool, dir string, ttl time.Duration) *FactsCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "edgar", "companyfacts")
	}
	return &FactsCache{pool: pool, fileDir: dir, ttl: ttl, now: time.Now}
}

// Get returns the payload for cik. Expired or missing entries report ok=false.
func (c *FactsCache) Get(ctx context.Context, cik string) ([]byte, bool, error) {
	// 1. Try DB
	if c.pool != nil {
		var payload []byte
		var fetchedAt time.Time
		err := c.pool.QueryRow(ctx,
			`SELECT payload, fetched_at FROM company_facts_cache WHERE cik = $1`, cik,
		).Scan(&payload, &fetchedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to query facts cache: %w", err)
		}
		if c.expired(fetchedAt) {
			return nil, false, nil
		}
		return payload, true, nil
	}

	// 2. Try File System
	path := c.path(cik)
	stat, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.expired(stat.ModTime()) {
		return nil, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt cache file %s: %w", path, err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt cache file %s: %w", path, err)
	}
	return payload, true, nil
}

// Set stores payload for cik, replacing any previous entry.
func (c *FactsCache) Set(ctx context.Context, cik string, payload []byte) error {
	if c.pool != nil {
		_, err := c.pool.Exec(ctx, `
			INSERT INTO company_facts_cache (cik, payload, fetched_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (cik)
			DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
		`, cik, payload)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(c.fileDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	// Write then rename so a concurrent reader never sees a partial file.
	tmp := c.path(cik) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return os.Rename(tmp, c.path(cik))
}

// Clear drops every cached payload.
func (c *FactsCache) Clear(ctx context.Context) error {
	if c.pool != nil {
		if _, err := c.pool.Exec(ctx, `DELETE FROM company_facts_cache`); err != nil {
			return fmt.Errorf("failed to clear db cache: %w", err)
		}
		return nil
	}

	entries, err := os.ReadDir(c.fileDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json.gz") {
			if err := os.Remove(filepath.Join(c.fileDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *FactsCache) expired(stamp time.Time) bool {
	return c.ttl > 0 && c.now().Sub(stamp) > c.ttl
}

func (c *FactsCache) path(cik string) string {
	safe := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, cik)
	return filepath.Join(c.fileDir, "CIK"+safe+".json.gz")
}
