// Package postgres provides the Postgres-backed report cache.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StoreConfig controls the Postgres connection pool used for cache entries.
type StoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists cache entries in a single table keyed by URL. Snapshots and
// the report live in JSONB columns.
//
// Expected schema:
//
//	CREATE TABLE site_reports (
//	    url TEXT PRIMARY KEY,
//	    site_snapshot JSONB NOT NULL,
//	    profile_snapshot JSONB,
//	    grading_record JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool  pool
	table string
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "site_reports"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "site_reports"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Lookup fetches the entry for the URL, translating pgx.ErrNoRows into
// cache.ErrNotFound.
func (s *Store) Lookup(ctx context.Context, url string) (grade.Entry, error) {
	if s == nil || s.pool == nil {
		return grade.Entry{}, fmt.Errorf("cache store is not configured")
	}
	query := fmt.Sprintf(`
SELECT site_snapshot, profile_snapshot, grading_record, created_at
FROM %s
WHERE url = $1`, s.table)

	var (
		siteJSON    []byte
		profileJSON []byte
		reportJSON  []byte
		createdAt   time.Time
	)
	err := s.pool.QueryRow(ctx, query, url).Scan(&siteJSON, &profileJSON, &reportJSON, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grade.Entry{}, cache.ErrNotFound
		}
		return grade.Entry{}, fmt.Errorf("select cache entry: %w", err)
	}

	entry := grade.Entry{URL: url, CreatedAt: createdAt}
	if err := json.Unmarshal(siteJSON, &entry.Site); err != nil {
		return grade.Entry{}, fmt.Errorf("unmarshal site snapshot: %w", err)
	}
	if len(profileJSON) > 0 {
		var profile grade.Snapshot
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return grade.Entry{}, fmt.Errorf("unmarshal profile snapshot: %w", err)
		}
		entry.Profile = &profile
	}
	if err := json.Unmarshal(reportJSON, &entry.Report); err != nil {
		return grade.Entry{}, fmt.Errorf("unmarshal grading record: %w", err)
	}
	return entry, nil
}

// Write upserts the entry; a rewrite for the same URL replaces the whole
// row.
func (s *Store) Write(ctx context.Context, entry grade.Entry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("cache store is not configured")
	}
	if entry.URL == "" {
		return fmt.Errorf("entry url is required")
	}
	siteJSON, err := json.Marshal(entry.Site)
	if err != nil {
		return fmt.Errorf("marshal site snapshot: %w", err)
	}
	var profileJSON []byte
	if entry.Profile != nil {
		profileJSON, err = json.Marshal(entry.Profile)
		if err != nil {
			return fmt.Errorf("marshal profile snapshot: %w", err)
		}
	}
	reportJSON, err := json.Marshal(entry.Report)
	if err != nil {
		return fmt.Errorf("marshal grading record: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (url, site_snapshot, profile_snapshot, grading_record, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (url) DO UPDATE SET
	site_snapshot = EXCLUDED.site_snapshot,
	profile_snapshot = EXCLUDED.profile_snapshot,
	grading_record = EXCLUDED.grading_record,
	created_at = EXCLUDED.created_at`, s.table)

	if _, err := s.pool.Exec(ctx, query, entry.URL, siteJSON, profileJSON, reportJSON, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}
