// Package sqlite persists the ledger collections in SQLite, one JSON blob
// per collection to keep the store's whole-collection replace semantics.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"coloc/internal/core"
	"coloc/internal/storage"
)

const (
	keyMonths   = "months"
	keyMembers  = "members"
	keySettings = "settings"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and brings the
// schema up to date.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) LoadMonths(ctx context.Context) ([]core.Month, error) {
	var months []core.Month
	if err := s.load(ctx, keyMonths, &months); err != nil {
		return nil, err
	}
	return months, nil
}

func (s *Store) SaveMonths(ctx context.Context, months []core.Month) error {
	if months == nil {
		months = []core.Month{}
	}
	return s.save(ctx, keyMonths, months)
}

func (s *Store) LoadMembers(ctx context.Context) ([]core.Member, error) {
	var members []core.Member
	if err := s.load(ctx, keyMembers, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) SaveMembers(ctx context.Context, members []core.Member) error {
	if members == nil {
		members = []core.Member{}
	}
	return s.save(ctx, keyMembers, members)
}

func (s *Store) LoadSettings(ctx context.Context) (core.ReimbursementSettings, error) {
	var settings core.ReimbursementSettings
	err := s.load(ctx, keySettings, &settings)
	if err != nil {
		return core.ReimbursementSettings{}, err
	}
	if settings.Rule == "" {
		return storage.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.ReimbursementSettings) error {
	return s.save(ctx, keySettings, settings)
}

// load reads one collection blob into dst. A missing key leaves dst at its
// zero value: absence means "does not exist yet", never an error.
func (s *Store) load(ctx context.Context, key string, dst any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM collections WHERE key = ?", key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load collection %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode collection %s: %w", key, err)
	}
	return nil
}

// save replaces one collection blob in a single statement; a write either
// lands whole or not at all.
func (s *Store) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save collection %s: %w", key, err)
	}
	return nil
}
