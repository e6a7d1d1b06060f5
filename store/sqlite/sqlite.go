// Package sqlite stores ledger snapshots in an SQLite database, keeping
// a bounded history of recent saves.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/store/sqlite/migrations"
	"github.com/blockberries/crowdfund/types"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// DefaultRetain is the number of snapshots kept when Open is not told
// otherwise.
const DefaultRetain = 16

const migrationTable = "schema_migrations"

// Store is an SQLite-backed snapshot store.
type Store struct {
	sqlDB  *sql.DB
	retain int
}

// Open opens the database at path, applies migrations and keeps up to
// retain snapshots (DefaultRetain when retain <= 0).
func Open(path string, retain int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if retain <= 0 {
		retain = DefaultRetain
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, retain: retain}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save appends a snapshot and prunes history beyond the retain limit.
func (s *Store) Save(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := store.NewRecord(snap)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (sequence, hash, data, saved_at) VALUES (?, ?, ?, ?)`,
		int64(rec.Sequence), rec.Hash[:], rec.Data, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
)`, s.retain); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the most recently saved snapshot.
func (s *Store) Load(ctx context.Context) (types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, err
	}
	var (
		seq  int64
		hash []byte
		rec  store.Record
	)
	row := s.sqlDB.QueryRowContext(ctx, `SELECT sequence, hash, data FROM snapshots ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&seq, &hash, &rec.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Snapshot{}, store.ErrNoSnapshot
		}
		return types.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if len(hash) != len(rec.Hash) {
		return types.Snapshot{}, fmt.Errorf("%w: hash length %d", store.ErrCorrupt, len(hash))
	}
	rec.Sequence = uint64(seq)
	copy(rec.Hash[:], hash)
	return rec.Snapshot()
}

// Count returns the number of retained snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// applyMigrations executes embedded migrations at most once per file.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL in the -- +migrate Up section.
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	body := content[start+len(up):]
	if end := strings.Index(body, down); end != -1 {
		body = body[:end]
	}
	return body
}
