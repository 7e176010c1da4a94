// Package journal records confirmed saves in a SQLite database so that
// document revisions survive restarts.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry is one recorded save.
type Entry struct {
	ID       int64
	Path     string
	Pane     host.PaneID
	Revision int64
	SavedAt  time.Time
}

// Journal is the save journal.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	log.Debug(log.CatJournal, "Opening journal", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		log.ErrorErr(log.CatJournal, "Failed to open journal", err, "path", path)
		return nil, err
	}
	j, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info(log.CatJournal, "Journal ready", "path", path)
	return j, nil
}

// New wraps an open database, applying pending migrations. The pool is
// limited to one connection.
func New(db *sql.DB) (*Journal, error) {
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging journal: %w", err)
	}
	if err := migrateUp(db); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading journal migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing journal migrations: %w", err)
	}
	// m.Close would close db through the driver; only the source is released.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("preparing journal migrations: %w", err)
	}
	defer func() { _ = src.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordSave appends a save.
func (j *Journal) RecordSave(ctx context.Context, pane host.PaneID, path string, revision int64, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO saves (path, pane, revision, saved_at) VALUES (?, ?, ?, ?)`,
		path, string(pane), revision, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording save of %s: %w", path, err)
	}
	return nil
}

// LastRevision returns the highest recorded revision of path, or 0.
func (j *Journal) LastRevision(ctx context.Context, path string) (int64, error) {
	var rev int64
	err := j.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(revision), 0) FROM saves WHERE path = ?`, path,
	).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("reading revision of %s: %w", path, err)
	}
	return rev, nil
}

// History returns up to limit saves of path, newest first.
func (j *Journal) History(ctx context.Context, path string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, path, pane, revision, saved_at FROM saves
		 WHERE path = ? ORDER BY revision DESC, id DESC LIMIT ?`, path, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			pane string
			ms   int64
		)
		if err := rows.Scan(&e.ID, &e.Path, &pane, &e.Revision, &ms); err != nil {
			return nil, err
		}
		e.Pane = host.PaneID(pane)
		e.SavedAt = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Rename moves the history of from to to.
func (j *Journal) Rename(ctx context.Context, from, to string) error {
	if _, err := j.db.ExecContext(ctx, `UPDATE saves SET path = ? WHERE path = ?`, to, from); err != nil {
		return fmt.Errorf("renaming %s in journal: %w", from, err)
	}
	return nil
}

// Forget deletes the history of path.
func (j *Journal) Forget(ctx context.Context, path string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM saves WHERE path = ?`, path); err != nil {
		return fmt.Errorf("forgetting %s in journal: %w", path, err)
	}
	return nil
}
