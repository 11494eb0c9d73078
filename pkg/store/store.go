// Package store persists navigation items in SQLite and applies move plans
// transactionally.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// ErrNotFound is returned when an item id does not exist.
var ErrNotFound = errors.New("item not found")

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL,
	title       TEXT NOT NULL,
	type        TEXT NOT NULL,
	parent_id   TEXT,
	ord         INTEGER NOT NULL DEFAULT 0,
	published   INTEGER NOT NULL DEFAULT 0,
	url         TEXT,
	description TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id, ord)`,
}

// Store wraps the SQLite database. seq keeps the insertion order so that
// List returns items the way they were loaded, which the tree builder uses
// to break order ties.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// ReplaceAll swaps the stored collection for items. Repeated ids keep the
// first occurrence.
func (s *Store) ReplaceAll(ctx context.Context, items []model.NavigationItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO items
			(id, seq, title, type, parent_id, ord, published, url, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i, it := range items {
			if _, err := stmt.ExecContext(ctx, it.ID, i, it.Title, string(it.Type), nullParent(it.ParentID),
				it.Order, it.Published, nullString(it.URL), nullString(it.Description)); err != nil {
				return fmt.Errorf("inserting %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// List returns all items in insertion order.
func (s *Store) List(ctx context.Context) ([]model.NavigationItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, type, parent_id, ord, published, url, description
		FROM items ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []model.NavigationItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Get returns one item or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (model.NavigationItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, type, parent_id, ord, published, url, description
		FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NavigationItem{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return it, err
}

// Upsert inserts a new item at the end of the collection or updates an
// existing one in place.
func (s *Store) Upsert(ctx context.Context, it model.NavigationItem) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO items
		(id, seq, title, type, parent_id, ord, published, url, description)
		VALUES (?, COALESCE((SELECT MAX(seq) + 1 FROM items), 0), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			parent_id = excluded.parent_id,
			ord = excluded.ord,
			published = excluded.published,
			url = excluded.url,
			description = excluded.description`,
		it.ID, it.Title, string(it.Type), nullParent(it.ParentID), it.Order, it.Published,
		nullString(it.URL), nullString(it.Description))
	if err != nil {
		return fmt.Errorf("saving %s: %w", it.ID, err)
	}
	return nil
}

// DeleteSubtree removes id and everything stored beneath it and returns the
// number of rows removed.
func (s *Store) DeleteSubtree(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `WITH RECURSIVE sub(id) AS (
			SELECT id FROM items WHERE id = ?
			UNION
			SELECT items.id FROM items JOIN sub ON items.parent_id = sub.id
		)
		DELETE FROM items WHERE id IN (SELECT id FROM sub)`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return n, nil
}

// ApplyPlan writes every patch of a move plan in one transaction. If any
// patch names an unknown id nothing is written.
func (s *Store) ApplyPlan(ctx context.Context, plan []navtree.Patch) error {
	if len(plan) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "UPDATE items SET parent_id = ?, ord = ? WHERE id = ?")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range plan {
			var parent sql.NullString
			if p.ParentID != "" {
				parent = sql.NullString{String: p.ParentID, Valid: true}
			}
			res, err := stmt.ExecContext(ctx, parent, p.Order, p.ID)
			if err != nil {
				return fmt.Errorf("updating %s: %w", p.ID, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("%s: %w", p.ID, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.NavigationItem, error) {
	var (
		it          model.NavigationItem
		typ         string
		parent      sql.NullString
		url, detail sql.NullString
	)
	if err := sc.Scan(&it.ID, &it.Title, &typ, &parent, &it.Order, &it.Published, &url, &detail); err != nil {
		return model.NavigationItem{}, err
	}
	it.Type = model.ItemType(typ)
	if parent.Valid {
		v := parent.String
		it.ParentID = &v
	}
	it.URL = url.String
	it.Description = detail.String
	return it, nil
}

func nullParent(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// nullString returns a sql.NullString for optional string fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
