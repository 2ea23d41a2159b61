package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"stash-go/internal/catalog/migrations"
	"stash-go/internal/retry"
	"stash-go/internal/stash"
)

// SQLiteCatalog implements stash.Catalog on a SQLite database.
type SQLiteCatalog struct {
	db    *sql.DB
	path  string
	clock stash.Clock
}

// NewSQLiteCatalog opens the catalog at path, which may be ":memory:".
// The schema is not touched; call Migrate or CheckMigrations.
func NewSQLiteCatalog(path string, clock stash.Clock) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = stash.RealClock{}
	}
	return &SQLiteCatalog{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens a SQLite database with foreign keys enforced and a
// busy timeout. The pool is limited to one connection: an in-memory database
// exists per connection, and a single writer avoids SQLITE_BUSY between jobs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	return db, nil
}

// Migrate brings the schema to the latest version.
func (s *SQLiteCatalog) Migrate() error {
	return migrations.Up(s.db)
}

func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.Status(s.db)
}

// Path returns the database path (or ":memory:").
func (s *SQLiteCatalog) Path() string { return s.path }

func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

const (
	collectionColumns = "id, parent_id, name, created_at"
	itemColumns       = "id, collection_id, name, mime_type, size, checksum, encrypted, created_at"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(row scanner) (stash.Collection, error) {
	var (
		c       stash.Collection
		parent  sql.NullInt64
		created int64
	)
	if err := row.Scan(&c.ID, &parent, &c.Name, &created); err != nil {
		return stash.Collection{}, err
	}
	c.ParentID = stash.InvalidID
	if parent.Valid {
		c.ParentID = parent.Int64
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func scanItem(row scanner) (stash.Item, error) {
	var (
		it      stash.Item
		created int64
	)
	if err := row.Scan(&it.ID, &it.CollectionID, &it.Name, &it.MimeType, &it.Size, &it.Checksum, &it.Encrypted, &created); err != nil {
		return stash.Item{}, err
	}
	it.CreatedAt = time.Unix(created, 0).UTC()
	return it, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Collections

func (s *SQLiteCatalog) Lookup(ctx context.Context, parentID int64, name string) ([]stash.Handle, error) {
	if _, err := getCollection(ctx, s.db, parentID); err != nil {
		return nil, err
	}

	var out []stash.Handle
	colls, err := queryCollections(ctx, s.db,
		"SELECT "+collectionColumns+" FROM collections WHERE parent_id = ? AND name = ? ORDER BY id", parentID, name)
	if err != nil {
		return nil, wrapErr("looking up collections", err)
	}
	for _, c := range colls {
		out = append(out, c)
	}
	items, err := queryItems(ctx, s.db,
		"SELECT "+itemColumns+" FROM items WHERE collection_id = ? AND name = ? ORDER BY id", parentID, name)
	if err != nil {
		return nil, wrapErr("looking up items", err)
	}
	for _, it := range items {
		out = append(out, it)
	}
	return out, nil
}

func (s *SQLiteCatalog) GetCollection(ctx context.Context, id int64) (stash.Collection, error) {
	return getCollection(ctx, s.db, id)
}

func (s *SQLiteCatalog) ListCollections(ctx context.Context, parentID int64) ([]stash.Collection, error) {
	if _, err := getCollection(ctx, s.db, parentID); err != nil {
		return nil, err
	}
	colls, err := queryCollections(ctx, s.db,
		"SELECT "+collectionColumns+" FROM collections WHERE parent_id = ? ORDER BY id", parentID)
	if err != nil {
		return nil, wrapErr("listing collections", err)
	}
	return colls, nil
}

func (s *SQLiteCatalog) CreateCollection(ctx context.Context, parentID int64, name string) (stash.Collection, error) {
	if err := stash.ValidateName(name); err != nil {
		return stash.Collection{}, err
	}
	var created stash.Collection
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, parentID); err != nil {
			return err
		}
		c, err := s.insertCollection(ctx, tx, parentID, name)
		created = c
		return err
	})
	return created, err
}

func (s *SQLiteCatalog) MoveCollection(ctx context.Context, id, destID int64) (stash.Collection, error) {
	var moved stash.Collection
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := checkRelocation(ctx, tx, "move", id, destID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE collections SET parent_id = ? WHERE id = ?", destID, id); err != nil {
			return wrapErr("moving collection", err)
		}
		c.ParentID = destID
		moved = c
		return nil
	})
	return moved, err
}

func (s *SQLiteCatalog) CopyCollection(ctx context.Context, id, destID int64) (stash.Collection, error) {
	var copied stash.Collection
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		src, err := checkRelocation(ctx, tx, "copy", id, destID)
		if err != nil {
			return err
		}
		copied, err = s.copyCollection(ctx, tx, src, destID)
		return err
	})
	return copied, err
}

// Items

func (s *SQLiteCatalog) GetItem(ctx context.Context, id int64) (stash.Item, error) {
	return getItem(ctx, s.db, id)
}

func (s *SQLiteCatalog) ListItems(ctx context.Context, collectionID int64) ([]stash.Item, error) {
	if _, err := getCollection(ctx, s.db, collectionID); err != nil {
		return nil, err
	}
	items, err := queryItems(ctx, s.db,
		"SELECT "+itemColumns+" FROM items WHERE collection_id = ? ORDER BY id", collectionID)
	if err != nil {
		return nil, wrapErr("listing items", err)
	}
	return items, nil
}

func (s *SQLiteCatalog) CreateItem(ctx context.Context, it stash.Item) (stash.Item, error) {
	if err := stash.ValidateName(it.Name); err != nil {
		return stash.Item{}, err
	}
	var created stash.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, it.CollectionID); err != nil {
			return err
		}
		now := s.clock.Now().Unix()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO items (collection_id, name, mime_type, size, checksum, encrypted, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			it.CollectionID, it.Name, it.MimeType, it.Size, it.Checksum, it.Encrypted, now)
		if err != nil {
			return wrapErr("inserting item", err)
		}
		it.ID, err = res.LastInsertId()
		if err != nil {
			return wrapErr("inserting item", err)
		}
		it.CreatedAt = time.Unix(now, 0).UTC()
		created = it
		return nil
	})
	return created, err
}

func (s *SQLiteCatalog) MoveItem(ctx context.Context, id, destID int64) (stash.Item, error) {
	var moved stash.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := getCollection(ctx, tx, destID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE items SET collection_id = ? WHERE id = ?", destID, id); err != nil {
			return wrapErr("moving item", err)
		}
		it.CollectionID = destID
		moved = it
		return nil
	})
	return moved, err
}

func (s *SQLiteCatalog) CopyItem(ctx context.Context, id, destID int64) (stash.Item, error) {
	var copied stash.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := getCollection(ctx, tx, destID); err != nil {
			return err
		}
		copied, err = s.copyItem(ctx, tx, it, destID)
		return err
	})
	return copied, err
}

// Tags

func (s *SQLiteCatalog) ListTags(ctx context.Context, itemID int64) ([]stash.Tag, error) {
	if _, err := getItem(ctx, s.db, itemID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT t.id, t.name FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE it.item_id = ? ORDER BY it.seq", itemID)
	if err != nil {
		return nil, wrapErr("listing tags", err)
	}
	defer rows.Close()

	var out []stash.Tag
	for rows.Next() {
		var t stash.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, wrapErr("scanning tag", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("listing tags", err)
	}
	return out, nil
}

func (s *SQLiteCatalog) TagItem(ctx context.Context, itemID int64, name string) (stash.Tag, error) {
	if name == "" {
		return stash.Tag{}, stash.Errorf(stash.InvalidUsage, "tag name must not be empty")
	}
	var tag stash.Tag
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getItem(ctx, tx, itemID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
			return wrapErr("inserting tag", err)
		}
		tag.Name = name
		if err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tag.ID); err != nil {
			return wrapErr("reading tag", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_tags (item_id, tag_id, seq)
			 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM item_tags WHERE item_id = ?))`,
			itemID, tag.ID, itemID)
		if err != nil {
			return wrapErr("tagging item", err)
		}
		return nil
	})
	return tag, err
}

// Helpers

func (s *SQLiteCatalog) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("starting transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteCatalog) insertCollection(ctx context.Context, q querier, parentID int64, name string) (stash.Collection, error) {
	now := s.clock.Now().Unix()
	res, err := q.ExecContext(ctx,
		"INSERT INTO collections (parent_id, name, created_at) VALUES (?, ?, ?)", parentID, name, now)
	if err != nil {
		return stash.Collection{}, wrapErr("inserting collection", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return stash.Collection{}, wrapErr("inserting collection", err)
	}
	return stash.Collection{ID: id, ParentID: parentID, Name: name, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (s *SQLiteCatalog) copyItem(ctx context.Context, q querier, it stash.Item, destID int64) (stash.Item, error) {
	now := s.clock.Now().Unix()
	res, err := q.ExecContext(ctx,
		"INSERT INTO items (collection_id, name, mime_type, size, checksum, encrypted, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		destID, it.Name, it.MimeType, it.Size, it.Checksum, it.Encrypted, now)
	if err != nil {
		return stash.Item{}, wrapErr("copying item", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return stash.Item{}, wrapErr("copying item", err)
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO item_tags (item_id, tag_id, seq) SELECT ?, tag_id, seq FROM item_tags WHERE item_id = ?", newID, it.ID)
	if err != nil {
		return stash.Item{}, wrapErr("copying item tags", err)
	}

	it.ID = newID
	it.CollectionID = destID
	it.CreatedAt = time.Unix(now, 0).UTC()
	return it, nil
}

func (s *SQLiteCatalog) copyCollection(ctx context.Context, q querier, src stash.Collection, destID int64) (stash.Collection, error) {
	items, err := queryItems(ctx, q, "SELECT "+itemColumns+" FROM items WHERE collection_id = ? ORDER BY id", src.ID)
	if err != nil {
		return stash.Collection{}, wrapErr("copying collection", err)
	}
	children, err := queryCollections(ctx, q, "SELECT "+collectionColumns+" FROM collections WHERE parent_id = ? ORDER BY id", src.ID)
	if err != nil {
		return stash.Collection{}, wrapErr("copying collection", err)
	}

	dup, err := s.insertCollection(ctx, q, destID, src.Name)
	if err != nil {
		return stash.Collection{}, err
	}
	for _, it := range items {
		if _, err := s.copyItem(ctx, q, it, dup.ID); err != nil {
			return stash.Collection{}, err
		}
	}
	for _, child := range children {
		if _, err := s.copyCollection(ctx, q, child, dup.ID); err != nil {
			return stash.Collection{}, err
		}
	}
	return dup, nil
}

// checkRelocation validates moving or copying collection id under destID and
// returns the source collection.
func checkRelocation(ctx context.Context, q querier, verb string, id, destID int64) (stash.Collection, error) {
	c, err := getCollection(ctx, q, id)
	if err != nil {
		return stash.Collection{}, err
	}
	if c.IsRoot() {
		return stash.Collection{}, fmt.Errorf("cannot %s the root collection", verb)
	}
	cur, err := getCollection(ctx, q, destID)
	if err != nil {
		return stash.Collection{}, err
	}
	for {
		if cur.ID == id {
			return stash.Collection{}, fmt.Errorf("cannot %s collection %d into its own subtree", verb, id)
		}
		if cur.ParentID == stash.InvalidID {
			return c, nil
		}
		if cur, err = getCollection(ctx, q, cur.ParentID); err != nil {
			return stash.Collection{}, err
		}
	}
}

func getCollection(ctx context.Context, q querier, id int64) (stash.Collection, error) {
	c, err := scanCollection(q.QueryRowContext(ctx, "SELECT "+collectionColumns+" FROM collections WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Collection{}, collectionNotFound(id)
	}
	if err != nil {
		return stash.Collection{}, wrapErr("reading collection", err)
	}
	return c, nil
}

func getItem(ctx context.Context, q querier, id int64) (stash.Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Item{}, itemNotFound(id)
	}
	if err != nil {
		return stash.Item{}, wrapErr("reading item", err)
	}
	return it, nil
}

func queryCollections(ctx context.Context, q querier, query string, args ...any) ([]stash.Collection, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stash.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]stash.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stash.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// wrapErr adds context to a database error. Busy and locked errors are
// marked transient so the client retries them.
func wrapErr(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return retry.Transient(wrapped)
	}
	return wrapped
}

var _ stash.Catalog = (*SQLiteCatalog)(nil)
