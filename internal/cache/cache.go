// Package cache persists compiled ParserData artifacts keyed by a
// content-addressed hash of their source grammar, so cmd/hoshigen and
// internal/httpapi do not re-run generation for a grammar text already seen.
//
// Grounded on _examples/dekarrin-tunaq/server/dao/sqlite/sqlite.go and
// games.go (one *sql.DB, one table, prepared statements, wrapDBError turning
// a driver error into a sentinel), adapted from a multi-repository game
// store to a single-table artifact cache.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"modernc.org/sqlite"
)

var (
	// ErrNotFound is returned by Get when no artifact is cached under the
	// requested key.
	ErrNotFound = errors.New("no cached artifact for that grammar")
)

// Key is a content-addressed grammar identity: the blake2b-256 digest of the
// grammar source text, hex-encoded. Two grammar texts that hash equal are
// treated as the same artifact, the same way the teacher's dao layer treats
// two rows with equal primary keys as the same entity.
type Key string

// KeyOf computes the cache key for a grammar source text.
func KeyOf(source string) Key {
	sum := blake2b.Sum256([]byte(source))
	return Key(fmt.Sprintf("%x", sum))
}

// Entry is one cached artifact row: an id, the grammar key it was compiled
// from, when it was produced, and the opaque ParserData text blob (spec
// §6's `|`-delimited encoding, produced by vm.ParserData.Encode).
type Entry struct {
	ID      uuid.UUID
	Key     Key
	Created time.Time
	Blob    string
}

// record is Entry's on-disk shape: the blob column is a rezi-encoded record,
// mirroring how server/dao/sqlite encodes *game.State into a blob column
// rather than spreading every field across its own SQL column.
type record struct {
	ID      string
	Key     string
	Created int64
	Blob    string
}

// Store is a sqlite-backed artifact cache.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT NOT NULL PRIMARY KEY,
		grammar_key TEXT NOT NULL UNIQUE,
		created INTEGER NOT NULL,
		data BLOB NOT NULL
	);`)
	return wrapDBError(err)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores blob under key, assigning it a fresh artifact id, and returns
// the stored Entry. Re-putting the same key overwrites the prior row (a
// grammar recompiled after an edit replaces its old artifact rather than
// accumulating one row per generation).
func (s *Store) Put(ctx context.Context, key Key, blob string) (Entry, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Entry{}, fmt.Errorf("could not generate artifact id: %w", err)
	}
	e := Entry{ID: id, Key: key, Created: time.Now(), Blob: blob}

	data := rezi.EncBinary(record{ID: e.ID.String(), Key: string(e.Key), Created: e.Created.Unix(), Blob: e.Blob})

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, grammar_key, created, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(grammar_key) DO UPDATE SET id=excluded.id, created=excluded.created, data=excluded.data`,
		e.ID.String(), string(e.Key), e.Created.Unix(), data)
	if err != nil {
		return Entry{}, wrapDBError(err)
	}
	return e, nil
}

// Get fetches the cached artifact for key, or ErrNotFound if none exists.
func (s *Store) Get(ctx context.Context, key Key) (Entry, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE grammar_key = ?;`, string(key))
	if err := row.Scan(&data); err != nil {
		return Entry{}, wrapDBError(err)
	}

	var rec record
	n, err := rezi.DecBinary(data, &rec)
	if err != nil {
		return Entry{}, fmt.Errorf("REZI decode: %w", err)
	}
	if n != len(data) {
		return Entry{}, fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data))
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("stored artifact id %q is invalid: %w", rec.ID, err)
	}
	return Entry{ID: id, Key: Key(rec.Key), Created: time.Unix(rec.Created, 0), Blob: rec.Blob}, nil
}

// GetByID fetches the cached artifact with the given id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Entry, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE id = ?;`, id.String())
	if err := row.Scan(&data); err != nil {
		return Entry{}, wrapDBError(err)
	}
	var rec record
	n, err := rezi.DecBinary(data, &rec)
	if err != nil {
		return Entry{}, fmt.Errorf("REZI decode: %w", err)
	}
	if n != len(data) {
		return Entry{}, fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data))
	}
	return Entry{ID: id, Key: Key(rec.Key), Created: time.Unix(rec.Created, 0), Blob: rec.Blob}, nil
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
