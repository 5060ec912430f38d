package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrStoreExists is returned by OpenForIngest when the target path already exists.
var ErrStoreExists = errors.New("store: target path already exists")

// Store is the single relational persistence layer backing one coverage run.
// During ingest it is held entirely in-memory; MaterializeToDisk copies the
// full contents out atomically. Only the writer goroutine of the scheduler
// touches a Store opened for ingest (see internal/scheduler).
type Store struct {
	db       *sql.DB
	readOnly bool
}

// OpenForIngest creates a fresh in-memory store, ready to receive inserts.
// It fails if targetPath already exists on disk; catching the collision
// before the run starts avoids wasting an entire coverage run.
func OpenForIngest(targetPath string) (*Store, error) {
	if _, err := os.Stat(targetPath); err == nil {
		return nil, fmt.Errorf("open for ingest %s: %w", targetPath, ErrStoreExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", targetPath, err)
	}

	db, err := sql.Open("sqlite3", "file:"+targetPath+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	// A shared in-memory database is closed once its last connection drops;
	// pin the pool to a single connection so the schema and data persist for
	// the life of the Store.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenForRead attaches read-only to an existing store file on disk.
func OpenForRead(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s for read: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &Store{db: db, readOnly: true}, nil
}

// OpenForReadWrite attaches read-write to an existing store file, used by
// the evaluate command to append a fresh evaluation_benchmarks_* table to a
// store produced by a previous coverage run.
func OpenForReadWrite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=rw")
	if err != nil {
		return nil, fmt.Errorf("open %s for read-write: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection pool for callers (diagnostics) that
// need read-only ad-hoc queries beyond this package's batched operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the underlying connection(s).
func (s *Store) Close() error {
	return s.db.Close()
}
