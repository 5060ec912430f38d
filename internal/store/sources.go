package store

import (
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
)

// SourceResolver creates Source rows lazily the first time any coverage
// result references a translation unit, and caches the path → id mapping
// for the life of one writer so repeated lookups don't round-trip to SQLite.
// Owned by the single writer goroutine (see internal/scheduler); the mutex
// makes concurrent GetOrCreate calls safe should any other caller share it.
type SourceResolver struct {
	mu   sync.Mutex
	db   *Store
	byID map[string]int64
}

// NewSourceResolver wraps a Store for source-id lookups.
func NewSourceResolver(s *Store) *SourceResolver {
	return &SourceResolver{db: s, byID: make(map[string]int64)}
}

// GetOrCreate returns the id of the source row for path, inserting it if
// this is the first time it has been seen.
func (r *SourceResolver) GetOrCreate(path string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byID[path]; ok {
		return id, nil
	}

	res, err := sq.Insert("sources").
		Columns("path").
		Values(path).
		Options("OR IGNORE").
		RunWith(r.db.db).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("insert source %s: %w", path, err)
	}

	var id int64
	if n, _ := res.RowsAffected(); n > 0 {
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id for %s: %w", path, err)
		}
	} else {
		row := sq.Select("id").From("sources").Where(sq.Eq{"path": path}).RunWith(r.db.db).QueryRow()
		if err := row.Scan(&id); err != nil {
			return 0, fmt.Errorf("lookup existing source %s: %w", path, err)
		}
	}

	r.byID[path] = id
	return id, nil
}
