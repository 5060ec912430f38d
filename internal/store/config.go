package store

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SetConfig records a keyed run parameter (git HEAD, invocation arguments,
// coverage kinds tracked, ...) into the config table.
func (s *Store) SetConfig(key, value string) error {
	_, err := sq.Insert("config").
		Columns("key", "value").
		Values(key, value).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

// SetConfigBatch writes several config rows in one transaction.
func (s *Store) SetConfigBatch(kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin config transaction: %w", err)
	}
	defer tx.Rollback()

	sqlStr, _, err := sq.Insert("config").Columns("key", "value").Options("OR REPLACE").Values("", "").ToSql()
	if err != nil {
		return fmt.Errorf("build config SQL: %w", err)
	}
	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("prepare config statement: %w", err)
	}
	defer stmt.Close()

	for k, v := range kv {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("insert config %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit config batch: %w", err)
	}
	return nil
}

// GetConfig reads back one config value. Returns ok=false if the key is unset.
func (s *Store) GetConfig(key string) (value string, ok bool, err error) {
	row := sq.Select("value").From("config").Where(sq.Eq{"key": key}).RunWith(s.db).QueryRow()
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}
