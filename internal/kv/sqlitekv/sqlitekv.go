// Package sqlitekv implements kv.Backend on an embedded modernc.org/sqlite
// database in WAL mode, the default backend. It follows the same
// Open/PRAGMA-bootstrap shape and the same WithTx transactional wrapper as
// a conventional embedded-SQL store, generalized to a scope-partitioned
// key/value table instead of a fixed set of domain tables.
package sqlitekv

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

//go:embed schema.sql
var schemaSQL string

// Backend wraps a *sql.DB holding the kv_entries table.
type Backend struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at path, enabling WAL mode and
// foreign keys, then bootstraps the schema if it is missing.
func Open(path string) (*Backend, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, sapicerr.Wrapf(sapicerr.Io, "sqlitekv.Open", "create db directory", err)
			}
		}
	}

	escaped := strings.ReplaceAll(path, " ", "%20")
	connStr := "file:" + escaped + "?_time_format=sqlite"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, sapicerr.Wrapf(sapicerr.Backend, "sqlitekv.Open", "open database", err)
	}
	db.SetMaxOpenConns(1) // concurrency: single-writer is acceptable.

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, sapicerr.Wrapf(sapicerr.Backend, "sqlitekv.Open", "enable WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, sapicerr.Wrapf(sapicerr.Backend, "sqlitekv.Open", "enable foreign keys", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, sapicerr.Wrapf(sapicerr.Backend, "sqlitekv.Open", "initialize schema", err)
	}

	return &Backend{db: db}, nil
}

func scopeColumns(s kv.Scope) (kind string, id string) {
	switch s.Kind {
	case kv.Workspace:
		return "workspace", s.ID
	case kv.Project:
		return "project", s.ID
	default:
		return "application", ""
	}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return nil
	}
	return sapicerr.Wrap(sapicerr.Backend, op, err)
}

func (b *Backend) withCancelCheck(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}

func (b *Backend) Put(ctx context.Context, scope kv.Scope, key string, v json.RawMessage) error {
	if err := b.withCancelCheck(ctx, "sqlitekv.Put"); err != nil {
		return err
	}
	kind, id := scopeColumns(scope)
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv_entries (scope_kind, scope_id, key, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope_kind, scope_id, key) DO UPDATE SET value = excluded.value
	`, kind, id, key, string(v))
	return classify("sqlitekv.Put", err)
}

func (b *Backend) Get(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	if err := b.withCancelCheck(ctx, "sqlitekv.Get"); err != nil {
		return nil, false, err
	}
	kind, id := scopeColumns(scope)
	var value string
	err := b.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE scope_kind = ? AND scope_id = ? AND key = ?
	`, kind, id, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Get", err)
	}
	return json.RawMessage(value), true, nil
}

func (b *Backend) Remove(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	prior, ok, err := b.Get(ctx, scope, key)
	if err != nil || !ok {
		return prior, ok, err
	}
	if err := b.withCancelCheck(ctx, "sqlitekv.Remove"); err != nil {
		return nil, false, err
	}
	kind, id := scopeColumns(scope)
	_, err = b.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE scope_kind = ? AND scope_id = ? AND key = ?
	`, kind, id, key)
	if err != nil {
		return nil, false, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Remove", err)
	}
	return prior, true, nil
}

// withTx runs fn inside a transaction: begin, run fn, rollback on error or
// commit on success. It is the one place the "batch operations are
// atomically visible" guarantee is actually enforced.
func (b *Backend) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.withTx", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	// Re-check cancellation immediately before commit: the backend must
	// not commit a transaction whose context has already completed
	//.
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, "sqlitekv.withTx", err)
	}

	if err := tx.Commit(); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.withTx", err)
	}
	return nil
}

func (b *Backend) PutBatch(ctx context.Context, scope kv.Scope, items []kv.Pair) error {
	if err := b.withCancelCheck(ctx, "sqlitekv.PutBatch"); err != nil {
		return err
	}
	kind, id := scopeColumns(scope)
	return b.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO kv_entries (scope_kind, scope_id, key, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (scope_kind, scope_id, key) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.PutBatch", err)
		}
		defer stmt.Close()
		for _, it := range items {
			if _, err := stmt.ExecContext(ctx, kind, id, it.Key, string(it.Value)); err != nil {
				return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.PutBatch", err)
			}
		}
		return nil
	})
}

func (b *Backend) GetBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	if err := b.withCancelCheck(ctx, "sqlitekv.GetBatch"); err != nil {
		return nil, err
	}
	out := make([]kv.Pair, len(keys))
	kind, id := scopeColumns(scope)
	stmt, err := b.db.PrepareContext(ctx, `
		SELECT value FROM kv_entries WHERE scope_kind = ? AND scope_id = ? AND key = ?
	`)
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.GetBatch", err)
	}
	defer stmt.Close()
	for i, k := range keys {
		var value string
		err := stmt.QueryRowContext(ctx, kind, id, k).Scan(&value)
		switch {
		case err == sql.ErrNoRows:
			out[i] = kv.Pair{Key: k}
		case err != nil:
			return nil, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.GetBatch", err)
		default:
			out[i] = kv.Pair{Key: k, Value: json.RawMessage(value)}
		}
	}
	return out, nil
}

func (b *Backend) RemoveBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	prior, err := b.GetBatch(ctx, scope, keys)
	if err != nil {
		return nil, err
	}
	if err := b.withCancelCheck(ctx, "sqlitekv.RemoveBatch"); err != nil {
		return nil, err
	}
	kind, id := scopeColumns(scope)
	err = b.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			DELETE FROM kv_entries WHERE scope_kind = ? AND scope_id = ? AND key = ?
		`)
		if err != nil {
			return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.RemoveBatch", err)
		}
		defer stmt.Close()
		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, kind, id, k); err != nil {
				return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.RemoveBatch", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prior, nil
}

func (b *Backend) GetBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) ([]kv.Pair, error) {
	if err := b.withCancelCheck(ctx, "sqlitekv.GetBatchByPrefix"); err != nil {
		return nil, err
	}
	kind, id := scopeColumns(scope)
	rows, err := b.db.QueryContext(ctx, `
		SELECT key, value FROM kv_entries
		WHERE scope_kind = ? AND scope_id = ? AND key LIKE ? ESCAPE '\'
		ORDER BY key
	`, kind, id, likePrefix(prefix))
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.GetBatchByPrefix", err)
	}
	defer rows.Close()

	var out []kv.Pair
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, sapicerr.Wrap(sapicerr.Backend, "sqlitekv.GetBatchByPrefix", err)
		}
		out = append(out, kv.Pair{Key: k, Value: json.RawMessage(v)})
	}
	return out, classify("sqlitekv.GetBatchByPrefix", rows.Err())
}

func (b *Backend) RemoveBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) error {
	if err := b.withCancelCheck(ctx, "sqlitekv.RemoveBatchByPrefix"); err != nil {
		return err
	}
	kind, id := scopeColumns(scope)
	return b.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM kv_entries
			WHERE scope_kind = ? AND scope_id = ? AND key LIKE ? ESCAPE '\'
		`, kind, id, likePrefix(prefix))
		if err != nil {
			return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.RemoveBatchByPrefix", err)
		}
		return nil
	})
}

// likePrefix escapes SQL LIKE wildcards so a prefix scan never matches more
// than the literal prefix; "" becomes "%" which matches every key.
func likePrefix(prefix string) string {
	if prefix == "" {
		return "%"
	}
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return esc + "%"
}

// Checkpoint does a light sync of the WAL, safe to call concurrently with
// writers.
func (b *Backend) Checkpoint(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)")
	return classify("sqlitekv.Checkpoint", err)
}

// Flush does a hard drain: truncate the WAL and force a full fsync.
func (b *Backend) Flush(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Flush", err)
	}
	if _, err := b.db.ExecContext(ctx, "PRAGMA synchronous=FULL"); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Flush", err)
	}
	return nil
}

// Optimize compacts and vacuums the database.
func (b *Backend) Optimize(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Optimize", err)
	}
	if _, err := b.db.ExecContext(ctx, "VACUUM"); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "sqlitekv.Optimize", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
