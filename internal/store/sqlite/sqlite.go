// Package sqlite provides a SQLite-backed implementation of the
// store.Index port for persisting photo metadata, lifecycle state, and
// inline payloads.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/photomat/photomat/internal/app"
	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/store"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ store.Index = (*Index)(nil)

// Index implements store.Index using SQLite (via database/sql). It is safe
// for concurrent use; database/sql manages connection pooling and
// serialization.
type Index struct{ db *sql.DB }

// New constructs an Index, initializing the required schema if absent.
func New(db *sql.DB) (*Index, error) {
	ix := &Index{db: db}
	if err := ix.init(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (i *Index) init() error {
	schema := `CREATE TABLE IF NOT EXISTS photos (
id TEXT PRIMARY KEY,
inline BLOB,
external INTEGER NOT NULL DEFAULT 0,
size INTEGER NOT NULL,
state TEXT NOT NULL DEFAULT 'captured',
created_at INTEGER NOT NULL,
delivered_at INTEGER,
expires_at INTEGER NOT NULL
);`
	_, err := i.db.Exec(schema)
	return err
}

// Insert stores a new photo row in the captured state. A duplicate id is
// a constraint violation, never an overwrite.
func (i *Index) Insert(ctx context.Context, id string, inline []byte, external bool, size int64, createdAt, expiresAt time.Time) error {
	const q = `INSERT INTO photos (id, inline, external, size, state, created_at, expires_at) VALUES (?,?,?,?,?,?,?)`
	ext := 0
	if external {
		ext = 1
	}
	_, err := i.db.ExecContext(ctx, q, id, inline, ext, size, string(domain.StateCaptured), createdAt.Unix(), expiresAt.Unix())
	return err
}

// Get reads a row without touching its state.
func (i *Index) Get(ctx context.Context, id string) (*store.Record, error) {
	const q = `SELECT inline, external, size, state, created_at, expires_at FROM photos WHERE id=?`
	return i.scanRecord(i.db.QueryRowContext(ctx, q, id))
}

// Deliver marks the row delivered if it is still captured, then reads it.
// The conditional UPDATE makes the captured -> delivered transition happen
// at most once regardless of concurrent fetches; repeats read the row
// unchanged.
func (i *Index) Deliver(ctx context.Context, id string, now time.Time) (*store.Record, error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	const mark = `UPDATE photos SET state=?, delivered_at=? WHERE id=? AND state=?`
	if _, err = tx.ExecContext(ctx, mark, string(domain.StateDelivered), now.Unix(), id, string(domain.StateCaptured)); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	const q = `SELECT inline, external, size, state, created_at, expires_at FROM photos WHERE id=?`
	rec, err := i.scanRecord(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Remove hard-deletes the row and reports whether it existed.
func (i *Index) Remove(ctx context.Context, id string) (bool, bool, error) {
	const del = `DELETE FROM photos WHERE id=? RETURNING external`
	var extInt int
	if err := i.db.QueryRowContext(ctx, del, id).Scan(&extInt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, extInt == 1, nil
}

// ExpireBefore selects photos expiring before t and deletes them,
// returning records for blob cleanup.
func (i *Index) ExpireBefore(ctx context.Context, t time.Time) ([]store.ExpiredRecord, error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, external FROM photos WHERE expires_at < ?`
	rows, err := tx.QueryContext(ctx, sel, t.Unix())
	if err != nil {
		return nil, err
	}
	var recs []store.ExpiredRecord
	for rows.Next() {
		var r store.ExpiredRecord
		var extInt int
		if err = rows.Scan(&r.ID, &extInt); err != nil {
			if cErr := rows.Close(); cErr != nil {
				return nil, fmt.Errorf("scan error: %v; close error: %w", err, cErr)
			}
			return nil, err
		}
		r.External = extInt == 1
		recs = append(recs, r)
	}
	if cErr := rows.Close(); cErr != nil {
		return nil, cErr
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	const del = `DELETE FROM photos WHERE expires_at < ?`
	if _, err = tx.ExecContext(ctx, del, t.Unix()); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListExternalIDs returns IDs of photos with external (blob) storage.
func (i *Index) ListExternalIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM photos WHERE external=1`
	rows, err := i.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// scanRecord maps one photos row into a store.Record.
func (i *Index) scanRecord(row *sql.Row) (*store.Record, error) {
	var (
		rec         store.Record
		extInt      int
		state       string
		createdUnix int64
		expiresUnix int64
	)
	if err := row.Scan(&rec.Inline, &extInt, &rec.Size, &state, &createdUnix, &expiresUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, app.ErrNotFound
		}
		return nil, err
	}
	rec.External = extInt == 1
	rec.State = domain.State(state)
	rec.CreatedAt = time.Unix(createdUnix, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	return &rec, nil
}
