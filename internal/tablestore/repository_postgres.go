package tablestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"HoldemSync/internal/game/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS poker_tables (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	version    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// uniqueViolation postgres 错误码 23505
const uniqueViolation = "23505"

type postgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) Repo {
	return &postgresRepo{db: db}
}

// EnsureSchema 建表（幂等）
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func scanTable(id string, doc []byte, version int64) (*table.Table, error) {
	var t table.Table
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", id, err)
	}
	t.Version = version
	return &t, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*table.Table, error) {
	var doc []byte
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT doc, version FROM poker_tables WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scanTable(id, doc, version)
}

func (r *postgresRepo) Create(ctx context.Context, t *table.Table) (*table.Table, error) {
	c := stamp(t, 1)
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO poker_tables (id, doc, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		c.ID, string(doc), c.Version, c.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *postgresRepo) CompareAndSwap(ctx context.Context, t *table.Table, expectedVersion int64) (*table.Table, error) {
	c := stamp(t, expectedVersion+1)
	c.UpdatedAt = time.Now()
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE poker_tables SET doc = $1, version = $2, updated_at = $3 WHERE id = $4 AND version = $5`,
		string(doc), c.Version, c.UpdatedAt, c.ID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := r.checkAffected(ctx, res, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM poker_tables WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// checkAffected 条件写入没有命中时区分“不存在”和“版本冲突”
func (r *postgresRepo) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM poker_tables WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConcurrencyConflict
}

func (r *postgresRepo) List(ctx context.Context) ([]*table.Table, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, doc, version FROM poker_tables ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*table.Table
	for rows.Next() {
		var id string
		var doc []byte
		var version int64
		if err := rows.Scan(&id, &doc, &version); err != nil {
			return nil, err
		}
		t, err := scanTable(id, doc, version)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
