// Package tablestore persists tables with a version stamp. Every write is
// conditional on the version the caller read, so concurrent writers against
// the same table are serialized: exactly one wins and the others get
// ErrConcurrencyConflict.
package tablestore

import (
	"context"
	"errors"

	"HoldemSync/internal/game/table"
)

var (
	ErrConcurrencyConflict = errors.New("table was modified concurrently")
	ErrNotFound            = errors.New("table not found")
	ErrAlreadyExists       = errors.New("table already exists")
)

// Repo 牌桌存储的抽象操作
type Repo interface {
	// Get 读取牌桌，返回的 Version 即之后写入时的 expectedVersion
	Get(ctx context.Context, id string) (*table.Table, error)
	// Create 写入一张新桌（version 1），id 已存在时返回 ErrAlreadyExists
	Create(ctx context.Context, t *table.Table) (*table.Table, error)
	// CompareAndSwap 仅当存储中的 version == expectedVersion 时写入，写入后 version+1
	CompareAndSwap(ctx context.Context, t *table.Table, expectedVersion int64) (*table.Table, error)
	// Delete 仅当 version 未变化时删除
	Delete(ctx context.Context, id string, expectedVersion int64) error
	// List 所有牌桌
	List(ctx context.Context) ([]*table.Table, error)
}

// stamp 返回即将写入的副本
func stamp(t *table.Table, version int64) *table.Table {
	c := t.Clone()
	c.Version = version
	return c
}
