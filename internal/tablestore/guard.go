package tablestore

import (
	"context"
	"errors"

	"HoldemSync/internal/game/table"
)

// MutateFunc 基于读到的快照计算新状态。不得修改入参；返回错误则不写入。
type MutateFunc func(cur *table.Table) (*table.Table, error)

// Mutate 读取、计算、按版本条件写入，只尝试一次。
// 结果中没有座位时删除牌桌，返回的快照仍然可以用于广播。
func Mutate(ctx context.Context, repo Repo, id string, fn MutateFunc) (*table.Table, error) {
	cur, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if len(next.Players) == 0 {
		if err := repo.Delete(ctx, id, cur.Version); err != nil {
			return nil, err
		}
		gone := next.Clone()
		gone.Version = cur.Version + 1
		return gone, nil
	}
	return repo.CompareAndSwap(ctx, next, cur.Version)
}

// MutateRetry 遇到 ErrConcurrencyConflict 时重新读取最新状态再算一次，最多 attempts 次
func MutateRetry(ctx context.Context, repo Repo, id string, attempts int, fn MutateFunc) (*table.Table, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		var t *table.Table
		t, err = Mutate(ctx, repo, id, fn)
		if !errors.Is(err, ErrConcurrencyConflict) {
			return t, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, err
}
