package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"HoldemSync/internal/game/table"
)

type redisRepo struct {
	rdb redis.UniversalClient
}

func NewRedisRepo(rdb redis.UniversalClient) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	hash: poker:table:{id}   -> doc (JSON), version
//	set : poker:tables       -> 所有 table id
const indexKey = "poker:tables"

func tableKey(id string) string {
	return fmt.Sprintf("poker:table:%s", id)
}

// KEYS[1] = tableKey, KEYS[2] = indexKey, ARGV[1] = id, ARGV[2] = doc
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "doc", ARGV[2], "version", "1")
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] = tableKey, ARGV[1] = expectedVersion, ARGV[2] = doc
// 返回 -1 不存在，0 版本不符，1 成功
var casScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "version")
if not cur then
	return -1
end
if tonumber(cur) ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "doc", ARGV[2], "version", tostring(tonumber(ARGV[1]) + 1))
return 1
`)

// KEYS[1] = tableKey, KEYS[2] = indexKey, ARGV[1] = id, ARGV[2] = expectedVersion
var deleteScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "version")
if not cur then
	return -1
end
if tonumber(cur) ~= tonumber(ARGV[2]) then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`)

func (r *redisRepo) Get(ctx context.Context, id string) (*table.Table, error) {
	vals, err := r.rdb.HMGet(ctx, tableKey(id), "doc", "version").Result()
	if err != nil {
		return nil, err
	}
	return decode(id, vals)
}

func decode(id string, vals []interface{}) (*table.Table, error) {
	doc, ok := vals[0].(string)
	if !ok {
		return nil, ErrNotFound
	}
	var t table.Table
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", id, err)
	}
	if v, ok := vals[1].(string); ok {
		// hash 中的 version 为准
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.Version = n
		}
	}
	return &t, nil
}

func (r *redisRepo) Create(ctx context.Context, t *table.Table) (*table.Table, error) {
	c := stamp(t, 1)
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	res, err := createScript.Run(ctx, r.rdb, []string{tableKey(t.ID), indexKey}, t.ID, doc).Int()
	if err != nil {
		return nil, err
	}
	if res == 0 {
		return nil, ErrAlreadyExists
	}
	return c, nil
}

func (r *redisRepo) CompareAndSwap(ctx context.Context, t *table.Table, expectedVersion int64) (*table.Table, error) {
	c := stamp(t, expectedVersion+1)
	c.UpdatedAt = time.Now()
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	res, err := casScript.Run(ctx, r.rdb, []string{tableKey(t.ID)}, expectedVersion, doc).Int()
	if err != nil {
		return nil, err
	}
	switch res {
	case -1:
		return nil, ErrNotFound
	case 0:
		return nil, ErrConcurrencyConflict
	}
	return c, nil
}

func (r *redisRepo) Delete(ctx context.Context, id string, expectedVersion int64) error {
	res, err := deleteScript.Run(ctx, r.rdb, []string{tableKey(id), indexKey}, id, expectedVersion).Int()
	if err != nil {
		return err
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrConcurrencyConflict
	}
	return nil
}

func (r *redisRepo) List(ctx context.Context) ([]*table.Table, error) {
	ids, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	p := r.rdb.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = p.HMGet(ctx, tableKey(id), "doc", "version")
	}
	if _, err := p.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]*table.Table, 0, len(ids))
	for i, cmd := range cmds {
		t, err := decode(ids[i], cmd.Val())
		if errors.Is(err, ErrNotFound) {
			// 索引里残留的 id，忽略
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
