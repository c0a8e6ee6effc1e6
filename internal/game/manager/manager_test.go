package manager

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HoldemSync/internal/game/dealer"
	"HoldemSync/internal/game/engine"
	"HoldemSync/internal/game/table"
	"HoldemSync/internal/presence"
	"HoldemSync/internal/tablestore"
)

// recordingPublisher 记录发布的快照
type recordingPublisher struct {
	mu    sync.Mutex
	sent  []*table.Table
	topic []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = append(p.topic, topic)
	p.sent = append(p.sent, payload.(*table.Table))
	return nil
}

func (p *recordingPublisher) last() *table.Table {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[len(p.sent)-1]
}

// conflictRepo 前 n 次写入返回并发冲突
type conflictRepo struct {
	tablestore.Repo
	mu sync.Mutex
	n  int
}

func (r *conflictRepo) CompareAndSwap(ctx context.Context, t *table.Table, expected int64) (*table.Table, error) {
	r.mu.Lock()
	if r.n > 0 {
		r.n--
		r.mu.Unlock()
		return nil, tablestore.ErrConcurrencyConflict
	}
	r.mu.Unlock()
	return r.Repo.CompareAndSwap(ctx, t, expected)
}

func (r *conflictRepo) failNext(n int) {
	r.mu.Lock()
	r.n = n
	r.mu.Unlock()
}

type fixture struct {
	m    *Manager
	repo *conflictRepo
	pub  *recordingPublisher
	reg  presence.Registry
}

var defaults = Defaults{SmallBlind: 10, BigBlind: 20, MaxPlayers: 3, MinPlayers: 2, Stack: 1000}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: &conflictRepo{Repo: tablestore.NewMemoryRepo()},
		pub:  &recordingPublisher{},
		reg:  presence.NewMemoryRegistry(),
	}
	f.m = New(f.repo, dealer.NewDealer(1), f.pub, f.reg, Options{Defaults: defaults, RetryAttempts: 5}, log.New(io.Discard))
	return f
}

func (f *fixture) headsUp(t *testing.T) *table.Table {
	t.Helper()
	ctx := context.Background()
	_, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{TableID: "t1"})
	require.NoError(t, err)
	_, err = f.m.JoinTable(ctx, "bob", "t1", "", 0)
	require.NoError(t, err)
	started, err := f.m.StartHand(ctx, "alice", "t1")
	require.NoError(t, err)
	return started
}

// ✅ 建桌：默认参数、创建者入座并加入房间、发布脱敏快照
func TestCreateTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{Secret: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, defaults.BigBlind, view.Options.BigBlind)
	require.Len(t, view.Players, 1)
	assert.Equal(t, table.StatusWaiting, view.Players[0].Status)
	assert.Equal(t, int64(1000), view.Players[0].Stack)
	assert.Empty(t, view.AccessSecretHash)

	stored, err := f.repo.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.AccessSecretHash)
	assert.NotEqual(t, "pw", stored.AccessSecretHash)

	ok, err := f.reg.IsMember(ctx, view.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "game-updates:"+view.ID, f.pub.topic[0])
	assert.Empty(t, f.pub.last().AccessSecretHash)
}

func TestCreateTableRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{TableID: "t1"})
	require.NoError(t, err)

	_, err = f.m.CreateTable(ctx, "bob", CreateTableRequest{TableID: "t1"})
	assert.ErrorIs(t, err, ErrTableExists)

	for _, req := range []CreateTableRequest{
		{SmallBlind: 30, BigBlind: 20},
		{MaxPlayers: MaxSeats + 1},
		{MaxPlayers: 4, MinPlayers: 5},
	} {
		_, err = f.m.CreateTable(ctx, "bob", req)
		assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", req)
	}
}

func TestJoinTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{TableID: "t1", Secret: "pw"})
	require.NoError(t, err)

	_, err = f.m.JoinTable(ctx, "bob", "t1", "nope", 0)
	assert.ErrorIs(t, err, ErrWrongSecret)

	view, err := f.m.JoinTable(ctx, "bob", "t1", "pw", 500)
	require.NoError(t, err)
	require.Len(t, view.Players, 2)
	assert.Equal(t, int64(500), view.Players[1].Stack)

	_, err = f.m.JoinTable(ctx, "bob", "t1", "pw", 0)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	_, err = f.m.JoinTable(ctx, "carol", "t1", "pw", 0)
	require.NoError(t, err)
	_, err = f.m.JoinTable(ctx, "dave", "t1", "pw", 0)
	assert.ErrorIs(t, err, ErrTableFull)

	_, err = f.m.JoinTable(ctx, "dave", "missing", "", 0)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

// ✅ 入座遇到并发冲突会重新读取并重试
func TestJoinRetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{TableID: "t1"})
	require.NoError(t, err)

	f.repo.failNext(2)
	_, err = f.m.JoinTable(ctx, "bob", "t1", "", 0)
	require.NoError(t, err)

	f.repo.failNext(10)
	_, err = f.m.JoinTable(ctx, "carol", "t1", "", 0)
	assert.ErrorIs(t, err, tablestore.ErrConcurrencyConflict)
}

func TestStartHand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.m.CreateTable(ctx, "alice", CreateTableRequest{TableID: "t1"})
	require.NoError(t, err)

	_, err = f.m.StartHand(ctx, "alice", "t1")
	assert.ErrorIs(t, err, engine.ErrNotEnoughPlayers)

	_, err = f.m.JoinTable(ctx, "bob", "t1", "", 0)
	require.NoError(t, err)
	_, err = f.m.StartHand(ctx, "bob", "t1")
	assert.ErrorIs(t, err, ErrNotCreator)

	view, err := f.m.StartHand(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.True(t, view.InProgress)
	assert.Equal(t, table.RoundPreFlop, view.Round)
	assert.Nil(t, view.Deck)
	assert.Len(t, view.Players[0].Hand, 2)
	assert.Nil(t, view.Players[1].Hand)

	snap := f.pub.last()
	assert.Nil(t, snap.Deck)
	assert.Len(t, snap.Players[1].Hand, 2)

	_, err = f.m.StartHand(ctx, "alice", "t1")
	assert.ErrorIs(t, err, engine.ErrHandInProgress)
}

func TestActFoldEndsHand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	started := f.headsUp(t)
	first := started.Players[started.CurrentPlayerIndex].PlayerID
	other := "alice"
	if first == "alice" {
		other = "bob"
	}

	_, err := f.m.Act(ctx, other, "t1", engine.Check{})
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	view, err := f.m.Act(ctx, first, "t1", engine.Fold{})
	require.NoError(t, err)
	assert.False(t, view.InProgress)
	assert.Equal(t, int64(0), view.Pot)
	assert.Equal(t, int64(2000), view.ChipTotal())

	winner, ok := view.Seat(other)
	require.True(t, ok)
	assert.True(t, winner.IsWinner)
	assert.Greater(t, winner.Stack, int64(1000))

	open, err := f.m.OpenTables(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t1", open[0].TableID)
}

// ✅ 下注动作只尝试一次，冲突直接交给调用方
func TestActDoesNotRetry(t *testing.T) {
	f := newFixture(t)
	started := f.headsUp(t)
	first := started.Players[started.CurrentPlayerIndex].PlayerID

	f.repo.failNext(1)
	_, err := f.m.Act(context.Background(), first, "t1", engine.Call{})
	assert.ErrorIs(t, err, tablestore.ErrConcurrencyConflict)

	cur, err := f.m.Table(context.Background(), first, "t1")
	require.NoError(t, err)
	assert.Equal(t, started.Version, cur.Version)

	_, err = f.m.Act(context.Background(), first, "t1", engine.Call{})
	assert.NoError(t, err)
}

func TestOpenTablesSkipsHandsInProgress(t *testing.T) {
	f := newFixture(t)
	f.headsUp(t)
	_, err := f.m.CreateTable(context.Background(), "carol", CreateTableRequest{TableID: "t2"})
	require.NoError(t, err)

	open, err := f.m.OpenTables(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t2", open[0].TableID)
}

func TestLeaveTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	started := f.headsUp(t)
	waiting := started.Players[started.CurrentPlayerIndex].PlayerID
	leaver := "alice"
	if waiting == "alice" {
		leaver = "bob"
	}

	// 牌局中离开：弃牌，结算后移除座位
	view, err := f.m.LeaveTable(ctx, leaver, "t1")
	require.NoError(t, err)
	assert.False(t, view.InProgress)
	require.Len(t, view.Players, 1)
	assert.Equal(t, waiting, view.Players[0].PlayerID)
	assert.Greater(t, view.Players[0].Stack, int64(1000))

	ok, err := f.reg.IsMember(ctx, "t1", leaver)
	require.NoError(t, err)
	assert.False(t, ok)

	// 最后一人离开后删除牌桌
	_, err = f.m.LeaveTable(ctx, waiting, "t1")
	require.NoError(t, err)
	_, err = f.m.Table(ctx, waiting, "t1")
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Empty(t, f.pub.last().Players)

	_, err = f.m.LeaveTable(ctx, waiting, "t1")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestLeaveTableNotSeated(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.CreateTable(context.Background(), "alice", CreateTableRequest{TableID: "t1"})
	require.NoError(t, err)
	_, err = f.m.LeaveTable(context.Background(), "bob", "t1")
	assert.ErrorIs(t, err, engine.ErrNotSeated)
}

func TestBoardSymbols(t *testing.T) {
	assert.Equal(t, "A♠ K♥ 7♦", boardSymbols(table.MustParseCards("As", "Kh", "7d")))
	assert.Equal(t, "", boardSymbols(nil))
}
