// Package manager is the table service each node runs: it loads a table,
// applies an engine transition, commits it through the version guard and
// publishes the new snapshot.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"HoldemSync/internal/game/engine"
	"HoldemSync/internal/game/settlement"
	"HoldemSync/internal/game/table"
	"HoldemSync/internal/relay"
	"HoldemSync/internal/tablestore"
)

// 牌桌最多 23 人：2*23 + 5 = 51 张牌
const MaxSeats = 23

var (
	ErrTableExists   = tablestore.ErrAlreadyExists
	ErrTableNotFound = tablestore.ErrNotFound
	ErrTableFull     = engine.ErrTableFull
	ErrAlreadySeated = engine.ErrAlreadySeated

	ErrWrongSecret    = errors.New("wrong table secret")
	ErrNotCreator     = errors.New("only the table creator can start a hand")
	ErrInvalidOptions = errors.New("invalid table options")
)

// Defaults 建桌时未指定的参数
type Defaults struct {
	SmallBlind int64
	BigBlind   int64
	MaxPlayers int
	MinPlayers int
	Stack      int64
}

// Deck 每手牌提供一副洗好的牌（dealer.Dealer）
type Deck interface {
	ShuffledDeck() []table.Card
}

// Rooms 牌桌对应的房间成员（presence.Registry）
type Rooms interface {
	JoinRoom(ctx context.Context, roomID, userID string) error
	LeaveRoom(ctx context.Context, roomID, userID string) error
}

type Options struct {
	Defaults Defaults
	// RetryAttempts 入座 / 离座遇到并发冲突时的最大尝试次数
	RetryAttempts int
}

type Manager struct {
	repo     tablestore.Repo
	deck     Deck
	pub      relay.Publisher
	rooms    Rooms
	defaults Defaults
	attempts int
	log      *log.Logger
}

func New(repo tablestore.Repo, deck Deck, pub relay.Publisher, rooms Rooms, opts Options, logger *log.Logger) *Manager {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 10
	}
	return &Manager{
		repo:     repo,
		deck:     deck,
		pub:      pub,
		rooms:    rooms,
		defaults: opts.Defaults,
		attempts: opts.RetryAttempts,
		log:      logger.WithPrefix("manager"),
	}
}

type CreateTableRequest struct {
	TableID    string `json:"tableId"`
	Secret     string `json:"secret"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MaxPlayers int    `json:"maxPlayers"`
	MinPlayers int    `json:"minPlayers"`
	Stack      int64  `json:"stack"`
}

func (m *Manager) options(req CreateTableRequest) (table.Options, error) {
	opts := table.Options{
		SmallBlind: pick(req.SmallBlind, m.defaults.SmallBlind),
		BigBlind:   pick(req.BigBlind, m.defaults.BigBlind),
		MaxPlayers: pick(req.MaxPlayers, m.defaults.MaxPlayers),
		MinPlayers: pick(req.MinPlayers, m.defaults.MinPlayers),
	}
	switch {
	case opts.SmallBlind <= 0 || opts.BigBlind < opts.SmallBlind:
		return opts, fmt.Errorf("%w: blinds %d/%d", ErrInvalidOptions, opts.SmallBlind, opts.BigBlind)
	case opts.MaxPlayers < 2 || opts.MaxPlayers > MaxSeats:
		return opts, fmt.Errorf("%w: maxPlayers %d", ErrInvalidOptions, opts.MaxPlayers)
	case opts.MinPlayers < 2 || opts.MinPlayers > opts.MaxPlayers:
		return opts, fmt.Errorf("%w: minPlayers %d", ErrInvalidOptions, opts.MinPlayers)
	}
	return opts, nil
}

func pick[T int | int64](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// CreateTable 建桌，创建者以 waiting 状态入座并加入房间
func (m *Manager) CreateTable(ctx context.Context, creatorID string, req CreateTableRequest) (*table.Table, error) {
	opts, err := m.options(req)
	if err != nil {
		return nil, err
	}
	id := req.TableID
	if id == "" {
		id = uuid.NewString()
	}

	t := table.New(id, creatorID, opts)
	if req.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		t.AccessSecretHash = string(hash)
	}
	t, err = engine.AddPlayer(t, creatorID, pick(req.Stack, m.defaults.Stack))
	if err != nil {
		return nil, err
	}

	saved, err := m.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	m.joinRoom(ctx, id, creatorID)
	m.log.Info("table created", "table", id, "creator", creatorID)
	m.publish(ctx, saved)
	return saved.ViewFor(creatorID), nil
}

// JoinTable 入座。牌局进行中入座的玩家等到下一手。
func (m *Manager) JoinTable(ctx context.Context, userID, tableID, secret string, stack int64) (*table.Table, error) {
	stack = pick(stack, m.defaults.Stack)
	verified := false
	saved, err := tablestore.MutateRetry(ctx, m.repo, tableID, m.attempts, func(cur *table.Table) (*table.Table, error) {
		if !verified && cur.AccessSecretHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(cur.AccessSecretHash), []byte(secret)) != nil {
				return nil, ErrWrongSecret
			}
		}
		verified = true
		return engine.AddPlayer(cur, userID, stack)
	})
	if err != nil {
		return nil, err
	}
	m.joinRoom(ctx, tableID, userID)
	m.log.Info("player joined", "table", tableID, "user", userID, "seats", len(saved.Players))
	m.publish(ctx, saved)
	return saved.ViewFor(userID), nil
}

// LeaveTable 离桌；牌局中离开等同于弃牌，结算后移除座位。最后一人离开时删除牌桌。
func (m *Manager) LeaveTable(ctx context.Context, userID, tableID string) (*table.Table, error) {
	var outcome *settlement.Outcome
	saved, err := tablestore.MutateRetry(ctx, m.repo, tableID, m.attempts, func(cur *table.Table) (*table.Table, error) {
		res, err := engine.RemovePlayer(cur, userID)
		if err != nil {
			return nil, err
		}
		outcome = res.Outcome
		return res.Table, nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.rooms.LeaveRoom(ctx, tableID, userID); err != nil {
		m.log.Error("leave room", "table", tableID, "user", userID, "err", err)
	}
	if len(saved.Players) == 0 {
		m.log.Info("table closed", "table", tableID)
	} else {
		m.log.Info("player left", "table", tableID, "user", userID)
	}
	m.logOutcome(saved, outcome)
	m.publish(ctx, saved)
	return saved.ViewFor(userID), nil
}

// StartHand 只有创建者可以开始新的一手
func (m *Manager) StartHand(ctx context.Context, userID, tableID string) (*table.Table, error) {
	var outcome *settlement.Outcome
	saved, err := tablestore.Mutate(ctx, m.repo, tableID, func(cur *table.Table) (*table.Table, error) {
		if cur.CreatorID != userID {
			return nil, ErrNotCreator
		}
		res, err := engine.StartHand(cur, m.deck.ShuffledDeck())
		if err != nil {
			return nil, err
		}
		outcome = res.Outcome
		return res.Table, nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("hand started", "table", tableID, "dealer", saved.DealerIndex, "seats", len(saved.Players))
	m.logOutcome(saved, outcome)
	m.publish(ctx, saved)
	return saved.ViewFor(userID), nil
}

// Act 执行一个下注动作；并发冲突直接返回给调用方
func (m *Manager) Act(ctx context.Context, userID, tableID string, action engine.Action) (*table.Table, error) {
	var outcome *settlement.Outcome
	saved, err := tablestore.Mutate(ctx, m.repo, tableID, func(cur *table.Table) (*table.Table, error) {
		res, err := engine.ApplyAction(cur, userID, action)
		if err != nil {
			return nil, err
		}
		outcome = res.Outcome
		return res.Table, nil
	})
	if err != nil {
		m.log.Debug("action rejected", "table", tableID, "user", userID, "action", action.Name(), "err", err)
		return nil, err
	}
	m.log.Debug("action", "table", tableID, "user", userID, "action", action.Name(), "round", saved.Round)
	m.logOutcome(saved, outcome)
	m.publish(ctx, saved)
	return saved.ViewFor(userID), nil
}

// Table 按 userID 脱敏后的牌桌
func (m *Manager) Table(ctx context.Context, userID, tableID string) (*table.Table, error) {
	t, err := m.repo.Get(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return t.ViewFor(userID), nil
}

// OpenTables 没有进行中牌局的桌子，顺序与存储的 List 一致
func (m *Manager) OpenTables(ctx context.Context) ([]table.Summary, error) {
	all, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]table.Summary, 0, len(all))
	for _, t := range all {
		if !t.InProgress {
			out = append(out, t.Summary())
		}
	}
	return out, nil
}

func (m *Manager) joinRoom(ctx context.Context, tableID, userID string) {
	if err := m.rooms.JoinRoom(ctx, tableID, userID); err != nil {
		m.log.Error("join room", "table", tableID, "user", userID, "err", err)
	}
}

// publish 失败只记录日志，已提交的状态不回滚
func (m *Manager) publish(ctx context.Context, t *table.Table) {
	if err := m.pub.Publish(ctx, relay.GameTopic(t.ID), t.Broadcastable()); err != nil {
		m.log.Error("publish snapshot", "table", t.ID, "version", t.Version, "err", err)
	}
}

func (m *Manager) logOutcome(t *table.Table, o *settlement.Outcome) {
	if o == nil {
		return
	}
	if o.Degraded {
		m.log.Warn("hand settled without evaluation", "table", t.ID, "reason", "evaluation failed", "pot", o.Pot)
	}
	m.log.Info("hand settled", "table", t.ID, "pot", o.Pot, "winners", o.Winners(),
		"contested", o.Contested, "board", boardSymbols(t.Board))
}

// boardSymbols 日志用，例如 "A♠ K♥ 7♦"
func boardSymbols(cards []table.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Symbol()
	}
	return strings.Join(parts, " ")
}
