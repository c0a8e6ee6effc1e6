package table

import "time"

// Round 牌局阶段
type Round string

const (
	RoundPreGame  Round = "pre-game"
	RoundPreFlop  Round = "pre-flop"
	RoundFlop     Round = "flop"
	RoundTurn     Round = "turn"
	RoundRiver    Round = "river"
	RoundShowdown Round = "showdown"
	RoundFinished Round = "finished"
)

// IsBetting 是否处于下注轮
func (r Round) IsBetting() bool {
	switch r {
	case RoundPreFlop, RoundFlop, RoundTurn, RoundRiver:
		return true
	}
	return false
}

// SeatStatus 座位状态
type SeatStatus string

const (
	StatusWaiting SeatStatus = "waiting"
	StatusActive  SeatStatus = "active"
	StatusFolded  SeatStatus = "folded"
	StatusAllIn   SeatStatus = "all-in"
	StatusOut     SeatStatus = "out"
)

// NoPlayer 表示当前没有人需要行动
const NoPlayer = -1

// Options 建桌时确定，之后不再修改
type Options struct {
	SmallBlind int64 `json:"smallBlind"`
	BigBlind   int64 `json:"bigBlind"`
	MaxPlayers int   `json:"maxPlayers"`
	MinPlayers int   `json:"minPlayers"`
}

// EvaluatedHand 摊牌时记录，供前端展示
type EvaluatedHand struct {
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	Score    int64  `json:"score"`
	Cards    []Card `json:"cards,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Seat 座位，按入座顺序排列
type Seat struct {
	PlayerID      string         `json:"playerId"`
	Stack         int64          `json:"stack"`
	Hand          []Card         `json:"hand"`
	CurrentBet    int64          `json:"currentBet"`
	Status        SeatStatus     `json:"status"`
	HasActed      bool           `json:"hasActed"`
	IsWinner      bool           `json:"isWinner"`
	EvaluatedHand *EvaluatedHand `json:"evaluatedHand,omitempty"`
	Leaving       bool           `json:"leaving,omitempty"`
}

// InHand 仍在争夺底池（未弃牌且参与本手）
func (s Seat) InHand() bool {
	return s.Status == StatusActive || s.Status == StatusAllIn
}

// Table 一张牌桌，一手接一手地进行
type Table struct {
	ID               string  `json:"tableId"`
	CreatorID        string  `json:"creatorId"`
	AccessSecretHash string  `json:"accessSecret,omitempty"`
	Options          Options `json:"options"`
	Players          []Seat  `json:"players"`

	// 运行时状态
	Deck               []Card `json:"deck,omitempty"`
	Board              []Card `json:"board"`
	Pot                int64  `json:"pot"`
	Round              Round  `json:"round"`
	InProgress         bool   `json:"inProgress"`
	DealerIndex        int    `json:"dealerIndex"`
	CurrentPlayerIndex int    `json:"currentPlayerIndex"`
	LastRaiserID       string `json:"lastRaiserId,omitempty"`
	LastRaiseSize      int64  `json:"lastRaiseSize"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New 创建一张空桌，尚未开始任何一手
func New(id, creatorID string, opts Options) *Table {
	now := time.Now()
	return &Table{
		ID:                 id,
		CreatorID:          creatorID,
		Options:            opts,
		Players:            []Seat{},
		Board:              []Card{},
		Round:              RoundPreGame,
		DealerIndex:        NoPlayer,
		CurrentPlayerIndex: NoPlayer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone 深拷贝；引擎的每一步都在副本上修改
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	c.Deck = cloneCards(t.Deck)
	c.Board = cloneCards(t.Board)
	c.Players = make([]Seat, len(t.Players))
	for i, s := range t.Players {
		s.Hand = cloneCards(s.Hand)
		if s.EvaluatedHand != nil {
			eh := *s.EvaluatedHand
			eh.Cards = cloneCards(eh.Cards)
			s.EvaluatedHand = &eh
		}
		c.Players[i] = s
	}
	return &c
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// SeatIndex 返回玩家所在座位下标，不在桌上返回 -1
func (t *Table) SeatIndex(playerID string) int {
	for i, s := range t.Players {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Seat 按玩家查找座位
func (t *Table) Seat(playerID string) (*Seat, bool) {
	i := t.SeatIndex(playerID)
	if i < 0 {
		return nil, false
	}
	return &t.Players[i], true
}

// HighestBet 本轮最高下注
func (t *Table) HighestBet() int64 {
	var highest int64
	for _, s := range t.Players {
		if s.CurrentBet > highest {
			highest = s.CurrentBet
		}
	}
	return highest
}

// Contenders 仍在争夺底池的座位下标（按座位顺序）
func (t *Table) Contenders() []int {
	out := make([]int, 0, len(t.Players))
	for i, s := range t.Players {
		if s.InHand() {
			out = append(out, i)
		}
	}
	return out
}

// CountStatus 统计某一状态的座位数
func (t *Table) CountStatus(status SeatStatus) int {
	n := 0
	for _, s := range t.Players {
		if s.Status == status {
			n++
		}
	}
	return n
}

// ChipTotal 桌面筹码总量：所有 stack + 所有 currentBet + pot
func (t *Table) ChipTotal() int64 {
	total := t.Pot
	for _, s := range t.Players {
		total += s.Stack + s.CurrentBet
	}
	return total
}

// PlayerIDs 座位顺序的玩家列表
func (t *Table) PlayerIDs() []string {
	out := make([]string, len(t.Players))
	for i, s := range t.Players {
		out[i] = s.PlayerID
	}
	return out
}

// RemoveSeats 移除满足 drop 的座位，并让 DealerIndex 继续指向同一个（或其前一个）座位。
// 返回移除的数量。
func (t *Table) RemoveSeats(drop func(Seat) bool) int {
	kept := make([]Seat, 0, len(t.Players))
	removed, beforeDealer := 0, 0
	for i, s := range t.Players {
		if drop(s) {
			removed++
			if i <= t.DealerIndex {
				beforeDealer++
			}
			continue
		}
		kept = append(kept, s)
	}
	t.Players = kept
	if t.DealerIndex >= 0 {
		t.DealerIndex -= beforeDealer
	}
	if len(t.Players) == 0 || t.DealerIndex < 0 {
		t.DealerIndex = NoPlayer
	}
	return removed
}

// Summary 大厅列表展示用
type Summary struct {
	TableID     string `json:"tableId"`
	CreatorID   string `json:"creatorId"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Private     bool   `json:"private"`
	InProgress  bool   `json:"inProgress"`
}

func (t *Table) Summary() Summary {
	return Summary{
		TableID:     t.ID,
		CreatorID:   t.CreatorID,
		PlayerCount: len(t.Players),
		MaxPlayers:  t.Options.MaxPlayers,
		Private:     t.AccessSecretHash != "",
		InProgress:  t.InProgress,
	}
}
