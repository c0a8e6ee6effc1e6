package engine

import (
	"fmt"

	"HoldemSync/internal/game/dealer"
	"HoldemSync/internal/game/table"
)

// 每个阶段翻开的公共牌数量
var boardCards = map[table.Round]int{
	table.RoundPreFlop: 3,
	table.RoundFlop:    1,
	table.RoundTurn:    1,
}

var nextRound = map[table.Round]table.Round{
	table.RoundPreFlop: table.RoundFlop,
	table.RoundFlop:    table.RoundTurn,
	table.RoundTurn:    table.RoundRiver,
}

// StartHand 开始新的一手：剔除没有筹码的座位，轮转庄家，下盲注，发底牌。
// deck 为洗好的 52 张牌，下标 0 为牌堆顶。
func StartHand(t *table.Table, deck []table.Card) (Result, error) {
	if t.InProgress {
		return Result{}, ErrHandInProgress
	}
	if err := checkDeck(deck); err != nil {
		return Result{}, err
	}

	eligible := 0
	for _, s := range t.Players {
		if eligibleForHand(s) {
			eligible++
		}
	}
	if eligible < max(t.Options.MinPlayers, 2) {
		return Result{}, fmt.Errorf("%w: %d of %d", ErrNotEnoughPlayers, eligible, max(t.Options.MinPlayers, 2))
	}

	n := t.Clone()
	n.RemoveSeats(func(s table.Seat) bool { return !eligibleForHand(s) })

	n.Deck = append([]table.Card(nil), deck...)
	n.Board = []table.Card{}
	n.Pot = 0
	n.LastRaiserID = ""
	n.LastRaiseSize = 0
	for i := range n.Players {
		s := &n.Players[i]
		s.Hand = nil
		s.CurrentBet = 0
		s.Status = table.StatusActive
		s.HasActed = false
		s.IsWinner = false
		s.EvaluatedHand = nil
	}

	count := len(n.Players)
	n.DealerIndex = (n.DealerIndex + 1) % count
	sb := (n.DealerIndex + 1) % count
	bb := (n.DealerIndex + 2) % count
	commit(&n.Players[sb], min(n.Options.SmallBlind, n.Players[sb].Stack))
	commit(&n.Players[bb], min(n.Options.BigBlind, n.Players[bb].Stack))
	n.LastRaiserID = n.Players[bb].PlayerID

	// 从庄家下家开始，每人一张，发两圈
	for round := 0; round < 2; round++ {
		for step := 1; step <= count; step++ {
			s := &n.Players[(n.DealerIndex+step)%count]
			s.Hand = append(s.Hand, draw(n, 1)...)
		}
	}

	n.Round = table.RoundPreFlop
	n.InProgress = true
	n.CurrentPlayerIndex = nextToAct(n, bb)
	if n.CurrentPlayerIndex == table.NoPlayer {
		return advance(n), nil
	}
	return Result{Table: n}, nil
}

func eligibleForHand(s table.Seat) bool {
	return s.Stack > 0 && !s.Leaving
}

// advance 收齐本轮下注并进入下一阶段；没有可以下注的人时自动发完公共牌
func advance(n *table.Table) Result {
	for {
		for i := range n.Players {
			s := &n.Players[i]
			n.Pot += s.CurrentBet
			s.CurrentBet = 0
			s.HasActed = false
		}
		n.LastRaiserID = ""
		n.LastRaiseSize = 0

		if n.Round == table.RoundRiver || len(n.Contenders()) <= 1 {
			return settle(n)
		}
		n.Board = append(n.Board, draw(n, boardCards[n.Round])...)
		n.Round = nextRound[n.Round]

		if n.CountStatus(table.StatusActive) >= 2 {
			n.CurrentPlayerIndex = nextToAct(n, n.DealerIndex)
			return Result{Table: n}
		}
		n.CurrentPlayerIndex = table.NoPlayer
	}
}

// draw 从牌堆顶取 k 张
func draw(n *table.Table, k int) []table.Card {
	if k > len(n.Deck) {
		k = len(n.Deck)
	}
	cards := append([]table.Card(nil), n.Deck[:k]...)
	n.Deck = n.Deck[k:]
	return cards
}

func checkDeck(deck []table.Card) error {
	if len(deck) != dealer.DeckSize {
		return fmt.Errorf("%w: %d cards", ErrInvalidDeck, len(deck))
	}
	seen := make(map[table.Card]bool, len(deck))
	for _, c := range deck {
		if !c.Valid() || seen[c] {
			return fmt.Errorf("%w: bad or repeated card %s", ErrInvalidDeck, c)
		}
		seen[c] = true
	}
	return nil
}
