package engine

import (
	"fmt"

	"HoldemSync/internal/game/table"
)

// AddPlayer 入座。牌局进行中加入的玩家状态为 waiting，下一手才参与。
func AddPlayer(t *table.Table, playerID string, stack int64) (*table.Table, error) {
	if stack <= 0 {
		return nil, ErrInvalidStack
	}
	if t.SeatIndex(playerID) >= 0 {
		return nil, ErrAlreadySeated
	}
	if t.Options.MaxPlayers > 0 && len(t.Players) >= t.Options.MaxPlayers {
		return nil, fmt.Errorf("%w: %d seats", ErrTableFull, t.Options.MaxPlayers)
	}
	n := t.Clone()
	n.Players = append(n.Players, table.Seat{
		PlayerID: playerID,
		Stack:    stack,
		Status:   table.StatusWaiting,
	})
	return n, nil
}

// RemovePlayer 离桌。没有进行中的一手时直接移除座位；
// 否则该座位弃牌（轮到他时等同于一次 fold），并在结算后移除。
func RemovePlayer(t *table.Table, playerID string) (Result, error) {
	idx := t.SeatIndex(playerID)
	if idx < 0 {
		return Result{}, ErrNotSeated
	}
	n := t.Clone()
	if !n.InProgress {
		n.RemoveSeats(func(s table.Seat) bool { return s.PlayerID == playerID })
		return Result{Table: n}, nil
	}

	s := &n.Players[idx]
	s.Leaving = true
	if !s.InHand() {
		return Result{Table: n}, nil
	}
	s.Status = table.StatusFolded
	s.HasActed = true
	if idx == n.CurrentPlayerIndex {
		return afterAction(n, idx), nil
	}
	if len(n.Contenders()) <= 1 {
		return settle(n), nil
	}
	if n.CountStatus(table.StatusActive) == 0 || roundComplete(n) {
		return advance(n), nil
	}
	return Result{Table: n}, nil
}
