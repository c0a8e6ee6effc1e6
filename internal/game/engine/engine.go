// Package engine implements the hold'em betting rules and hand lifecycle.
//
// Every exported function takes a table snapshot and returns a new one; the
// input is never modified. Persisting the result is the caller's job.
package engine

import (
	"HoldemSync/internal/game/settlement"
	"HoldemSync/internal/game/table"
)

// Result 一次状态转换的结果。Outcome 仅在这一步触发了结算时非空。
type Result struct {
	Table   *table.Table
	Outcome *settlement.Outcome
}

// Settled 这一步是否结束了一手牌
func (r Result) Settled() bool {
	return r.Outcome != nil
}

// ApplyAction 校验并执行一个玩家动作
func ApplyAction(t *table.Table, playerID string, action Action) (Result, error) {
	if !t.InProgress || !t.Round.IsBetting() {
		return Result{}, ErrNoBettingRound
	}
	idx := t.SeatIndex(playerID)
	if idx < 0 {
		return Result{}, ErrNotSeated
	}
	if idx != t.CurrentPlayerIndex || t.Players[idx].Status != table.StatusActive {
		return Result{}, ErrNotYourTurn
	}

	n := t.Clone()
	if err := bet(n, idx, action); err != nil {
		return Result{}, err
	}
	n.Players[idx].HasActed = true
	return afterAction(n, idx), nil
}

// afterAction 动作完成后：只剩一人直接结算，本轮结束进入下一阶段，否则轮到下一位
func afterAction(n *table.Table, idx int) Result {
	if len(n.Contenders()) <= 1 {
		return settle(n)
	}
	if roundComplete(n) {
		return advance(n)
	}
	next := nextToAct(n, idx)
	if next == table.NoPlayer {
		return advance(n)
	}
	n.CurrentPlayerIndex = next
	return Result{Table: n}
}

func settle(n *table.Table) Result {
	out := settlement.Settle(n)
	return Result{Table: n, Outcome: &out}
}
