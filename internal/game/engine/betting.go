package engine

import (
	"fmt"

	"HoldemSync/internal/game/table"
)

// bet 在副本上执行动作，出错时副本作废
func bet(n *table.Table, idx int, action Action) error {
	s := &n.Players[idx]
	highest := n.HighestBet()

	switch a := action.(type) {
	case Fold:
		s.Status = table.StatusFolded
	case Check:
		if s.CurrentBet != highest {
			return fmt.Errorf("%w: %d to call", ErrIllegalCheck, highest-s.CurrentBet)
		}
	case Call:
		// 无需跟注时等同于过牌
		commit(s, min(highest-s.CurrentBet, s.Stack))
	case Raise:
		unit := n.LastRaiseSize
		if unit <= 0 {
			unit = n.Options.BigBlind
		}
		if a.Amount < highest+unit {
			return fmt.Errorf("%w: minimum is %d", ErrRaiseTooSmall, highest+unit)
		}
		delta := a.Amount - s.CurrentBet
		if delta > s.Stack {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientStack, delta, s.Stack)
		}
		commit(s, delta)
		for i := range n.Players {
			if i != idx && n.Players[i].Status == table.StatusActive {
				n.Players[i].HasActed = false
			}
		}
		n.LastRaiserID = s.PlayerID
		n.LastRaiseSize = a.Amount - highest
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
	return nil
}

// commit 从 stack 移到 currentBet，筹码打光即 all-in
func commit(s *table.Seat, amount int64) {
	if amount <= 0 {
		return
	}
	s.Stack -= amount
	s.CurrentBet += amount
	if s.Stack == 0 {
		s.Status = table.StatusAllIn
	}
}

// roundComplete 所有 active 座位都已行动且下注持平（all-in 不需要跟平）
func roundComplete(n *table.Table) bool {
	if len(n.Contenders()) <= 1 {
		return true
	}
	highest := n.HighestBet()
	for _, s := range n.Players {
		if s.Status != table.StatusActive {
			continue
		}
		if !s.HasActed || s.CurrentBet != highest {
			return false
		}
	}
	return true
}

// nextToAct 从 from+1 开始循环查找下一个 active 且未行动的座位
func nextToAct(n *table.Table, from int) int {
	count := len(n.Players)
	for step := 1; step <= count; step++ {
		i := ((from+step)%count + count) % count
		s := n.Players[i]
		if s.Status == table.StatusActive && !s.HasActed {
			return i
		}
	}
	return table.NoPlayer
}
