// Package settlement awards the pot at the end of a hand.
package settlement

import (
	"HoldemSync/internal/game/evaluator"
	"HoldemSync/internal/game/table"
)

// Award 一个赢家拿到的筹码
type Award struct {
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

// Outcome 一手牌的结算结果
type Outcome struct {
	Pot      int64   `json:"pot"`
	Awards   []Award `json:"awards"`
	Degraded bool    `json:"degraded,omitempty"`
	// Contested 为 false 表示其余人全部弃牌，没有比牌
	Contested bool `json:"contested"`
}

// Winners 赢家 id，按座位顺序
func (o Outcome) Winners() []string {
	out := make([]string, len(o.Awards))
	for i, a := range o.Awards {
		out[i] = a.PlayerID
	}
	return out
}

const degradedName = "unevaluated"

// Settle 在 t 上就地完成结算：收齐下注、比牌、分池，并把牌桌置于 showdown。
// 调用方传入的是引擎的工作副本。
func Settle(t *table.Table) Outcome {
	collectBets(t)
	contenders := t.Contenders()
	out := Outcome{Pot: t.Pot}

	switch {
	case len(contenders) == 0:
		// 理论上不会发生：没人可拿，底池保留到下一手
		finish(t)
		return out
	case len(contenders) == 1:
		// 无需比牌，赢家手牌不公开
		s := &t.Players[contenders[0]]
		s.Stack += t.Pot
		s.IsWinner = true
		out.Awards = []Award{{PlayerID: s.PlayerID, Amount: t.Pot}}
		t.Pot = 0
		finish(t)
		return out
	}

	out.Contested = true
	scores := make(map[int]evaluator.Evaluation, len(contenders))
	for _, i := range contenders {
		s := &t.Players[i]
		cards := make([]table.Card, 0, len(s.Hand)+len(t.Board))
		cards = append(cards, s.Hand...)
		cards = append(cards, t.Board...)
		ev, err := evaluator.Evaluate(cards)
		if err != nil {
			out.Degraded = true
			break
		}
		scores[i] = ev
	}

	var winners []int
	if out.Degraded {
		// 无法比牌时平分给所有争夺者
		winners = contenders
		for _, i := range contenders {
			t.Players[i].EvaluatedHand = &table.EvaluatedHand{Name: degradedName, Degraded: true}
		}
	} else {
		winners = best(contenders, scores)
		for _, i := range contenders {
			ev := scores[i]
			t.Players[i].EvaluatedHand = &table.EvaluatedHand{
				Name:  ev.Name(),
				Rank:  int(ev.Score.Category),
				Score: ev.Score.Value(),
				Cards: ev.Best,
			}
		}
	}

	out.Awards = split(t, winners)
	t.Pot = 0
	finish(t)
	return out
}

func best(contenders []int, scores map[int]evaluator.Evaluation) []int {
	var winners []int
	var top evaluator.Score
	for _, i := range contenders {
		sc := scores[i].Score
		switch {
		case len(winners) == 0 || sc.Compare(top) > 0:
			top = sc
			winners = []int{i}
		case sc.Compare(top) == 0:
			winners = append(winners, i)
		}
	}
	return winners
}

// split 底池平分，余数给座位顺序上的第一个赢家
func split(t *table.Table, winners []int) []Award {
	share := t.Pot / int64(len(winners))
	remainder := t.Pot - share*int64(len(winners))
	awards := make([]Award, 0, len(winners))
	for n, i := range winners {
		amount := share
		if n == 0 {
			amount += remainder
		}
		s := &t.Players[i]
		s.Stack += amount
		s.IsWinner = true
		hand := ""
		if s.EvaluatedHand != nil {
			hand = s.EvaluatedHand.Name
		}
		awards = append(awards, Award{PlayerID: s.PlayerID, Amount: amount, Hand: hand})
	}
	return awards
}

func collectBets(t *table.Table) {
	for i := range t.Players {
		t.Pot += t.Players[i].CurrentBet
		t.Players[i].CurrentBet = 0
	}
}

func finish(t *table.Table) {
	t.Round = table.RoundShowdown
	t.InProgress = false
	t.CurrentPlayerIndex = table.NoPlayer
	t.LastRaiseSize = 0

	// 中途离桌的玩家在结算后移除
	t.RemoveSeats(func(s table.Seat) bool { return s.Leaving })
}
