// Package evaluator ranks 5 to 7 card poker hands.
//
// A Score is a category plus a tie-break composite. The tie-break lists the
// ranks that matter for the category, most significant first, packed in base
// 15 so that a larger number always means a stronger hand of the same
// category:
//
//	straight / straight flush   high card of the straight (5 for the wheel)
//	four of a kind              quad rank, kicker
//	full house                  trip rank, pair rank
//	flush / high card           five ranks, descending
//	three of a kind             trip rank, two kickers
//	two pair                    high pair, low pair, kicker
//	pair                        pair rank, three kickers
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"HoldemSync/internal/game/table"
)

var (
	ErrInvalidHandSize = errors.New("hand must contain 5 to 7 cards")
	ErrInvalidCard     = errors.New("invalid card in hand")
	ErrDuplicateCard   = errors.New("duplicate card in hand")
)

type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = map[Category]string{
	HighCard:      "High Card",
	OnePair:       "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

const base = 15

// categoryWeight = 15^5 > 任意 tie-break
const categoryWeight int64 = base * base * base * base * base

type Score struct {
	Category Category `json:"category"`
	TieBreak int64    `json:"tieBreak"`
}

// Value 全序整数：category 优先，其次 tie-break
func (s Score) Value() int64 {
	return int64(s.Category)*categoryWeight + s.TieBreak
}

// Compare 返回 -1 / 0 / 1
func (s Score) Compare(o Score) int {
	a, b := s.Value(), o.Value()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Evaluation 最优五张牌及其分数
type Evaluation struct {
	Score Score
	Best  []table.Card
}

func (e Evaluation) Name() string {
	return e.Score.Category.String()
}

// Evaluate 从 5 到 7 张牌中挑出最大的五张组合。
// 对任意合法输入都会返回结果；只有张数不对、牌非法或重复时报错。
func Evaluate(cards []table.Card) (Evaluation, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Evaluation{}, fmt.Errorf("%w: got %d", ErrInvalidHandSize, len(cards))
	}
	seen := make(map[table.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Evaluation{}, fmt.Errorf("%w: %+v", ErrInvalidCard, c)
		}
		if seen[c] {
			return Evaluation{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}

	var best Evaluation
	var hand [5]table.Card
	first := true
	n := len(cards)
	// C(n,5) 最多 21 种组合
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			for c := b + 1; c < n; c++ {
				for d := c + 1; d < n; d++ {
					for e := d + 1; e < n; e++ {
						hand = [5]table.Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						score := score5(hand)
						if first || score.Compare(best.Score) > 0 {
							first = false
							best = Evaluation{Score: score, Best: ordered(hand)}
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate 测试辅助
func MustEvaluate(tokens ...string) Evaluation {
	ev, err := Evaluate(table.MustParseCards(tokens...))
	if err != nil {
		panic(err)
	}
	return ev
}

type group struct {
	rank  int
	count int
}

func score5(hand [5]table.Card) Score {
	counts := make(map[int]int, 5)
	flush := true
	for i, c := range hand {
		counts[c.Rank]++
		if i > 0 && c.Suit != hand[0].Suit {
			flush = false
		}
	}

	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	// 先按张数，再按点数，从大到小
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	ranks := make([]int, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}

	high, straight := straightHigh(groups)
	switch {
	case straight && flush:
		return Score{Category: StraightFlush, TieBreak: composite(high)}
	case groups[0].count == 4:
		return Score{Category: FourOfAKind, TieBreak: composite(ranks...)}
	case groups[0].count == 3 && groups[1].count == 2:
		return Score{Category: FullHouse, TieBreak: composite(ranks...)}
	case flush:
		return Score{Category: Flush, TieBreak: composite(ranks...)}
	case straight:
		return Score{Category: Straight, TieBreak: composite(high)}
	case groups[0].count == 3:
		return Score{Category: ThreeOfAKind, TieBreak: composite(ranks...)}
	case groups[0].count == 2 && groups[1].count == 2:
		return Score{Category: TwoPair, TieBreak: composite(ranks...)}
	case groups[0].count == 2:
		return Score{Category: OnePair, TieBreak: composite(ranks...)}
	}
	return Score{Category: HighCard, TieBreak: composite(ranks...)}
}

// straightHigh 五张不同点数且连续；A-2-3-4-5 视为 5 高
func straightHigh(groups []group) (int, bool) {
	if len(groups) != 5 {
		return 0, false
	}
	top, bottom := groups[0].rank, groups[4].rank
	if top-bottom == 4 {
		return top, true
	}
	if top == table.MaxRank && groups[1].rank == 5 && bottom == 2 {
		return 5, true
	}
	return 0, false
}

func composite(ranks ...int) int64 {
	var v int64
	for _, r := range ranks {
		v = v*base + int64(r)
	}
	return v
}

// ordered 展示顺序：点数从大到小
func ordered(hand [5]table.Card) []table.Card {
	out := hand[:]
	out = append([]table.Card(nil), out...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Suit > out[j].Suit
	})
	return out
}
