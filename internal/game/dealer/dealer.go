package dealer

import (
	"math/rand"
	"sync"

	"HoldemSync/internal/game/table"
)

// DeckSize 一副牌 52 张
const DeckSize = 52

// Dealer 只负责洗牌（无规则判断），可被多个 goroutine 共用
type Dealer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// ShuffledDeck 返回一副新洗好的牌，牌堆顶为下标 0
func (d *Dealer) ShuffledDeck() []table.Card {
	deck := NewDeck()
	d.mu.Lock()
	Shuffle(deck, d.rnd)
	d.mu.Unlock()
	return deck
}

// NewDeck 按花色、点数顺序生成 52 张牌
func NewDeck() []table.Card {
	deck := make([]table.Card, 0, DeckSize)
	for s := table.Clubs; s <= table.Spades; s++ {
		for r := table.MinRank; r <= table.MaxRank; r++ {
			deck = append(deck, table.Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle Fisher–Yates 原地洗牌，随机源由调用方提供
func Shuffle(cards []table.Card, rnd *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Stacked 构造一副指定顶牌的牌：top 依次在最上面，其余牌按 NewDeck 顺序跟在后面。
// 用于测试和重放。
func Stacked(top ...table.Card) []table.Card {
	used := make(map[table.Card]bool, len(top))
	deck := make([]table.Card, 0, DeckSize)
	for _, c := range top {
		if used[c] {
			continue
		}
		used[c] = true
		deck = append(deck, c)
	}
	for _, c := range NewDeck() {
		if !used[c] {
			deck = append(deck, c)
		}
	}
	return deck
}
