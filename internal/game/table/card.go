package table

import (
	"errors"
	"fmt"
)

// ErrInvalidCardFormat 牌面字符串不是 "<rank><suit>" 两个字符
var ErrInvalidCardFormat = errors.New("invalid card format")

const (
	Clubs = iota
	Diamonds
	Hearts
	Spades
)

const (
	MinRank = 2
	MaxRank = 14 // Ace
)

const rankChars = "23456789TJQKA"
const suitChars = "cdhs"

// Card 定义 (suit 0-3, rank 2-14)
// JSON 中以两个字符表示，例如 "Ah"、"Td"
type Card struct {
	Suit int
	Rank int
}

func (c Card) Valid() bool {
	return c.Suit >= Clubs && c.Suit <= Spades && c.Rank >= MinRank && c.Rank <= MaxRank
}

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string([]byte{rankChars[c.Rank-MinRank], suitChars[c.Suit]})
}

// Symbol 用于日志展示，例如 "A♠"
func (c Card) Symbol() string {
	suits := []string{"♣", "♦", "♥", "♠"}
	if !c.Valid() {
		return "?"
	}
	return string(rankChars[c.Rank-MinRank]) + suits[c.Suit]
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: suit=%d rank=%d", ErrInvalidCardFormat, c.Suit, c.Rank)
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard 将 "Ah" / "td" 之类的两个字符转换为 Card
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardFormat, s)
	}
	rank := -1
	for i := 0; i < len(rankChars); i++ {
		if upper(s[0]) == rankChars[i] {
			rank = i + MinRank
			break
		}
	}
	suit := -1
	for i := 0; i < len(suitChars); i++ {
		if lower(s[1]) == suitChars[i] {
			suit = i
			break
		}
	}
	if rank < 0 || suit < 0 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardFormat, s)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// ParseCards 解析一组牌，任意一张失败即返回错误
func ParseCards(tokens ...string) ([]Card, error) {
	out := make([]Card, 0, len(tokens))
	for _, tok := range tokens {
		c, err := ParseCard(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseCards 测试与常量构造使用
func MustParseCards(tokens ...string) []Card {
	cards, err := ParseCards(tokens...)
	if err != nil {
		panic(err)
	}
	return cards
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
