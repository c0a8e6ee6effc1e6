package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		in   string
		want Card
	}{
		{"Ah", Card{Suit: Hearts, Rank: 14}},
		{"2c", Card{Suit: Clubs, Rank: 2}},
		{"td", Card{Suit: Diamonds, Rank: 10}},
		{"KS", Card{Suit: Spades, Rank: 13}},
	}
	for _, tt := range tests {
		got, err := ParseCard(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCardInvalid(t *testing.T) {
	for _, in := range []string{"", "A", "10h", "1h", "Ax", "zz"} {
		_, err := ParseCard(in)
		assert.ErrorIs(t, err, ErrInvalidCardFormat, in)
	}
}

func TestCardJSONRoundTrip(t *testing.T) {
	cards := MustParseCards("Ah", "Td", "2c")
	b, err := json.Marshal(cards)
	require.NoError(t, err)
	assert.JSONEq(t, `["Ah","Td","2c"]`, string(b))

	var back []Card
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, cards, back)
}

func TestCloneIsDeep(t *testing.T) {
	tb := New("t1", "alice", Options{SmallBlind: 10, BigBlind: 20, MaxPlayers: 9, MinPlayers: 2})
	tb.Players = append(tb.Players, Seat{PlayerID: "alice", Stack: 100, Hand: MustParseCards("Ah", "Kh")})
	tb.Board = MustParseCards("2c", "3c", "4c")

	c := tb.Clone()
	c.Players[0].Hand[0] = MustParseCards("2d")[0]
	c.Players[0].Stack = 1
	c.Board[0] = MustParseCards("9s")[0]

	assert.Equal(t, "Ah", tb.Players[0].Hand[0].String())
	assert.Equal(t, int64(100), tb.Players[0].Stack)
	assert.Equal(t, "2c", tb.Board[0].String())
}

func TestViewForRedactsOtherHands(t *testing.T) {
	tb := New("t1", "alice", Options{BigBlind: 20})
	tb.AccessSecretHash = "hash"
	tb.Deck = MustParseCards("9s", "8s")
	tb.Round = RoundFlop
	tb.Players = []Seat{
		{PlayerID: "alice", Status: StatusActive, Hand: MustParseCards("Ah", "Kh")},
		{PlayerID: "bob", Status: StatusActive, Hand: MustParseCards("2d", "3d")},
	}

	v := tb.ViewFor("alice")
	assert.Nil(t, v.Deck)
	assert.Empty(t, v.AccessSecretHash)
	assert.Len(t, v.Players[0].Hand, 2)
	assert.Nil(t, v.Players[1].Hand)

	// 原始数据不受影响
	assert.Len(t, tb.Players[1].Hand, 2)
	assert.Len(t, tb.Deck, 2)
}

func TestViewForShowdownRevealsEvaluatedHands(t *testing.T) {
	tb := New("t1", "alice", Options{BigBlind: 20})
	tb.Round = RoundShowdown
	tb.Players = []Seat{
		{PlayerID: "alice", Status: StatusActive, Hand: MustParseCards("Ah", "Kh"), EvaluatedHand: &EvaluatedHand{Name: "Pair"}},
		{PlayerID: "bob", Status: StatusFolded, Hand: MustParseCards("2d", "3d")},
		{PlayerID: "carol", Status: StatusAllIn, Hand: MustParseCards("9c", "9d"), EvaluatedHand: &EvaluatedHand{Name: "Pair"}},
	}

	v := tb.ViewFor("spectator")
	assert.Len(t, v.Players[0].Hand, 2)
	assert.Nil(t, v.Players[1].Hand)
	assert.Len(t, v.Players[2].Hand, 2)
}

func TestChipTotal(t *testing.T) {
	tb := New("t1", "alice", Options{})
	tb.Pot = 30
	tb.Players = []Seat{
		{PlayerID: "a", Stack: 100, CurrentBet: 20},
		{PlayerID: "b", Stack: 50, CurrentBet: 10},
	}
	assert.Equal(t, int64(210), tb.ChipTotal())
	assert.Equal(t, int64(20), tb.HighestBet())
}

func TestCardSymbol(t *testing.T) {
	assert.Equal(t, "A♥", MustParseCards("Ah")[0].Symbol())
	assert.Equal(t, "T♣", MustParseCards("Tc")[0].Symbol())
	assert.Equal(t, "?", Card{Suit: 7, Rank: 3}.Symbol())
}
