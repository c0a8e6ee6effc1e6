package table

// Broadcastable 通过 relay 在节点之间传播的快照：不含牌堆与密码哈希，
// 底牌仍保留，由投递节点按接收者再做脱敏。
func (t *Table) Broadcastable() *Table {
	c := t.Clone()
	c.Deck = nil
	c.AccessSecretHash = ""
	return c
}

// ViewFor 返回某个用户可见的快照。
// 底牌只对本人可见；摊牌阶段，参与比牌（有 EvaluatedHand）的座位全部亮牌。
func (t *Table) ViewFor(userID string) *Table {
	c := t.Broadcastable()
	for i := range c.Players {
		s := &c.Players[i]
		if s.PlayerID == userID || revealed(c, s) {
			continue
		}
		s.Hand = nil
	}
	return c
}

func revealed(t *Table, s *Seat) bool {
	return t.Round == RoundShowdown && s.Status != StatusFolded && s.EvaluatedHand != nil
}
