// Package chat publishes global, room and private chat messages on the relay.
// Delivery to clients is done by each node's fan-out dispatcher.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"HoldemSync/internal/relay"
)

const MaxLength = 500

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrMessageTooLong = errors.New("message text too long")
	ErrNotMember      = errors.New("sender is not a member of the room")
	ErrNoRecipient    = errors.New("recipient is required")
)

type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeRoom    Scope = "room"
	ScopePrivate Scope = "private"
)

type Message struct {
	ID     string    `json:"id"`
	Scope  Scope     `json:"scope"`
	From   string    `json:"from"`
	RoomID string    `json:"roomId,omitempty"`
	To     string    `json:"to,omitempty"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// Membership 房间成员校验
type Membership interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

type Service struct {
	pub     relay.Publisher
	members Membership
	log     *log.Logger
}

func NewService(pub relay.Publisher, members Membership, logger *log.Logger) *Service {
	return &Service{pub: pub, members: members, log: logger.WithPrefix("chat")}
}

func (s *Service) SendGlobal(ctx context.Context, from, text string) (Message, error) {
	return s.publish(ctx, relay.GlobalChatTopic, Message{Scope: ScopeGlobal, From: from, Text: text})
}

// SendRoom 只有房间成员可以发言
func (s *Service) SendRoom(ctx context.Context, from, roomID, text string) (Message, error) {
	ok, err := s.members.IsMember(ctx, roomID, from)
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrNotMember, roomID)
	}
	return s.publish(ctx, relay.RoomChatTopic(roomID), Message{Scope: ScopeRoom, From: from, RoomID: roomID, Text: text})
}

func (s *Service) SendPrivate(ctx context.Context, from, to, text string) (Message, error) {
	if strings.TrimSpace(to) == "" {
		return Message{}, ErrNoRecipient
	}
	return s.publish(ctx, relay.UserChatTopic(to), Message{Scope: ScopePrivate, From: from, To: to, Text: text})
}

func (s *Service) publish(ctx context.Context, topic string, m Message) (Message, error) {
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(m.Text) > MaxLength {
		return Message{}, ErrMessageTooLong
	}
	m.ID = uuid.NewString()
	m.SentAt = time.Now().UTC()
	if err := s.pub.Publish(ctx, topic, m); err != nil {
		s.log.Error("publish chat", "topic", topic, "err", err)
		return Message{}, err
	}
	return m, nil
}

// IsValidation 调用方输入错误
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong) || errors.Is(err, ErrNoRecipient)
}
