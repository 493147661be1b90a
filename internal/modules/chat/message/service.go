package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
)

// Outbound event names.
const (
	EventReceiveMessage    = "receive_message"
	EventUnreadCountUpdate = "unread_count_update"
	EventMessagesRead      = "messages_read"
	EventMessageEdited     = "message_edited"
	EventMessageDeleted    = "message_deleted"
)

const maxContentLength = 2000

var (
	errEmptyContent     = errors.New("message content is required")
	errContentTooLong   = fmt.Errorf("message content exceeds %d characters", maxContentLength)
	errSelfMessage      = errors.New("you cannot message yourself")
	errReceiverNotFound = errors.New("receiver not found")
	errMessageNotFound  = errors.New("message not found")
)

// Deliverer pushes an event to one principal, best effort.
type Deliverer interface {
	Deliver(principalID, event string, payload any) bool
}

// Users checks that a receiver exists.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type UnreadCountPayload struct {
	UserID     string `json:"userId"`
	Count      int64  `json:"count"`
	TotalCount int64  `json:"totalCount"`
}

type MessagesReadPayload struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type UnreadSummary struct {
	Total  int64            `json:"total"`
	ByUser map[string]int64 `json:"byUser"`
}

type Service struct {
	store     Store
	users     Users
	deliverer Deliverer
	now       func() time.Time
}

func NewService(store Store, users Users, deliverer Deliverer) *Service {
	return &Service{store: store, users: users, deliverer: deliverer, now: time.Now}
}

func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", errEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", errContentTooLong
	}
	return content, nil
}

// Send stores the message and pushes it with fresh unread counts to the receiver.
func (s *Service) Send(ctx context.Context, senderID, receiverID, raw string) (*models.Message, error) {
	content, err := normalizeContent(raw)
	if err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, errSelfMessage
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, errReceiverNotFound
	}

	m := &models.Message{
		ID:         models.NewID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.deliver(receiverID, EventReceiveMessage, *m)
	s.pushUnread(ctx, receiverID, senderID)
	return m, nil
}

func (s *Service) Thread(ctx context.Context, userID, peerID string, q pagination.Query) ([]models.Message, response.Pagination, error) {
	return s.store.Thread(ctx, userID, peerID, q)
}

// MarkRead marks the peer's messages as read and tells the peer.
func (s *Service) MarkRead(ctx context.Context, readerID, peerID string) (int64, error) {
	at := s.now()
	n, err := s.store.MarkRead(ctx, readerID, peerID, at)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.deliver(peerID, EventMessagesRead, MessagesReadPayload{UserID: readerID, ReadAt: at})
	}
	s.pushUnread(ctx, readerID, peerID)
	return n, nil
}

func (s *Service) Unread(ctx context.Context, userID string) (*UnreadSummary, error) {
	byUser, err := s.store.UnreadByPeer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UnreadSummary{Total: sum(byUser), ByUser: byUser}, nil
}

func (s *Service) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.store.Conversations(ctx, userID)
}

// Edit lets the sender change a message's content.
func (s *Service) Edit(ctx context.Context, id, senderID, raw string) (*models.Message, error) {
	content, err := normalizeContent(raw)
	if err != nil {
		return nil, err
	}
	m, err := s.store.UpdateContent(ctx, id, senderID, content, s.now())
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errMessageNotFound
	}
	s.deliver(m.ReceiverID, EventMessageEdited, *m)
	return m, nil
}

// Delete lets the sender remove a message.
func (s *Service) Delete(ctx context.Context, id, senderID string) error {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if m == nil || m.SenderID != senderID {
		return errMessageNotFound
	}
	ok, err := s.store.Delete(ctx, id, senderID)
	if err != nil {
		return err
	}
	if !ok {
		return errMessageNotFound
	}
	s.deliver(m.ReceiverID, EventMessageDeleted, id)
	if !m.IsRead {
		s.pushUnread(ctx, m.ReceiverID, senderID)
	}
	return nil
}

// pushUnread tells userID how many unread messages it has from peerID and overall.
func (s *Service) pushUnread(ctx context.Context, userID, peerID string) {
	byUser, err := s.store.UnreadByPeer(ctx, userID)
	if err != nil {
		return
	}
	s.deliver(userID, EventUnreadCountUpdate, UnreadCountPayload{
		UserID:     peerID,
		Count:      byUser[peerID],
		TotalCount: sum(byUser),
	})
}

func (s *Service) deliver(principalID, event string, payload any) {
	if s.deliverer != nil {
		s.deliverer.Deliver(principalID, event, payload)
	}
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}
