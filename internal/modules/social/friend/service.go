package friend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soundscape/server/internal/models"
	"go.uber.org/zap"
)

var (
	errSelfRequest     = errors.New("you cannot befriend yourself")
	errAlreadyFriends  = errors.New("already friends")
	errUserNotFound    = errors.New("user not found")
	errRequestNotFound = errors.New("friend request not found")
	errNotFriends      = errors.New("not friends")

	errDuplicateRequest = errors.New("duplicate pending friend request")
)

// Users resolves principals to user records.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Notifier persists and pushes a notification.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Presence reports who is connected right now.
type Presence interface {
	IsOnline(principalID string) bool
}

// decision is the outcome of a new friend request against existing state.
type decision int

const (
	decisionReject decision = iota
	decisionReturnExisting
	decisionAcceptReverse
	decisionCreate
)

// decide picks what a request from A to B does. Friends already: reject.
// A already asked B: hand back that request. B already asked A: accept it.
func decide(alreadyFriends bool, own, reverse *models.FriendRequest) decision {
	switch {
	case alreadyFriends:
		return decisionReject
	case own != nil:
		return decisionReturnExisting
	case reverse != nil:
		return decisionAcceptReverse
	default:
		return decisionCreate
	}
}

// SendResult describes what SendRequest did.
type SendResult struct {
	Request    *models.FriendRequest `json:"request"`
	Friendship *models.Friendship    `json:"friendship,omitempty"`
	Created    bool                  `json:"-"`
}

type FriendView struct {
	models.User
	IsOnline bool `json:"isOnline"`
}

type RequestView struct {
	models.FriendRequest
	Sender   *models.User `json:"sender,omitempty"`
	Receiver *models.User `json:"receiver,omitempty"`
}

type PendingView struct {
	Incoming []RequestView `json:"incoming"`
	Outgoing []RequestView `json:"outgoing"`
}

type Service struct {
	store    Store
	users    Users
	notifier Notifier
	presence Presence
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store Store, users Users, notifier Notifier, presence Presence, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, users: users, notifier: notifier, presence: presence, logger: logger, now: time.Now}
}

func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*SendResult, error) {
	if senderID == receiverID {
		return nil, errSelfRequest
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, errUserNotFound
	}

	friends, err := s.store.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	own, err := s.store.PendingRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	reverse, err := s.store.PendingRequest(ctx, receiverID, senderID)
	if err != nil {
		return nil, err
	}

	switch decide(friends, own, reverse) {
	case decisionReject:
		return nil, errAlreadyFriends
	case decisionReturnExisting:
		return &SendResult{Request: own}, nil
	case decisionAcceptReverse:
		friendship, err := s.accept(ctx, reverse, senderID)
		if err != nil {
			return nil, err
		}
		reverse.Status = models.FriendRequestAccepted
		return &SendResult{Request: reverse, Friendship: friendship}, nil
	}

	req := &models.FriendRequest{SenderID: senderID, ReceiverID: receiverID, Status: models.FriendRequestPending}
	req.Touch(s.now())
	if err := s.store.InsertRequest(ctx, req); err != nil {
		if !errors.Is(err, errDuplicateRequest) {
			return nil, fmt.Errorf("insert friend request: %w", err)
		}
		// A concurrent send won the insert.
		existing, findErr := s.store.PendingRequest(ctx, senderID, receiverID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, fmt.Errorf("insert friend request: %w", err)
		}
		return &SendResult{Request: existing}, nil
	}
	s.notify(ctx, receiverID, senderID, models.NotificationFriendRequest, "Friend request",
		s.nameOf(ctx, senderID)+" sent you a friend request", map[string]any{"requestId": req.ID})
	return &SendResult{Request: req, Created: true}, nil
}

// Accept is called by the receiver of request id.
func (s *Service) Accept(ctx context.Context, id, receiverID string) (*models.Friendship, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || req.ReceiverID != receiverID || req.Status != models.FriendRequestPending {
		return nil, errRequestNotFound
	}
	return s.accept(ctx, req, receiverID)
}

func (s *Service) accept(ctx context.Context, req *models.FriendRequest, receiverID string) (*models.Friendship, error) {
	ok, err := s.store.ResolveRequest(ctx, req.ID, receiverID, models.FriendRequestAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errRequestNotFound
	}
	f := models.NewFriendship(req.SenderID, req.ReceiverID, s.now())
	if err := s.store.InsertFriendship(ctx, f); err != nil {
		return nil, fmt.Errorf("insert friendship: %w", err)
	}
	s.notify(ctx, req.SenderID, receiverID, models.NotificationFriendAccept, "Friend request accepted",
		s.nameOf(ctx, receiverID)+" accepted your friend request", map[string]any{"userId": receiverID})
	return &f, nil
}

func (s *Service) Reject(ctx context.Context, id, receiverID string) error {
	ok, err := s.store.ResolveRequest(ctx, id, receiverID, models.FriendRequestRejected)
	if err != nil {
		return err
	}
	if !ok {
		return errRequestNotFound
	}
	return nil
}

// Cancel withdraws a pending request the caller sent.
func (s *Service) Cancel(ctx context.Context, id, senderID string) error {
	ok, err := s.store.DeleteRequest(ctx, id, senderID)
	if err != nil {
		return err
	}
	if !ok {
		return errRequestNotFound
	}
	return nil
}

func (s *Service) Unfriend(ctx context.Context, userID, otherID string) error {
	ok, err := s.store.DeleteFriendship(ctx, userID, otherID)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFriends
	}
	return nil
}

func (s *Service) Friends(ctx context.Context, userID string) ([]FriendView, error) {
	ids, err := s.store.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]FriendView, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		online := s.presence != nil && s.presence.IsOnline(id)
		out = append(out, FriendView{User: u, IsOnline: online})
	}
	return out, nil
}

func (s *Service) Pending(ctx context.Context, userID string) (*PendingView, error) {
	incoming, outgoing, err := s.store.PendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(incoming)+len(outgoing))
	for _, r := range incoming {
		ids = append(ids, r.SenderID)
	}
	for _, r := range outgoing {
		ids = append(ids, r.ReceiverID)
	}
	byID, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	view := &PendingView{Incoming: make([]RequestView, 0, len(incoming)), Outgoing: make([]RequestView, 0, len(outgoing))}
	for _, r := range incoming {
		view.Incoming = append(view.Incoming, RequestView{FriendRequest: r, Sender: lookup(byID, r.SenderID)})
	}
	for _, r := range outgoing {
		view.Outgoing = append(view.Outgoing, RequestView{FriendRequest: r, Receiver: lookup(byID, r.ReceiverID)})
	}
	return view, nil
}

func lookup(byID map[string]models.User, id string) *models.User {
	if u, ok := byID[id]; ok {
		return &u
	}
	return nil
}

func (s *Service) nameOf(ctx context.Context, id string) string {
	u, err := s.users.GetByID(ctx, id)
	if err != nil || u == nil || u.DisplayName() == "" {
		return "Someone"
	}
	return u.DisplayName()
}

func (s *Service) notify(ctx context.Context, recipient, sender, kind, title, message string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, &models.Notification{
		RecipientID: recipient,
		SenderID:    sender,
		Type:        kind,
		Title:       title,
		Message:     message,
		Data:        data,
	})
	if err != nil {
		s.logger.Warn("friend notification failed", zap.String("type", kind), zap.Error(err))
	}
}
