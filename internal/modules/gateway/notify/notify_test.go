package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soundscape/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	items     []models.Notification
	insertErr error
}

func (s *memStore) Insert(_ context.Context, n *models.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *n)
	return nil
}

func (s *memStore) UnreadCount(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.RecipientID == id && !item.IsRead {
			n++
		}
	}
	return n, nil
}

type delivery struct {
	to      string
	event   string
	payload any
}

type fakeDeliverer struct {
	mu     sync.Mutex
	online map[string]bool
	sent   []delivery
}

func (d *fakeDeliverer) DeliverToPrincipal(id, event string, payload any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[id] {
		return false
	}
	d.sent = append(d.sent, delivery{id, event, payload})
	return true
}

func TestNotifyPersistsAndDelivers(t *testing.T) {
	store := &memStore{}
	d := &fakeDeliverer{online: map[string]bool{"u2": true}}
	w := New(store, d, nil)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	n := &models.Notification{RecipientID: "u2", SenderID: "u1", Type: models.NotificationFollow, Title: "New follower"}
	require.NoError(t, w.Notify(context.Background(), n))
	w.Wait()

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, now, n.CreatedAt)
	require.Len(t, store.items, 1)

	require.Len(t, d.sent, 2)
	assert.Equal(t, EventNewNotification, d.sent[0].event)
	assert.Equal(t, *n, d.sent[0].payload)
	assert.Equal(t, delivery{"u2", EventNotificationCount, CountPayload{Count: 1}}, d.sent[1])
}

func TestNotifyOfflineRecipientStillPersists(t *testing.T) {
	store := &memStore{}
	d := &fakeDeliverer{}
	w := New(store, d, nil)

	require.NoError(t, w.Notify(context.Background(), &models.Notification{RecipientID: "u9"}))
	w.Wait()

	assert.Len(t, store.items, 1)
	assert.Empty(t, d.sent)
}

func TestNotifyStoreFailure(t *testing.T) {
	store := &memStore{insertErr: errors.New("disk full")}
	d := &fakeDeliverer{online: map[string]bool{"u2": true}}
	w := New(store, d, nil)

	err := w.Notify(context.Background(), &models.Notification{RecipientID: "u2"})
	w.Wait()

	assert.Error(t, err)
	assert.Empty(t, d.sent)
}

func TestNotifyRequiresRecipient(t *testing.T) {
	w := New(&memStore{}, &fakeDeliverer{}, nil)
	assert.Error(t, w.Notify(context.Background(), &models.Notification{}))
	assert.Error(t, w.Notify(context.Background(), nil))
}

func TestDeliverPassthrough(t *testing.T) {
	d := &fakeDeliverer{online: map[string]bool{"u1": true}}
	w := New(&memStore{}, d, nil)

	assert.True(t, w.Deliver("u1", "receive_message", "hi"))
	assert.False(t, w.Deliver("u2", "receive_message", "hi"))
	assert.False(t, w.Deliver("", "receive_message", "hi"))
}
