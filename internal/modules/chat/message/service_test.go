package message

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	msgs []*models.Message
}

func (s *memStore) Insert(_ context.Context, m *models.Message) error {
	cp := *m
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Message, error) {
	for _, m := range s.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Thread(_ context.Context, a, b string, q pagination.Query) ([]models.Message, response.Pagination, error) {
	var out []models.Message
	for _, m := range s.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, pagination.Meta(q, int64(len(out))), nil
}

func (s *memStore) MarkRead(_ context.Context, readerID, peerID string, at time.Time) (int64, error) {
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == peerID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (s *memStore) UnreadByPeer(_ context.Context, receiverID string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, m := range s.msgs {
		if m.ReceiverID == receiverID && !m.IsRead {
			out[m.SenderID]++
		}
	}
	return out, nil
}

func (s *memStore) Conversations(_ context.Context, userID string) ([]models.Conversation, error) {
	return nil, nil
}

func (s *memStore) UpdateContent(_ context.Context, id, senderID, content string, at time.Time) (*models.Message, error) {
	for _, m := range s.msgs {
		if m.ID == id && m.SenderID == senderID {
			m.Content = content
			t := at
			m.EditedAt = &t
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Delete(_ context.Context, id, senderID string) (bool, error) {
	for i, m := range s.msgs {
		if m.ID == id && m.SenderID == senderID {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memUsers map[string]*models.User

func (u memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return u[id], nil
}

type delivery struct {
	to      string
	event   string
	payload any
}

type recorder struct{ sent []delivery }

func (r *recorder) Deliver(principalID, event string, payload any) bool {
	r.sent = append(r.sent, delivery{to: principalID, event: event, payload: payload})
	return true
}

func (r *recorder) events(to string) []string {
	var out []string
	for _, d := range r.sent {
		if d.to == to {
			out = append(out, d.event)
		}
	}
	return out
}

func newService() (*Service, *memStore, *recorder) {
	store := &memStore{}
	rec := &recorder{}
	users := memUsers{
		"amy": {ID: "amy", FullName: "Amy"},
		"bob": {ID: "bob", FullName: "Bob"},
		"cat": {ID: "cat", FullName: "Cat"},
	}
	svc := NewService(store, users, rec)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, store, rec
}

func TestSendDeliversMessageAndCounts(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "amy", "bob", "  hey  ")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "cat", "bob", "yo")
	require.NoError(t, err)
	m, err := svc.Send(ctx, "amy", "bob", "listening?")
	require.NoError(t, err)
	assert.Equal(t, "listening?", m.Content)

	assert.Equal(t, []string{
		EventReceiveMessage, EventUnreadCountUpdate,
		EventReceiveMessage, EventUnreadCountUpdate,
		EventReceiveMessage, EventUnreadCountUpdate,
	}, rec.events("bob"))
	assert.Empty(t, rec.events("amy"))

	last := rec.sent[len(rec.sent)-1].payload.(UnreadCountPayload)
	assert.Equal(t, UnreadCountPayload{UserID: "amy", Count: 2, TotalCount: 3}, last)
}

func TestSendValidation(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "amy", "bob", "   ")
	assert.ErrorIs(t, err, errEmptyContent)
	_, err = svc.Send(ctx, "amy", "bob", strings.Repeat("a", maxContentLength+1))
	assert.ErrorIs(t, err, errContentTooLong)
	_, err = svc.Send(ctx, "amy", "amy", "me")
	assert.ErrorIs(t, err, errSelfMessage)
	_, err = svc.Send(ctx, "amy", "ghost", "hi")
	assert.ErrorIs(t, err, errReceiverNotFound)
	assert.Empty(t, rec.sent)
}

func TestMarkReadNotifiesPeer(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()
	_, _ = svc.Send(ctx, "amy", "bob", "one")
	_, _ = svc.Send(ctx, "amy", "bob", "two")
	rec.sent = nil

	n, err := svc.MarkRead(ctx, "bob", "amy")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.Equal(t, []string{EventMessagesRead}, rec.events("amy"))
	read := rec.sent[0].payload.(MessagesReadPayload)
	assert.Equal(t, "bob", read.UserID)
	assert.False(t, read.ReadAt.IsZero())

	require.Equal(t, []string{EventUnreadCountUpdate}, rec.events("bob"))
	assert.Equal(t, UnreadCountPayload{UserID: "amy"}, rec.sent[1].payload)

	rec.sent = nil
	n, err = svc.MarkRead(ctx, "bob", "amy")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.events("amy"))

	summary, err := svc.Unread(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestEditAndDeleteAreSenderOnly(t *testing.T) {
	svc, store, rec := newService()
	ctx := context.Background()
	m, err := svc.Send(ctx, "amy", "bob", "helo")
	require.NoError(t, err)
	rec.sent = nil

	_, err = svc.Edit(ctx, m.ID, "bob", "hijack")
	assert.ErrorIs(t, err, errMessageNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, m.ID, "bob"), errMessageNotFound)

	edited, err := svc.Edit(ctx, m.ID, "amy", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content)
	assert.NotNil(t, edited.EditedAt)

	require.NoError(t, svc.Delete(ctx, m.ID, "amy"))
	assert.Empty(t, store.msgs)
	assert.Equal(t, []string{EventMessageEdited, EventMessageDeleted, EventUnreadCountUpdate}, rec.events("bob"))
	assert.Equal(t, m.ID, rec.sent[1].payload)
}

func TestHandlerSend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newService()
	h := NewHandler(svc)

	send := func(body string) int {
		r := gin.New()
		r.POST("/messages", func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, "amy")
		}, h.send)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, send(`{"receiverId":"bob","content":"hi"}`))
	assert.Equal(t, http.StatusBadRequest, send(`{"receiverId":"bob","content":""}`))
	assert.Equal(t, http.StatusBadRequest, send(`{"content":"hi"}`))
	assert.Equal(t, http.StatusNotFound, send(`{"receiverId":"ghost","content":"hi"}`))
}

func TestHandlerRoutesByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, store, _ := newService()
	m, err := svc.Send(context.Background(), "amy", "bob", "hey")
	require.NoError(t, err)

	r := gin.New()
	as := func(c *gin.Context) { c.Set(middleware.ContextKeyUserID, c.GetHeader("X-User")) }
	NewHandler(svc).RegisterRoutes(r.Group(""), as)

	do := func(method, path, user, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User", user)
		r.ServeHTTP(w, req)
		return w
	}

	// the thread routes take a peer id
	w := do(http.MethodGet, "/messages/amy", "bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hey"`)

	w = do(http.MethodPost, "/messages/amy/read", "bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())

	// edit and delete take a message id
	w = do(http.MethodPatch, "/messages/"+m.ID, "amy", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hello"`)

	w = do(http.MethodPatch, "/messages/bob", "amy", `{"content":"hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(http.MethodDelete, "/messages/"+m.ID, "amy", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.msgs)
}
