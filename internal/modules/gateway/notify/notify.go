package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soundscape/server/internal/models"
	"go.uber.org/zap"
)

// Outbound event names.
const (
	EventNewNotification   = "new_notification"
	EventNotificationCount = "notification_count_update"
)

const deliveryTimeout = 5 * time.Second

// Store persists notifications.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
}

// Deliverer pushes an event to one principal, best effort.
type Deliverer interface {
	DeliverToPrincipal(principalID, event string, payload any) bool
}

// CountPayload is the body of notification_count_update.
type CountPayload struct {
	Count int64 `json:"count"`
}

// Writer persists notifications and pushes them to the recipient's live
// connection. Pushes run in the background and never fail the caller.
type Writer struct {
	store     Store
	deliverer Deliverer
	logger    *zap.Logger
	wg        sync.WaitGroup
	now       func() time.Time
}

func New(store Store, deliverer Deliverer, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, deliverer: deliverer, logger: logger, now: time.Now}
}

// Notify stores n, assigning its id and creation time, then schedules delivery.
func (w *Writer) Notify(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return errors.New("notification is nil")
	}
	if n.RecipientID == "" {
		return errors.New("notification recipient is required")
	}
	if n.ID == "" {
		n.ID = models.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = w.now()
	}
	if err := w.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	record := *n
	w.async(func() {
		w.deliver(record.RecipientID, EventNewNotification, record)
		w.pushCount(record.RecipientID)
	})
	return nil
}

// PushCount re-sends the unread count in the background.
func (w *Writer) PushCount(recipientID string) {
	w.async(func() { w.pushCount(recipientID) })
}

// Deliver forwards an event without persisting anything.
func (w *Writer) Deliver(principalID, event string, payload any) bool {
	return w.deliver(principalID, event, payload)
}

// Wait blocks until scheduled deliveries finish.
func (w *Writer) Wait() {
	w.wg.Wait()
}

func (w *Writer) async(fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

func (w *Writer) pushCount(recipientID string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	count, err := w.store.UnreadCount(ctx, recipientID)
	if err != nil {
		w.logger.Warn("unread notification count failed", zap.String("recipient", recipientID), zap.Error(err))
		return
	}
	w.deliver(recipientID, EventNotificationCount, CountPayload{Count: count})
}

func (w *Writer) deliver(principalID, event string, payload any) bool {
	if w.deliverer == nil || principalID == "" {
		return false
	}
	delivered := w.deliverer.DeliverToPrincipal(principalID, event, payload)
	if !delivered {
		w.logger.Debug("recipient offline, push skipped", zap.String("recipient", principalID), zap.String("event", event))
	}
	return delivered
}
