// Package notification fans player notifications out to subscribers.
//
// Every subscriber owns a mailbox drained by its own goroutine, so Broadcast
// never waits on a client and a slow remote only falls behind itself. Volume
// changes coalesce in the mailbox: a subscriber that has not caught up only
// receives the latest volume. A mailbox that overflows drops its oldest
// notification.
package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
)

const (
	// DefaultMailboxSize is the number of undelivered notifications kept per subscriber.
	DefaultMailboxSize = 64
	// DefaultMaxSendFailures is the number of consecutive failed sends after
	// which a subscriber is dropped.
	DefaultMaxSendFailures = 3
	// DefaultCloseTimeout bounds how long Close waits for in-flight sends.
	DefaultCloseTimeout = 2 * time.Second
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*playerv1.Notification) error
}

// coalesces reports whether a pending notification of type t is superseded
// by a newer one of the same type.
func coalesces(t playerv1.NotificationType) bool {
	return t == playerv1.NotificationTypeVolumeChanged
}

// mailbox queues notifications for one subscriber.
type mailbox struct {
	id     string
	stream Stream

	mu       sync.Mutex
	pending  []*playerv1.Notification
	dropped  int
	closed   bool
	wake     chan struct{}
	finished chan struct{}
}

func newMailbox(id string, stream Stream) *mailbox {
	return &mailbox{
		id:       id,
		stream:   stream,
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
}

// put queues n, replacing a pending notification it supersedes.
func (b *mailbox) put(n *playerv1.Notification, limit int) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if coalesces(n.Type) {
		b.pending = slices.DeleteFunc(b.pending, func(p *playerv1.Notification) bool {
			return p.Type == n.Type
		})
	}
	if len(b.pending) >= limit {
		b.pending = b.pending[1:]
		b.dropped++
		if b.dropped == 1 || b.dropped%100 == 0 {
			zlog.Warn().Msgf("notification: subscriber falling behind, dropping oldest: subscription_id=%s dropped=%d", b.id, b.dropped)
		}
	}
	b.pending = append(b.pending, n)
	b.mu.Unlock()

	b.signal()
}

// next pops the oldest pending notification. It returns nil when the mailbox
// is empty or closed.
func (b *mailbox) next() (*playerv1.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, true
	}
	if len(b.pending) == 0 {
		return nil, false
	}
	n := b.pending[0]
	b.pending[0] = nil
	b.pending = b.pending[1:]
	return n, false
}

func (b *mailbox) close() {
	b.mu.Lock()
	b.closed = true
	b.pending = nil
	b.mu.Unlock()
	b.signal()
}

func (b *mailbox) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// run delivers notifications in order until the mailbox is closed or the
// stream fails maxFailures times in a row.
func (b *mailbox) run(maxFailures int, onGiveUp func()) {
	defer close(b.finished)

	failures := 0
	for range b.wake {
		for {
			n, closed := b.next()
			if closed {
				return
			}
			if n == nil {
				break
			}
			if err := b.stream.Send(n); err != nil {
				failures++
				zlog.Debug().Msgf("notification: send failed: subscription_id=%s failures=%d err=%v", b.id, failures, err)
				if failures >= maxFailures {
					b.close()
					onGiveUp()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu          sync.Mutex
	mailboxes   map[string]*mailbox
	sequenceNo  uint64
	mailboxSize int
	maxFailures int
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		mailboxes:   make(map[string]*mailbox),
		mailboxSize: DefaultMailboxSize,
		maxFailures: DefaultMaxSendFailures,
	}
}

// Subscribe adds a new subscription and returns the subscription ID. stream
// receives every notification broadcast from now on, in sequence order.
func (m *Manager) Subscribe(stream Stream) string {
	id := uuid.New().String()
	box := newMailbox(id, stream)

	m.mu.Lock()
	m.mailboxes[id] = box
	count := len(m.mailboxes)
	m.mu.Unlock()

	go box.run(m.maxFailures, func() {
		zlog.Info().Msgf("notification: dropping subscriber after repeated send failures: subscription_id=%s", id)
		m.remove(id)
	})

	zlog.Debug().Msgf("notification: subscribed: subscription_id=%s subscribers=%d", id, count)
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription. When it returns the stream is no
// longer in use.
func (m *Manager) Unsubscribe(subscriptionID string) {
	box := m.remove(subscriptionID)
	if box == nil {
		return
	}
	box.close()
	<-box.finished
}

// Broadcast stamps the notification with the next sequence number and queues
// it for every subscriber. It does not wait for delivery.
func (m *Manager) Broadcast(notification *playerv1.Notification) {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	// Holding mu across numbering and queueing keeps every mailbox in
	// sequence order.
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	notification.SequenceNo = m.sequenceNo
	for _, box := range m.mailboxes {
		box.put(notification, m.mailboxSize)
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mailboxes)
}

// Close removes all subscriptions and waits, up to DefaultCloseTimeout, for
// in-flight sends to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	boxes := make([]*mailbox, 0, len(m.mailboxes))
	for _, box := range m.mailboxes {
		boxes = append(boxes, box)
	}
	m.mailboxes = make(map[string]*mailbox)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultCloseTimeout)
	defer cancel()
	for _, box := range boxes {
		box.close()
		select {
		case <-box.finished:
		case <-ctx.Done():
			zlog.Warn().Msgf("notification: send still in flight at close: subscription_id=%s", box.id)
		}
	}
}

func (m *Manager) remove(id string) *mailbox {
	m.mu.Lock()
	defer m.mu.Unlock()
	box, ok := m.mailboxes[id]
	if !ok {
		return nil
	}
	delete(m.mailboxes, id)
	zlog.Debug().Msgf("notification: unsubscribed: subscription_id=%s subscribers=%d", id, len(m.mailboxes))
	return box
}
