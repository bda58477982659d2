// Package message implements the priority mailbox used for worker-to-worker
// messages. Messages are ordered by priority (higher first) then creation
// time, and expire after a TTL.
package message

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a message stays deliverable.
const DefaultTTL = 24 * time.Hour

// Message is a unit of inter-worker communication.
type Message struct {
	ID           string         `json:"id"`
	To           string         `json:"to"`
	From         string         `json:"from"`
	Content      map[string]any `json:"content"`
	Priority     int            `json:"priority"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Acknowledged bool           `json:"acknowledged"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Expired reports whether m is no longer deliverable at now.
func (m *Message) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}

// Queue is a single-owner mailbox. It is not safe for concurrent use.
type Queue struct {
	items []*Message
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) { q.ttl = ttl }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue returns an empty mailbox.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Send inserts msg and returns its id. Missing id, creation time and expiry
// are filled in. The queue takes ownership of msg.
func (q *Queue) Send(msg *Message) string {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = q.now()
	}
	if msg.ExpiresAt.IsZero() {
		msg.ExpiresAt = msg.CreatedAt.Add(q.ttl)
	}
	q.items = append(q.items, msg)
	slices.SortStableFunc(q.items, compare)
	return msg.ID
}

func compare(a, b *Message) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// Receive drops expired messages, then pops the most urgent remaining one.
// Ownership of the returned message passes to the caller.
func (q *Queue) Receive() (*Message, bool) {
	q.ClearExpired()
	if len(q.items) == 0 {
		return nil, false
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return head, true
}

// Acknowledge marks the queued message with id as acknowledged. It stays
// queued until received or expired.
func (q *Queue) Acknowledge(id string) bool {
	for _, m := range q.items {
		if m.ID == id {
			m.Acknowledged = true
			return true
		}
	}
	return false
}

// ClearExpired removes expired messages and returns how many were removed.
func (q *Queue) ClearExpired() int {
	now := q.now()
	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, func(m *Message) bool { return m.Expired(now) })
	return before - len(q.items)
}

// Len returns the number of queued messages, expired ones included.
func (q *Queue) Len() int { return len(q.items) }

// Peek returns the queued messages in delivery order without removing them.
func (q *Queue) Peek() []Message {
	out := make([]Message, len(q.items))
	for i, m := range q.items {
		out[i] = *m
	}
	return out
}
