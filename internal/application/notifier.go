package application

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/essencia-app/essencia-cli/internal/domain"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

// Bus is the publish side of the event bus; views subscribe to these topics
// to re-render after a change. A nil Bus is allowed.
type Bus interface {
	Publish(topic string, args ...any)
}

const (
	TopicNotificationsChanged = "notifications:changed"
	TopicSessionChanged       = "session:changed"
)

const defaultCapacity = 5

// Center is the bounded queue of ephemeral user messages. Each timed entry
// owns a cancellable auto-dismiss timer; eviction and dismissal always cancel
// the matching timer so none are orphaned.
type Center struct {
	mu       sync.Mutex
	capacity int
	clock    ports.Clock
	bus      Bus
	items    []domain.Notification
	timers   map[string]*time.Timer
}

func NewCenter(capacity int, clock ports.Clock, bus Bus) *Center {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Center{
		capacity: capacity,
		clock:    clock,
		bus:      bus,
		timers:   map[string]*time.Timer{},
	}
}

// Show enqueues a notification with the kind's default duration.
func (c *Center) Show(kind domain.NotificationKind, title, message string) string {
	return c.ShowFor(kind, title, message, kind.DefaultTTL())
}

// ShowFor enqueues a notification with an explicit duration. Zero means the
// notification sticks until dismissed. Inserting past capacity evicts the
// oldest entry.
func (c *Center) ShowFor(kind domain.NotificationKind, title, message string, ttl time.Duration) string {
	n := domain.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: c.clock.Now(),
		TTL:       ttl,
	}

	c.mu.Lock()
	if len(c.items) >= c.capacity {
		evicted := c.items[0]
		c.items = c.items[1:]
		c.cancelTimerLocked(evicted.ID)
	}
	c.items = append(c.items, n)
	if ttl > 0 {
		c.timers[n.ID] = time.AfterFunc(ttl, func() { c.Dismiss(n.ID) })
	}
	c.mu.Unlock()

	c.publish()
	return n.ID
}

func (c *Center) Success(title, message string) string {
	return c.Show(domain.KindSuccess, title, message)
}

func (c *Center) Error(title, message string) string {
	return c.Show(domain.KindError, title, message)
}

func (c *Center) Info(title, message string) string {
	return c.Show(domain.KindInfo, title, message)
}

func (c *Center) Warning(title, message string) string {
	return c.Show(domain.KindWarning, title, message)
}

// ShowApp enqueues a classified error with the kind derived from its
// severity.
func (c *Center) ShowApp(appErr domain.AppError) string {
	return c.Show(appErr.Kind(), appErr.Title, appErr.Message)
}

// Dismiss removes a notification and cancels its timer. Dismissing an absent
// id is a no-op, so a late timer firing after manual dismissal is harmless.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	removed := false
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	c.cancelTimerLocked(id)
	c.mu.Unlock()

	if removed {
		c.publish()
	}
}

func (c *Center) DismissAll() {
	c.mu.Lock()
	had := len(c.items) > 0
	for _, n := range c.items {
		c.cancelTimerLocked(n.ID)
	}
	c.items = nil
	c.mu.Unlock()

	if had {
		c.publish()
	}
}

// Snapshot returns the queue in insertion order.
func (c *Center) Snapshot() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.items...)
}

func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// cancelTimerLocked tolerates absent ids: sticky notifications never had a
// timer in the first place.
func (c *Center) cancelTimerLocked(id string) {
	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) publish() {
	if c.bus != nil {
		c.bus.Publish(TopicNotificationsChanged)
	}
}
