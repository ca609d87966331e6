// Package events provides notification publishing and subscription for AnyRun.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
)

// DefaultHistorySize is how many notifications Recent keeps.
const DefaultHistorySize = 50

// Handler is a callback invoked when a notification matches a subscription.
type Handler func(n models.Notification)

// Filter defines criteria for matching notifications.
type Filter struct {
	// Levels filters by level (nil = all levels).
	Levels []models.NotificationLevel

	// App filters to a specific application (empty = all).
	App string
}

// Matches returns true if the notification matches the filter criteria.
func (f *Filter) Matches(n models.Notification) bool {
	if len(f.Levels) > 0 {
		matched := false
		for _, l := range f.Levels {
			if n.Level == l {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.App != "" && n.App != f.App {
		return false
	}

	return true
}

type subscription struct {
	filter  Filter
	handler Handler
}

// Publisher fans notifications out to in-process subscribers and keeps a
// short history for late readers such as a freshly opened TUI.
type Publisher struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	history       []models.Notification
	historySize   int

	metrics *metrics.Metrics
	now     func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMetrics counts published notifications by level.
func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithHistorySize overrides DefaultHistorySize. Zero disables history.
func WithHistorySize(n int) PublisherOption {
	return func(p *Publisher) {
		if n >= 0 {
			p.historySize = n
		}
	}
}

// NewPublisher creates a new in-memory publisher.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		subscriptions: make(map[string]*subscription),
		historySize:   DefaultHistorySize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify stamps n with an ID and time when missing, records it, and
// delivers it to every matching subscriber. The stamped value is returned.
func (p *Publisher) Notify(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Time.IsZero() {
		n.Time = p.now().UTC()
	}
	if n.Level == "" {
		n.Level = models.LevelInfo
	}

	p.mu.Lock()
	if p.historySize > 0 {
		p.history = append(p.history, n)
		if over := len(p.history) - p.historySize; over > 0 {
			p.history = append([]models.Notification(nil), p.history[over:]...)
		}
	}
	var handlers []Handler
	for _, sub := range p.subscriptions {
		if sub.filter.Matches(n) {
			handlers = append(handlers, sub.handler)
		}
	}
	p.mu.Unlock()

	p.metrics.ObserveNotification(n.Level)

	// Handlers run outside the lock so they may publish in turn.
	for _, handler := range handlers {
		handler(n)
	}
	return n
}

// Info publishes an informational notice.
func (p *Publisher) Info(op, app, message string) models.Notification {
	return p.Notify(models.Notification{Level: models.LevelInfo, Op: op, App: app, Message: message})
}

// Success publishes a success notice.
func (p *Publisher) Success(op, app, message string) models.Notification {
	return p.Notify(models.Notification{Level: models.LevelSuccess, Op: op, App: app, Message: message})
}

// Error publishes an error notice derived from err.
func (p *Publisher) Error(op, app string, err error) models.Notification {
	return p.Notify(models.NotificationFromError(op, app, err))
}

// Subscribe registers a handler and returns its subscription ID.
func (p *Publisher) Subscribe(filter Filter, handler Handler) (string, error) {
	if handler == nil {
		return "", ErrNilHandler
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.subscriptions[id] = &subscription{filter: filter, handler: handler}
	p.mu.Unlock()
	return id, nil
}

// Unsubscribe removes a subscription by ID.
func (p *Publisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.subscriptions[id]; !exists {
		return ErrSubscriptionNotFound
	}

	delete(p.subscriptions, id)
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscriptions)
}

// Recent returns up to limit of the newest notifications, oldest first.
// A limit <= 0 returns the whole history.
func (p *Publisher) Recent(limit int) []models.Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := 0
	if limit > 0 && len(p.history) > limit {
		start = len(p.history) - limit
	}
	return append([]models.Notification(nil), p.history[start:]...)
}

// Close removes all subscriptions.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = make(map[string]*subscription)
}

// Errors for publisher operations.
var (
	ErrNilHandler           = &PublisherError{Message: "handler cannot be nil"}
	ErrSubscriptionNotFound = &PublisherError{Message: "subscription not found"}
)

// PublisherError represents an error from publisher operations.
type PublisherError struct {
	Message string
}

func (e *PublisherError) Error() string {
	return e.Message
}
