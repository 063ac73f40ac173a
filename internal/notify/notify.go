// Package notify delivers user-facing feedback about back-office operations.
// Delivery is fire-and-forget: callers never depend on a notification arriving.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`

	// optional subject of the notification
	Entity   string `json:"entity,omitempty"`
	EntityID uint   `json:"entity_id,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})

// Log writes notifications to a zap logger at a level matching their severity.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, n Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	if n.Entity != "" {
		fields = append(fields, zap.String("entity", n.Entity), zap.Uint("entity_id", n.EntityID))
	}

	switch n.Severity {
	case SeverityError:
		l.log.Error("notification", fields...)
	case SeverityWarning:
		l.log.Warn("notification", fields...)
	default:
		l.log.Info("notification", fields...)
	}
}

// Collector keeps notifications in memory, e.g. to return them with an HTTP response.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// Items returns a copy of everything collected so far.
func (c *Collector) Items() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(ctx context.Context, n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(ctx, n)
			}
		}
	})
}

type ctxKey struct{}

// WithNotifier attaches a request-scoped notifier to ctx.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notifier attached with WithNotifier, or nil.
func FromContext(ctx context.Context) Notifier {
	n, _ := ctx.Value(ctxKey{}).(Notifier)
	return n
}
