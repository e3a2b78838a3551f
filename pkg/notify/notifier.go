// Package notify delivers best-effort user notifications.
package notify

import (
	"context"
	"time"

	"github.com/eventra-io/accredo/pkg/events"
)

// Publisher is the slice of the event bus the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// BusNotifier publishes notifications onto the event bus for an external
// delivery worker. It satisfies workflow.Notifier.
type BusNotifier struct {
	publisher Publisher
	now       func() time.Time
}

// NewBusNotifier creates an event-bus-backed notifier.
func NewBusNotifier(publisher Publisher) *BusNotifier {
	return &BusNotifier{
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (n *BusNotifier) Notify(ctx context.Context, userID, tenantID, ntype, title, message string, data map[string]any) error {
	return n.publisher.Publish(ctx, events.Notification{
		UserID:     userID,
		TenantID:   tenantID,
		Type:       ntype,
		Title:      title,
		Message:    message,
		Data:       data,
		OccurredAt: n.now(),
	})
}

// Nop is a notifier that discards everything. Useful in tests and in
// deployments without a delivery worker.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, string, string, string, map[string]any) error {
	return nil
}
