// Package events fans processing notifications out to observers: an
// in-process broker backing the SSE endpoint and an optional Redis
// publisher for external listeners.
package events

import (
	"context"

	"github.com/kociii/reData/internal/model"
)

// Notifier receives every processing event. Publish must not block the
// processing loop; slow consumers lose events rather than stall imports.
type Notifier interface {
	Publish(ctx context.Context, ev model.Event)
}

// Multi forwards each event to every notifier in order.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev model.Event) {
	for _, n := range m {
		n.Publish(ctx, ev)
	}
}

// Discard drops everything. Used where no observer is wired.
type Discard struct{}

func (Discard) Publish(context.Context, model.Event) {}
