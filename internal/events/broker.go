package events

import (
	"context"
	"sync"

	"github.com/kociii/reData/internal/model"
)

const subscriberBuffer = 64

// Broker is the in-process event hub. Subscribers attach per task id;
// publishing never blocks, a full subscriber channel drops the event.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan model.Event]struct{})}
}

// Subscribe returns a channel of events for one task and a cancel
// function that detaches and closes it.
func (b *Broker) Subscribe(taskID string) (<-chan model.Event, func()) {
	ch := make(chan model.Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[chan model.Event]struct{})
	}
	b.subs[taskID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[taskID], ch)
			if len(b.subs[taskID]) == 0 {
				delete(b.subs, taskID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(_ context.Context, ev model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
