package eventlog

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
)

// Handler receives published events. Handlers run synchronously in
// registration order; each handler gets its own clone of the event.
type Handler func(*events.Event)

// Bus is a persistence-first event bus. Publish appends to the durable
// log before any subscriber sees the event, so an observer can never
// witness state that would vanish on crash.
type Bus struct {
	log    *Log
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

// NewBus wraps a durable log with subscriber fan-out.
func NewBus(log *Log, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		log:    log,
		logger: logger,
		subs:   make(map[int]Handler),
	}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish durably appends the event, then fans it out. If the append
// fails nothing is delivered and the error is returned. Each subscriber
// receives a clone, and a panicking subscriber is isolated from the rest.
func (b *Bus) Publish(event *events.Event) error {
	if err := b.log.Append(event); err != nil {
		return fmt.Errorf("failed to persist event before publish: %w", err)
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
	return nil
}

func (b *Bus) deliver(h Handler, event *events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("event_id", event.ID),
				zap.Any("panic", r))
		}
	}()
	h(event.Clone())
}

// Log exposes the underlying durable log for replay.
func (b *Bus) Log() *Log { return b.log }
