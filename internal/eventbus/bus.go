package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/quicktext/schema"
)

// DefaultDepth is the per-subscriber buffer size.
const DefaultDepth = 256

type subscriber struct {
	ch    chan schema.TabEvent
	types map[schema.TabEventType]bool
}

func (s *subscriber) wants(typ schema.TabEventType) bool {
	return len(s.types) == 0 || s.types[typ]
}

// Bus fans registry notifications out to UI subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[*subscriber]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[*subscriber]struct{}),
		log:   logger,
		depth: DefaultDepth,
	}
}

// Subscribe registers a subscriber for the given event types, or all types
// when none are given, and returns a channel + cancel.
func (b *Bus) Subscribe(types ...schema.TabEventType) (<-chan schema.TabEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	sub := &subscriber{ch: make(chan schema.TabEvent, b.depth)}
	if len(types) > 0 {
		sub.types = make(map[schema.TabEventType]bool, len(types))
		for _, typ := range types {
			sub.types[typ] = true
		}
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count, "types", len(types))
	}
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.ch)
			if b.log != nil {
				b.log.Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnTabEvent publishes a registry notification.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}
