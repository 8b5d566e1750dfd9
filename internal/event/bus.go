package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type HandlerFunc func(raw any)

// Bus delivers events synchronously on the publisher's goroutine. Handlers
// are kept per event name and keyed by subscription ID; the order in which
// handlers of one event run is unspecified.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[uuid.UUID]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[uuid.UUID]HandlerFunc),
	}
}

// Subscribe registers handler for eventName and returns the subscription ID
// accepted by Unsubscribe.
func (b *Bus) Subscribe(eventName string, handler HandlerFunc) uuid.UUID {
	id := uuid.New()
	if handler == nil {
		return id
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.handlers[eventName]
	if !ok {
		subs = make(map[uuid.UUID]HandlerFunc)
		b.handlers[eventName] = subs
	}
	subs[id] = handler
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(eventName string, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.handlers[eventName]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(b.handlers, eventName)
	}
}

// Count reports how many handlers are subscribed to eventName.
func (b *Bus) Count(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}

func (b *Bus) Publish(eventName string, evt any) {
	b.mu.RLock()
	handlers := make([]HandlerFunc, 0, len(b.handlers[eventName]))
	for _, h := range b.handlers[eventName] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		dispatch(eventName, handler, evt)
	}
}

func dispatch(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
