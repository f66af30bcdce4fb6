package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish runs every handler on its own goroutine so a slow subscriber
// never stalls the frame that raised the event.
func (b *Bus) Publish(eventName string, evt any) {
	for _, handler := range b.snapshot(eventName) {
		go b.dispatch(eventName, handler, evt)
	}
}

// PublishSync runs handlers in subscription order on the caller's goroutine.
func (b *Bus) PublishSync(eventName string, evt any) {
	for _, handler := range b.snapshot(eventName) {
		b.dispatch(eventName, handler, evt)
	}
}

func (b *Bus) snapshot(eventName string) []HandlerFunc {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]HandlerFunc, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	return handlers
}

func (b *Bus) dispatch(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
