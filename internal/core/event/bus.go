package event

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a double-buffered event bus: events emitted in tick N are delivered
// in tick N+1. The host loop calls SwapBuffers at tick start, then
// DispatchAll. Emit and dispatch are loop-goroutine-only; the mutex protects
// handler registration only.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
		log:      log,
	}
}

// Emit queues an event into the back buffer; it becomes readable next tick.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer. Called once
// at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers every front-buffer event to its subscribed handlers.
// Each handler call is recovered so one panicking handler cannot starve the
// rest.
func (b *Bus) DispatchAll() {
	for t, events := range b.front {
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				b.safeCall(h, ev)
			}
		}
	}
}

func (b *Bus) safeCall(handler any, event any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("event handler panic recovered",
				zap.String("event", reflect.TypeOf(event).String()),
				zap.Any("panic", rec),
			)
		}
	}()
	// Safe: Subscribe and Emit key handlers and events by the same type.
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
