package bridge

import (
	"sync"

	"github.com/identikit/authbridge/internal/logx"
	"github.com/identikit/authbridge/protocol"
)

// EventType names one bucket of the event bus.
type EventType string

const (
	EventReady          EventType = "ready"
	EventSuccess        EventType = "success"
	EventCancel         EventType = "cancel"
	EventError          EventType = "error"
	EventConsentGranted EventType = "consent_granted"
	EventConsentDenied  EventType = "consent_denied"
)

// topic is an insertion-ordered set of subscribers for one event. The
// callback signature is fixed per topic, so subscribers never cast.
type topic[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func (t *topic[T]) subscribe(fn func(T)) func() {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// emit calls every subscriber in insertion order. A panicking
// subscriber is logged and does not prevent the rest from running.
func (t *topic[T]) emit(v T) {
	t.mu.Lock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logx.Log.Error().Interface("panic", r).Msg("event subscriber panicked")
				}
			}()
			s.fn(v)
		}()
	}
}

func (t *topic[T]) clear() {
	t.mu.Lock()
	t.subs = nil
	t.mu.Unlock()
}

type events struct {
	ready          topic[struct{}]
	success        topic[protocol.Identity]
	cancel         topic[struct{}]
	err            topic[*Error]
	consentGranted topic[protocol.ConsentGrant]
	consentDenied  topic[protocol.ConsentDenial]
}

// OnReady subscribes to the session becoming ready. The returned
// function removes the subscription.
func (b *Bridge) OnReady(fn func()) func() {
	return b.events.ready.subscribe(func(struct{}) { fn() })
}

// OnSuccess subscribes to a completed authentication.
func (b *Bridge) OnSuccess(fn func(protocol.Identity)) func() {
	return b.events.success.subscribe(fn)
}

// OnCancel subscribes to user cancellation.
func (b *Bridge) OnCancel(fn func()) func() {
	return b.events.cancel.subscribe(func(struct{}) { fn() })
}

// OnError subscribes to terminal session errors.
func (b *Bridge) OnError(fn func(*Error)) func() {
	return b.events.err.subscribe(fn)
}

// OnConsentGranted subscribes to consent grants, forwarded verbatim.
func (b *Bridge) OnConsentGranted(fn func(protocol.ConsentGrant)) func() {
	return b.events.consentGranted.subscribe(fn)
}

// OnConsentDenied subscribes to consent denials.
func (b *Bridge) OnConsentDenied(fn func(protocol.ConsentDenial)) func() {
	return b.events.consentDenied.subscribe(fn)
}

// RemoveAllListeners clears the named event buckets, or every bucket
// when called with no arguments.
func (b *Bridge) RemoveAllListeners(evs ...EventType) {
	if len(evs) == 0 {
		evs = []EventType{EventReady, EventSuccess, EventCancel, EventError, EventConsentGranted, EventConsentDenied}
	}
	for _, ev := range evs {
		switch ev {
		case EventReady:
			b.events.ready.clear()
		case EventSuccess:
			b.events.success.clear()
		case EventCancel:
			b.events.cancel.clear()
		case EventError:
			b.events.err.clear()
		case EventConsentGranted:
			b.events.consentGranted.clear()
		case EventConsentDenied:
			b.events.consentDenied.clear()
		}
	}
}
