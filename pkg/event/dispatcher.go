// Package event implements the ordered callback bus the session model
// is driven by: many-subscriber events, one-shot and predicate-gated
// subscriptions, and interval-polled waits.
package event

import (
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is used by WaitUntil when no interval is given.
const DefaultPollInterval = 50 * time.Millisecond

// Callback receives the positional payload of a dispatch. Arity is not
// fixed; subscribers must tolerate whatever the emitter passed.
type Callback func(args ...any)

// Predicate gates a one-shot subscription or a polled wait. It may have
// side effects; it is re-evaluated on every dispatch or tick.
type Predicate func() bool

type subscriber struct {
	fn   Callback
	id   uintptr
	once bool
	cond Predicate
}

// Dispatcher is an ordered, synchronous event bus. Subscribers for one
// event name fire in registration order; the list considered by a
// dispatch is fixed when that dispatch starts, so handlers may freely
// subscribe and unsubscribe without perturbing the pass in progress.
type Dispatcher struct {
	mu   sync.Mutex
	subs map[string][]*subscriber
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[string][]*subscriber)}
}

// funcID gives an identity usable for Unsubscribe. Two registrations of
// the same function value compare equal and are removed together.
func funcID(fn Callback) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Subscribe appends fn to the subscriber list for name. The same
// function may be registered multiple times and fires once per entry.
func (d *Dispatcher) Subscribe(name string, fn Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[name] = append(d.subs[name], &subscriber{fn: fn, id: funcID(fn)})
}

// SubscribeOnce registers a one-shot subscriber. With a nil cond it
// fires on the first dispatch of name and is removed. With a cond it
// stays pending across dispatches until cond() is true at dispatch
// time, fires once, and is removed.
func (d *Dispatcher) SubscribeOnce(name string, fn Callback, cond Predicate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[name] = append(d.subs[name], &subscriber{fn: fn, id: funcID(fn), once: true, cond: cond})
}

// Unsubscribe removes every entry for name whose function identity
// equals fn, one-shot or not.
func (d *Dispatcher) Unsubscribe(name string, fn Callback) {
	id := funcID(fn)
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.subs[name]
	kept := list[:0]
	for _, s := range list {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(d.subs, name)
		return
	}
	d.subs[name] = kept
}

// UnsubscribeAll drops every subscriber registered for name.
func (d *Dispatcher) UnsubscribeAll(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, name)
}

// Dispatch synchronously invokes, in registration order, every
// subscriber of name whose firing condition holds, passing args
// positionally. Dispatching with no subscribers is a no-op.
func (d *Dispatcher) Dispatch(name string, args ...any) {
	d.mu.Lock()
	snapshot := append([]*subscriber(nil), d.subs[name]...)
	d.mu.Unlock()

	log.Trace().Str("module", "event").Str("event", name).Int("subscribers", len(snapshot)).Msg("dispatch")

	for _, s := range snapshot {
		if s.once {
			if s.cond != nil && !s.cond() {
				continue
			}
			// Remove before invoking so a re-entrant dispatch of the
			// same event cannot fire this entry twice.
			d.removeEntry(name, s)
		}
		s.fn(args...)
	}
}

func (d *Dispatcher) removeEntry(name string, target *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.subs[name]
	for i, s := range list {
		if s == target {
			d.subs[name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// ConditionalSubscribe invokes fn immediately when initial() is true,
// without registering anything. Otherwise it registers a one-shot
// subscription on name gated by continuation.
func (d *Dispatcher) ConditionalSubscribe(name string, fn Callback, initial, continuation Predicate) {
	if initial != nil && initial() {
		fn()
		return
	}
	d.SubscribeOnce(name, fn, continuation)
}

// WaitUntil polls cond on its own recurring timer and invokes fn
// exactly once on the first evaluation that returns true, after which
// the timer is cancelled. cond is evaluated once immediately; when it
// already holds, fn runs without any timer being started. An interval
// <= 0 selects DefaultPollInterval. Each call owns an independent
// timer.
func (d *Dispatcher) WaitUntil(fn func(), cond Predicate, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if cond() {
		fn()
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if cond() {
				fn()
				return
			}
		}
	}()
}
