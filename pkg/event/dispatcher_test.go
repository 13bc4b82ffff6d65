package event_test

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/telemeet/roomcore/pkg/event"
)

// --- Dispatch ordering and arity ---

func TestDispatchOrder(t *testing.T) {
	d := event.NewDispatcher()
	var got []int

	d.Subscribe("somenewevent", func(args ...any) { got = append(got, args[0].(int)) })
	d.Subscribe("somenewevent", func(args ...any) { got = append(got, args[0].(int)+1) })
	d.Subscribe("somenewevent", func(args ...any) { got = append(got, args[0].(int)+2) })
	d.Subscribe("somenewevent", func(args ...any) { got = append(got, args[0].(int)+3) })

	d.Dispatch("somenewevent", 1)

	want := []int{1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("subscribers fired out of order: got %v, want %v", got, want)
	}
}

func TestDispatchArity(t *testing.T) {
	d := event.NewDispatcher()

	var one []any
	d.Subscribe("trigger1", func(args ...any) { one = args })
	d.Dispatch("trigger1", 2)
	if !reflect.DeepEqual(one, []any{2}) {
		t.Errorf("one arg: got %v", one)
	}

	var five []any
	d.Subscribe("trigger3", func(args ...any) { five = args })
	d.Dispatch("trigger3", "tryout", true, 10, 8.5, []int{9, 9})
	if len(five) != 5 || five[0] != "tryout" || five[2] != 10 {
		t.Errorf("five args: got %v", five)
	}

	var fifteen []any
	d.Subscribe("trigger4", func(args ...any) { fifteen = args })
	args := []any{true, "ererer", 10.322, map[string]any{"a": "key"}, []any{"2323", 2323}, 1, 2, 3,
		"a", true, 3278, "rere", []int{23, 23}, []bool{false, false}, true}
	d.Dispatch("trigger4", args...)
	if !reflect.DeepEqual(fifteen, args) {
		t.Errorf("fifteen args: got %v, want %v", fifteen, args)
	}
}

func TestDispatchNoSubscribers(t *testing.T) {
	d := event.NewDispatcher()
	// Must simply be a no-op.
	d.Dispatch("nobody", 1, 2, 3)
}

// --- One-shot subscriptions ---

func TestSubscribeOnce(t *testing.T) {
	d := event.NewDispatcher()
	var got []int

	d.Subscribe("someevent", func(args ...any) { got = append(got, args[0].(int)+1) })
	d.SubscribeOnce("someevent", func(args ...any) { got = append(got, args[0].(int)+2) }, nil)

	d.Dispatch("someotherevent", 1)
	d.Dispatch("someevent", 2)

	if !reflect.DeepEqual(got, []int{3, 4}) {
		t.Fatalf("first dispatch: got %v, want [3 4]", got)
	}

	d.Dispatch("someevent", 0)

	if !reflect.DeepEqual(got, []int{3, 4, 1}) {
		t.Errorf("once subscriber fired twice: got %v, want [3 4 1]", got)
	}
}

func TestSubscribeOncePredicate(t *testing.T) {
	d := event.NewDispatcher()
	var got []int
	ready := false

	d.SubscribeOnce("conditionevent", func(args ...any) { got = append(got, args[0].(int)+1) }, func() bool {
		return ready
	})

	d.Dispatch("conditionevent", 0)
	if len(got) != 0 {
		t.Fatalf("fired while predicate false: got %v", got)
	}

	ready = true
	d.Dispatch("conditionevent", 1)
	if !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("predicate true: got %v, want [2]", got)
	}

	d.Dispatch("conditionevent", 5)
	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("fired after removal: got %v, want [2]", got)
	}
}

// --- Unsubscribe ---

func TestUnsubscribeCallback(t *testing.T) {
	d := event.NewDispatcher()
	var got []int
	turnOff := func(args ...any) { got = append(got, args[0].(int)+1) }

	d.Subscribe("unbindevent", turnOff)
	d.Subscribe("unbindevent", func(args ...any) { got = append(got, args[0].(int)+2) })
	d.Subscribe("unbindevent", func(args ...any) { got = append(got, args[0].(int)+3) })
	d.Unsubscribe("unbindevent", turnOff)
	d.Subscribe("unbindevent", func(args ...any) { got = append(got, args[0].(int)+5) })

	d.Dispatch("unbindevent", 1)

	if !reflect.DeepEqual(got, []int{3, 4, 6}) {
		t.Errorf("got %v, want [3 4 6]", got)
	}
}

func TestUnsubscribeDuplicateRegistrations(t *testing.T) {
	d := event.NewDispatcher()
	var got []int
	turnOff := func(args ...any) { got = append(got, args[0].(int)+1) }

	d.Subscribe("sameunbindevent", turnOff)
	d.Subscribe("sameunbindevent", turnOff)
	d.Subscribe("sameunbindevent", func(args ...any) { got = append(got, args[0].(int)+3) })
	d.Unsubscribe("sameunbindevent", turnOff)
	d.Subscribe("sameunbindevent", func(args ...any) { got = append(got, args[0].(int)+5) })

	d.Dispatch("sameunbindevent", 1)

	if !reflect.DeepEqual(got, []int{4, 6}) {
		t.Errorf("duplicate registrations survived unsubscribe: got %v, want [4 6]", got)
	}
}

func TestUnsubscribeOnce(t *testing.T) {
	d := event.NewDispatcher()
	var got []int
	turnOff := func(args ...any) { got = append(got, args[0].(int)+1) }

	d.Subscribe("unbindonceevent", func(args ...any) { got = append(got, args[0].(int)+2) })
	d.SubscribeOnce("unbindonceevent", turnOff, nil)
	d.Unsubscribe("unbindonceevent", turnOff)

	d.Dispatch("unbindonceevent", 0)

	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("unsubscribed once entry fired: got %v, want [2]", got)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	d := event.NewDispatcher()
	var got []int

	d.Subscribe("unbindallevent", func(args ...any) { got = append(got, 1) })
	d.Subscribe("unbindallevent", func(args ...any) { got = append(got, 2) })
	d.SubscribeOnce("unbindallevent", func(args ...any) { got = append(got, 3) }, nil)
	d.UnsubscribeAll("unbindallevent")

	d.Dispatch("unbindallevent", 0)

	if len(got) != 0 {
		t.Errorf("subscribers fired after UnsubscribeAll: got %v", got)
	}
}

// --- Snapshot semantics ---

func TestDispatchSnapshotAdd(t *testing.T) {
	d := event.NewDispatcher()
	var got []string

	d.Subscribe("snap", func(args ...any) {
		got = append(got, "first")
		d.Subscribe("snap", func(args ...any) { got = append(got, "nested") })
	})

	d.Dispatch("snap")
	if !reflect.DeepEqual(got, []string{"first"}) {
		t.Fatalf("nested subscriber fired in the same pass: got %v", got)
	}

	d.Dispatch("snap")
	if !reflect.DeepEqual(got, []string{"first", "first", "nested"}) {
		t.Errorf("second dispatch: got %v", got)
	}
}

func TestDispatchSnapshotRemove(t *testing.T) {
	d := event.NewDispatcher()
	var got []string
	later := func(args ...any) { got = append(got, "later") }

	d.Subscribe("snap", func(args ...any) {
		got = append(got, "first")
		d.Unsubscribe("snap", later)
	})
	d.Subscribe("snap", later)

	d.Dispatch("snap")
	// The pass in progress is immune to the removal.
	if !reflect.DeepEqual(got, []string{"first", "later"}) {
		t.Fatalf("first dispatch: got %v", got)
	}

	d.Dispatch("snap")
	if !reflect.DeepEqual(got, []string{"first", "later", "first"}) {
		t.Errorf("second dispatch: got %v", got)
	}
}

// --- ConditionalSubscribe ---

func TestConditionalSubscribeInitialFalse(t *testing.T) {
	d := event.NewDispatcher()
	var got []int

	d.ConditionalSubscribe("conditionevent1", func(args ...any) { got = append(got, 2) },
		func() bool { return false },
		func() bool { return true })

	d.Dispatch("conditionevent1", 1)
	if !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("subscription did not fire: got %v", got)
	}

	// An unrelated event must not re-trigger the consumed subscription.
	d.Dispatch("event1", 1)
	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("consumed subscription fired again: got %v", got)
	}
}

func TestConditionalSubscribeInitialTrue(t *testing.T) {
	d := event.NewDispatcher()
	var got []int

	d.ConditionalSubscribe("conditionevent2", func(args ...any) { got = append(got, 3) },
		func() bool { return true },
		func() bool { return true })

	if !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("initial condition true must invoke immediately: got %v", got)
	}

	d.Dispatch("conditionevent2", 1)
	if !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("nothing should have been subscribed: got %v", got)
	}
}

// --- WaitUntil ---

func TestWaitUntilPollsUntilTrue(t *testing.T) {
	d := event.NewDispatcher()
	var polls, calls atomic.Int32

	d.WaitUntil(func() { calls.Add(1) }, func() bool {
		return polls.Add(1) >= 3
	}, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)

	if got := polls.Load(); got != 3 {
		t.Errorf("predicate evaluated %d times, want 3", got)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("callback invoked %d times, want 1", got)
	}
}

func TestWaitUntilImmediate(t *testing.T) {
	d := event.NewDispatcher()
	var calls atomic.Int32

	d.WaitUntil(func() { calls.Add(1) }, func() bool { return true }, 100*time.Millisecond)

	// No timer involved when the condition already holds.
	if got := calls.Load(); got != 1 {
		t.Errorf("callback invoked %d times, want 1", got)
	}
}

func TestWaitUntilIndependentTimers(t *testing.T) {
	d := event.NewDispatcher()
	var first, second atomic.Int32
	var firstReady, secondReady atomic.Bool

	d.WaitUntil(func() { first.Add(1) }, firstReady.Load, 10*time.Millisecond)
	d.WaitUntil(func() { second.Add(1) }, secondReady.Load, 10*time.Millisecond)

	firstReady.Store(true)
	time.Sleep(60 * time.Millisecond)

	if got := first.Load(); got != 1 {
		t.Errorf("first wait fired %d times, want 1", got)
	}
	if got := second.Load(); got != 0 {
		t.Errorf("second wait fired %d times, want 0", got)
	}

	secondReady.Store(true)
	time.Sleep(60 * time.Millisecond)
	if got := second.Load(); got != 1 {
		t.Errorf("second wait fired %d times after release, want 1", got)
	}
}
