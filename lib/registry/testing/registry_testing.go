package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/gStore/lib/registry"
	"github.com/google/go-cmp/cmp"
)

// RegistryFactory is a function that creates a new instance of an IRegistry implementation
type RegistryFactory func() registry.IRegistry

// RunRegistryTests runs a comprehensive test suite for an IRegistry implementation.
// The registries returned by factory are expected to use per-key deduplication.
func RunRegistryTests(t *testing.T, name string, factory RegistryFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("ReadUnknown", func(t *testing.T) {
			testReadUnknown(t, factory())
		})

		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, factory())
		})

		t.Run("Ensure", func(t *testing.T) {
			testEnsure(t, factory())
		})

		t.Run("Merge", func(t *testing.T) {
			testMerge(t, factory())
		})

		t.Run("SetDefaultIfUnset", func(t *testing.T) {
			testSetDefaultIfUnset(t, factory())
		})

		t.Run("Dedup", func(t *testing.T) {
			testDedup(t, factory())
		})

		t.Run("NotifyOrder", func(t *testing.T) {
			testNotifyOrder(t, factory())
		})

		t.Run("BatchUpdate", func(t *testing.T) {
			testBatchUpdate(t, factory())
		})

		t.Run("ReadManyByKeys", func(t *testing.T) {
			testReadManyByKeys(t, factory())
		})

		t.Run("SubscribeAndRead", func(t *testing.T) {
			testSubscribeAndRead(t, factory())
		})

		t.Run("Unsubscribe", func(t *testing.T) {
			testUnsubscribe(t, factory())
		})

		t.Run("Reentrant", func(t *testing.T) {
			testReentrant(t, factory())
		})

		t.Run("Reset", func(t *testing.T) {
			testReset(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})

		t.Run("NilWrite", func(t *testing.T) {
			testNilWrite(t, factory())
		})

		t.Run("UpdateClearsDedup", func(t *testing.T) {
			testUpdateClearsDedup(t, factory())
		})

		t.Run("ReadReturnsCopy", func(t *testing.T) {
			testReadReturnsCopy(t, factory())
		})

		t.Run("SubscribeAndReadConcurrent", func(t *testing.T) {
			testSubscribeAndReadConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// recorder collects all values a subscriber was called with
type recorder struct {
	mu     sync.Mutex
	values []registry.Value
}

func (r *recorder) fn(v registry.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) calls() []registry.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]registry.Value(nil), r.values...)
}

func expectValue(t *testing.T, got, want registry.Value) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected value (-want +got):\n%s", diff)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testReadUnknown(t *testing.T, reg registry.IRegistry) {
	for i := 0; i < 10; i++ {
		expectValue(t, reg.ReadByKey(registry.Key(fmt.Sprintf("unknown-%d", i))), registry.Object{})
	}

	if keys := reg.Keys(); len(keys) != 0 {
		t.Errorf("Expected reads not to create entries, got keys %v", keys)
	}

	// an ensured key without value reads as empty object too
	reg.Ensure("ensured", nil)
	expectValue(t, reg.ReadByKey("ensured"), registry.Object{})
}

func testWriteRead(t *testing.T, reg registry.IRegistry) {
	reg.UpdateByKey("int", 1)
	expectValue(t, reg.ReadByKey("int"), 1)

	reg.UpdateByKey("string", "hello")
	expectValue(t, reg.ReadByKey("string"), "hello")

	reg.UpdateByKey("object", registry.Object{"name": "gStore"})
	expectValue(t, reg.ReadByKey("object"), registry.Object{"name": "gStore"})

	reg.UpdateByKey("int", 2)
	expectValue(t, reg.ReadByKey("int"), 2)

	if changed := reg.Update("int", 2); changed {
		t.Errorf("Expected Update with equal value to report no change")
	}
	if changed := reg.Update("int", 3); !changed {
		t.Errorf("Expected Update with new value to report a change")
	}
	expectValue(t, reg.ReadByKey("int"), 3)
}

func testEnsure(t *testing.T, reg registry.IRegistry) {
	reg.Ensure("key", "first")
	reg.Ensure("key", "second")
	expectValue(t, reg.ReadByKey("key"), "first")

	entry := reg.Get("key", "third")
	if entry.Key != "key" {
		t.Errorf("Expected entry key %q, got %q", "key", entry.Key)
	}
	expectValue(t, entry.Value, "first")

	entry = reg.Get("other", "default")
	expectValue(t, entry.Value, "default")
	if entry.Subscribers != 0 {
		t.Errorf("Expected 0 subscribers, got %d", entry.Subscribers)
	}
}

func testMerge(t *testing.T, reg registry.IRegistry) {
	reg.UpdateByKey("obj", registry.Object{"a": 1, "b": 1})
	reg.UpdateByKey("obj", registry.Object{"b": 2, "c": 3})
	expectValue(t, reg.ReadByKey("obj"), registry.Object{"a": 1, "b": 2, "c": 3})

	// the merged value is a new map, the caller's map stays untouched
	input := registry.Object{"d": 4}
	reg.UpdateByKey("obj", input)
	if len(input) != 1 {
		t.Errorf("Expected input object not to be modified, got %v", input)
	}

	// non-object values replace
	reg.UpdateByKey("obj", 42)
	expectValue(t, reg.ReadByKey("obj"), 42)

	// an object replaces a non-object value
	reg.UpdateByKey("obj", registry.Object{"x": true})
	expectValue(t, reg.ReadByKey("obj"), registry.Object{"x": true})
}

func testSetDefaultIfUnset(t *testing.T, reg registry.IRegistry) {
	reg.SetDefaultIfUnset("key", nil)
	expectValue(t, reg.Get("key", nil).Value, nil)

	reg.SetDefaultIfUnset("key", "default")
	expectValue(t, reg.ReadByKey("key"), "default")

	reg.SetDefaultIfUnset("key", "other")
	expectValue(t, reg.ReadByKey("key"), "default")

	// defaults never notify
	rec := &recorder{}
	sub := reg.Subscribe("fresh", rec.fn)
	defer sub.Unsubscribe()
	reg.SetDefaultIfUnset("fresh", 1)
	if calls := rec.calls(); len(calls) != 0 {
		t.Errorf("Expected no notification for default value, got %v", calls)
	}
}

func testDedup(t *testing.T, reg registry.IRegistry) {
	rec := &recorder{}
	sub := reg.Subscribe("key", rec.fn)
	defer sub.Unsubscribe()

	reg.UpdateByKey("key", registry.Object{"v": 1})
	reg.UpdateByKey("key", registry.Object{"v": 1})

	if calls := rec.calls(); len(calls) != 1 {
		t.Fatalf("Expected 1 notification for identical consecutive writes, got %d", len(calls))
	}

	reg.UpdateByKey("key", registry.Object{"v": 2})
	reg.UpdateByKey("key", registry.Object{"v": 1})
	if calls := rec.calls(); len(calls) != 3 {
		t.Errorf("Expected 3 notifications, got %d", len(calls))
	}

	// equal values on different keys are independent
	other := &recorder{}
	otherSub := reg.Subscribe("other", other.fn)
	defer otherSub.Unsubscribe()
	reg.UpdateByKey("other", registry.Object{"v": 1})
	if calls := other.calls(); len(calls) != 1 {
		t.Errorf("Expected write to other key to notify, got %d notifications", len(calls))
	}
	expectValue(t, reg.ReadByKey("other"), registry.Object{"v": 1})
}

func testNotifyOrder(t *testing.T, reg registry.IRegistry) {
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		sub := reg.Subscribe("key", func(v registry.Value) {
			if v != "new" {
				t.Errorf("Subscriber %d expected value %q, got %v", i, "new", v)
			}
			order = append(order, i)
		})
		defer sub.Unsubscribe()
	}

	reg.UpdateByKey("key", "new")

	// all subscribers must have run before UpdateByKey returned
	expectValue(t, order, []int{0, 1, 2, 3, 4})

	reg.Notify("key")
	if len(order) != 10 {
		t.Errorf("Expected explicit Notify to call every subscriber again, got %d calls", len(order))
	}
}

func testBatchUpdate(t *testing.T, reg registry.IRegistry) {
	recA, recB := &recorder{}, &recorder{}
	subA := reg.Subscribe("A", recA.fn)
	subB := reg.Subscribe("B", recB.fn)
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	reg.BatchUpdate([]registry.KeyValue{
		{Key: "A", Value: 1},
		{Key: "B", Value: 2},
	})

	expectValue(t, reg.ReadByKey("A"), 1)
	expectValue(t, reg.ReadByKey("B"), 2)
	expectValue(t, recA.calls(), []registry.Value{1})
	expectValue(t, recB.calls(), []registry.Value{2})

	reg.BatchUpdate(nil)
	if len(recA.calls())+len(recB.calls()) != 2 {
		t.Errorf("Expected empty batch not to notify")
	}
}

func testReadManyByKeys(t *testing.T, reg registry.IRegistry) {
	reg.UpdateByKey("A", "a")
	reg.UpdateByKey("B", "b")

	expectValue(t, reg.ReadManyByKeys([]registry.Key{"A", "B"}), []registry.Value{"a", "b"})
	expectValue(t, reg.ReadManyByKeys([]registry.Key{"B", "missing", "A"}), []registry.Value{"b", registry.Object{}, "a"})
	expectValue(t, reg.ReadManyByKeys(nil), []registry.Value{})
}

func testSubscribeAndRead(t *testing.T, reg registry.IRegistry) {
	rec := &recorder{}
	value, update, sub := reg.SubscribeAndRead("counter", registry.Object{"count": 0}, rec.fn)
	defer sub.Unsubscribe()

	expectValue(t, value, registry.Object{"count": 0})
	if sub.Key() != "counter" {
		t.Errorf("Expected subscription key %q, got %q", "counter", sub.Key())
	}

	update(registry.Object{"count": 1})
	expectValue(t, rec.calls(), []registry.Value{registry.Object{"count": 1}})

	// a second component sees the shared value, not its own initial state
	other := &recorder{}
	value, _, otherSub := reg.SubscribeAndRead("counter", registry.Object{"count": 100}, other.fn)
	defer otherSub.Unsubscribe()
	expectValue(t, value, registry.Object{"count": 1})

	update(registry.Object{"count": 2})
	expectValue(t, other.calls(), []registry.Value{registry.Object{"count": 2}})
	if entry := reg.Get("counter", nil); entry.Subscribers != 2 {
		t.Errorf("Expected 2 subscribers, got %d", entry.Subscribers)
	}

	// no initial state
	value, _, emptySub := reg.SubscribeAndRead("empty", nil, nil)
	defer emptySub.Unsubscribe()
	expectValue(t, value, registry.Object{})
}

func testUnsubscribe(t *testing.T, reg registry.IRegistry) {
	keep, drop := &recorder{}, &recorder{}
	keepSub := reg.Subscribe("key", keep.fn)
	defer keepSub.Unsubscribe()
	dropSub := reg.Subscribe("key", drop.fn)

	if keepSub.ID() == dropSub.ID() {
		t.Fatalf("Expected unique subscription ids, got %d twice", keepSub.ID())
	}

	reg.UpdateByKey("key", 1)
	dropSub.Unsubscribe()
	dropSub.Unsubscribe()
	reg.UpdateByKey("key", 2)

	expectValue(t, keep.calls(), []registry.Value{1, 2})
	expectValue(t, drop.calls(), []registry.Value{1})

	if entry := reg.Get("key", nil); entry.Subscribers != 1 {
		t.Errorf("Expected 1 subscriber after unsubscribe, got %d", entry.Subscribers)
	}

	// subscribing and unsubscribing many times must not grow the subscriber set
	for i := 0; i < 100; i++ {
		reg.Subscribe("key", func(registry.Value) {}).Unsubscribe()
	}
	if entry := reg.Get("key", nil); entry.Subscribers != 1 {
		t.Errorf("Expected subscriber set not to grow, got %d subscribers", entry.Subscribers)
	}
}

func testReentrant(t *testing.T, reg registry.IRegistry) {
	var sub registry.Subscription
	calls := 0
	sub = reg.Subscribe("source", func(v registry.Value) {
		calls++
		// read, write another key and unsubscribe from inside the callback
		_ = reg.ReadByKey("source")
		reg.UpdateByKey("derived", registry.Object{"from": v})
		sub.Unsubscribe()
	})

	reg.UpdateByKey("source", "x")
	reg.UpdateByKey("source", "y")

	if calls != 1 {
		t.Errorf("Expected self-unsubscribing subscriber to be called once, got %d", calls)
	}
	expectValue(t, reg.ReadByKey("derived"), registry.Object{"from": "x"})
}

func testReset(t *testing.T, reg registry.IRegistry) {
	rec := &recorder{}
	sub := reg.Subscribe("key", rec.fn)
	reg.UpdateByKey("key", "value")

	reg.Reset()

	expectValue(t, reg.ReadByKey("key"), registry.Object{})
	if keys := reg.Keys(); len(keys) != 0 {
		t.Errorf("Expected no keys after reset, got %v", keys)
	}

	// the incoming cache is cleared too, so the same value can be written again
	reg.UpdateByKey("key", "value")
	expectValue(t, reg.ReadByKey("key"), "value")

	// subscribers of the old state are gone
	if calls := rec.calls(); len(calls) != 1 {
		t.Errorf("Expected old subscriber not to be notified after reset, got %d calls", len(calls))
	}
	sub.Unsubscribe()
}

func testConcurrent(t *testing.T, reg registry.IRegistry) {
	const (
		workers = 8
		writes  = 200
	)

	var notified atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := registry.Key(fmt.Sprintf("worker-%d", w))
			sub := reg.Subscribe(key, func(registry.Value) { notified.Add(1) })
			defer sub.Unsubscribe()
			shared := reg.Subscribe("shared", func(registry.Value) {})
			defer shared.Unsubscribe()

			for i := 0; i < writes; i++ {
				reg.UpdateByKey(key, i)
				reg.UpdateByKey("shared", registry.Object{fmt.Sprintf("w%d", w): i})
				_ = reg.ReadManyByKeys([]registry.Key{key, "shared"})
			}
		}(w)
	}
	wg.Wait()

	if got := notified.Load(); got != workers*writes {
		t.Errorf("Expected %d notifications, got %d", workers*writes, got)
	}
	for w := 0; w < workers; w++ {
		expectValue(t, reg.ReadByKey(registry.Key(fmt.Sprintf("worker-%d", w))), writes-1)
	}
	if entry := reg.Get("shared", nil); entry.Subscribers != 0 {
		t.Errorf("Expected all shared subscriptions to be removed, got %d", entry.Subscribers)
	}
}

func testNilWrite(t *testing.T, reg registry.IRegistry) {
	rec := &recorder{}
	sub := reg.Subscribe("key", rec.fn)
	defer sub.Unsubscribe()

	reg.UpdateByKey("key", registry.Object{"a": 1})
	reg.UpdateByKey("key", nil)
	expectValue(t, reg.ReadByKey("key"), registry.Object{"a": 1})

	if changed := reg.Update("key", nil); changed {
		t.Errorf("Expected nil Update to report no change")
	}
	expectValue(t, reg.ReadByKey("key"), registry.Object{"a": 1})

	// the value is still set, so defaults must not apply
	reg.SetDefaultIfUnset("key", "default")
	expectValue(t, reg.ReadByKey("key"), registry.Object{"a": 1})

	for _, v := range rec.calls() {
		expectValue(t, v, registry.Object{"a": 1})
	}
}

func testUpdateClearsDedup(t *testing.T, reg registry.IRegistry) {
	rec := &recorder{}
	sub := reg.Subscribe("key", rec.fn)
	defer sub.Unsubscribe()

	reg.UpdateByKey("key", 1)
	reg.Update("key", 5)
	reg.UpdateByKey("key", 1)

	expectValue(t, reg.ReadByKey("key"), 1)
	expectValue(t, rec.calls(), []registry.Value{1, 1})
}

func testReadReturnsCopy(t *testing.T, reg registry.IRegistry) {
	reg.UpdateByKey("key", registry.Object{"a": 1})

	read := reg.ReadByKey("key").(registry.Object)
	read["a"] = 2
	read["b"] = 3

	snap := reg.Snapshot()["key"].(registry.Object)
	snap["c"] = 4

	entry := reg.Get("key", nil).Value.(registry.Object)
	entry["d"] = 5

	expectValue(t, reg.ReadByKey("key"), registry.Object{"a": 1})
}

func testSubscribeAndReadConcurrent(t *testing.T, reg registry.IRegistry) {
	const (
		readers = 16
		writes  = 500
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= writes; i++ {
			reg.UpdateByKey("key", i)
		}
	}()

	var wg sync.WaitGroup
	seen := make([]*recorder, readers)
	for r := 0; r < readers; r++ {
		seen[r] = &recorder{}
		wg.Add(1)
		go func(rec *recorder) {
			defer wg.Done()
			value, _, sub := reg.SubscribeAndRead("key", 0, rec.fn)
			rec.fn(value)
			<-done
			sub.Unsubscribe()
		}(seen[r])
	}
	wg.Wait()

	// every reader observed the final value, either by reading it or through a notification
	for r, rec := range seen {
		found := false
		for _, v := range rec.calls() {
			if v == writes {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Reader %d never observed the final value %d", r, writes)
		}
	}
}
