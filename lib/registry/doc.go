// Package registry implements a keyed, observable value store that lets
// independent consumers (UI components, view models, goroutines) share state.
// Every key maps to a record holding the current value and an ordered set of
// subscribers. Writing a value through UpdateByKey stores it and pushes it to
// all subscribers of that key before the call returns.
//
// The package focuses on:
//   - A small interface (IRegistry) for reading, writing and observing keys
//   - First-class subscriptions that can be removed again (Subscription)
//   - Suppression of redundant writes through deep equality
//   - Explicit lifecycle: a registry is created with NewRegistry and can be Reset
//
// Key Components:
//
//   - Entry Records: Created lazily on first access, optionally with a default
//     value, and kept until Reset. A nil value means "not set". Reads of unset
//     or unknown keys return an empty Object instead of nil.
//
//   - Merge Semantics: Update shallowly merges an Object into a stored Object
//     (keys of the new value win). Any other value replaces the stored one.
//     Writes that are deeply equal to the stored value are ignored.
//
//   - Deduplication: UpdateByKey remembers the last incoming value and drops a
//     write that is equal to it. With DedupPerKey (default) the comparison is
//     per key. DedupGlobal keeps a single slot for all keys, which means a write
//     to key B is dropped if the previous write to key A carried an equal value.
//
//   - Subscriptions: Subscribe returns a Subscription whose Unsubscribe removes
//     exactly the registered callback. Subscribers are notified in the order in
//     which they subscribed.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Entries are stored in an
//	xsync.MapOf, every entry has its own mutex. Subscribers are copied under
//	the lock and called after it is released, in the goroutine that triggered
//	the notification. A subscriber may therefore call back into the registry
//	(read, write or unsubscribe) without deadlocking.
//
// Usage Example:
//
//	const KeyCart registry.Key = "cart"
//
//	reg := registry.NewRegistry(nil)
//
//	value, update, sub := reg.SubscribeAndRead(KeyCart, registry.Object{"items": 0}, func(v registry.Value) {
//	    fmt.Println("cart changed:", v)
//	})
//	defer sub.Unsubscribe()
//
//	update(registry.Object{"items": 1}) // prints "cart changed: map[items:1]"
//
// Metrics:
//
//	Every registry owns a VictoriaMetrics metrics.Set with update, suppression,
//	notification and subscription counters. Use WritePrometheus to export them.
package registry
