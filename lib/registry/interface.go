package registry

import (
	"io"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Key identifies an entry in the registry.
// The package declares no keys itself, consumers define their own:
//
//	const KeyUser registry.Key = "user"
type Key string

// Value is any value stored in the registry. A nil Value means "not set".
type Value = any

// Object is the object-shaped value understood by the merge path of Update.
// Updating an Object entry with another Object merges the two shallowly.
type Object = map[string]any

// Subscriber is called with the current value of a key after it was updated.
// The value is shared with the registry and all other subscribers and must be treated as read-only.
type Subscriber func(value Value)

// Updater writes a value for the key it was created for (see IRegistry.UpdateByKey).
type Updater func(value Value)

// KeyValue is a single item of a batch update.
type KeyValue struct {
	Key   Key   `json:"key" yaml:"key"`
	Value Value `json:"value" yaml:"value"`
}

// Entry is a read-only snapshot of a registry record.
type Entry struct {
	Key         Key
	Value       Value
	Subscribers int
}

// Subscription is returned by every subscribe operation.
// Unsubscribe removes exactly the callback that was registered and may be called multiple times.
type Subscription interface {
	// ID returns the registry wide unique id of the subscription.
	ID() uint64
	// Key returns the key the subscription listens to.
	Key() Key
	// Unsubscribe removes the callback from the subscriber set of the key.
	Unsubscribe()
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IRegistry is a keyed, observable value store.
// Entries are created lazily on first access and live until Reset is called.
// Every successful UpdateByKey synchronously notifies the subscribers of the key
// in the order they subscribed, before the call returns.
type IRegistry interface {
	// Ensure creates the entry for key with the given default value if it does not exist yet.
	Ensure(key Key, def Value)
	// Get ensures the entry exists (see Ensure) and returns a snapshot of it.
	Get(key Key, def Value) (entry Entry)
	// Update writes value for key without notifying subscribers.
	// If value is deeply equal to the stored value nothing happens. If both values are
	// Objects they are merged shallowly, otherwise value replaces the stored value.
	// A nil value keeps the stored value. Update bypasses deduplication and clears the
	// last incoming value of key (DedupPerKey), so the next UpdateByKey is always applied.
	// The return value reports whether the stored value changed.
	Update(key Key, value Value) (changed bool)
	// SetDefaultIfUnset writes value only if the stored value is nil and value is not nil.
	SetDefaultIfUnset(key Key, value Value)
	// Notify calls every subscriber of key with the current value.
	Notify(key Key)
	// UpdateByKey skips values equal to the last incoming value, otherwise it updates
	// the entry and notifies all subscribers of the key.
	UpdateByKey(key Key, value Value)
	// Subscribe registers fn for updates of key.
	Subscribe(key Key, fn Subscriber) (sub Subscription)
	// SubscribeAndRead sets initial as default value, subscribes fn and returns the current
	// value (or an empty Object), an Updater bound to key and the subscription handle.
	SubscribeAndRead(key Key, initial Value, fn Subscriber) (value Value, update Updater, sub Subscription)
	// ReadByKey returns the stored value for key or an empty Object.
	// Objects are returned as shallow copies, nested values are shared and must not be modified.
	ReadByKey(key Key) (value Value)
	// ReadManyByKeys returns the stored values for keys in the same order (see ReadByKey).
	ReadManyByKeys(keys []Key) (values []Value)
	// BatchUpdate applies UpdateByKey for every item of payload in order.
	BatchUpdate(payload []KeyValue)
	// Keys returns all keys known to the registry in sorted order.
	Keys() (keys []Key)
	// Snapshot returns a copy of all stored values (Objects are copied shallowly, see ReadByKey).
	Snapshot() (values map[Key]Value)
	// Reset removes all entries, subscribers and cached incoming values.
	Reset()
	// WritePrometheus writes the metrics of the registry in prometheus text format.
	WritePrometheus(w io.Writer)
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DedupMode selects how UpdateByKey detects repeated writes.
type DedupMode int

const (
	// DedupPerKey compares an incoming value with the last incoming value of the same key.
	DedupPerKey DedupMode = iota
	// DedupGlobal compares an incoming value with the last incoming value of any key.
	// A write is therefore suppressed if the previous write to a different key carried an
	// equal value. Only use this mode if this exact behaviour is required.
	DedupGlobal
)

func (m DedupMode) String() string {
	switch m {
	case DedupPerKey:
		return "per-key"
	case DedupGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ParseDedupMode converts the string representation of a DedupMode back.
func ParseDedupMode(s string) (DedupMode, bool) {
	switch s {
	case "per-key", "":
		return DedupPerKey, true
	case "global":
		return DedupGlobal, true
	default:
		return DedupPerKey, false
	}
}

// Options configures a registry during initialization
type Options struct {
	Dedup DedupMode             // How repeated writes are detected
	Equal func(a, b Value) bool // Equality used for dedup and no-op detection (nil = DeepEqual)
}

// DefaultOptions returns the default registry options
func DefaultOptions() *Options {
	return &Options{
		Dedup: DedupPerKey,
		Equal: DeepEqual,
	}
}
