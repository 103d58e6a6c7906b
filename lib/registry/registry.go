package registry

import (
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var plog = logger.GetLogger("registry")

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// entry is the record stored for every key.
// The subscriber set keeps insertion order, which is the notification order.
type entry struct {
	mu           sync.Mutex
	value        Value
	lastIncoming Value // only used with DedupPerKey
	subs         *orderedmap.OrderedMap[uint64, Subscriber]
}

func newEntry(def Value) *entry {
	return &entry{
		value: def,
		subs:  orderedmap.New[uint64, Subscriber](),
	}
}

// snapshot returns the current value and a copy of the subscribers.
//
// Thread-safety: The caller must hold e.mu.
func (e *entry) snapshot() (Value, []Subscriber) {
	subs := make([]Subscriber, 0, e.subs.Len())
	for pair := e.subs.Oldest(); pair != nil; pair = pair.Next() {
		subs = append(subs, pair.Value)
	}
	return e.value, subs
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

type registryImpl struct {
	equal   func(a, b Value) bool
	dedup   DedupMode
	entries *xsync.MapOf[Key, *entry]
	subID   atomic.Uint64
	metrics *registryMetrics

	// last incoming value of any key (only used with DedupGlobal)
	incomingMu   sync.Mutex
	lastIncoming Value
}

// NewRegistry creates a new registry with the specified options (optional).
//
// A registry has no global state. Create one at application start and pass it to
// everything that shares state through it.
func NewRegistry(opts *Options) IRegistry {
	if opts == nil {
		opts = DefaultOptions()
	}

	r := &registryImpl{
		equal:   opts.Equal,
		dedup:   opts.Dedup,
		entries: xsync.NewMapOf[Key, *entry](),
	}
	if r.equal == nil {
		r.equal = DeepEqual
	}
	r.metrics = newRegistryMetrics(r.entries.Size)

	plog.Debugf("created registry (dedup=%s)", r.dedup)
	return r
}

// ensure returns the entry for key and creates it with def if it does not exist.
//
// Thread-safety: This method is thread-safe, def is only used by the caller that creates the entry.
func (r *registryImpl) ensure(key Key, def Value) *entry {
	e, _ := r.entries.LoadOrCompute(key, func() *entry {
		return newEntry(def)
	})
	return e
}

// acceptIncoming records value as the last incoming value and reports whether it differs from the previous one.
func (r *registryImpl) acceptIncoming(key Key, value Value) bool {
	if r.dedup == DedupGlobal {
		r.incomingMu.Lock()
		defer r.incomingMu.Unlock()
		if r.equal(r.lastIncoming, value) {
			return false
		}
		r.lastIncoming = value
		return true
	}

	e := r.ensure(key, nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.equal(e.lastIncoming, value) {
		return false
	}
	e.lastIncoming = value
	return true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see registry/interface.go)
// --------------------------------------------------------------------------

func (r *registryImpl) Ensure(key Key, def Value) {
	r.ensure(key, def)
}

func (r *registryImpl) Get(key Key, def Value) Entry {
	e := r.ensure(key, def)
	e.mu.Lock()
	defer e.mu.Unlock()
	return Entry{
		Key:         key,
		Value:       shallowCopy(e.value),
		Subscribers: e.subs.Len(),
	}
}

func (r *registryImpl) Update(key Key, value Value) bool {
	return r.update(key, value, true)
}

// update writes value for key. A direct write (not coming from UpdateByKey) clears the
// per-key incoming value, so the next UpdateByKey is compared against fresh state.
func (r *registryImpl) update(key Key, value Value, direct bool) bool {
	e := r.ensure(key, nil)
	e.mu.Lock()
	if direct {
		e.lastIncoming = nil
	}
	// a nil write keeps the stored value
	if value == nil || r.equal(e.value, value) {
		e.mu.Unlock()
		return false
	}
	e.value = merge(e.value, value)
	e.mu.Unlock()

	r.metrics.updates.Inc()
	return true
}

func (r *registryImpl) SetDefaultIfUnset(key Key, value Value) {
	if value == nil {
		r.ensure(key, nil)
		return
	}
	e := r.ensure(key, nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value == nil {
		e.value = merge(nil, value)
	}
}

func (r *registryImpl) Notify(key Key) {
	e := r.ensure(key, nil)

	// copy before notify, subscribers may call back into the registry
	e.mu.Lock()
	value, subs := e.snapshot()
	e.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
	r.metrics.notifications.Add(len(subs))
}

func (r *registryImpl) UpdateByKey(key Key, value Value) {
	if !r.acceptIncoming(key, value) {
		r.metrics.suppressed.Inc()
		return
	}
	r.update(key, value, false)
	r.Notify(key)
}

func (r *registryImpl) Subscribe(key Key, fn Subscriber) Subscription {
	e := r.ensure(key, nil)
	sub := &subscription{
		id:  r.subID.Add(1),
		key: key,
		reg: r,
		e:   e,
	}
	if fn == nil {
		sub.once.Do(func() {})
		return sub
	}

	e.mu.Lock()
	e.subs.Set(sub.id, fn)
	e.mu.Unlock()

	r.metrics.subscriptions.Inc()
	plog.Debugf("subscribed %d to %s", sub.id, key)
	return sub
}

func (r *registryImpl) SubscribeAndRead(key Key, initial Value, fn Subscriber) (Value, Updater, Subscription) {
	r.SetDefaultIfUnset(key, initial)
	r.Ensure(key, initial)
	// subscribe before reading, so no update between the two steps is lost
	sub := r.Subscribe(key, fn)
	current := r.Get(key, initial)
	update := func(value Value) {
		r.UpdateByKey(key, value)
	}
	return orEmpty(current.Value), update, sub
}

func (r *registryImpl) ReadByKey(key Key) Value {
	e, ok := r.entries.Load(key)
	if !ok {
		return Object{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return orEmpty(shallowCopy(e.value))
}

func (r *registryImpl) ReadManyByKeys(keys []Key) []Value {
	values := make([]Value, len(keys))
	for i, key := range keys {
		values[i] = r.ReadByKey(key)
	}
	return values
}

func (r *registryImpl) BatchUpdate(payload []KeyValue) {
	for _, item := range payload {
		r.UpdateByKey(item.Key, item.Value)
	}
}

func (r *registryImpl) Keys() []Key {
	keys := make([]Key, 0, r.entries.Size())
	r.entries.Range(func(key Key, _ *entry) bool {
		keys = append(keys, key)
		return true
	})
	slices.Sort(keys)
	return keys
}

func (r *registryImpl) Snapshot() map[Key]Value {
	values := make(map[Key]Value, r.entries.Size())
	r.entries.Range(func(key Key, e *entry) bool {
		e.mu.Lock()
		values[key] = shallowCopy(e.value)
		e.mu.Unlock()
		return true
	})
	return values
}

func (r *registryImpl) Reset() {
	r.entries.Clear()

	r.incomingMu.Lock()
	r.lastIncoming = nil
	r.incomingMu.Unlock()

	plog.Debugf("registry reset")
}

func (r *registryImpl) WritePrometheus(w io.Writer) {
	r.metrics.writePrometheus(w)
}

// --------------------------------------------------------------------------
// Subscription
// --------------------------------------------------------------------------

// subscription removes its callback from the entry it was registered on.
// After a Reset that entry is no longer reachable, so Unsubscribe is a no-op for the new state.
type subscription struct {
	id   uint64
	key  Key
	reg  *registryImpl
	e    *entry
	once sync.Once
}

func (s *subscription) ID() uint64 {
	return s.id
}

func (s *subscription) Key() Key {
	return s.key
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.e.mu.Lock()
		_, removed := s.e.subs.Delete(s.id)
		s.e.mu.Unlock()

		if removed {
			s.reg.metrics.unsubscription.Inc()
			plog.Debugf("unsubscribed %d from %s", s.id, s.key)
		}
	})
}
