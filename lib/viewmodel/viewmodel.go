package viewmodel

import (
	"sync"

	"github.com/ValentinKolb/gStore/lib/registry"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("viewmodel")

// --------------------------------------------------------------------------
// Instantiation
// --------------------------------------------------------------------------

// Use creates a new view model from props.
func Use[VM any, P any](ctor func(props P) VM, props P) VM {
	return ctor(props)
}

// UseWithContext creates a new view model from props and a context value.
func UseWithContext[VM any, P any, C any](ctor func(props P, ctx C) VM, props P, ctx C) VM {
	return ctor(props, ctx)
}

// --------------------------------------------------------------------------
// StoreViewModel
// --------------------------------------------------------------------------

// StoreViewModel is the base of view models that share state through a registry.
type StoreViewModel[P any] struct {
	Props P

	reg  registry.IRegistry
	mu   sync.Mutex
	subs []registry.Subscription
}

// NewStoreViewModel creates a StoreViewModel bound to reg.
func NewStoreViewModel[P any](reg registry.IRegistry, props P) *StoreViewModel[P] {
	return &StoreViewModel[P]{
		Props: props,
		reg:   reg,
	}
}

// Registry returns the registry the view model is bound to.
func (vm *StoreViewModel[P]) Registry() registry.IRegistry {
	return vm.reg
}

// UseGlobalStore reads key (using initial as default) and subscribes onChange to it.
// It returns the current value and an updater for the key. The subscription is
// released by Dispose.
func (vm *StoreViewModel[P]) UseGlobalStore(key registry.Key, initial registry.Value, onChange registry.Subscriber) (registry.Value, registry.Updater) {
	value, update, sub := vm.reg.SubscribeAndRead(key, initial, onChange)

	vm.mu.Lock()
	vm.subs = append(vm.subs, sub)
	vm.mu.Unlock()

	return value, update
}

// ReadByKey see registry.IRegistry
func (vm *StoreViewModel[P]) ReadByKey(key registry.Key) registry.Value {
	return vm.reg.ReadByKey(key)
}

// ReadManyByKeys see registry.IRegistry
func (vm *StoreViewModel[P]) ReadManyByKeys(keys []registry.Key) []registry.Value {
	return vm.reg.ReadManyByKeys(keys)
}

// UpdateByKey see registry.IRegistry
func (vm *StoreViewModel[P]) UpdateByKey(key registry.Key, value registry.Value) {
	vm.reg.UpdateByKey(key, value)
}

// BatchUpdate see registry.IRegistry
func (vm *StoreViewModel[P]) BatchUpdate(payload []registry.KeyValue) {
	vm.reg.BatchUpdate(payload)
}

// Subscriptions returns the number of subscriptions the view model currently holds.
func (vm *StoreViewModel[P]) Subscriptions() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.subs)
}

// Dispose removes every subscription made through UseGlobalStore.
// The view model stays usable, later calls to UseGlobalStore subscribe again.
func (vm *StoreViewModel[P]) Dispose() {
	vm.mu.Lock()
	subs := vm.subs
	vm.subs = nil
	vm.mu.Unlock()

	for _, sub := range subs {
		plog.Debugf("cleaning %s store...", sub.Key())
		sub.Unsubscribe()
	}
}
