package viewmodel

import (
	"testing"

	"github.com/ValentinKolb/gStore/lib/registry"
	"github.com/google/go-cmp/cmp"
)

const (
	keyCart  registry.Key = "cart"
	keyTheme registry.Key = "theme"
)

type cartProps struct {
	Title string
}

type cartVM struct {
	*StoreViewModel[cartProps]
	renders int
}

func newCartVM(props cartProps, reg registry.IRegistry) *cartVM {
	return &cartVM{StoreViewModel: NewStoreViewModel(reg, props)}
}

func TestUseCreatesFreshInstances(t *testing.T) {
	calls := 0
	ctor := func(props cartProps) *cartProps {
		calls++
		return &props
	}

	first := Use(ctor, cartProps{Title: "a"})
	second := Use(ctor, cartProps{Title: "a"})

	if calls != 2 {
		t.Errorf("Expected constructor to run on every call, ran %d times", calls)
	}
	if first == second {
		t.Errorf("Expected distinct instances")
	}
	if first.Title != "a" {
		t.Errorf("Expected props to be passed, got %q", first.Title)
	}
}

func TestUseWithContext(t *testing.T) {
	reg := registry.NewRegistry(nil)

	vm := UseWithContext(newCartVM, cartProps{Title: "cart"}, reg)

	if vm.Props.Title != "cart" {
		t.Errorf("Expected props title %q, got %q", "cart", vm.Props.Title)
	}
	if vm.Registry() != reg {
		t.Errorf("Expected view model to be bound to the given registry")
	}
	if other := UseWithContext(newCartVM, cartProps{Title: "cart"}, reg); other == vm {
		t.Errorf("Expected a new view model per call")
	}
}

func TestUseGlobalStoreSharesState(t *testing.T) {
	reg := registry.NewRegistry(nil)

	a := newCartVM(cartProps{Title: "a"}, reg)
	b := newCartVM(cartProps{Title: "b"}, reg)

	var seenByB []registry.Value
	valueA, setCart := a.UseGlobalStore(keyCart, registry.Object{"items": 0}, func(registry.Value) { a.renders++ })
	valueB, _ := b.UseGlobalStore(keyCart, registry.Object{"items": 5}, func(v registry.Value) {
		b.renders++
		seenByB = append(seenByB, v)
	})

	if diff := cmp.Diff(registry.Object{"items": 0}, valueA); diff != "" {
		t.Errorf("Unexpected initial value (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(registry.Object{"items": 0}, valueB); diff != "" {
		t.Errorf("Expected second component to see shared value (-want +got):\n%s", diff)
	}

	setCart(registry.Object{"items": 1})

	if a.renders != 1 || b.renders != 1 {
		t.Errorf("Expected both components to re-render once, got a=%d b=%d", a.renders, b.renders)
	}
	if diff := cmp.Diff([]registry.Value{registry.Object{"items": 1}}, seenByB); diff != "" {
		t.Errorf("Unexpected notifications (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(registry.Object{"items": 1}, b.ReadByKey(keyCart)); diff != "" {
		t.Errorf("Unexpected stored value (-want +got):\n%s", diff)
	}
}

func TestDisposeUnsubscribes(t *testing.T) {
	reg := registry.NewRegistry(nil)
	vm := newCartVM(cartProps{}, reg)

	vm.UseGlobalStore(keyCart, nil, func(registry.Value) { vm.renders++ })
	vm.UseGlobalStore(keyTheme, "light", func(registry.Value) { vm.renders++ })

	if vm.Subscriptions() != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", vm.Subscriptions())
	}

	vm.Dispose()
	vm.Dispose()

	vm.UpdateByKey(keyCart, registry.Object{"items": 3})
	vm.BatchUpdate([]registry.KeyValue{{Key: keyTheme, Value: "dark"}})

	if vm.renders != 0 {
		t.Errorf("Expected no re-render after dispose, got %d", vm.renders)
	}
	if vm.Subscriptions() != 0 {
		t.Errorf("Expected no subscriptions after dispose, got %d", vm.Subscriptions())
	}
	for _, key := range []registry.Key{keyCart, keyTheme} {
		if entry := reg.Get(key, nil); entry.Subscribers != 0 {
			t.Errorf("Expected no subscribers for %s, got %d", key, entry.Subscribers)
		}
	}

	got := vm.ReadManyByKeys([]registry.Key{keyTheme, keyCart})
	want := []registry.Value{"dark", registry.Object{"items": 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected values (-want +got):\n%s", diff)
	}
}
