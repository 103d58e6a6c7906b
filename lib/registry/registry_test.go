package registry_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/gStore/lib/registry"
	regtesting "github.com/ValentinKolb/gStore/lib/registry/testing"
)

func Test(t *testing.T) {
	regtesting.RunRegistryTests(t, "Registry", func() registry.IRegistry {
		return registry.NewRegistry(nil)
	})
}

func Benchmark(b *testing.B) {
	regtesting.RunRegistryBenchmarks(b, "Registry", func() registry.IRegistry {
		return registry.NewRegistry(nil)
	})
}

func TestGlobalDedup(t *testing.T) {
	reg := registry.NewRegistry(&registry.Options{Dedup: registry.DedupGlobal})

	var notifiedA, notifiedB int
	reg.Subscribe("A", func(registry.Value) { notifiedA++ })
	reg.Subscribe("B", func(registry.Value) { notifiedB++ })

	reg.UpdateByKey("A", registry.Object{"v": 1})
	// equal value on a different key right after is dropped in this mode
	reg.UpdateByKey("B", registry.Object{"v": 1})

	if notifiedA != 1 || notifiedB != 0 {
		t.Errorf("Expected notifications A=1 B=0, got A=%d B=%d", notifiedA, notifiedB)
	}
	if v := reg.ReadByKey("B"); len(v.(registry.Object)) != 0 {
		t.Errorf("Expected B to stay unset, got %v", v)
	}

	// any other value in between clears the slot
	reg.UpdateByKey("A", 2)
	reg.UpdateByKey("B", registry.Object{"v": 1})
	if notifiedB != 1 {
		t.Errorf("Expected B to be notified once, got %d", notifiedB)
	}

	reg.Reset()
	reg.UpdateByKey("A", 2)
	if v := reg.ReadByKey("A"); v != 2 {
		t.Errorf("Expected reset to clear the incoming slot, got %v", v)
	}
}

func TestPerKeyDedupAcrossKeys(t *testing.T) {
	reg := registry.NewRegistry(nil)

	reg.UpdateByKey("A", "same")
	reg.UpdateByKey("B", "same")

	if got := reg.ReadManyByKeys([]registry.Key{"A", "B"}); got[0] != "same" || got[1] != "same" {
		t.Errorf("Expected both keys to hold the value, got %v", got)
	}
}

func TestNilIncomingValueIsIgnored(t *testing.T) {
	reg := registry.NewRegistry(nil)

	calls := 0
	reg.Subscribe("key", func(registry.Value) { calls++ })
	reg.UpdateByKey("key", nil)

	if calls != 0 {
		t.Errorf("Expected nil write to be dropped, got %d notifications", calls)
	}
}

func TestCustomEqual(t *testing.T) {
	// treat all strings with the same length as equal
	reg := registry.NewRegistry(&registry.Options{
		Equal: func(a, b registry.Value) bool {
			as, aok := a.(string)
			bs, bok := b.(string)
			if aok && bok {
				return len(as) == len(bs)
			}
			return registry.DeepEqual(a, b)
		},
	})

	reg.UpdateByKey("key", "abc")
	reg.UpdateByKey("key", "xyz")

	if v := reg.ReadByKey("key"); v != "abc" {
		t.Errorf("Expected custom equality to suppress the write, got %v", v)
	}
}

func TestDeepEqual(t *testing.T) {
	type private struct {
		name  string
		count int
	}
	now := time.Now()

	cases := []struct {
		name string
		a, b registry.Value
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil vs empty object", nil, registry.Object{}, false},
		{"ints", 1, 1, true},
		{"int vs float", 1, 1.0, false},
		{"nested objects", registry.Object{"a": []int{1, 2}}, registry.Object{"a": []int{1, 2}}, true},
		{"different nested", registry.Object{"a": []int{1, 2}}, registry.Object{"a": []int{2, 1}}, false},
		{"unexported fields", private{"x", 1}, private{"x", 1}, true},
		{"unexported fields differ", private{"x", 1}, private{"x", 2}, false},
		{"time with equal method", now, now.In(time.UTC), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := registry.DeepEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("DeepEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestKeysAndSnapshot(t *testing.T) {
	reg := registry.NewRegistry(nil)
	reg.BatchUpdate([]registry.KeyValue{
		{Key: "c", Value: 3},
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
	})

	keys := reg.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("Expected sorted keys [a b c], got %v", keys)
	}

	snap := reg.Snapshot()
	if len(snap) != 3 || snap["a"] != 1 || snap["c"] != 3 {
		t.Errorf("Unexpected snapshot %v", snap)
	}
}

func TestParseDedupMode(t *testing.T) {
	for _, mode := range []registry.DedupMode{registry.DedupPerKey, registry.DedupGlobal} {
		parsed, ok := registry.ParseDedupMode(mode.String())
		if !ok || parsed != mode {
			t.Errorf("Expected %s to parse back, got %v (ok=%v)", mode, parsed, ok)
		}
	}
	if _, ok := registry.ParseDedupMode("sometimes"); ok {
		t.Errorf("Expected invalid mode to be rejected")
	}
}

func TestWritePrometheus(t *testing.T) {
	reg := registry.NewRegistry(nil)
	sub := reg.Subscribe("key", func(registry.Value) {})
	reg.UpdateByKey("key", 1)
	reg.UpdateByKey("key", 1)
	sub.Unsubscribe()

	var buf bytes.Buffer
	reg.WritePrometheus(&buf)
	out := buf.String()

	for _, line := range []string{
		"gstore_updates_total 1",
		"gstore_updates_suppressed_total 1",
		"gstore_notifications_total 1",
		"gstore_subscriptions_total 1",
		"gstore_unsubscriptions_total 1",
		"gstore_entries 1",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("Expected metrics output to contain %q, got:\n%s", line, out)
		}
	}
}
