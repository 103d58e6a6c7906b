package testing

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/gStore/lib/registry"
)

// RunRegistryBenchmarks runs benchmarks for the common registry operations.
func RunRegistryBenchmarks(b *testing.B, name string, factory RegistryFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("UpdateByKey", func(b *testing.B) {
			benchmarkUpdateByKey(b, factory())
		})

		b.Run("UpdateByKeyObject", func(b *testing.B) {
			benchmarkUpdateByKeyObject(b, factory())
		})

		b.Run("ReadByKey", func(b *testing.B) {
			benchmarkReadByKey(b, factory())
		})

		b.Run("Notify(10 subscribers)", func(b *testing.B) {
			benchmarkNotify(b, factory(), 10)
		})

		b.Run("Subscribe&Unsubscribe", func(b *testing.B) {
			benchmarkSubscribeUnsubscribe(b, factory())
		})

		b.Run("MixedParallel", func(b *testing.B) {
			benchmarkMixedParallel(b, factory())
		})
	})
}

func benchmarkUpdateByKey(b *testing.B, reg registry.IRegistry) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.UpdateByKey("key", i)
	}
}

func benchmarkUpdateByKeyObject(b *testing.B, reg registry.IRegistry) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.UpdateByKey("key", registry.Object{"counter": i, "name": "bench"})
	}
}

func benchmarkReadByKey(b *testing.B, reg registry.IRegistry) {
	for i := 0; i < 1000; i++ {
		reg.UpdateByKey(registry.Key(fmt.Sprintf("key-%d", i)), i)
	}
	keys := reg.Keys()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reg.ReadByKey(keys[i%len(keys)])
	}
}

func benchmarkNotify(b *testing.B, reg registry.IRegistry, subscribers int) {
	for i := 0; i < subscribers; i++ {
		reg.Subscribe("key", func(registry.Value) {})
	}
	reg.UpdateByKey("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Notify("key")
	}
}

func benchmarkSubscribeUnsubscribe(b *testing.B, reg registry.IRegistry) {
	fn := func(registry.Value) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Subscribe("key", fn).Unsubscribe()
	}
}

func benchmarkMixedParallel(b *testing.B, reg registry.IRegistry) {
	keys := make([]registry.Key, 64)
	for i := range keys {
		keys[i] = registry.Key(fmt.Sprintf("key-%d", i))
		reg.Subscribe(keys[i], func(registry.Value) {})
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := keys[i%len(keys)]
			if i%4 == 0 {
				reg.UpdateByKey(key, i)
			} else {
				_ = reg.ReadByKey(key)
			}
			i++
		}
	})
}
