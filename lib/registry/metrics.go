package registry

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// registryMetrics bundles the counters of a single registry.
// Every registry owns its own metrics.Set, so multiple registries in one process
// (e.g. in tests) never clash on metric names.
type registryMetrics struct {
	set            *metrics.Set
	updates        *metrics.Counter // writes that changed a value
	suppressed     *metrics.Counter // UpdateByKey calls dropped by dedup
	notifications  *metrics.Counter // subscriber invocations
	subscriptions  *metrics.Counter
	unsubscription *metrics.Counter
}

func newRegistryMetrics(entries func() int) *registryMetrics {
	set := metrics.NewSet()
	m := &registryMetrics{
		set:            set,
		updates:        set.NewCounter("gstore_updates_total"),
		suppressed:     set.NewCounter("gstore_updates_suppressed_total"),
		notifications:  set.NewCounter("gstore_notifications_total"),
		subscriptions:  set.NewCounter("gstore_subscriptions_total"),
		unsubscription: set.NewCounter("gstore_unsubscriptions_total"),
	}
	set.NewGauge("gstore_entries", func() float64 {
		return float64(entries())
	})
	return m
}

func (m *registryMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
