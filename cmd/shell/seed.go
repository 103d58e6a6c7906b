package shell

import (
	"fmt"
	"os"
	"sort"

	"github.com/ValentinKolb/gStore/lib/registry"
	"gopkg.in/yaml.v3"
)

// loadSeed reads a YAML mapping of keys to values and returns it as a batch
// sorted by key. Nested mappings are decoded as registry.Object values.
func loadSeed(path string) ([]registry.KeyValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	payload := make([]registry.KeyValue, 0, len(keys))
	for _, key := range keys {
		payload = append(payload, registry.KeyValue{Key: registry.Key(key), Value: raw[key]})
	}
	return payload, nil
}
