package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/gStore/lib/registry"
)

// --------------------------------------------------------------------------
// Shell configuration struct
// --------------------------------------------------------------------------

// ShellConfig holds all configuration parameters of the interactive shell
type ShellConfig struct {
	// registry options
	Dedup registry.DedupMode

	// optional YAML file with initial values (key: value)
	SeedFile string

	// address for the prometheus metrics endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// RegistryOptions converts the config to registry options
func (c *ShellConfig) RegistryOptions() *registry.Options {
	opts := registry.DefaultOptions()
	opts.Dedup = c.Dedup
	return opts
}

// String returns a formatted string representation of the configuration
func (c *ShellConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	or := func(value, fallback string) string {
		if value == "" {
			return fallback
		}
		return value
	}

	addSection("Registry")
	addField("Dedup", c.Dedup.String())
	addField("Seed File", or(c.SeedFile, "-"))

	addSection("Metrics")
	addField("Endpoint", or(c.MetricsEndpoint, "disabled"))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
