// Package testing provides a standardized test suite and benchmarks for
// implementations of the registry.IRegistry interface.
//
//   - RunRegistryTests: Runs the test suite against fresh registries from a factory
//   - RunRegistryBenchmarks: Measures the common read, write and notify paths
package testing
