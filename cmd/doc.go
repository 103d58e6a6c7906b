// Package cmd implements the command-line interface of gStore.
//
// The package is organized into several subpackages:
//
//   - shell: An interactive shell to read, write and observe registry keys
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See gstore -help for a list of all commands.
package cmd
