// Package cmd implements the command-line interface for the sDB embedded
// document store. It provides a hierarchical command structure for inspecting
// and modifying a store file.
//
// The package is organized into several subpackages:
//
//   - doc: Commands for document operations (get, set, find, export, etc.) and a perf tool
//   - info: Command printing store information and metrics
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See sdb -help for a list of all commands.
package cmd
