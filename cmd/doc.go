// Package cmd implements the command-line interface of nvs. It provides a
// hierarchical command structure with operations for running the server,
// interacting with it as a client and using a local store directly.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the RPC server for one or more flash or memory stores
//   - kv: Commands for remote store operations (init, erase, get, set, del, clear, stats, ls, perf)
//   - counter: Increments the restart counter of a local flash store
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable NVS_<FLAG> or in a .env file.
//
// See nvs -help for a list of all commands.
package cmd
