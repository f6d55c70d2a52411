// Package unix implements the Unix domain socket transport of the remote HAL, for
// callers running on the same machine as the server.
//
// This package provides the unix specific connectors for the base package, which
// implements framing, connection pooling and the server worker pool.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, removing a stale socket file first
package unix
