// Package rpc makes a storage HAL available over the network. A server process
// owns the engines and serves one HAL per store ID; clients get an
// hal.IStorageHAL that forwards every operation to it.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, the server and client configuration and the
//     logger setup shared by both sides.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPCHAL, the hal.IStorageHAL implementation on top of a transport.
//
//   - server: RPCServer and the adapter that dispatches requests to a HAL.
//
// Return codes travel unchanged from the server side HAL to the caller. Failures
// that happen before the remote HAL produced a code are mapped on the client:
// Timeout for a transport timeout, NotReady for an unreachable server and Error
// for everything else.
package rpc
