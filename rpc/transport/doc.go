// Package transport defines the interfaces of the remote HAL transports. A transport
// moves opaque request and response payloads for a store ID; serialization is left to
// the serializer package.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests, routes them to the registered handler and shuts down gracefully.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
//   - ErrTimeout, ErrClosed: Sentinel errors callers test with errors.Is.
//
// Implementations: tcp and unix (both on top of base) and http.
package transport
