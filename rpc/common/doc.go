// Package common provides the data structures shared by the remote HAL client,
// the server and the transports.
//
// The package focuses on:
//   - Message protocol definition for HAL operations over RPC
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with dragonboat's logger facade
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. One message type
//     per HAL operation; the same struct carries requests and responses. A
//     response always carries the hal.ReturnCode the server side HAL produced,
//     Err is only set if the request could not be processed at all (MsgTError).
//
//   - MessageType: Enumeration of all supported operations, grouped into
//     lifecycle, handle, value and introspection operations.
//
//   - ServerConfig: Stores served by the server (flash or memory), engine
//     parameters, the transport and the metrics endpoint.
//
//   - ClientConfig: Endpoints, retries, timeout and the store the client
//     addresses.
//
//   - Logger: Custom logging implementation for dragonboat's logger package,
//     writing "LEVEL | name | message" lines for the hal, engine, rpc,
//     transport/rpc and cmd loggers.
package common
