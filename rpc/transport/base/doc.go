// Package base provides the stream transport shared by the tcp and unix transports
// of the remote HAL. It implements framing, request correlation, connection pooling
// and the server worker pool independent of the network protocol; protocol specific
// parts are injected as connectors.
//
// Frame format (big endian):
//
//	8 bytes  storeID
//	8 bytes  requestID
//	4 bytes  payload length
//	N bytes  payload (a serialized common.Message)
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (dialing, listening and socket tuning).
//
//   - clientTransport: Manages several connections per endpoint with round-robin
//     selection. Responses are matched to requests by request ID, so many requests
//     can be in flight on one connection. Broken connections fail their pending
//     requests and are restored in the background. Requests that get no response
//     in time fail with transport.ErrTimeout and are not retried, the server may
//     already have executed them. Other send failures are retried with backoff.
//
//   - serverTransport: Accepts connections and processes the requests of a
//     connection with a bounded number of workers. Payload buffers are pooled.
//     Shutdown stops accepting, lets in-flight requests finish and closes the
//     remaining connections once the context is done.
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base
