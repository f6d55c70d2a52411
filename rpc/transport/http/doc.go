// Package http implements an HTTP transport for the remote HAL. Every request is a
// POST of a serialized message to /{storeId}; the response body is the serialized
// response message.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport with round-robin selection
//     across endpoints and a retry per request. Endpoints without a scheme get
//     http:// prepended. Client timeouts are reported as transport.ErrTimeout and
//     end the request without a retry.
//
//   - httpServerTransport: Implements IRPCServerTransport on top of net/http.
//     Shutdown is the graceful shutdown of the http.Server. With log level debug
//     every request is logged.
//
// Together with the JSON serializer the server can be driven with curl:
//
//	curl -d '{"msg_type":"stats","partition":"nvs"}' localhost:8080/1
package http
