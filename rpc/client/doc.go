// Package client implements the RPC client of the remote HAL. RPCHAL implements
// hal.IStorageHAL and forwards every operation to one store of a remote server.
//
// The package focuses on:
//   - Transparent remote access to a HAL, callers use the same typed helpers
//     (hal.Read, hal.Write, ...) as for a local HAL
//   - Integration with the transport and serialization layers
//   - Mapping of transport failures to return codes
//
// Handle state is checked locally. Using a closed handle returns CodeInvalid and
// writing through a read only handle returns CodePermission, both without a round
// trip. Close always closes the handle locally, even if the server is unreachable.
//
// Failures are mapped as follows:
//
//	transport timeout                  -> CodeTimeout
//	server unreachable, broken conn    -> CodeNotReady
//	undecodable or unexpected response -> CodeError
//	unknown store                      -> CodeError
//
// Transports retry requests that could not be delivered. A request that timed out
// is never retried, the server may have executed it. After CodeTimeout the outcome
// is unknown: an Open may have created a handle on the server and an EraseKey may
// have removed the key, so a repeated EraseKey can return CodeNotFound.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	  TimeoutSecond: 5,
//	}
//
//	h, err := client.NewRPCHAL(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer h.Disconnect()
//
//	handle, code := h.Open("storage", hal.ReadWrite, "")
//	if code != hal.CodeNormal {
//	  log.Fatal(code)
//	}
//	code = hal.Write[int32](h, handle, "restart_counter", 1)
//
// Thread Safety:
//
//	RPCHAL is thread-safe and can be used concurrently from multiple goroutines
//	without additional synchronization.
package client
