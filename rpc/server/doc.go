// Package server implements the RPC server of the remote HAL. A server hosts any
// number of stores, each a HAL addressed by its store ID, and routes every request
// to the adapter of the requested store.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes one request against a hal.IStorageHAL.
//
//   - NewHALServerAdapter: Creates the adapter of one store. Handles opened through
//     the adapter are kept in a map keyed by handle ID; a request that names an
//     unknown handle is answered with CodeInvalid without reaching the HAL.
//
//   - NewRPCServer: Creates a server with the specified transport and serializer.
//     Stores are either registered with RegisterStore or created from the
//     configuration when Serve is called.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Stores: []common.ServerStore{
//	    {StoreID: 1, Type: common.StoreTypeFlash},
//	    {StoreID: 2, Type: common.StoreTypeMemory},
//	  },
//	  DataDir:       "./data",
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	go func() {
//	  if err := s.Serve(); err != nil && !errors.Is(err, transport.ErrClosed) {
//	    log.Fatalf("Server error: %v", err)
//	  }
//	}()
//	...
//	_ = s.Shutdown(ctx)
//
// The server supports two types of stores, which can be mixed within a single server:
//
//   - StoreTypeFlash: A bbolt backed engine with one file per partition below
//     DataDir/<storeId>. Committed data survives restarts.
//
//   - StoreTypeMemory: A volatile engine, suitable for tests and development.
//
// If MetricsEndpoint is set, the request counters of the server and the operation
// metrics of every store are served on /metrics in Prometheus text format.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Serve must be called only once.
package server
