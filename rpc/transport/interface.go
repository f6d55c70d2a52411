package transport

import (
	"context"
	"errors"

	"github.com/intermode/nvs-hal/rpc/common"
)

// ErrTimeout is returned (wrapped) by client transports if no response arrived in time
var ErrTimeout = errors.New("request timed out")

// ErrClosed is returned by server transports after Shutdown
var ErrClosed = errors.New("transport closed")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a storeID and a request as parameters and returns a response
type ServerHandleFunc func(storeID uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until Shutdown is called or the
	// listener fails. After Shutdown it returns ErrClosed.
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting connections and waits for in-flight requests until
	// the context is done
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(storeID uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
