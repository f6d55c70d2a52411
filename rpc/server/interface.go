package server

import (
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request against the HAL of a store and returns a response.
	// The outcome of the HAL operation is carried in the response code; an error
	// response is only returned for requests that cannot be processed at all.
	Handle(req *common.Message, h hal.IStorageHAL) (resp *common.Message)
}
