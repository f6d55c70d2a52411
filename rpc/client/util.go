package client

import (
	"errors"

	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	storeID    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest sends a request and returns the response together with the
// return code of the remote operation.
//
// Failures that happen before the remote HAL produced a code are mapped locally:
// a transport timeout is CodeTimeout, any other transport failure is CodeNotReady
// and a response that cannot be understood is CodeError. The response is nil in
// these cases.
func (a *rpcClientAdapter) invokeRPCRequest(req *common.Message) (*common.Message, hal.ReturnCode) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		Logger.Errorf("failed to serialize %s request: %v", req.MsgType, err)
		return nil, hal.CodeError
	}

	respBytes, err := a.transport.Send(a.storeID, reqBytes)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			Logger.Warningf("%s request to store %d timed out: %v", req.MsgType, a.storeID, err)
			return nil, hal.CodeTimeout
		}
		Logger.Warningf("%s request to store %d failed: %v", req.MsgType, a.storeID, err)
		return nil, hal.CodeNotReady
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		Logger.Errorf("failed to deserialize %s response: %v", req.MsgType, err)
		return nil, hal.CodeError
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError {
		Logger.Errorf("%s request to store %d rejected: %s", req.MsgType, a.storeID, resp.Err)
		return nil, hal.CodeError
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		Logger.Errorf("unexpected message type %s, expected %s", resp.MsgType, req.MsgType)
		return nil, hal.CodeError
	}

	if !resp.Code.Valid() {
		Logger.Errorf("%s response carries unknown return code %d", req.MsgType, uint8(resp.Code))
		return nil, hal.CodeError
	}

	return resp, resp.Code
}
