package server

import (
	"fmt"

	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewHALServerAdapter creates an adapter for one store. The adapter tracks the
// handles opened through it, so every store needs its own adapter.
func NewHALServerAdapter() IRPCServerAdapter {
	return &halServerAdapterImpl{
		handles: xsync.NewMapOf[uint32, *hal.Handle](),
	}
}

type halServerAdapterImpl struct {
	handles *xsync.MapOf[uint32, *hal.Handle]
}

func (adapter *halServerAdapterImpl) Handle(req *common.Message, h hal.IStorageHAL) *common.Message {
	if h == nil {
		return common.NewErrorResponse("handler: hal is nil")
	}

	switch req.MsgType {
	case common.MsgTInit:
		return common.NewCodeResponse(req.MsgType, h.InitializePartition(req.Partition))
	case common.MsgTDeinit:
		return common.NewCodeResponse(req.MsgType, h.Deinitialize(req.Partition))
	case common.MsgTErase:
		return common.NewCodeResponse(req.MsgType, h.Erase(req.Partition))
	case common.MsgTOpen:
		handle, code := h.Open(req.Namespace, req.Mode, req.Partition)
		if code != hal.CodeNormal {
			return common.NewOpenResponse(0, code)
		}
		adapter.handles.Store(handle.ID(), handle)
		return common.NewOpenResponse(handle.ID(), code)
	case common.MsgTClose:
		handle, ok := adapter.handles.LoadAndDelete(req.Handle)
		if !ok {
			return common.NewCodeResponse(req.MsgType, hal.CodeInvalid)
		}
		return common.NewCodeResponse(req.MsgType, h.Close(handle))
	case common.MsgTRead:
		handle, ok := adapter.handles.Load(req.Handle)
		if !ok {
			return common.NewReadResponse(0, hal.CodeInvalid)
		}
		return common.NewReadResponse(h.ReadBits(handle, req.Key, req.ValueType))
	case common.MsgTWrite:
		return adapter.withHandle(req, func(handle *hal.Handle) hal.ReturnCode {
			return h.WriteBits(handle, req.Key, req.ValueType, req.Bits)
		})
	case common.MsgTEraseKey:
		return adapter.withHandle(req, func(handle *hal.Handle) hal.ReturnCode {
			return h.EraseKey(handle, req.Key)
		})
	case common.MsgTEraseAll:
		return adapter.withHandle(req, h.EraseAll)
	case common.MsgTCommit:
		return adapter.withHandle(req, h.Commit)
	case common.MsgTStats:
		return common.NewStatsResponse(h.Stats(req.Partition))
	case common.MsgTList:
		return common.NewListResponse(h.List(req.Partition, req.Namespace))
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC HALAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// withHandle runs op on the handle the request refers to. Unknown handles are Invalid.
func (adapter *halServerAdapterImpl) withHandle(req *common.Message, op func(handle *hal.Handle) hal.ReturnCode) *common.Message {
	handle, ok := adapter.handles.Load(req.Handle)
	if !ok {
		return common.NewCodeResponse(req.MsgType, hal.CodeInvalid)
	}
	return common.NewCodeResponse(req.MsgType, op(handle))
}
