package client

import (
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/transport"
)

// NewRPCHAL creates a HAL that forwards every operation to the store storeID of a
// remote server.
// The function takes a store ID, a config, a transport and a serializer as parameters.
func NewRPCHAL(
	storeID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCHAL, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCHAL{
		rpcClientAdapter{
			storeID:    storeID,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCHAL implements hal.IStorageHAL over RPC.
//
// Handle state (closed, mode) is checked locally before a request is sent, so
// using a closed handle or writing through a read only handle never reaches the
// server. CodeTimeout leaves the outcome of an operation unknown, timed out
// requests are not retried.
type RPCHAL struct {
	rpcClientAdapter
}

var _ hal.IStorageHAL = (*RPCHAL)(nil)

// Disconnect closes the transport. Handles that are still open stay open on the
// server until it deinitializes the partition.
func (c *RPCHAL) Disconnect() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the hal package in hal.go)
// --------------------------------------------------------------------------

func (c *RPCHAL) Initialize() hal.ReturnCode {
	return c.InitializePartition(hal.DefaultPartition)
}

func (c *RPCHAL) InitializePartition(partition string) hal.ReturnCode {
	_, code := c.invokeRPCRequest(common.NewInitRequest(hal.ResolvePartition(partition)))
	return code
}

func (c *RPCHAL) Deinitialize(partition string) hal.ReturnCode {
	_, code := c.invokeRPCRequest(common.NewDeinitRequest(hal.ResolvePartition(partition)))
	return code
}

func (c *RPCHAL) Erase(partition string) hal.ReturnCode {
	_, code := c.invokeRPCRequest(common.NewEraseRequest(hal.ResolvePartition(partition)))
	return code
}

func (c *RPCHAL) Open(namespace string, mode hal.OpenMode, partition string) (*hal.Handle, hal.ReturnCode) {
	if mode != hal.ReadOnly && mode != hal.ReadWrite {
		return nil, hal.CodeError
	}
	partition = hal.ResolvePartition(partition)

	resp, code := c.invokeRPCRequest(common.NewOpenRequest(namespace, mode, partition))
	if code != hal.CodeNormal {
		return nil, code
	}
	if resp.Handle == 0 {
		Logger.Errorf("open response for %s/%s carries no handle", partition, namespace)
		return nil, hal.CodeError
	}
	return hal.NewHandle(resp.Handle, partition, namespace, mode), hal.CodeNormal
}

func (c *RPCHAL) Close(handle *hal.Handle) hal.ReturnCode {
	if handle == nil {
		return hal.CodeInvalid
	}
	if !handle.Invalidate() {
		return hal.CodeNormal
	}

	// The handle is closed locally in any case, a failed request only leaks the
	// server side handle
	if _, code := c.invokeRPCRequest(common.NewCloseRequest(handle.ID())); code != hal.CodeNormal {
		Logger.Warningf("failed to close %s on the server: %s", handle, code)
	}
	return hal.CodeNormal
}

func (c *RPCHAL) ReadBits(handle *hal.Handle, key string, valueType hal.ValueType) (uint64, hal.ReturnCode) {
	if handle.Closed() {
		return 0, hal.CodeInvalid
	}
	if !valueType.Valid() {
		return 0, hal.CodeError
	}

	resp, code := c.invokeRPCRequest(common.NewReadRequest(handle.ID(), key, valueType))
	if code != hal.CodeNormal {
		return 0, code
	}
	return resp.Bits, hal.CodeNormal
}

func (c *RPCHAL) WriteBits(handle *hal.Handle, key string, valueType hal.ValueType, bits uint64) hal.ReturnCode {
	if code := writable(handle); code != hal.CodeNormal {
		return code
	}
	if !valueType.Valid() {
		return hal.CodeError
	}
	_, code := c.invokeRPCRequest(common.NewWriteRequest(handle.ID(), key, valueType, bits))
	return code
}

func (c *RPCHAL) EraseKey(handle *hal.Handle, key string) hal.ReturnCode {
	if code := writable(handle); code != hal.CodeNormal {
		return code
	}
	_, code := c.invokeRPCRequest(common.NewEraseKeyRequest(handle.ID(), key))
	return code
}

func (c *RPCHAL) EraseAll(handle *hal.Handle) hal.ReturnCode {
	if code := writable(handle); code != hal.CodeNormal {
		return code
	}
	_, code := c.invokeRPCRequest(common.NewEraseAllRequest(handle.ID()))
	return code
}

func (c *RPCHAL) Commit(handle *hal.Handle) hal.ReturnCode {
	if code := writable(handle); code != hal.CodeNormal {
		return code
	}
	_, code := c.invokeRPCRequest(common.NewCommitRequest(handle.ID()))
	return code
}

func (c *RPCHAL) Stats(partition string) (hal.PartitionStats, hal.ReturnCode) {
	resp, code := c.invokeRPCRequest(common.NewStatsRequest(hal.ResolvePartition(partition)))
	if code != hal.CodeNormal {
		return hal.PartitionStats{}, code
	}
	if resp.Stats == nil {
		return hal.PartitionStats{}, hal.CodeError
	}
	return *resp.Stats, hal.CodeNormal
}

func (c *RPCHAL) List(partition, namespace string) ([]hal.EntryInfo, hal.ReturnCode) {
	resp, code := c.invokeRPCRequest(common.NewListRequest(hal.ResolvePartition(partition), namespace))
	if code != hal.CodeNormal {
		return nil, code
	}
	if resp.Entries == nil {
		return []hal.EntryInfo{}, hal.CodeNormal
	}
	return resp.Entries, hal.CodeNormal
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// writable checks that a handle may be used for write operations
func writable(handle *hal.Handle) hal.ReturnCode {
	if handle.Closed() {
		return hal.CodeInvalid
	}
	if handle.Mode() != hal.ReadWrite {
		return hal.CodePermission
	}
	return hal.CodeNormal
}
