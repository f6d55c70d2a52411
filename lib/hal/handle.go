package hal

import (
	"fmt"
	"sync/atomic"
)

// Handle is an open (partition, namespace, mode) triple.
//
// A Handle is owned by the caller that opened it. After Close it is in the closed
// state: every operation on it returns CodeInvalid without reaching the storage.
// Handles are created by IStorageHAL implementations only.
type Handle struct {
	id        uint32
	partition string
	namespace string
	mode      OpenMode
	closed    atomic.Bool
}

// NewHandle creates an open handle. It is meant for IStorageHAL implementations,
// id is the implementation's own identifier of the opened namespace.
func NewHandle(id uint32, partition, namespace string, mode OpenMode) *Handle {
	return &Handle{id: id, partition: partition, namespace: namespace, mode: mode}
}

func (h *Handle) ID() uint32 { return h.id }

func (h *Handle) Partition() string { return h.partition }

func (h *Handle) Namespace() string { return h.namespace }

func (h *Handle) Mode() OpenMode { return h.mode }

// Closed reports whether the handle was closed. A nil handle counts as closed.
func (h *Handle) Closed() bool {
	return h == nil || h.closed.Load()
}

// Invalidate moves the handle into the closed state.
// It returns false if the handle was already closed.
func (h *Handle) Invalidate() bool {
	if h == nil {
		return false
	}
	return h.closed.CompareAndSwap(false, true)
}

func (h *Handle) String() string {
	if h == nil {
		return "handle(nil)"
	}
	state := "open"
	if h.Closed() {
		state = "closed"
	}
	return fmt.Sprintf("handle(%d %s/%s %s %s)", h.id, h.partition, h.namespace, h.mode, state)
}
