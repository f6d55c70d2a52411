package server

import (
	"strings"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine/engines/memory"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/lib/hal/nvshal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/transport/tcp"
)

func newTestHAL(t *testing.T) hal.IStorageHAL {
	e, err := memory.NewMemoryEngine(&memory.Options{})
	if err != nil {
		t.Fatalf("Failed to create memory engine: %v", err)
	}
	h := nvshal.New(e, nil)
	if code := h.Initialize(); code != hal.CodeNormal {
		t.Fatalf("Initialize failed: %s", code)
	}
	return h
}

func TestHALAdapterHandleLifecycle(t *testing.T) {
	h := newTestHAL(t)
	adapter := NewHALServerAdapter()

	resp := adapter.Handle(common.NewOpenRequest("app", hal.ReadWrite, hal.DefaultPartition), h)
	if resp.Code != hal.CodeNormal || resp.Handle == 0 {
		t.Fatalf("open failed: code=%s handle=%d", resp.Code, resp.Handle)
	}
	handle := resp.Handle

	resp = adapter.Handle(common.NewWriteRequest(handle, "boot", hal.TypeU16, 42), h)
	if resp.MsgType != common.MsgTWrite || resp.Code != hal.CodeNormal {
		t.Fatalf("write failed: %s %s", resp.MsgType, resp.Code)
	}
	if resp = adapter.Handle(common.NewCommitRequest(handle), h); resp.Code != hal.CodeNormal {
		t.Fatalf("commit failed: %s", resp.Code)
	}

	resp = adapter.Handle(common.NewReadRequest(handle, "boot", hal.TypeU16), h)
	if resp.Code != hal.CodeNormal || resp.Bits != 42 {
		t.Errorf("read: expected 42/Normal, got %d/%s", resp.Bits, resp.Code)
	}
	resp = adapter.Handle(common.NewReadRequest(handle, "boot", hal.TypeI32), h)
	if resp.Code != hal.CodeSize {
		t.Errorf("read with other type: expected Size, got %s", resp.Code)
	}

	resp = adapter.Handle(common.NewListRequest(hal.DefaultPartition, "app"), h)
	if resp.Code != hal.CodeNormal || len(resp.Entries) != 1 || resp.Entries[0].Key != "boot" {
		t.Errorf("list: unexpected response %+v", resp)
	}

	if resp = adapter.Handle(common.NewCloseRequest(handle), h); resp.Code != hal.CodeNormal {
		t.Errorf("close failed: %s", resp.Code)
	}
	if resp = adapter.Handle(common.NewCloseRequest(handle), h); resp.Code != hal.CodeInvalid {
		t.Errorf("second close: expected Invalid, got %s", resp.Code)
	}
	if resp = adapter.Handle(common.NewReadRequest(handle, "boot", hal.TypeU16), h); resp.Code != hal.CodeInvalid {
		t.Errorf("read after close: expected Invalid, got %s", resp.Code)
	}
}

func TestHALAdapterUnknownHandle(t *testing.T) {
	h := newTestHAL(t)
	adapter := NewHALServerAdapter()

	for _, req := range []*common.Message{
		common.NewReadRequest(7, "k", hal.TypeU8),
		common.NewWriteRequest(7, "k", hal.TypeU8, 1),
		common.NewEraseKeyRequest(7, "k"),
		common.NewEraseAllRequest(7),
		common.NewCommitRequest(7),
		common.NewCloseRequest(7),
	} {
		resp := adapter.Handle(req, h)
		if resp.MsgType != req.MsgType || resp.Code != hal.CodeInvalid {
			t.Errorf("%s: expected %s/Invalid, got %s/%s", req.MsgType, req.MsgType, resp.MsgType, resp.Code)
		}
	}
}

func TestHALAdapterHandlesAreScopedToAdapter(t *testing.T) {
	h := newTestHAL(t)
	a, b := NewHALServerAdapter(), NewHALServerAdapter()

	resp := a.Handle(common.NewOpenRequest("app", hal.ReadOnly, ""), h)
	if resp.Code != hal.CodeNamespaceNotFound {
		t.Fatalf("expected NamespaceNotFound for a read only open of a new namespace, got %s", resp.Code)
	}
	resp = a.Handle(common.NewOpenRequest("app", hal.ReadWrite, ""), h)
	if resp.Code != hal.CodeNormal {
		t.Fatalf("open failed: %s", resp.Code)
	}

	if other := b.Handle(common.NewCommitRequest(resp.Handle), h); other.Code != hal.CodeInvalid {
		t.Errorf("expected Invalid through another adapter, got %s", other.Code)
	}
}

func TestHALAdapterUnsupportedMessage(t *testing.T) {
	h := newTestHAL(t)
	adapter := NewHALServerAdapter()

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTUnknown}, h)
	if resp.MsgType != common.MsgTError || !strings.Contains(resp.Err, "Unsupported") {
		t.Errorf("expected error response, got %+v", resp)
	}
	resp = adapter.Handle(common.NewInitRequest(""), nil)
	if resp.MsgType != common.MsgTError {
		t.Errorf("expected error response for a nil hal, got %+v", resp)
	}
}

func TestRegisterStore(t *testing.T) {
	srv := NewRPCServer(common.ServerConfig{}, tcp.NewTCPDefaultServerTransport(), serializer.NewBinarySerializer())
	h := newTestHAL(t)

	if err := srv.RegisterStore(2, h); err != nil {
		t.Fatalf("RegisterStore failed: %v", err)
	}
	if err := srv.RegisterStore(1, h); err != nil {
		t.Fatalf("RegisterStore failed: %v", err)
	}
	if err := srv.RegisterStore(2, h); err == nil {
		t.Errorf("expected an error for a duplicate store")
	}

	ids := srv.storeIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("expected [1 2], got %v", ids)
	}
}

func TestServeWithoutStores(t *testing.T) {
	srv := NewRPCServer(common.ServerConfig{LogLevel: "error"}, tcp.NewTCPDefaultServerTransport(), serializer.NewBinarySerializer())
	if err := srv.Serve(); err == nil {
		t.Errorf("expected an error without stores")
	}
}

func TestCreateStoreFromConfig(t *testing.T) {
	srv := NewRPCServer(common.ServerConfig{
		DataDir: t.TempDir(),
		NoSync:  true,
	}, tcp.NewTCPDefaultServerTransport(), serializer.NewBinarySerializer())

	for _, storeType := range []common.ServerStoreType{common.StoreTypeFlash, common.StoreTypeMemory} {
		h, err := srv.createStore(common.ServerStore{StoreID: 3, Type: storeType})
		if err != nil {
			t.Fatalf("createStore(%s) failed: %v", storeType, err)
		}
		if code := h.Initialize(); code != hal.CodeNormal {
			t.Errorf("%s: Initialize failed: %s", storeType, code)
		}
		if err := h.Shutdown(); err != nil {
			t.Errorf("%s: Shutdown failed: %v", storeType, err)
		}
	}

	if _, err := srv.createStore(common.ServerStore{StoreID: 4, Type: "tape"}); err == nil {
		t.Errorf("expected an error for an unknown store type")
	}
}
