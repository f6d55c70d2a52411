package client

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/engines/memory"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/lib/hal/nvshal"
	haltesting "github.com/intermode/nvs-hal/lib/hal/testing"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/server"
	"github.com/intermode/nvs-hal/rpc/transport"
	"github.com/intermode/nvs-hal/rpc/transport/http"
	"github.com/intermode/nvs-hal/rpc/transport/tcp"
	"github.com/intermode/nvs-hal/rpc/transport/unix"
)

const testStoreID = 1

// --------------------------------------------------------------------------
// Test setup
// --------------------------------------------------------------------------

type transportSetup struct {
	network    string
	endpoint   func(t *testing.T) string
	server     func() transport.IRPCServerTransport
	client     func() transport.IRPCClientTransport
	serializer func() serializer.IRPCSerializer
}

var transportSetups = map[string]transportSetup{
	"TCP(binary)": {
		network:    "tcp",
		endpoint:   freeTCPEndpoint,
		server:     tcp.NewTCPDefaultServerTransport,
		client:     tcp.NewTCPClientTransport,
		serializer: serializer.NewBinarySerializer,
	},
	"Unix(gob)": {
		network:    "unix",
		endpoint:   unixEndpoint,
		server:     unix.NewUnixDefaultServerTransport,
		client:     unix.NewUnixClientTransport,
		serializer: serializer.NewGOBSerializer,
	},
	"HTTP(json)": {
		network:    "tcp",
		endpoint:   freeTCPEndpoint,
		server:     http.NewHttpServerTransport,
		client:     http.NewHttpClientTransport,
		serializer: serializer.NewJSONSerializer,
	},
}

// freeTCPEndpoint returns a local address that is free right now
func freeTCPEndpoint(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

// unixEndpoint returns a short socket path, t.TempDir paths may exceed the socket path limit
func unixEndpoint(t *testing.T) string {
	dir, err := os.MkdirTemp("", "nvs")
	if err != nil {
		t.Fatalf("Failed to create socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "nvs.sock")
}

// waitForListener blocks until the endpoint accepts connections
func waitForListener(t *testing.T, network, endpoint string) {
	for i := 0; i < 100; i++ {
		conn, err := net.Dial(network, endpoint)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on %s %s did not come up", network, endpoint)
}

// startServer serves h as store testStoreID and returns a connected client
func startServer(t *testing.T, setup transportSetup, h hal.IStorageHAL) (*server.RPCServer, *RPCHAL) {
	endpoint := setup.endpoint(t)
	srv := server.NewRPCServer(common.ServerConfig{
		TimeoutSecond: 5,
		Transport:     common.ServerTransportConfig{Endpoint: endpoint},
		LogLevel:      "warn",
	}, setup.server(), setup.serializer())
	if err := srv.RegisterStore(testStoreID, h); err != nil {
		t.Fatalf("Failed to register store: %v", err)
	}

	go func() {
		if err := srv.Serve(); err != nil && err != transport.ErrClosed {
			t.Errorf("Serve failed: %v", err)
		}
	}()
	waitForListener(t, setup.network, endpoint)

	c, err := NewRPCHAL(testStoreID, common.ClientConfig{
		Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}, RetryCount: 1},
		TimeoutSecond: 5,
	}, setup.client(), setup.serializer())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Disconnect()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, c
}

func memoryHAL(t *testing.T, env haltesting.Env) *nvshal.HAL {
	opts := &memory.Options{Partitions: env.Partitions}
	if env.OutdatedFormat {
		opts.StoredVersions = map[string]uint32{engine.DefaultPartition: engine.FormatVersion - 1}
	}
	e, err := memory.NewMemoryEngine(opts)
	if err != nil {
		t.Fatalf("Failed to create memory engine: %v", err)
	}
	return nvshal.New(e, &nvshal.Options{Name: "1"})
}

// --------------------------------------------------------------------------
// Conformance
// --------------------------------------------------------------------------

func TestRPCHAL(t *testing.T) {
	for name, setup := range transportSetups {
		haltesting.RunHALTests(t, name, func(env haltesting.Env) hal.IStorageHAL {
			_, c := startServer(t, setup, memoryHAL(t, env))
			return c
		})
	}
}

func TestUnknownStore(t *testing.T) {
	setup := transportSetups["TCP(binary)"]
	_, c := startServer(t, setup, memoryHAL(t, haltesting.Env{}))

	c.storeID = 99
	if code := c.Initialize(); code != hal.CodeError {
		t.Errorf("expected Error for an unknown store, got %s", code)
	}
}

func TestServerMetrics(t *testing.T) {
	setup := transportSetups["TCP(binary)"]
	srv, c := startServer(t, setup, memoryHAL(t, haltesting.Env{}))

	if code := c.Initialize(); code != hal.CodeNormal {
		t.Fatalf("Initialize failed: %s", code)
	}
	if _, code := c.Open("missing", hal.ReadOnly, ""); code != hal.CodeNamespaceNotFound {
		t.Fatalf("expected NamespaceNotFound, got %s", code)
	}

	var sb strings.Builder
	srv.WriteMetrics(&sb)
	out := sb.String()

	for _, expected := range []string{
		`nvs_rpc_requests_total{store="1",type="init"} 1`,
		`nvs_rpc_requests_total{store="1",type="open"} 1`,
		`nvs_hal_ops_total{store="1",op="open",code="NamespaceNotFound"} 1`,
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("metrics do not contain %q:\n%s", expected, out)
		}
	}
}

// --------------------------------------------------------------------------
// Local failure mapping
// --------------------------------------------------------------------------

// fakeTransport answers every request with a fixed response or error
type fakeTransport struct {
	resp  []byte
	err   error
	sends atomic.Int32
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }
func (f *fakeTransport) Close() error                      { return nil }
func (f *fakeTransport) Send(uint64, []byte) ([]byte, error) {
	f.sends.Add(1)
	return f.resp, f.err
}

func newFakeClient(t *testing.T, ft *fakeTransport) *RPCHAL {
	c, err := NewRPCHAL(testStoreID, common.ClientConfig{}, ft, serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func encode(t *testing.T, msg *common.Message) []byte {
	data, err := serializer.NewBinarySerializer().Serialize(*msg)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	return data
}

func TestFailureMapping(t *testing.T) {
	testCases := []struct {
		name     string
		resp     func(t *testing.T) []byte
		err      error
		expected hal.ReturnCode
	}{
		{
			name:     "Timeout",
			err:      fmt.Errorf("failed to send request after 1 attempts: %w", transport.ErrTimeout),
			expected: hal.CodeTimeout,
		},
		{
			name:     "ConnectionRefused",
			err:      fmt.Errorf("no active connections available"),
			expected: hal.CodeNotReady,
		},
		{
			name:     "Garbage",
			resp:     func(t *testing.T) []byte { return []byte{1} },
			expected: hal.CodeError,
		},
		{
			name:     "ErrorResponse",
			resp:     func(t *testing.T) []byte { return encode(t, common.NewErrorResponse("store 1 not found")) },
			expected: hal.CodeError,
		},
		{
			name:     "WrongType",
			resp:     func(t *testing.T) []byte { return encode(t, common.NewCodeResponse(common.MsgTErase, hal.CodeNormal)) },
			expected: hal.CodeError,
		},
		{
			name: "UnknownCode",
			resp: func(t *testing.T) []byte {
				return encode(t, common.NewCodeResponse(common.MsgTInit, hal.ReturnCode(200)))
			},
			expected: hal.CodeError,
		},
		{
			name:     "RemoteCode",
			resp:     func(t *testing.T) []byte { return encode(t, common.NewCodeResponse(common.MsgTInit, hal.CodeVersion)) },
			expected: hal.CodeVersion,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ft := &fakeTransport{err: tc.err}
			if tc.resp != nil {
				ft.resp = tc.resp(t)
			}
			c := newFakeClient(t, ft)

			if code := c.Initialize(); code != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, code)
			}
		})
	}
}

func TestHandleChecksBeforeRequest(t *testing.T) {
	ft := &fakeTransport{err: fmt.Errorf("must not be called")}
	c := newFakeClient(t, ft)

	ro := hal.NewHandle(1, "nvs", "ns", hal.ReadOnly)
	expect := func(name string, expected, code hal.ReturnCode) {
		t.Helper()
		if code != expected {
			t.Errorf("%s: expected %s, got %s", name, expected, code)
		}
	}

	expect("write(ro)", hal.CodePermission, hal.Write[uint8](c, ro, "k", 1))
	expect("erase_key(ro)", hal.CodePermission, c.EraseKey(ro, "k"))
	expect("erase_all(ro)", hal.CodePermission, c.EraseAll(ro))
	expect("commit(ro)", hal.CodePermission, c.Commit(ro))

	closed := hal.NewHandle(2, "nvs", "ns", hal.ReadWrite)
	closed.Invalidate()
	_, code := hal.Read[int32](c, closed, "k")
	expect("read(closed)", hal.CodeInvalid, code)
	expect("write(closed)", hal.CodeInvalid, hal.Write[int32](c, closed, "k", 1))
	expect("commit(closed)", hal.CodeInvalid, c.Commit(closed))
	expect("close(closed)", hal.CodeNormal, c.Close(closed))
	expect("close(nil)", hal.CodeInvalid, c.Close(nil))

	if n := ft.sends.Load(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestCloseIsLocal(t *testing.T) {
	ft := &fakeTransport{err: fmt.Errorf("connection reset")}
	c := newFakeClient(t, ft)

	handle := hal.NewHandle(3, "nvs", "ns", hal.ReadWrite)
	if code := c.Close(handle); code != hal.CodeNormal {
		t.Errorf("expected Normal, got %s", code)
	}
	if !handle.Closed() {
		t.Errorf("expected handle to be closed")
	}
	if code := c.Commit(handle); code != hal.CodeInvalid {
		t.Errorf("expected Invalid after close, got %s", code)
	}
}
