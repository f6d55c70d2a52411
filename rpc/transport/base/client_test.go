package base

import (
	"bytes"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/transport"
)

// --------------------------------------------------------------------------
// Test setup
// --------------------------------------------------------------------------

// tcpConnector dials plain tcp without socket tuning
type tcpConnector struct{}

func (c *tcpConnector) GetName() string { return "test" }
func (c *tcpConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}
func (c *tcpConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// frameServer counts the frames it receives, respond decides per frame whether
// to echo it (true) or to drop the connection (false). A nil respond never answers.
type frameServer struct {
	listener net.Listener
	frames   atomic.Int32
	respond  func(frame int32) bool
}

func startFrameServer(t *testing.T, respond func(frame int32) bool) *frameServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	s := &frameServer{listener: l, respond: respond}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *frameServer) serve(conn net.Conn) {
	defer conn.Close()
	for {
		storeID, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			return
		}
		n := s.frames.Add(1)
		if s.respond == nil {
			continue
		}
		if !s.respond(n) {
			return
		}
		if err := writeFrame(conn, storeID, requestID, data); err != nil {
			return
		}
	}
}

func connect(t *testing.T, s *frameServer, retries, timeoutSecond int) transport.IRPCClientTransport {
	c := NewBaseClientTransport(&tcpConnector{})
	err := c.Connect(common.ClientConfig{
		TimeoutSecond: timeoutSecond,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{s.listener.Addr().String()},
			RetryCount: retries,
		},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestSendEcho(t *testing.T) {
	s := startFrameServer(t, func(int32) bool { return true })
	c := connect(t, s, 1, 5)

	resp, err := c.Send(7, []byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("ping")) {
		t.Errorf("Expected ping, got %q", resp)
	}
}

func TestTimeoutIsNotRetried(t *testing.T) {
	s := startFrameServer(t, nil)
	c := connect(t, s, 3, 1)

	_, err := c.Send(1, []byte("erase"))
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("Expected a timeout, got %v", err)
	}

	// a retry would have been sent right after the timeout
	time.Sleep(200 * time.Millisecond)
	if n := s.frames.Load(); n != 1 {
		t.Errorf("Expected the request to be sent once, server got %d frames", n)
	}
}

func TestBrokenConnectionIsRetried(t *testing.T) {
	// the first request kills the connection, later ones are answered
	s := startFrameServer(t, func(frame int32) bool { return frame > 1 })
	c := connect(t, s, 5, 5)

	resp, err := c.Send(1, []byte("stats"))
	if err != nil {
		t.Fatalf("Expected the retry to succeed, got %v", err)
	}
	if !bytes.Equal(resp, []byte("stats")) {
		t.Errorf("Expected stats, got %q", resp)
	}
	if n := s.frames.Load(); n < 2 {
		t.Errorf("Expected a retry, server got %d frames", n)
	}
}
