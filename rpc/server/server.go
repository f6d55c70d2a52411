package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/engines/flash"
	"github.com/intermode/nvs-hal/lib/engine/engines/memory"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/lib/hal/nvshal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverStore is a store served by the RPC server: the HAL it encapsulates and
// the adapter that handles requests for it
type serverStore struct {
	HAL     hal.IStorageHAL
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		stores:     xsync.NewMapOf[uint64, serverStore](),
		metrics:    metrics.NewSet(),
	}
}

// RPCServer serves the HALs of several stores over one transport.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	stores     *xsync.MapOf[uint64, serverStore]
	metrics    *metrics.Set

	mu            sync.Mutex
	metricsServer *http.Server
}

// RegisterStore serves an existing HAL under a store ID. Stores must be registered
// before Serve is called; stores from the configuration are created by Serve.
func (s *RPCServer) RegisterStore(storeID uint64, h hal.IStorageHAL) error {
	if _, loaded := s.stores.LoadOrStore(storeID, serverStore{HAL: h, Adapter: NewHALServerAdapter()}); loaded {
		return fmt.Errorf("store %d already registered", storeID)
	}
	return nil
}

// Serve starts the RPC server
// This function will also create the configured stores and start the transport
// layer. It blocks until the transport stops, after Shutdown it returns
// transport.ErrClosed.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport, the metrics endpoint and releases all stores.
func (s *RPCServer) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.transport.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}

	s.mu.Lock()
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	s.mu.Unlock()

	s.stores.Range(func(storeID uint64, store serverStore) bool {
		if closer, ok := store.HAL.(interface{ Shutdown() error }); ok {
			if err := closer.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("store %d: %w", storeID, err))
			}
		}
		return true
	})

	Logger.Infof("RPC server stopped")
	return errors.Join(errs...)
}

// WriteMetrics writes the request metrics of the server and the operation metrics
// of every store in Prometheus text format
func (s *RPCServer) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)

	for _, storeID := range s.storeIDs() {
		store, ok := s.stores.Load(storeID)
		if !ok {
			continue
		}
		if m, ok := store.HAL.(interface{ WriteMetrics(w io.Writer) }); ok {
			m.WriteMetrics(w)
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(storeID uint64, req []byte) []byte {
		var msg common.Message
		var respMsg *common.Message

		store, ok := s.stores.Load(storeID)
		if !ok {
			respMsg = common.NewErrorResponse(fmt.Sprintf("store %d not found", storeID))
		} else if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			respMsg = store.Adapter.Handle(&msg, store.HAL)
		}

		s.metrics.GetOrCreateCounter(fmt.Sprintf(`nvs_rpc_requests_total{store="%d",type=%q}`, storeID, msg.MsgType)).Inc()
		if respMsg.MsgType == common.MsgTError {
			Logger.Warningf("request for store %d failed: %s", storeID, respMsg.Err)
		}

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
		}
		return val
	})
}

func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("%s", s.config.String())

	for _, storeConfig := range s.config.Stores {
		h, err := s.createStore(storeConfig)
		if err != nil {
			return fmt.Errorf("failed to create store %d: %w", storeConfig.StoreID, err)
		}
		if err := s.RegisterStore(storeConfig.StoreID, h); err != nil {
			_ = h.Shutdown()
			return err
		}
		Logger.Infof("created %s store %d", storeConfig.Type, storeConfig.StoreID)
	}

	if s.stores.Size() == 0 {
		return fmt.Errorf("no stores to serve")
	}

	if s.config.MetricsEndpoint != "" {
		s.startMetricsServer()
	}

	s.registerTransportHandler()

	Logger.Infof("nvs setup completed successfully")
	return nil
}

// createStore creates the engine backed HAL of a configured store
func (s *RPCServer) createStore(storeConfig common.ServerStore) (*nvshal.HAL, error) {
	var e engine.IEngine
	var err error

	switch storeConfig.Type {
	case common.StoreTypeFlash:
		e, err = flash.NewFlashEngine(flash.Options{
			DataDir:        s.config.StoreDataDir(storeConfig.StoreID),
			Partitions:     s.config.Partitions,
			FormatVersion:  s.config.FormatVersion,
			MaxOpenHandles: s.config.MaxOpenHandles,
			NoSync:         s.config.NoSync,
		})
	case common.StoreTypeMemory:
		e, err = memory.NewMemoryEngine(&memory.Options{
			Partitions:     s.config.Partitions,
			FormatVersion:  s.config.FormatVersion,
			MaxOpenHandles: s.config.MaxOpenHandles,
		})
	default:
		return nil, fmt.Errorf("invalid store type: %s", storeConfig.Type)
	}
	if err != nil {
		return nil, err
	}

	return nvshal.New(e, &nvshal.Options{Name: strconv.FormatUint(storeConfig.StoreID, 10)}), nil
}

// startMetricsServer serves /metrics in the background
func (s *RPCServer) startMetricsServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		s.WriteMetrics(w)
		metrics.WritePrometheus(w, true)
	})

	server := &http.Server{Addr: s.config.MetricsEndpoint, Handler: mux}
	s.mu.Lock()
	s.metricsServer = server
	s.mu.Unlock()

	go func() {
		Logger.Infof("Serving metrics on %s/metrics", s.config.MetricsEndpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics server failed: %v", err)
		}
	}()
}

// storeIDs returns the IDs of all stores in ascending order
func (s *RPCServer) storeIDs() []uint64 {
	ids := make([]uint64, 0, s.stores.Size())
	s.stores.Range(func(storeID uint64, _ serverStore) bool {
		ids = append(ids, storeID)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
