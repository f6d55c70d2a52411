package nvshal

import (
	"io"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("hal")

// Options configures the engine-backed HAL.
type Options struct {
	// Name labels the metrics of this instance (e.g. the store ID of a server)
	Name string
}

// HAL implements hal.IStorageHAL on top of an engine.IEngine.
//
// Thread-safety: All methods are thread-safe. Lifecycle operations (initialize,
// deinitialize, erase) hold the subsystem lock exclusively and exclude Open.
type HAL struct {
	mu      sync.RWMutex // guards the initialized/uninitialized transition
	engine  engine.IEngine
	name    string
	metrics *metrics.Set
}

var _ hal.IStorageHAL = (*HAL)(nil)

// New creates a HAL over an engine. The engine is owned by the HAL afterwards,
// Shutdown releases it.
func New(e engine.IEngine, opts *Options) *HAL {
	if opts == nil {
		opts = &Options{}
	}
	name := opts.Name
	if name == "" {
		name = string(e.GetInfo().Type)
	}
	return &HAL{
		engine:  e,
		name:    name,
		metrics: metrics.NewSet(),
	}
}

// Engine returns the engine behind the HAL.
func (h *HAL) Engine() engine.IEngine {
	return h.engine
}

// Shutdown releases the engine. All handles become invalid.
func (h *HAL) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Shutdown()
}

// WriteMetrics writes the operation metrics of this HAL in Prometheus text format.
func (h *HAL) WriteMetrics(w io.Writer) {
	h.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (h *HAL) Initialize() hal.ReturnCode {
	return h.InitializePartition(hal.DefaultPartition)
}

func (h *HAL) InitializePartition(partition string) hal.ReturnCode {
	start := time.Now()
	partition = hal.ResolvePartition(partition)

	h.mu.Lock()
	status := h.engine.Init(partition)
	h.mu.Unlock()

	return h.done("init", start, initTable, status)
}

func (h *HAL) Deinitialize(partition string) hal.ReturnCode {
	start := time.Now()
	partition = hal.ResolvePartition(partition)

	h.mu.Lock()
	status := h.engine.Deinit(partition)
	h.mu.Unlock()

	return h.done("deinit", start, deinitTable, status)
}

func (h *HAL) Erase(partition string) hal.ReturnCode {
	start := time.Now()
	partition = hal.ResolvePartition(partition)

	h.mu.Lock()
	status := h.engine.Erase(partition)
	h.mu.Unlock()

	code := h.done("erase", start, eraseTable, status)
	if code == hal.CodeNormal {
		log.Infof("erased partition %s", partition)
	}
	return code
}

// --------------------------------------------------------------------------
// Handles
// --------------------------------------------------------------------------

func (h *HAL) Open(namespace string, mode hal.OpenMode, partition string) (*hal.Handle, hal.ReturnCode) {
	start := time.Now()
	partition = hal.ResolvePartition(partition)
	if mode != hal.ReadOnly && mode != hal.ReadWrite {
		return nil, h.record("open", start, hal.CodeError)
	}

	h.mu.RLock()
	id, status := h.engine.Open(partition, namespace, mode == hal.ReadOnly)
	h.mu.RUnlock()

	code := h.done("open", start, openTable, status)
	if code != hal.CodeNormal {
		return nil, code
	}
	return hal.NewHandle(uint32(id), partition, namespace, mode), hal.CodeNormal
}

func (h *HAL) Close(handle *hal.Handle) hal.ReturnCode {
	if handle == nil {
		return hal.CodeInvalid
	}
	if handle.Invalidate() {
		h.engine.Close(engine.Handle(handle.ID()))
	}
	return hal.CodeNormal
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

func (h *HAL) ReadBits(handle *hal.Handle, key string, valueType hal.ValueType) (uint64, hal.ReturnCode) {
	start := time.Now()
	if handle.Closed() {
		return 0, h.record("read", start, hal.CodeInvalid)
	}
	itemType, ok := itemTypes[valueType]
	if !ok {
		return 0, h.record("read", start, hal.CodeError)
	}

	bits, status := h.engine.Get(engine.Handle(handle.ID()), key, itemType)
	code := h.done("read", start, readTable, status)
	if code != hal.CodeNormal {
		return 0, code
	}
	return bits, hal.CodeNormal
}

func (h *HAL) WriteBits(handle *hal.Handle, key string, valueType hal.ValueType, bits uint64) hal.ReturnCode {
	start := time.Now()
	if code := writable(handle); code != hal.CodeNormal {
		return h.record("write", start, code)
	}
	itemType, ok := itemTypes[valueType]
	if !ok {
		return h.record("write", start, hal.CodeError)
	}

	status := h.engine.Set(engine.Handle(handle.ID()), key, itemType, bits)
	return h.done("write", start, writeTable, status)
}

func (h *HAL) EraseKey(handle *hal.Handle, key string) hal.ReturnCode {
	start := time.Now()
	if code := writable(handle); code != hal.CodeNormal {
		return h.record("erase_key", start, code)
	}
	status := h.engine.EraseKey(engine.Handle(handle.ID()), key)
	return h.done("erase_key", start, eraseKeyTable, status)
}

func (h *HAL) EraseAll(handle *hal.Handle) hal.ReturnCode {
	start := time.Now()
	if code := writable(handle); code != hal.CodeNormal {
		return h.record("erase_all", start, code)
	}
	status := h.engine.EraseAll(engine.Handle(handle.ID()))
	return h.done("erase_all", start, eraseAllTable, status)
}

func (h *HAL) Commit(handle *hal.Handle) hal.ReturnCode {
	start := time.Now()
	if code := writable(handle); code != hal.CodeNormal {
		return h.record("commit", start, code)
	}
	status := h.engine.Commit(engine.Handle(handle.ID()))
	return h.done("commit", start, commitTable, status)
}

// writable checks that a handle may be used for write operations.
func writable(handle *hal.Handle) hal.ReturnCode {
	if handle.Closed() {
		return hal.CodeInvalid
	}
	if handle.Mode() != hal.ReadWrite {
		return hal.CodePermission
	}
	return hal.CodeNormal
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

func (h *HAL) Stats(partition string) (hal.PartitionStats, hal.ReturnCode) {
	start := time.Now()
	stats, status := h.engine.Stats(hal.ResolvePartition(partition))
	code := h.done("stats", start, statsTable, status)
	if code != hal.CodeNormal {
		return hal.PartitionStats{}, code
	}
	return hal.PartitionStats{
		UsedEntries:    stats.UsedEntries,
		FreeEntries:    stats.FreeEntries,
		TotalEntries:   stats.TotalEntries,
		NamespaceCount: stats.NamespaceCount,
	}, hal.CodeNormal
}

func (h *HAL) List(partition, namespace string) ([]hal.EntryInfo, hal.ReturnCode) {
	start := time.Now()
	entries, status := h.engine.List(hal.ResolvePartition(partition), namespace)
	code := h.done("list", start, listTable, status)
	if code != hal.CodeNormal {
		return nil, code
	}

	result := make([]hal.EntryInfo, 0, len(entries))
	for _, entry := range entries {
		valueType, ok := valueTypes[entry.Type]
		if !ok {
			log.Warningf("skipping %s/%s with unknown item type %s", entry.Namespace, entry.Key, entry.Type)
			continue
		}
		result = append(result, hal.EntryInfo{Namespace: entry.Namespace, Key: entry.Key, Type: valueType})
	}
	return result, hal.CodeNormal
}
