package internal

import (
	"errors"
	"sort"
	"sync"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("engine")

// --------------------------------------------------------------------------
// Engine options
// --------------------------------------------------------------------------

// Options configures an Engine.
type Options struct {
	// Partitions is the partition table (nil = engine.DefaultPartitionTable())
	Partitions []engine.PartitionSpec
	// FormatVersion is the format version written and expected by the engine (0 = engine.FormatVersion)
	FormatVersion uint32
	// MaxOpenHandles limits the number of concurrently open handles (0 = unlimited)
	MaxOpenHandles int
}

// --------------------------------------------------------------------------
// Core Engine structure
// --------------------------------------------------------------------------

// partitionState is the runtime state of one partition of the partition table.
type partitionState struct {
	mu         sync.RWMutex
	spec       engine.PartitionSpec
	store      IPartitionStore // nil while not initialized
	used       int             // used entries (items + namespaces)
	namespaces int
}

// Engine implements engine.IEngine on top of an IBackend.
// It owns handles, write buffering, name validation and capacity accounting.
//
// Locking: mu guards the mount state of all partitions (store != nil) and is held
// exclusively by Init, Deinit, Erase and Shutdown. Every other operation holds mu
// shared and locks the partition it works on.
type Engine struct {
	mu            sync.RWMutex
	backend       IBackend
	partitions    map[string]*partitionState
	handles       *HandleTable
	formatVersion uint32
	maxHandles    int
}

var _ engine.IEngine = (*Engine)(nil)

// NewEngine creates an engine over a backend. Partitions are not initialized.
func NewEngine(backend IBackend, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = &Options{}
	}
	table := opts.Partitions
	if table == nil {
		table = engine.DefaultPartitionTable()
	}
	if err := engine.ValidatePartitionTable(table); err != nil {
		return nil, err
	}
	version := opts.FormatVersion
	if version == 0 {
		version = engine.FormatVersion
	}

	partitions := make(map[string]*partitionState, len(table))
	for _, spec := range table {
		partitions[spec.Name] = &partitionState{spec: spec}
	}

	return &Engine{
		backend:       backend,
		partitions:    partitions,
		handles:       NewHandleTable(),
		formatVersion: version,
		maxHandles:    opts.MaxOpenHandles,
	}, nil
}

// --------------------------------------------------------------------------
// Partition Lifecycle
// --------------------------------------------------------------------------

func (e *Engine) Init(partition string) engine.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.partitions[partition]
	if !ok {
		return engine.StatusPartNotFound
	}
	if state.store != nil {
		return engine.StatusOK
	}

	store, err := e.backend.Mount(state.spec)
	if err != nil {
		log.Errorf("failed to mount partition %s: %v", partition, err)
		return engine.StatusFail
	}

	version, err := store.Version()
	if err != nil {
		log.Errorf("failed to read format version of partition %s: %v", partition, err)
		_ = store.Close()
		return engine.StatusFail
	}

	switch {
	case version == 0:
		if err := store.Format(e.formatVersion); err != nil {
			log.Errorf("failed to format partition %s: %v", partition, err)
			_ = store.Close()
			return engine.StatusFail
		}
		log.Infof("formatted partition %s (version %d)", partition, e.formatVersion)
	case version != e.formatVersion:
		log.Warningf("partition %s has format version %d, expected %d", partition, version, e.formatVersion)
		_ = store.Close()
		return engine.StatusNewVersionFound
	}

	used, namespaces, err := store.Usage()
	if err != nil {
		log.Errorf("failed to read usage of partition %s: %v", partition, err)
		_ = store.Close()
		return engine.StatusFail
	}
	// exactly full is fine, more entries than granted means the table shrank
	if used > state.spec.Entries {
		log.Warningf("partition %s holds more entries than it has (%d/%d)", partition, used, state.spec.Entries)
		_ = store.Close()
		return engine.StatusNoFreePages
	}

	state.mu.Lock()
	state.store = store
	state.used = used
	state.namespaces = namespaces
	state.mu.Unlock()

	log.Infof("initialized partition %s (%d/%d entries used)", partition, used, state.spec.Entries)
	return engine.StatusOK
}

func (e *Engine) Deinit(partition string) engine.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.partitions[partition]
	if !ok {
		return engine.StatusPartNotFound
	}
	if state.store == nil {
		return engine.StatusNotInitialized
	}
	if err := e.unmount(state); err != nil {
		log.Errorf("failed to unmount partition %s: %v", partition, err)
		return engine.StatusFail
	}
	return engine.StatusOK
}

func (e *Engine) Erase(partition string) engine.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.partitions[partition]
	if !ok {
		return engine.StatusPartNotFound
	}
	if state.store != nil {
		if err := e.unmount(state); err != nil {
			log.Errorf("failed to unmount partition %s: %v", partition, err)
			return engine.StatusFail
		}
	}
	if err := e.backend.Wipe(state.spec); err != nil {
		log.Errorf("failed to erase partition %s: %v", partition, err)
		return engine.StatusFail
	}

	log.Infof("erased partition %s", partition)
	return engine.StatusOK
}

// unmount closes all handles of a partition and releases its store.
// The caller must hold e.mu exclusively.
func (e *Engine) unmount(state *partitionState) error {
	closed := e.handles.closePartition(state.spec.Name)
	if closed > 0 {
		log.Infof("closed %d open handles of partition %s", closed, state.spec.Name)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	err := state.store.Close()
	state.store = nil
	state.used = 0
	state.namespaces = 0
	return err
}

// --------------------------------------------------------------------------
// Handle Lifecycle
// --------------------------------------------------------------------------

func (e *Engine) Open(partition, namespace string, readOnly bool) (engine.Handle, engine.Status) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.partitions[partition]
	if !ok {
		return 0, engine.StatusPartNotFound
	}
	if status := ValidateNamespace(namespace); status != engine.StatusOK {
		return 0, status
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.store == nil {
		return 0, engine.StatusNotInitialized
	}
	if e.maxHandles > 0 && e.handles.Len() >= e.maxHandles {
		return 0, engine.StatusNoMem
	}

	exists, err := state.store.HasNamespace(namespace)
	if err != nil {
		log.Errorf("failed to look up namespace %s in partition %s: %v", namespace, partition, err)
		return 0, engine.StatusFail
	}
	if !exists {
		if readOnly {
			return 0, engine.StatusNotFound
		}
		if state.namespaces >= engine.MaxNamespaces || state.used+1 > state.spec.Entries {
			return 0, engine.StatusNotEnoughSpace
		}
		if err := state.store.CreateNamespace(namespace); err != nil {
			log.Errorf("failed to create namespace %s in partition %s: %v", namespace, partition, err)
			return 0, engine.StatusFail
		}
		state.used++
		state.namespaces++
		log.Debugf("created namespace %s in partition %s", namespace, partition)
	}

	session := e.handles.open(partition, namespace, readOnly)
	return session.ID, engine.StatusOK
}

func (e *Engine) Close(handle engine.Handle) {
	e.handles.close(handle)
}

// --------------------------------------------------------------------------
// Item Operations
// --------------------------------------------------------------------------

func (e *Engine) Get(handle engine.Handle, key string, itemType engine.ItemType) (uint64, engine.Status) {
	session, ok := e.handles.get(handle)
	if !ok {
		return 0, engine.StatusInvalidHandle
	}
	if status := ValidateKey(key); status != engine.StatusOK {
		return 0, status
	}
	if !itemType.Valid() {
		return 0, engine.StatusInvalidArg
	}

	// buffered writes of the same handle take precedence
	if p, found, cleared := session.lookup(key); found {
		if p.deleted {
			return 0, engine.StatusNotFound
		}
		if p.item.Type != itemType {
			return 0, engine.StatusTypeMismatch
		}
		return p.item.Bits, engine.StatusOK
	} else if cleared {
		return 0, engine.StatusNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, status := e.mountedPartition(session)
	if status != engine.StatusOK {
		return 0, status
	}
	state.mu.RLock()
	defer state.mu.RUnlock()

	item, found, err := state.store.Load(session.Namespace, key)
	if err != nil {
		log.Errorf("failed to load %s/%s: %v", session.Namespace, key, err)
		return 0, engine.StatusFail
	}
	if !found {
		return 0, engine.StatusNotFound
	}
	if item.Type != itemType {
		return 0, engine.StatusTypeMismatch
	}
	return item.Bits, engine.StatusOK
}

func (e *Engine) Set(handle engine.Handle, key string, itemType engine.ItemType, bits uint64) engine.Status {
	session, ok := e.handles.get(handle)
	if !ok {
		return engine.StatusInvalidHandle
	}
	if session.ReadOnly {
		return engine.StatusReadOnly
	}
	if status := ValidateKey(key); status != engine.StatusOK {
		return status
	}
	if !itemType.Valid() {
		return engine.StatusInvalidArg
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, status := e.mountedPartition(session)
	if status != engine.StatusOK {
		return status
	}
	state.mu.RLock()
	defer state.mu.RUnlock()

	_, committed, err := state.store.Load(session.Namespace, key)
	if err != nil {
		log.Errorf("failed to load %s/%s: %v", session.Namespace, key, err)
		return engine.StatusFail
	}

	adds := !committed
	if p, found, _ := session.lookup(key); found && !p.deleted {
		adds = false // the buffered write already reserved the entry
	}
	if adds && state.used+session.pendingAdds()+1 > state.spec.Entries {
		return engine.StatusNotEnoughSpace
	}

	session.stage(key, Item{Type: itemType, Bits: Canonical(itemType, bits)}, !committed)
	return engine.StatusOK
}

func (e *Engine) EraseKey(handle engine.Handle, key string) engine.Status {
	session, ok := e.handles.get(handle)
	if !ok {
		return engine.StatusInvalidHandle
	}
	if session.ReadOnly {
		return engine.StatusReadOnly
	}
	if status := ValidateKey(key); status != engine.StatusOK {
		return status
	}

	if p, found, cleared := session.lookup(key); found {
		if p.deleted {
			return engine.StatusNotFound
		}
		session.stageDelete(key)
		return engine.StatusOK
	} else if cleared {
		return engine.StatusNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, status := e.mountedPartition(session)
	if status != engine.StatusOK {
		return status
	}
	state.mu.RLock()
	defer state.mu.RUnlock()

	_, committed, err := state.store.Load(session.Namespace, key)
	if err != nil {
		log.Errorf("failed to load %s/%s: %v", session.Namespace, key, err)
		return engine.StatusFail
	}
	if !committed {
		return engine.StatusNotFound
	}
	session.stageDelete(key)
	return engine.StatusOK
}

func (e *Engine) EraseAll(handle engine.Handle) engine.Status {
	session, ok := e.handles.get(handle)
	if !ok {
		return engine.StatusInvalidHandle
	}
	if session.ReadOnly {
		return engine.StatusReadOnly
	}
	session.stageClear()
	return engine.StatusOK
}

func (e *Engine) Commit(handle engine.Handle) engine.Status {
	session, ok := e.handles.get(handle)
	if !ok {
		return engine.StatusInvalidHandle
	}
	if session.ReadOnly {
		return engine.StatusReadOnly
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, status := e.mountedPartition(session)
	if status != engine.StatusOK {
		return status
	}

	batch := session.drain()
	if batch.Empty() {
		return engine.StatusOK
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	// other handles may have used up the space reserved by this handle
	if state.used+len(batch.Added) > state.spec.Entries {
		session.restore(batch)
		return engine.StatusNotEnoughSpace
	}

	if err := state.store.Apply(session.Namespace, batch); err != nil {
		log.Errorf("failed to commit handle %d (%s/%s): %v", handle, session.Partition, session.Namespace, err)
		session.restore(batch)
		return engine.StatusFail
	}

	used, namespaces, err := state.store.Usage()
	if err != nil {
		log.Errorf("failed to read usage of partition %s: %v", session.Partition, err)
		return engine.StatusInvalidState
	}
	state.used = used
	state.namespaces = namespaces
	return engine.StatusOK
}

// mountedPartition returns the partition of a session if it is still mounted.
// The caller must hold e.mu at least shared.
func (e *Engine) mountedPartition(session *Session) (*partitionState, engine.Status) {
	state, ok := e.partitions[session.Partition]
	if !ok || state.store == nil {
		// the partition was deinitialized after the handle was opened
		return nil, engine.StatusInvalidHandle
	}
	if _, open := e.handles.get(session.ID); !open {
		return nil, engine.StatusInvalidHandle
	}
	return state, engine.StatusOK
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

func (e *Engine) Stats(partition string) (engine.PartitionStats, engine.Status) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.partitions[partition]
	if !ok {
		return engine.PartitionStats{}, engine.StatusPartNotFound
	}
	state.mu.RLock()
	defer state.mu.RUnlock()

	if state.store == nil {
		return engine.PartitionStats{}, engine.StatusNotInitialized
	}
	return state.stats(), engine.StatusOK
}

func (e *Engine) List(partition, namespace string) ([]engine.EntryInfo, engine.Status) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.partitions[partition]
	if !ok {
		return nil, engine.StatusPartNotFound
	}
	if namespace != "" {
		if status := ValidateNamespace(namespace); status != engine.StatusOK {
			return nil, status
		}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()

	if state.store == nil {
		return nil, engine.StatusNotInitialized
	}
	if namespace != "" {
		exists, err := state.store.HasNamespace(namespace)
		if err != nil {
			log.Errorf("failed to look up namespace %s in partition %s: %v", namespace, partition, err)
			return nil, engine.StatusFail
		}
		if !exists {
			return nil, engine.StatusNotFound
		}
	}

	entries, err := state.store.List(namespace)
	if err != nil {
		log.Errorf("failed to list partition %s: %v", partition, err)
		return nil, engine.StatusFail
	}
	return entries, engine.StatusOK
}

func (e *Engine) GetInfo() engine.EngineInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	info := engine.EngineInfo{
		Type:          e.backend.Type(),
		FormatVersion: e.formatVersion,
		OpenHandles:   e.handles.Len(),
		Metadata:      e.backend.Metadata(),
	}
	for name, state := range e.partitions {
		state.mu.RLock()
		info.Partitions = append(info.Partitions, engine.PartitionInfo{
			Name:        name,
			Initialized: state.store != nil,
			Stats:       state.stats(),
		})
		state.mu.RUnlock()
	}
	sort.Slice(info.Partitions, func(i, j int) bool {
		return info.Partitions[i].Name < info.Partitions[j].Name
	})
	return info
}

func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, state := range e.partitions {
		if state.store == nil {
			continue
		}
		if err := e.unmount(state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// stats computes the partition statistics. The caller must hold state.mu.
func (state *partitionState) stats() engine.PartitionStats {
	free := state.spec.Entries - state.used
	if free < 0 {
		free = 0
	}
	return engine.PartitionStats{
		UsedEntries:    state.used,
		FreeEntries:    free,
		TotalEntries:   state.spec.Entries,
		NamespaceCount: state.namespaces,
	}
}
