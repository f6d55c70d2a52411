package internal

import "github.com/intermode/nvs-hal/lib/engine"

// --------------------------------------------------------------------------
// Storage Backend Interfaces (implemented by the engines)
// --------------------------------------------------------------------------

// IBackend is the storage medium behind an Engine.
// The Engine implements the engine.IEngine semantics (handles, buffering, status
// codes, capacity); a backend only has to store namespaces and items.
type IBackend interface {
	// Type returns the implementation identifier of the backend.
	Type() engine.Implementation

	// Mount makes the storage of a partition accessible.
	// A partition that was never written must mount successfully and report version 0.
	Mount(spec engine.PartitionSpec) (IPartitionStore, error)

	// Wipe destroys all data of an unmounted partition.
	Wipe(spec engine.PartitionSpec) error

	// Metadata returns backend-specific diagnostics for engine.EngineInfo.
	Metadata() interface{}
}

// IPartitionStore is the storage of one mounted partition.
// Calls are serialized by the Engine, implementations do not need to lock.
type IPartitionStore interface {
	// Version returns the stored format version, 0 if the partition is unformatted.
	Version() (uint32, error)

	// Format writes the format version marker.
	Format(version uint32) error

	// Usage returns the number of used entries (items + namespaces) and the number of namespaces.
	Usage() (entries int, namespaces int, err error)

	// HasNamespace reports whether a namespace exists.
	HasNamespace(namespace string) (bool, error)

	// CreateNamespace creates a namespace durably.
	CreateNamespace(namespace string) error

	// Load reads a committed item.
	Load(namespace, key string) (item Item, found bool, err error)

	// Apply applies a batch to a namespace atomically: either all of it or nothing.
	Apply(namespace string, batch Batch) error

	// List returns the committed entries of a namespace, or of all namespaces if
	// namespace is empty, ordered by namespace and key.
	List(namespace string) ([]engine.EntryInfo, error)

	// Close unmounts the partition.
	Close() error
}
