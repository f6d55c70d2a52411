package engine

import "fmt"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplFlash  Implementation = "flash"
	ImplMemory Implementation = "memory"
)

const (
	// DefaultPartition is the partition used when a caller passes an empty partition name.
	DefaultPartition = "nvs"

	// MaxNameLength is the maximum length (in bytes) of keys and namespace names.
	MaxNameLength = 15

	// MaxNamespaces is the maximum number of namespaces a single partition can hold.
	MaxNamespaces = 254

	// FormatVersion is the on-flash format version written by the current engines.
	FormatVersion uint32 = 2
)

// Handle identifies one open (partition, namespace) pair inside an engine.
// Handles are assigned by the engine and never reused within one engine instance.
// The zero value is never a valid handle.
type Handle uint32

// ItemType tags the scalar type of a stored item.
// The low nibble is the width in bytes, the high nibble marks signed types.
type ItemType uint8

const (
	ItemTypeU8  ItemType = 0x01
	ItemTypeI8  ItemType = 0x11
	ItemTypeU16 ItemType = 0x02
	ItemTypeI16 ItemType = 0x12
	ItemTypeU32 ItemType = 0x04
	ItemTypeI32 ItemType = 0x14
	ItemTypeU64 ItemType = 0x08
	ItemTypeI64 ItemType = 0x18
)

// Valid reports whether the item type is one of the supported scalar types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeU8, ItemTypeI8, ItemTypeU16, ItemTypeI16,
		ItemTypeU32, ItemTypeI32, ItemTypeU64, ItemTypeI64:
		return true
	default:
		return false
	}
}

// Width returns the width of the item type in bytes.
func (t ItemType) Width() int {
	return int(t & 0x0f)
}

// Signed reports whether the item type is a signed integer.
func (t ItemType) Signed() bool {
	return t&0x10 != 0
}

func (t ItemType) String() string {
	switch t {
	case ItemTypeU8:
		return "u8"
	case ItemTypeI8:
		return "i8"
	case ItemTypeU16:
		return "u16"
	case ItemTypeI16:
		return "i16"
	case ItemTypeU32:
		return "u32"
	case ItemTypeI32:
		return "i32"
	case ItemTypeU64:
		return "u64"
	case ItemTypeI64:
		return "i64"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// EntryInfo describes one committed item.
type EntryInfo struct {
	Namespace string   `json:"namespace"`
	Key       string   `json:"key"`
	Type      ItemType `json:"type"`
}

// PartitionStats reports the entry usage of a partition.
type PartitionStats struct {
	UsedEntries    int `json:"used_entries"`
	FreeEntries    int `json:"free_entries"`
	TotalEntries   int `json:"total_entries"`
	NamespaceCount int `json:"namespace_count"`
}

// PartitionInfo describes one partition known to an engine.
type PartitionInfo struct {
	Name        string         `json:"name"`
	Initialized bool           `json:"initialized"`
	Stats       PartitionStats `json:"stats"`
}

// EngineInfo holds engine-level information for diagnostics.
type EngineInfo struct {
	Type          Implementation  `json:"type"`
	FormatVersion uint32          `json:"format_version"`
	OpenHandles   int             `json:"open_handles"`
	Partitions    []PartitionInfo `json:"partitions"`
	Metadata      interface{}     `json:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// IEngine is the contract of a flash key/value engine.
// All methods report their outcome as a native Status; the engine never panics on
// ordinary failures. Partition names are never empty at this level, callers resolve
// the default partition before calling into the engine.
//
// Writes (Set, EraseKey, EraseAll) are buffered per handle and only become durable
// once Commit returns StatusOK. A handle observes its own uncommitted writes.
type IEngine interface {

	// --------------------------------------------------------------------------
	// Partition Lifecycle
	// --------------------------------------------------------------------------

	// Init validates the partition format and makes the partition ready for Open.
	// Returns StatusNoFreePages if the partition holds more entries than the partition
	// table grants (a partition filled by writes initializes normally) and
	// StatusNewVersionFound if the stored format version differs from the engine's.
	Init(partition string) Status

	// Deinit releases a partition. All handles open on it become invalid.
	Deinit(partition string) Status

	// Erase destroys every entry of the partition. The partition is deinitialized
	// first and must be initialized again before it can be opened.
	Erase(partition string) Status

	// --------------------------------------------------------------------------
	// Handle Lifecycle
	// --------------------------------------------------------------------------

	// Open opens a namespace in a partition. Opening a namespace that does not exist
	// creates it when readOnly is false and returns StatusNotFound otherwise.
	Open(partition, namespace string, readOnly bool) (Handle, Status)

	// Close releases the handle and drops its uncommitted writes.
	// Closing an unknown handle is a no-op.
	Close(handle Handle)

	// --------------------------------------------------------------------------
	// Item Operations
	// --------------------------------------------------------------------------

	// Get reads the bit pattern of a typed item.
	// Returns StatusTypeMismatch if the item exists with a different type.
	Get(handle Handle, key string, itemType ItemType) (bits uint64, status Status)

	// Set writes the bit pattern of a typed item. Existing items are overwritten,
	// also if their type differs.
	Set(handle Handle, key string, itemType ItemType, bits uint64) Status

	// EraseKey removes a single item.
	EraseKey(handle Handle, key string) Status

	// EraseAll removes all items of the handle's namespace.
	EraseAll(handle Handle) Status

	// Commit makes all buffered writes of the handle durable.
	Commit(handle Handle) Status

	// --------------------------------------------------------------------------
	// Introspection
	// --------------------------------------------------------------------------

	// Stats returns the entry usage of an initialized partition.
	Stats(partition string) (PartitionStats, Status)

	// List returns the committed entries of a namespace (or of all namespaces if
	// namespace is empty), ordered by namespace and key.
	List(partition, namespace string) ([]EntryInfo, Status)

	// GetInfo returns information about the engine.
	GetInfo() EngineInfo

	// Shutdown releases all partitions and handles of the engine.
	Shutdown() error
}
