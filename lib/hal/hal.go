package hal

import "github.com/lni/dragonboat/v4/logger"

var log = logger.GetLogger("hal")

// DefaultPartition is the partition used when an operation is called with an
// empty partition name.
const DefaultPartition = "nvs"

// IStorageHAL is the storage hardware abstraction layer.
//
// Every operation returns a ReturnCode; no operation panics on an ordinary failure.
// An empty partition argument selects DefaultPartition.
//
// Writes (WriteBits, EraseKey, EraseAll) are buffered per handle and only durable
// once Commit returned CodeNormal. Close does not commit.
//
// Thread-safety: Implementations must be safe for concurrent use. Initialize,
// InitializePartition, Deinitialize and Erase are serialized against Open.
// A single handle must not be written and committed from several goroutines at once.
type IStorageHAL interface {

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Initialize initializes the default partition.
	// Returns CodeFull or CodeVersion if the partition must be erased first
	// (see InitializeWithRecovery), CodePartitionNotFound, CodeMemory or CodeError.
	Initialize() ReturnCode

	// InitializePartition initializes a named partition, see Initialize.
	InitializePartition(partition string) ReturnCode

	// Deinitialize releases a partition. Open handles on it become CodeInvalid.
	Deinitialize(partition string) ReturnCode

	// Erase destroys all entries of a partition. The partition must be initialized
	// again before it can be opened.
	Erase(partition string) ReturnCode

	// --------------------------------------------------------------------------
	// Handles
	// --------------------------------------------------------------------------

	// Open opens a namespace. On any code other than CodeNormal the handle is nil.
	Open(namespace string, mode OpenMode, partition string) (*Handle, ReturnCode)

	// Close releases a handle and drops its uncommitted writes.
	// Closing an already closed handle returns CodeNormal.
	Close(handle *Handle) ReturnCode

	// --------------------------------------------------------------------------
	// Values
	// --------------------------------------------------------------------------

	// ReadBits reads the bit pattern of a typed value. Signed values are
	// sign-extended to 64 bits. Reading with a type other than the stored one
	// returns CodeSize. Use Read for typed access.
	ReadBits(handle *Handle, key string, valueType ValueType) (uint64, ReturnCode)

	// WriteBits writes a typed value. Use Write for typed access.
	WriteBits(handle *Handle, key string, valueType ValueType, bits uint64) ReturnCode

	// EraseKey removes a single value.
	EraseKey(handle *Handle, key string) ReturnCode

	// EraseAll removes all values of the handle's namespace.
	EraseAll(handle *Handle) ReturnCode

	// Commit makes all writes of the handle since the last successful commit durable.
	Commit(handle *Handle) ReturnCode

	// --------------------------------------------------------------------------
	// Introspection
	// --------------------------------------------------------------------------

	// Stats returns the entry usage of an initialized partition.
	Stats(partition string) (PartitionStats, ReturnCode)

	// List returns the committed entries of a namespace, or of all namespaces if
	// namespace is empty.
	List(partition, namespace string) ([]EntryInfo, ReturnCode)
}

// ResolvePartition maps an empty partition name to DefaultPartition.
func ResolvePartition(partition string) string {
	if partition == "" {
		return DefaultPartition
	}
	return partition
}
