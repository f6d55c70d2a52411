// Package engine defines the contract of the flash key/value engine behind the
// storage HAL.
//
// An engine stores typed scalar items in namespaces inside named partitions, the
// way the non-volatile storage library of the target devices does. All operations
// report a native Status (see status.go); the HAL translates these into its own
// return codes.
//
// Model:
//
//   - Partition: a named region from the partition table with a capacity counted
//     in entries. A partition must be initialized (Init) before namespaces can be
//     opened in it. Erase wipes it and leaves it uninitialized.
//
//   - Namespace: a group of keys inside a partition, at most MaxNameLength bytes
//     long. Up to MaxNamespaces namespaces fit into one partition. Opening a
//     namespace in read/write mode creates it.
//
//   - Handle: an open (partition, namespace, mode) triple. Handles are never reused
//     and become invalid when closed or when their partition is deinitialized.
//
//   - Item: a key (at most MaxNameLength bytes) with an ItemType and a value. The
//     value travels as the canonical 64 bit pattern of its type.
//
// Writes are buffered per handle and become durable on Commit. Each item and each
// namespace occupies one entry of the partition.
//
// Implementations:
//
//   - engines/flash: persistent, one bbolt file per partition
//   - engines/memory: in memory, used by tests and ephemeral stores
//
// Both share the core in engine/internal and are verified by the suite in
// engine/testing.
package engine
