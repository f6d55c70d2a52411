// Package internal contains the engine core shared by all engine implementations.
//
// The core implements the engine.IEngine contract once: handle allocation, per-handle
// write buffering, name validation, capacity accounting and the mapping of storage
// failures to native status codes. Engine implementations only provide an IBackend
// that stores namespaces and items of a partition.
//
// Key Components:
//
//   - Engine: implements engine.IEngine over an IBackend. It tracks the mount state
//     and entry usage of every partition of the partition table.
//
//   - HandleTable / Session: a Session is the state of one open handle (partition,
//     namespace, mode and buffered writes). Handles are issued from a monotonic
//     counter starting at 1 and are never reused.
//
//   - Batch: the buffered writes of a Session, handed to IPartitionStore.Apply on
//     commit. A batch is applied atomically. If it cannot be applied it is restored
//     into the session, so a failed commit loses nothing.
//
//   - Item: a typed scalar. Bits always holds the canonical bit pattern of its type,
//     signed types are sign-extended to 64 bits.
//
// Capacity is counted in entries: every item and every namespace uses one entry.
// A Set of a new key reserves its entry at call time, so a Set that could never be
// committed fails early with StatusNotEnoughSpace.
package internal
