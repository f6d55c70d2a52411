// Package hal defines the storage hardware abstraction layer: a typed,
// error-mapped interface over a persistent, partitioned key/value store.
//
// The package focuses on:
//   - A single contract (IStorageHAL) with interchangeable implementations: the
//     engine-backed HAL in hal/nvshal and the remote HAL in rpc/client
//   - A closed result taxonomy (ReturnCode) shared by all operations
//   - Handles as owned resources with a closed state (Handle)
//   - Generic typed access over a fixed set of scalar types (Read, ReadInto, Write)
//
// Control flow:
//
//	code := hal.InitializeWithRecovery(storage, "")
//	if code != hal.CodeNormal {
//		return code.Err()
//	}
//
//	handle, code := storage.Open("cfg", hal.ReadWrite, "")
//	if code != hal.CodeNormal {
//		return code.Err()
//	}
//	defer storage.Close(handle)
//
//	n, code := hal.Read[int32](storage, handle, "n")
//	switch code {
//	case hal.CodeNormal:
//	case hal.CodeNotFound:
//		n = 0
//	default:
//		return code.Err()
//	}
//
//	hal.Write(storage, handle, "n", n+1)
//	return storage.Commit(handle).Err()
//
// Values are typed per call. A value can only be read with the type it was
// written with; any other type yields CodeSize, values are never truncated or
// reinterpreted. A failed read never produces a value.
//
// Durability: a write is only guaranteed to survive a restart after Commit on
// the same handle returned CodeNormal. Close does not commit.
//
// Handle lifecycle: Open -> (ReadBits | WriteBits | EraseKey | EraseAll | Commit)* -> Close.
// Every operation on a closed handle returns CodeInvalid. Deinitialize and Erase
// of a partition invalidate all handles opened on it at the storage level; such
// handles report CodeInvalid as well.
package hal
