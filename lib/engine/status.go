package engine

import "fmt"

// --------------------------------------------------------------------------
// Native Status Codes
// --------------------------------------------------------------------------

// Status is the native outcome of an engine operation.
// The values follow the error space of the flash key/value engine found on the
// target devices, so status codes can be compared with device logs.
type Status int32

const (
	StatusOK         Status = 0
	StatusFail       Status = -1
	StatusNoMem      Status = 0x101
	StatusInvalidArg Status = 0x102
)

const (
	statusBase Status = 0x1100

	StatusNotInitialized  = statusBase + 0x01 // The partition is not initialized
	StatusNotFound        = statusBase + 0x02 // The key or namespace does not exist
	StatusTypeMismatch    = statusBase + 0x03 // The stored item has a different type
	StatusReadOnly        = statusBase + 0x04 // The handle was opened read only
	StatusNotEnoughSpace  = statusBase + 0x05 // Not enough free entries for the operation
	StatusInvalidName     = statusBase + 0x06 // The namespace name is invalid
	StatusInvalidHandle   = statusBase + 0x07 // The handle is unknown or was closed
	StatusRemoveFailed    = statusBase + 0x08 // A stale item could not be removed, the partition needs a reinit
	StatusKeyTooLong      = statusBase + 0x09 // The key name is too long or empty
	StatusInvalidState    = statusBase + 0x0b // The engine is in an inconsistent state
	StatusInvalidLength   = statusBase + 0x0c // The stored length does not match the requested length
	StatusNoFreePages     = statusBase + 0x0d // The partition holds more entries than it has room for
	StatusValueTooLong    = statusBase + 0x0e // The value does not fit into an entry
	StatusPartNotFound    = statusBase + 0x0f // The partition does not exist in the partition table
	StatusNewVersionFound = statusBase + 0x10 // The partition holds data in an incompatible format
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusNoMem:
		return "NO_MEM"
	case StatusInvalidArg:
		return "INVALID_ARG"
	case StatusNotInitialized:
		return "NOT_INITIALIZED"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusTypeMismatch:
		return "TYPE_MISMATCH"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusNotEnoughSpace:
		return "NOT_ENOUGH_SPACE"
	case StatusInvalidName:
		return "INVALID_NAME"
	case StatusInvalidHandle:
		return "INVALID_HANDLE"
	case StatusRemoveFailed:
		return "REMOVE_FAILED"
	case StatusKeyTooLong:
		return "KEY_TOO_LONG"
	case StatusInvalidState:
		return "INVALID_STATE"
	case StatusInvalidLength:
		return "INVALID_LENGTH"
	case StatusNoFreePages:
		return "NO_FREE_PAGES"
	case StatusValueTooLong:
		return "VALUE_TOO_LONG"
	case StatusPartNotFound:
		return "PART_NOT_FOUND"
	case StatusNewVersionFound:
		return "NEW_VERSION_FOUND"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", int32(s))
	}
}
