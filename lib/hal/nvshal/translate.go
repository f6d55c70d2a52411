package nvshal

import (
	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/hal"
)

// --------------------------------------------------------------------------
// Native Status Translation
// --------------------------------------------------------------------------

// translation maps the native status codes of one operation to return codes.
// Codes not listed become hal.CodeError.
type translation map[engine.Status]hal.ReturnCode

func (t translation) translate(status engine.Status) hal.ReturnCode {
	if code, ok := t[status]; ok {
		return code
	}
	return hal.CodeError
}

var (
	initTable = translation{
		engine.StatusOK:              hal.CodeNormal,
		engine.StatusNoFreePages:     hal.CodeFull,
		engine.StatusNewVersionFound: hal.CodeVersion,
		engine.StatusPartNotFound:    hal.CodePartitionNotFound,
		engine.StatusNotFound:        hal.CodePartitionNotFound,
		engine.StatusNoMem:           hal.CodeMemory,
	}

	deinitTable = translation{
		engine.StatusOK:             hal.CodeNormal,
		engine.StatusNotInitialized: hal.CodeNotInitialized,
		engine.StatusPartNotFound:   hal.CodePartitionNotFound,
	}

	eraseTable = translation{
		engine.StatusOK:           hal.CodeNormal,
		engine.StatusPartNotFound: hal.CodePartitionNotFound,
		engine.StatusNotFound:     hal.CodePartitionNotFound,
	}

	openTable = translation{
		engine.StatusOK:             hal.CodeNormal,
		engine.StatusNotInitialized: hal.CodeNotInitialized,
		engine.StatusPartNotFound:   hal.CodePartitionNotFound,
		engine.StatusNotFound:       hal.CodeNamespaceNotFound,
		engine.StatusInvalidName:    hal.CodeName,
		engine.StatusNoMem:          hal.CodeMemory,
		engine.StatusNotEnoughSpace: hal.CodeFull,
	}

	// shared by all value types
	readTable = translation{
		engine.StatusOK:            hal.CodeNormal,
		engine.StatusNotFound:      hal.CodeNotFound,
		engine.StatusInvalidHandle: hal.CodeInvalid,
		engine.StatusInvalidName:   hal.CodeName,
		engine.StatusKeyTooLong:    hal.CodeName,
		engine.StatusTypeMismatch:  hal.CodeSize,
		engine.StatusInvalidLength: hal.CodeSize,
	}

	// shared by all value types
	writeTable = translation{
		engine.StatusOK:             hal.CodeNormal,
		engine.StatusInvalidHandle:  hal.CodeInvalid,
		engine.StatusReadOnly:       hal.CodePermission,
		engine.StatusInvalidName:    hal.CodeName,
		engine.StatusKeyTooLong:     hal.CodeName,
		engine.StatusNotEnoughSpace: hal.CodeSize,
		engine.StatusValueTooLong:   hal.CodeSize,
		engine.StatusRemoveFailed:   hal.CodeReinit,
	}

	eraseKeyTable = translation{
		engine.StatusOK:            hal.CodeNormal,
		engine.StatusInvalidHandle: hal.CodeInvalid,
		engine.StatusReadOnly:      hal.CodePermission,
		engine.StatusNotFound:      hal.CodeNotFound,
		engine.StatusInvalidName:   hal.CodeName,
		engine.StatusKeyTooLong:    hal.CodeName,
		engine.StatusRemoveFailed:  hal.CodeReinit,
	}

	eraseAllTable = translation{
		engine.StatusOK:            hal.CodeNormal,
		engine.StatusInvalidHandle: hal.CodeInvalid,
		engine.StatusReadOnly:      hal.CodePermission,
		engine.StatusRemoveFailed:  hal.CodeReinit,
	}

	// Only these two are mapped, a failed commit for any other reason is a generic error.
	commitTable = translation{
		engine.StatusOK:            hal.CodeNormal,
		engine.StatusInvalidHandle: hal.CodeInvalid,
	}

	statsTable = translation{
		engine.StatusOK:             hal.CodeNormal,
		engine.StatusNotInitialized: hal.CodeNotInitialized,
		engine.StatusPartNotFound:   hal.CodePartitionNotFound,
	}

	listTable = translation{
		engine.StatusOK:             hal.CodeNormal,
		engine.StatusNotInitialized: hal.CodeNotInitialized,
		engine.StatusPartNotFound:   hal.CodePartitionNotFound,
		engine.StatusNotFound:       hal.CodeNamespaceNotFound,
		engine.StatusInvalidName:    hal.CodeName,
	}
)

// --------------------------------------------------------------------------
// Value Type Mapping
// --------------------------------------------------------------------------

var itemTypes = map[hal.ValueType]engine.ItemType{
	hal.TypeI8:  engine.ItemTypeI8,
	hal.TypeU8:  engine.ItemTypeU8,
	hal.TypeI16: engine.ItemTypeI16,
	hal.TypeU16: engine.ItemTypeU16,
	hal.TypeI32: engine.ItemTypeI32,
	hal.TypeU32: engine.ItemTypeU32,
	hal.TypeI64: engine.ItemTypeI64,
	hal.TypeU64: engine.ItemTypeU64,
}

var valueTypes = func() map[engine.ItemType]hal.ValueType {
	m := make(map[engine.ItemType]hal.ValueType, len(itemTypes))
	for v, i := range itemTypes {
		m[i] = v
	}
	return m
}()
