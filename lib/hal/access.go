package hal

// Scalar is the set of value types supported by Read and Write.
type Scalar interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64
}

// TypeOf returns the ValueType of a scalar type.
func TypeOf[T Scalar]() ValueType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return TypeI8
	case uint8:
		return TypeU8
	case int16:
		return TypeI16
	case uint16:
		return TypeU16
	case int32:
		return TypeI32
	case uint32:
		return TypeU32
	case int64:
		return TypeI64
	default:
		return TypeU64
	}
}

// Read reads a typed value. On any code other than CodeNormal the zero value is
// returned.
//
// Example:
//
//	counter, code := hal.Read[int32](storage, handle, "restart_counter")
func Read[T Scalar](h IStorageHAL, handle *Handle, key string) (T, ReturnCode) {
	bits, code := h.ReadBits(handle, key, TypeOf[T]())
	if code != CodeNormal {
		return 0, code
	}
	return T(bits), CodeNormal
}

// ReadInto reads a typed value into dst. dst is only modified on CodeNormal.
func ReadInto[T Scalar](h IStorageHAL, handle *Handle, key string, dst *T) ReturnCode {
	value, code := Read[T](h, handle, key)
	if code == CodeNormal {
		*dst = value
	}
	return code
}

// Write writes a typed value.
func Write[T Scalar](h IStorageHAL, handle *Handle, key string, value T) ReturnCode {
	return h.WriteBits(handle, key, TypeOf[T](), uint64(value))
}
