package hal

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Open Mode
// --------------------------------------------------------------------------

// OpenMode is fixed when a handle is opened.
type OpenMode uint8

const (
	ReadOnly OpenMode = iota
	ReadWrite
)

func (m OpenMode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("OpenMode(%d)", uint8(m))
	}
}

// ParseOpenMode parses "ro"/"readonly" and "rw"/"readwrite".
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(s) {
	case "ro", "readonly":
		return ReadOnly, nil
	case "rw", "readwrite":
		return ReadWrite, nil
	default:
		return ReadOnly, fmt.Errorf("unknown open mode: %s", s)
	}
}

// --------------------------------------------------------------------------
// Value Types
// --------------------------------------------------------------------------

// ValueType is the scalar type of a stored value.
type ValueType uint8

const (
	TypeI8 ValueType = iota
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
)

var typeNames = [...]string{
	TypeI8:  "i8",
	TypeU8:  "u8",
	TypeI16: "i16",
	TypeU16: "u16",
	TypeI32: "i32",
	TypeU32: "u32",
	TypeI64: "i64",
	TypeU64: "u64",
}

// Valid reports whether the type is a supported scalar type.
func (t ValueType) Valid() bool {
	return int(t) < len(typeNames)
}

// Signed reports whether the type is a signed integer.
func (t ValueType) Signed() bool {
	return t.Valid() && t%2 == 0
}

// Bits returns the width of the type in bits.
func (t ValueType) Bits() int {
	if !t.Valid() {
		return 0
	}
	return 8 << (t / 2)
}

func (t ValueType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
	return typeNames[t]
}

// ParseValueType parses a type name such as "i32" or "u8".
func ParseValueType(s string) (ValueType, error) {
	for i, name := range typeNames {
		if strings.EqualFold(name, s) {
			return ValueType(i), nil
		}
	}
	return TypeI8, fmt.Errorf("unknown value type: %s", s)
}

func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ValueType) UnmarshalText(text []byte) error {
	parsed, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Introspection Types
// --------------------------------------------------------------------------

// PartitionStats reports the entry usage of a partition.
type PartitionStats struct {
	UsedEntries    int `json:"used_entries"`
	FreeEntries    int `json:"free_entries"`
	TotalEntries   int `json:"total_entries"`
	NamespaceCount int `json:"namespace_count"`
}

// EntryInfo describes one committed value.
type EntryInfo struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Type      ValueType `json:"type"`
}
