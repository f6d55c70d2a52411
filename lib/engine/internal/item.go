package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/intermode/nvs-hal/lib/engine"
)

// itemSize is the encoded size of an item: 1 byte type tag + 8 bytes value.
const itemSize = 9

// --------------------------------------------------------------------------
// Item Type (typed scalar with metadata)
// --------------------------------------------------------------------------

// Item is a typed scalar as held by the engines.
// Bits always holds the canonical bit pattern for Type (see Canonical).
type Item struct {
	Type engine.ItemType
	Bits uint64
}

// Canonical truncates bits to the width of itemType and sign-extends signed types,
// so that the same logical value always has the same bit pattern.
func Canonical(itemType engine.ItemType, bits uint64) uint64 {
	width := itemType.Width() * 8
	if width >= 64 || width == 0 {
		return bits
	}
	mask := uint64(1)<<width - 1
	bits &= mask
	if itemType.Signed() && bits&(uint64(1)<<(width-1)) != 0 {
		bits |= ^mask
	}
	return bits
}

// Encode serializes an item into a byte array with the format:
// 1 byte for the item type,
// 8 bytes for the bit pattern (big endian)
func (item Item) Encode() []byte {
	result := make([]byte, itemSize)
	result[0] = byte(item.Type)
	binary.BigEndian.PutUint64(result[1:], item.Bits)
	return result
}

// DecodeItem extracts an item from a byte array written by Item.Encode.
func DecodeItem(data []byte) (Item, error) {
	if len(data) != itemSize {
		return Item{}, fmt.Errorf("invalid item length %d (expected %d)", len(data), itemSize)
	}
	itemType := engine.ItemType(data[0])
	if !itemType.Valid() {
		return Item{}, fmt.Errorf("invalid item type 0x%02x", data[0])
	}
	return Item{
		Type: itemType,
		Bits: binary.BigEndian.Uint64(data[1:]),
	}, nil
}

// --------------------------------------------------------------------------
// Name Validation
// --------------------------------------------------------------------------

// ValidateNamespace checks a namespace name against the engine's name constraints.
func ValidateNamespace(name string) engine.Status {
	if name == "" || len(name) > engine.MaxNameLength {
		return engine.StatusInvalidName
	}
	if !printable(name) {
		return engine.StatusInvalidName
	}
	return engine.StatusOK
}

// ValidateKey checks a key against the engine's name constraints.
func ValidateKey(key string) engine.Status {
	if key == "" || !printable(key) {
		return engine.StatusInvalidName
	}
	if len(key) > engine.MaxNameLength {
		return engine.StatusKeyTooLong
	}
	return engine.StatusOK
}

// printable reports whether the name only consists of printable ASCII characters.
func printable(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}
