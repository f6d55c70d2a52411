package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	byte 0: MsgType
//	byte 1: flags
//	byte 2: Mode
//	byte 3: ValueType
//	byte 4: Code
//	then every field whose flag is set, in flag order
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasHandle    byte = 1 << 0
	hasPartition byte = 1 << 1
	hasNamespace byte = 1 << 2
	hasKey       byte = 1 << 3
	hasBits      byte = 1 << 4
	hasStats     byte = 1 << 5
	hasEntries   byte = 1 << 6
	hasErr       byte = 1 << 7
)

const headerSize = 5

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, b.sizeBytes(msg))

	result[0] = byte(msg.MsgType)
	result[2] = byte(msg.Mode)
	result[3] = byte(msg.ValueType)
	result[4] = byte(msg.Code)

	var flags byte = 0
	pos := headerSize

	if msg.Handle != 0 {
		flags |= hasHandle
		binary.BigEndian.PutUint32(result[pos:pos+4], msg.Handle)
		pos += 4
	}

	if msg.Partition != "" {
		flags |= hasPartition
		pos = putString(result, pos, msg.Partition)
	}

	if msg.Namespace != "" {
		flags |= hasNamespace
		pos = putString(result, pos, msg.Namespace)
	}

	if msg.Key != "" {
		flags |= hasKey
		pos = putString(result, pos, msg.Key)
	}

	if msg.Bits != 0 {
		flags |= hasBits
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Bits)
		pos += 8
	}

	if msg.Stats != nil {
		flags |= hasStats
		for _, v := range []int{msg.Stats.UsedEntries, msg.Stats.FreeEntries, msg.Stats.TotalEntries, msg.Stats.NamespaceCount} {
			if v < 0 {
				return nil, fmt.Errorf("negative stats value %d", v)
			}
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(v))
			pos += 4
		}
	}

	if msg.Entries != nil {
		flags |= hasEntries
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Entries)))
		pos += 4
		for _, entry := range msg.Entries {
			pos = putString(result, pos, entry.Namespace)
			pos = putString(result, pos, entry.Key)
			result[pos] = byte(entry.Type)
			pos += 1
		}
	}

	if msg.Err != "" {
		flags |= hasErr
		pos = putString(result, pos, msg.Err)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result[:pos], nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	msg.Mode = hal.OpenMode(data[2])
	msg.ValueType = hal.ValueType(data[3])
	msg.Code = hal.ReturnCode(data[4])

	pos := headerSize
	var err error

	msg.Handle = 0
	if flags&hasHandle != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for handle")
		}
		msg.Handle = binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
	}

	msg.Partition = ""
	if flags&hasPartition != 0 {
		if msg.Partition, pos, err = readString(data, pos, "partition"); err != nil {
			return err
		}
	}

	msg.Namespace = ""
	if flags&hasNamespace != 0 {
		if msg.Namespace, pos, err = readString(data, pos, "namespace"); err != nil {
			return err
		}
	}

	msg.Key = ""
	if flags&hasKey != 0 {
		if msg.Key, pos, err = readString(data, pos, "key"); err != nil {
			return err
		}
	}

	msg.Bits = 0
	if flags&hasBits != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for bits")
		}
		msg.Bits = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	msg.Stats = nil
	if flags&hasStats != 0 {
		if pos+16 > len(data) {
			return fmt.Errorf("data too short for stats")
		}
		msg.Stats = &hal.PartitionStats{
			UsedEntries:    int(binary.BigEndian.Uint32(data[pos : pos+4])),
			FreeEntries:    int(binary.BigEndian.Uint32(data[pos+4 : pos+8])),
			TotalEntries:   int(binary.BigEndian.Uint32(data[pos+8 : pos+12])),
			NamespaceCount: int(binary.BigEndian.Uint32(data[pos+12 : pos+16])),
		}
		pos += 16
	}

	msg.Entries = nil
	if flags&hasEntries != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for entry count")
		}
		count := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		// every entry takes at least 9 bytes
		if count > (len(data)-pos)/9 {
			return fmt.Errorf("data too short for %d entries", count)
		}

		msg.Entries = make([]hal.EntryInfo, count)
		for i := range msg.Entries {
			entry := &msg.Entries[i]
			if entry.Namespace, pos, err = readString(data, pos, "entry namespace"); err != nil {
				return err
			}
			if entry.Key, pos, err = readString(data, pos, "entry key"); err != nil {
				return err
			}
			if pos+1 > len(data) {
				return fmt.Errorf("data too short for entry type")
			}
			entry.Type = hal.ValueType(data[pos])
			pos += 1
		}
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		if msg.Err, _, err = readString(data, pos, "error"); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates an upper bound of the size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// fixed width fields: handle, bits, stats, entry count
	size += 4 + 8 + 16 + 4

	// strings are prefixed with a 4 byte length
	size += 4 + len(msg.Partition)
	size += 4 + len(msg.Namespace)
	size += 4 + len(msg.Key)
	size += 4 + len(msg.Err)
	for _, entry := range msg.Entries {
		size += 4 + len(entry.Namespace) + 4 + len(entry.Key) + 1
	}

	return size
}

// putString writes a length prefixed string and returns the new position
func putString(buf []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

// readString reads a length prefixed string and returns it with the new position
func readString(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return "", pos, fmt.Errorf("data too short for %s data", field)
	}
	return string(data[pos : pos+n]), pos + n, nil
}
