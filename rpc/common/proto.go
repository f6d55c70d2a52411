package common

import (
	"encoding/json"
	"fmt"

	"github.com/intermode/nvs-hal/lib/hal"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Target fields
	Handle    uint32 `json:"handle,omitempty"`    // Used for: Close, Read, Write, EraseKey, EraseAll, Commit; Open (response)
	Partition string `json:"partition,omitempty"` // Used for: Init, Deinit, Erase, Open, Stats, List
	Namespace string `json:"namespace,omitempty"` // Used for: Open, List
	Key       string `json:"key,omitempty"`       // Used for: Read, Write, EraseKey

	// Value fields
	Mode      hal.OpenMode  `json:"mode,omitempty"`       // Used for: Open
	ValueType hal.ValueType `json:"value_type,omitempty"` // Used for: Read, Write
	Bits      uint64        `json:"bits,omitempty"`       // Used for: Write (request), Read (response)

	// Response only fields
	Code    hal.ReturnCode      `json:"code"`              // Outcome of the operation on the server
	Stats   *hal.PartitionStats `json:"stats,omitempty"`   // Used for: Stats responses
	Entries []hal.EntryInfo     `json:"entries,omitempty"` // Used for: List responses
	Err     string              `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewInitRequest creates a new Init request
func NewInitRequest(partition string) *Message {
	return &Message{MsgType: MsgTInit, Partition: partition}
}

// NewDeinitRequest creates a new Deinit request
func NewDeinitRequest(partition string) *Message {
	return &Message{MsgType: MsgTDeinit, Partition: partition}
}

// NewEraseRequest creates a new Erase request
func NewEraseRequest(partition string) *Message {
	return &Message{MsgType: MsgTErase, Partition: partition}
}

// NewOpenRequest creates a new Open request
func NewOpenRequest(namespace string, mode hal.OpenMode, partition string) *Message {
	return &Message{
		MsgType:   MsgTOpen,
		Namespace: namespace,
		Mode:      mode,
		Partition: partition,
	}
}

// NewOpenResponse creates a new Open response
func NewOpenResponse(handle uint32, code hal.ReturnCode) *Message {
	return &Message{MsgType: MsgTOpen, Handle: handle, Code: code}
}

// NewCloseRequest creates a new Close request
func NewCloseRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTClose, Handle: handle}
}

// NewReadRequest creates a new Read request
func NewReadRequest(handle uint32, key string, valueType hal.ValueType) *Message {
	return &Message{
		MsgType:   MsgTRead,
		Handle:    handle,
		Key:       key,
		ValueType: valueType,
	}
}

// NewReadResponse creates a new Read response
func NewReadResponse(bits uint64, code hal.ReturnCode) *Message {
	return &Message{MsgType: MsgTRead, Bits: bits, Code: code}
}

// NewWriteRequest creates a new Write request
func NewWriteRequest(handle uint32, key string, valueType hal.ValueType, bits uint64) *Message {
	return &Message{
		MsgType:   MsgTWrite,
		Handle:    handle,
		Key:       key,
		ValueType: valueType,
		Bits:      bits,
	}
}

// NewEraseKeyRequest creates a new EraseKey request
func NewEraseKeyRequest(handle uint32, key string) *Message {
	return &Message{MsgType: MsgTEraseKey, Handle: handle, Key: key}
}

// NewEraseAllRequest creates a new EraseAll request
func NewEraseAllRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTEraseAll, Handle: handle}
}

// NewCommitRequest creates a new Commit request
func NewCommitRequest(handle uint32) *Message {
	return &Message{MsgType: MsgTCommit, Handle: handle}
}

// NewStatsRequest creates a new Stats request
func NewStatsRequest(partition string) *Message {
	return &Message{MsgType: MsgTStats, Partition: partition}
}

// NewStatsResponse creates a new Stats response
func NewStatsResponse(stats hal.PartitionStats, code hal.ReturnCode) *Message {
	msg := &Message{MsgType: MsgTStats, Code: code}
	if code == hal.CodeNormal {
		msg.Stats = &stats
	}
	return msg
}

// NewListRequest creates a new List request
func NewListRequest(partition, namespace string) *Message {
	return &Message{MsgType: MsgTList, Partition: partition, Namespace: namespace}
}

// NewListResponse creates a new List response
func NewListResponse(entries []hal.EntryInfo, code hal.ReturnCode) *Message {
	return &Message{MsgType: MsgTList, Entries: entries, Code: code}
}

// NewCodeResponse creates a response that only carries a return code.
// Used for all operations without an output value.
func NewCodeResponse(msgType MessageType, code hal.ReturnCode) *Message {
	return &Message{MsgType: msgType, Code: code}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    hal.CodeError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:  "unknown",
	MsgTError:    "error",
	MsgTInit:     "init",
	MsgTDeinit:   "deinit",
	MsgTErase:    "erase",
	MsgTOpen:     "open",
	MsgTClose:    "close",
	MsgTRead:     "read",
	MsgTWrite:    "write",
	MsgTEraseKey: "erase_key",
	MsgTEraseAll: "erase_all",
	MsgTCommit:   "commit",
	MsgTStats:    "stats",
	MsgTList:     "list",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTError               // Indicates the request could not be processed

	// Lifecycle operations

	MsgTInit   // Initialize a partition
	MsgTDeinit // Deinitialize a partition
	MsgTErase  // Erase a partition

	// Handle operations

	MsgTOpen  // Open a namespace
	MsgTClose // Close a handle

	// Value operations

	MsgTRead     // Read a typed value
	MsgTWrite    // Write a typed value
	MsgTEraseKey // Erase a single key
	MsgTEraseAll // Erase all keys of a namespace
	MsgTCommit   // Commit the writes of a handle

	// Introspection

	MsgTStats // Entry usage of a partition
	MsgTList  // Committed entries of a namespace
)
