package hal

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// ReturnCode is the closed result taxonomy of every HAL operation.
// Callers must check the code before using any output value.
type ReturnCode uint8

const (
	CodeNormal            ReturnCode = iota // The operation succeeded
	CodeError                               // Generic or unmapped failure
	CodeInvalid                             // Bad, stale or closed handle
	CodeTimeout                             // The operation did not complete in time
	CodeFull                                // The storage (or target object) is full
	CodeMemory                              // Allocation failure
	CodeReinit                              // The storage must be erased and initialized again
	CodeNotInitialized                      // The storage subsystem is not initialized
	CodeNotReady                            // The storage is temporarily unavailable
	CodeNotFound                            // The key does not exist
	CodeVersion                             // The stored format is incompatible
	CodeSize                                // Value width mismatch or not enough space for a value
	CodeName                                // Malformed key or namespace name
	CodePermission                          // Write access through a read only handle
	CodePartitionNotFound                   // The partition does not exist
	CodeNamespaceNotFound                   // The namespace does not exist
)

var codeNames = [...]string{
	CodeNormal:            "Normal",
	CodeError:             "Error",
	CodeInvalid:           "Invalid",
	CodeTimeout:           "Timeout",
	CodeFull:              "Full",
	CodeMemory:            "Memory",
	CodeReinit:            "Reinit",
	CodeNotInitialized:    "NotInitialized",
	CodeNotReady:          "NotReady",
	CodeNotFound:          "NotFound",
	CodeVersion:           "Version",
	CodeSize:              "Size",
	CodeName:              "Name",
	CodePermission:        "Permission",
	CodePartitionNotFound: "PartitionNotFound",
	CodeNamespaceNotFound: "NamespaceNotFound",
}

// ReturnCodes returns all return codes in ascending order.
func ReturnCodes() []ReturnCode {
	codes := make([]ReturnCode, len(codeNames))
	for i := range codeNames {
		codes[i] = ReturnCode(i)
	}
	return codes
}

// Valid reports whether the code is part of the taxonomy.
func (c ReturnCode) Valid() bool {
	return int(c) < len(codeNames)
}

func (c ReturnCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ReturnCode(%d)", uint8(c))
	}
	return codeNames[c]
}

// Ok reports whether the code is CodeNormal.
func (c ReturnCode) Ok() bool {
	return c == CodeNormal
}

// Err converts the code into an error. CodeNormal yields nil.
func (c ReturnCode) Err() error {
	if c == CodeNormal {
		return nil
	}
	return &Error{Code: c}
}

// ParseReturnCode parses the name of a return code (case-insensitive).
func ParseReturnCode(s string) (ReturnCode, error) {
	for i, name := range codeNames {
		if strings.EqualFold(name, s) {
			return ReturnCode(i), nil
		}
	}
	return CodeError, fmt.Errorf("unknown return code: %s", s)
}

func (c ReturnCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ReturnCode) UnmarshalText(text []byte) error {
	code, err := ParseReturnCode(string(text))
	if err != nil {
		return err
	}
	*c = code
	return nil
}
