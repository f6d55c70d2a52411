package hal

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestReturnCodeTaxonomy(t *testing.T) {
	codes := ReturnCodes()
	if len(codes) != 16 {
		t.Fatalf("Expected 16 return codes, got %d", len(codes))
	}
	seen := make(map[string]bool)
	for _, code := range codes {
		name := code.String()
		if seen[name] {
			t.Errorf("Duplicate name %s", name)
		}
		seen[name] = true

		parsed, err := ParseReturnCode(name)
		if err != nil || parsed != code {
			t.Errorf("ParseReturnCode(%s) = %v, %v", name, parsed, err)
		}
	}
	if ReturnCode(200).Valid() {
		t.Error("Expected code 200 to be invalid")
	}
}

func TestReturnCodeErr(t *testing.T) {
	if CodeNormal.Err() != nil {
		t.Error("Expected nil error for CodeNormal")
	}

	err := NewError("read", CodeNotFound)
	if !errors.Is(err, CodeNotFound.Err()) {
		t.Errorf("Expected %v to match CodeNotFound", err)
	}
	if errors.Is(err, CodeSize.Err()) {
		t.Errorf("Expected %v not to match CodeSize", err)
	}
	if err.Error() != "storage: read: NotFound" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	var halErr *Error
	if !errors.As(err, &halErr) || halErr.Code != CodeNotFound {
		t.Errorf("Expected errors.As to extract the code, got %v", halErr)
	}
}

func TestReturnCodeJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Code ReturnCode `json:"code"`
		Type ValueType  `json:"type"`
	}{CodeNamespaceNotFound, TypeI16})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"code":"NamespaceNotFound","type":"i16"}` {
		t.Errorf("Unexpected JSON %s", data)
	}
}

func TestValueTypes(t *testing.T) {
	tests := []struct {
		valueType ValueType
		name      string
		bits      int
		signed    bool
	}{
		{TypeI8, "i8", 8, true},
		{TypeU8, "u8", 8, false},
		{TypeI16, "i16", 16, true},
		{TypeU16, "u16", 16, false},
		{TypeI32, "i32", 32, true},
		{TypeU32, "u32", 32, false},
		{TypeI64, "i64", 64, true},
		{TypeU64, "u64", 64, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.valueType.String() != tc.name || tc.valueType.Bits() != tc.bits || tc.valueType.Signed() != tc.signed {
				t.Errorf("Unexpected properties for %s: %d bits, signed=%v", tc.valueType, tc.valueType.Bits(), tc.valueType.Signed())
			}
			if parsed, err := ParseValueType(tc.name); err != nil || parsed != tc.valueType {
				t.Errorf("ParseValueType(%s) = %v, %v", tc.name, parsed, err)
			}
		})
	}

	if TypeOf[int32]() != TypeI32 || TypeOf[uint8]() != TypeU8 || TypeOf[uint64]() != TypeU64 {
		t.Error("TypeOf returned unexpected types")
	}
	if _, err := ParseValueType("f32"); err == nil {
		t.Error("Expected error for unsupported type")
	}
}

func TestOpenMode(t *testing.T) {
	if mode, err := ParseOpenMode("readwrite"); err != nil || mode != ReadWrite {
		t.Errorf("Unexpected mode %v, %v", mode, err)
	}
	if mode, err := ParseOpenMode("RO"); err != nil || mode != ReadOnly {
		t.Errorf("Unexpected mode %v, %v", mode, err)
	}
	if _, err := ParseOpenMode("append"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestHandleState(t *testing.T) {
	h := NewHandle(3, "nvs", "cfg", ReadWrite)
	if h.Closed() || h.ID() != 3 || h.Mode() != ReadWrite || h.Namespace() != "cfg" {
		t.Errorf("Unexpected handle %s", h)
	}
	if !h.Invalidate() {
		t.Error("Expected first Invalidate to close the handle")
	}
	if h.Invalidate() {
		t.Error("Expected second Invalidate to report already closed")
	}
	if !h.Closed() {
		t.Error("Expected handle to be closed")
	}

	var nilHandle *Handle
	if !nilHandle.Closed() || nilHandle.Invalidate() {
		t.Error("Expected nil handle to behave as closed")
	}
}
