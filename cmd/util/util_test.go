package util

import (
	"errors"
	"strings"
	"testing"

	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("") != "" {
		t.Errorf("expected an empty string")
	}
}

func TestParseStores(t *testing.T) {
	stores, err := ParseStores("1=flash, 2 = memory")
	if err != nil {
		t.Fatalf("ParseStores failed: %v", err)
	}
	expected := []common.ServerStore{
		{StoreID: 1, Type: common.StoreTypeFlash},
		{StoreID: 2, Type: common.StoreTypeMemory},
	}
	if len(stores) != len(expected) {
		t.Fatalf("expected %d stores, got %d", len(expected), len(stores))
	}
	for i := range expected {
		if stores[i] != expected[i] {
			t.Errorf("store %d: expected %+v, got %+v", i, expected[i], stores[i])
		}
	}

	for _, invalid := range []string{"", "1", "x=flash", "1=tape", "1=flash=2"} {
		if _, err := ParseStores(invalid); err == nil {
			t.Errorf("expected an error for %q", invalid)
		}
	}
}

func TestParseAndFormatValue(t *testing.T) {
	testCases := []struct {
		valueType hal.ValueType
		text      string
		bits      uint64
	}{
		{hal.TypeI8, "-1", 0xFFFFFFFFFFFFFFFF},
		{hal.TypeU8, "255", 255},
		{hal.TypeI16, "-32768", 0xFFFFFFFFFFFF8000},
		{hal.TypeU32, "4294967295", 0xFFFFFFFF},
		{hal.TypeI64, "42", 42},
		{hal.TypeU64, "18446744073709551615", 0xFFFFFFFFFFFFFFFF},
	}

	for _, tc := range testCases {
		bits, err := ParseValue(tc.valueType, tc.text)
		if err != nil {
			t.Errorf("%s %s: %v", tc.valueType, tc.text, err)
			continue
		}
		if bits != tc.bits {
			t.Errorf("%s %s: expected %#x, got %#x", tc.valueType, tc.text, tc.bits, bits)
		}
		if text := FormatValue(tc.valueType, bits); text != tc.text {
			t.Errorf("%s: expected %s, got %s", tc.valueType, tc.text, text)
		}
	}

	for _, tc := range []struct {
		valueType hal.ValueType
		text      string
	}{
		{hal.TypeU8, "256"},
		{hal.TypeU8, "-1"},
		{hal.TypeI8, "128"},
		{hal.TypeI32, "abc"},
	} {
		if _, err := ParseValue(tc.valueType, tc.text); err == nil {
			t.Errorf("expected an error for %s %s", tc.valueType, tc.text)
		}
	}
}

func TestCheckCode(t *testing.T) {
	if err := CheckCode("commit", hal.CodeNormal); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := CheckCode("commit", hal.CodeFull)
	if !errors.Is(err, hal.CodeFull.Err()) {
		t.Errorf("expected a Full error, got %v", err)
	}
	if !strings.Contains(err.Error(), "commit") {
		t.Errorf("expected the operation in %q", err.Error())
	}
}
