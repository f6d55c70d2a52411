package hal

import (
	"reflect"
	"testing"
)

// scriptedHAL returns scripted codes for the lifecycle operations and stores
// values in a map. Only what the tests of this package need is implemented.
type scriptedHAL struct {
	initCodes  []ReturnCode
	eraseCode  ReturnCode
	calls      []string
	values     map[string]uint64
	valueTypes map[string]ValueType
}

var _ IStorageHAL = (*scriptedHAL)(nil)

func newScriptedHAL(initCodes ...ReturnCode) *scriptedHAL {
	return &scriptedHAL{
		initCodes:  initCodes,
		values:     make(map[string]uint64),
		valueTypes: make(map[string]ValueType),
	}
}

func (s *scriptedHAL) Initialize() ReturnCode {
	return s.InitializePartition(DefaultPartition)
}

func (s *scriptedHAL) InitializePartition(partition string) ReturnCode {
	s.calls = append(s.calls, "init:"+partition)
	code := s.initCodes[0]
	if len(s.initCodes) > 1 {
		s.initCodes = s.initCodes[1:]
	}
	return code
}

func (s *scriptedHAL) Deinitialize(string) ReturnCode { return CodeNormal }

func (s *scriptedHAL) Erase(partition string) ReturnCode {
	s.calls = append(s.calls, "erase:"+partition)
	return s.eraseCode
}

func (s *scriptedHAL) Open(namespace string, mode OpenMode, partition string) (*Handle, ReturnCode) {
	return NewHandle(1, ResolvePartition(partition), namespace, mode), CodeNormal
}

func (s *scriptedHAL) Close(handle *Handle) ReturnCode {
	handle.Invalidate()
	return CodeNormal
}

func (s *scriptedHAL) ReadBits(handle *Handle, key string, valueType ValueType) (uint64, ReturnCode) {
	if handle.Closed() {
		return 0, CodeInvalid
	}
	t, ok := s.valueTypes[key]
	if !ok {
		return 0, CodeNotFound
	}
	if t != valueType {
		return 0, CodeSize
	}
	return s.values[key], CodeNormal
}

func (s *scriptedHAL) WriteBits(handle *Handle, key string, valueType ValueType, bits uint64) ReturnCode {
	if handle.Closed() {
		return CodeInvalid
	}
	s.values[key] = bits
	s.valueTypes[key] = valueType
	return CodeNormal
}

func (s *scriptedHAL) EraseKey(*Handle, string) ReturnCode { return CodeNormal }
func (s *scriptedHAL) EraseAll(*Handle) ReturnCode         { return CodeNormal }
func (s *scriptedHAL) Commit(*Handle) ReturnCode           { return CodeNormal }

func (s *scriptedHAL) Stats(string) (PartitionStats, ReturnCode) {
	return PartitionStats{}, CodeNormal
}

func (s *scriptedHAL) List(string, string) ([]EntryInfo, ReturnCode) {
	return nil, CodeNormal
}

func TestInitializeWithRecovery(t *testing.T) {
	tests := []struct {
		name      string
		initCodes []ReturnCode
		eraseCode ReturnCode
		want      ReturnCode
		calls     []string
	}{
		{
			name:      "normal",
			initCodes: []ReturnCode{CodeNormal},
			want:      CodeNormal,
			calls:     []string{"init:nvs"},
		},
		{
			name:      "version recovers",
			initCodes: []ReturnCode{CodeVersion, CodeNormal},
			want:      CodeNormal,
			calls:     []string{"init:nvs", "erase:nvs", "init:nvs"},
		},
		{
			name:      "full recovers",
			initCodes: []ReturnCode{CodeFull, CodeNormal},
			want:      CodeNormal,
			calls:     []string{"init:nvs", "erase:nvs", "init:nvs"},
		},
		{
			name:      "partition not found is not recoverable",
			initCodes: []ReturnCode{CodePartitionNotFound},
			want:      CodePartitionNotFound,
			calls:     []string{"init:nvs"},
		},
		{
			name:      "erase failure is returned",
			initCodes: []ReturnCode{CodeFull},
			eraseCode: CodeError,
			want:      CodeError,
			calls:     []string{"init:nvs", "erase:nvs"},
		},
		{
			name:      "retries exactly once",
			initCodes: []ReturnCode{CodeVersion, CodeVersion},
			want:      CodeVersion,
			calls:     []string{"init:nvs", "erase:nvs", "init:nvs"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newScriptedHAL(tc.initCodes...)
			s.eraseCode = tc.eraseCode

			if got := InitializeWithRecovery(s, ""); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
			if !reflect.DeepEqual(s.calls, tc.calls) {
				t.Errorf("Expected calls %v, got %v", tc.calls, s.calls)
			}
		})
	}
}

func TestTypedAccess(t *testing.T) {
	s := newScriptedHAL(CodeNormal)
	h, _ := s.Open("cfg", ReadWrite, "")

	if code := Write[int8](s, h, "small", -3); code != CodeNormal {
		t.Fatalf("Write returned %s", code)
	}
	if s.values["small"] != 0xfffffffffffffffd {
		t.Errorf("Expected sign-extended bits, got 0x%x", s.values["small"])
	}

	v, code := Read[int8](s, h, "small")
	if code != CodeNormal || v != -3 {
		t.Errorf("Expected -3, got %d (%s)", v, code)
	}

	if _, code := Read[int32](s, h, "small"); code != CodeSize {
		t.Errorf("Expected %s for width mismatch, got %s", CodeSize, code)
	}

	dst := int32(77)
	if code := ReadInto(s, h, "missing", &dst); code != CodeNotFound || dst != 77 {
		t.Errorf("Expected untouched destination on NotFound, got %d (%s)", dst, code)
	}

	Write[uint64](s, h, "big", 1<<63)
	var big uint64
	if code := ReadInto(s, h, "big", &big); code != CodeNormal || big != 1<<63 {
		t.Errorf("Expected 1<<63, got %d (%s)", big, code)
	}
}
