package nvshal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/engines/flash"
	"github.com/intermode/nvs-hal/lib/engine/engines/memory"
	"github.com/intermode/nvs-hal/lib/hal"
	haltesting "github.com/intermode/nvs-hal/lib/hal/testing"
)

func memoryFactory(t *testing.T) haltesting.HALFactory {
	return func(env haltesting.Env) hal.IStorageHAL {
		opts := &memory.Options{Partitions: env.Partitions}
		if env.OutdatedFormat {
			opts.StoredVersions = map[string]uint32{engine.DefaultPartition: engine.FormatVersion - 1}
		}
		e, err := memory.NewMemoryEngine(opts)
		if err != nil {
			t.Fatalf("Failed to create memory engine: %v", err)
		}
		h := New(e, nil)
		t.Cleanup(func() { _ = h.Shutdown() })
		return h
	}
}

func flashFactory(t *testing.T) haltesting.HALFactory {
	return func(env haltesting.Env) hal.IStorageHAL {
		dir := t.TempDir()
		if env.OutdatedFormat {
			old, err := flash.NewFlashEngine(flash.Options{
				DataDir:       dir,
				Partitions:    env.Partitions,
				FormatVersion: engine.FormatVersion - 1,
				NoSync:        true,
			})
			if err != nil {
				t.Fatalf("Failed to create flash engine: %v", err)
			}
			if status := old.Init(engine.DefaultPartition); status != engine.StatusOK {
				t.Fatalf("Failed to prepare outdated partition: %s", status)
			}
			_ = old.Shutdown()
		}

		e, err := flash.NewFlashEngine(flash.Options{DataDir: dir, Partitions: env.Partitions, NoSync: true})
		if err != nil {
			t.Fatalf("Failed to create flash engine: %v", err)
		}
		h := New(e, &Options{Name: "test"})
		t.Cleanup(func() { _ = h.Shutdown() })
		return h
	}
}

func TestMemory(t *testing.T) {
	haltesting.RunHALTests(t, "NVSHAL(memory)", memoryFactory(t))
}

func TestFlash(t *testing.T) {
	haltesting.RunHALTests(t, "NVSHAL(flash)", flashFactory(t))
}

// --------------------------------------------------------------------------
// Translation tables
// --------------------------------------------------------------------------

// statusEngine answers every engine call with the same native status.
type statusEngine struct {
	status engine.Status
	calls  int
}

var _ engine.IEngine = (*statusEngine)(nil)

func (s *statusEngine) Init(string) engine.Status   { s.calls++; return s.status }
func (s *statusEngine) Deinit(string) engine.Status { s.calls++; return s.status }
func (s *statusEngine) Erase(string) engine.Status  { s.calls++; return s.status }
func (s *statusEngine) Open(string, string, bool) (engine.Handle, engine.Status) {
	s.calls++
	return 1, s.status
}
func (s *statusEngine) Close(engine.Handle) { s.calls++ }
func (s *statusEngine) Get(engine.Handle, string, engine.ItemType) (uint64, engine.Status) {
	s.calls++
	return 42, s.status
}
func (s *statusEngine) Set(engine.Handle, string, engine.ItemType, uint64) engine.Status {
	s.calls++
	return s.status
}
func (s *statusEngine) EraseKey(engine.Handle, string) engine.Status { s.calls++; return s.status }
func (s *statusEngine) EraseAll(engine.Handle) engine.Status         { s.calls++; return s.status }
func (s *statusEngine) Commit(engine.Handle) engine.Status           { s.calls++; return s.status }
func (s *statusEngine) Stats(string) (engine.PartitionStats, engine.Status) {
	s.calls++
	return engine.PartitionStats{}, s.status
}
func (s *statusEngine) List(string, string) ([]engine.EntryInfo, engine.Status) {
	s.calls++
	return nil, s.status
}
func (s *statusEngine) GetInfo() engine.EngineInfo { return engine.EngineInfo{Type: "status"} }
func (s *statusEngine) Shutdown() error            { return nil }

func TestTranslation(t *testing.T) {
	rw := func() *hal.Handle { return hal.NewHandle(1, "nvs", "ns", hal.ReadWrite) }

	ops := map[string]func(h *HAL) hal.ReturnCode{
		"init":  func(h *HAL) hal.ReturnCode { return h.Initialize() },
		"erase": func(h *HAL) hal.ReturnCode { return h.Erase("") },
		"open": func(h *HAL) hal.ReturnCode {
			_, code := h.Open("ns", hal.ReadWrite, "")
			return code
		},
		"read": func(h *HAL) hal.ReturnCode {
			_, code := hal.Read[int32](h, rw(), "key")
			return code
		},
		"write":     func(h *HAL) hal.ReturnCode { return hal.Write[int8](h, rw(), "key", 1) },
		"commit":    func(h *HAL) hal.ReturnCode { return h.Commit(rw()) },
		"erase_key": func(h *HAL) hal.ReturnCode { return h.EraseKey(rw(), "key") },
		"list": func(h *HAL) hal.ReturnCode {
			_, code := h.List("", "ns")
			return code
		},
	}

	tests := []struct {
		op     string
		status engine.Status
		want   hal.ReturnCode
	}{
		{"init", engine.StatusOK, hal.CodeNormal},
		{"init", engine.StatusNoFreePages, hal.CodeFull},
		{"init", engine.StatusNewVersionFound, hal.CodeVersion},
		{"init", engine.StatusPartNotFound, hal.CodePartitionNotFound},
		{"init", engine.StatusNoMem, hal.CodeMemory},
		{"init", engine.StatusInvalidState, hal.CodeError},

		{"erase", engine.StatusOK, hal.CodeNormal},
		{"erase", engine.StatusPartNotFound, hal.CodePartitionNotFound},
		{"erase", engine.StatusFail, hal.CodeError},

		{"open", engine.StatusOK, hal.CodeNormal},
		{"open", engine.StatusNotInitialized, hal.CodeNotInitialized},
		{"open", engine.StatusPartNotFound, hal.CodePartitionNotFound},
		{"open", engine.StatusNotFound, hal.CodeNamespaceNotFound},
		{"open", engine.StatusInvalidName, hal.CodeName},
		{"open", engine.StatusNoMem, hal.CodeMemory},
		{"open", engine.StatusNotEnoughSpace, hal.CodeFull},
		{"open", engine.StatusFail, hal.CodeError},

		{"read", engine.StatusOK, hal.CodeNormal},
		{"read", engine.StatusNotFound, hal.CodeNotFound},
		{"read", engine.StatusInvalidHandle, hal.CodeInvalid},
		{"read", engine.StatusInvalidName, hal.CodeName},
		{"read", engine.StatusKeyTooLong, hal.CodeName},
		{"read", engine.StatusTypeMismatch, hal.CodeSize},
		{"read", engine.StatusInvalidLength, hal.CodeSize},
		{"read", engine.StatusFail, hal.CodeError},

		{"write", engine.StatusOK, hal.CodeNormal},
		{"write", engine.StatusInvalidHandle, hal.CodeInvalid},
		{"write", engine.StatusReadOnly, hal.CodePermission},
		{"write", engine.StatusInvalidName, hal.CodeName},
		{"write", engine.StatusKeyTooLong, hal.CodeName},
		{"write", engine.StatusNotEnoughSpace, hal.CodeSize},
		{"write", engine.StatusRemoveFailed, hal.CodeReinit},
		{"write", engine.StatusFail, hal.CodeError},

		{"commit", engine.StatusOK, hal.CodeNormal},
		{"commit", engine.StatusInvalidHandle, hal.CodeInvalid},
		{"commit", engine.StatusNotEnoughSpace, hal.CodeError},
		{"commit", engine.StatusFail, hal.CodeError},

		{"erase_key", engine.StatusNotFound, hal.CodeNotFound},
		{"erase_key", engine.StatusRemoveFailed, hal.CodeReinit},

		{"list", engine.StatusNotFound, hal.CodeNamespaceNotFound},
		{"list", engine.StatusNotInitialized, hal.CodeNotInitialized},
	}

	for _, tc := range tests {
		t.Run(tc.op+"/"+tc.status.String(), func(t *testing.T) {
			h := New(&statusEngine{status: tc.status}, nil)
			if got := ops[tc.op](h); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestReadFailureYieldsNoValue(t *testing.T) {
	h := New(&statusEngine{status: engine.StatusTypeMismatch}, nil)
	bits, code := h.ReadBits(hal.NewHandle(1, "nvs", "ns", hal.ReadOnly), "key", hal.TypeI8)
	if code != hal.CodeSize || bits != 0 {
		t.Errorf("Expected Size without value, got 0x%x (%s)", bits, code)
	}
}

func TestHandleChecksBeforeEngine(t *testing.T) {
	e := &statusEngine{status: engine.StatusOK}
	h := New(e, nil)

	ro := hal.NewHandle(1, "nvs", "ns", hal.ReadOnly)
	closed := hal.NewHandle(2, "nvs", "ns", hal.ReadWrite)
	closed.Invalidate()

	checks := []struct {
		name string
		code hal.ReturnCode
		want hal.ReturnCode
	}{
		{"write read only", h.WriteBits(ro, "k", hal.TypeU8, 1), hal.CodePermission},
		{"commit read only", h.Commit(ro), hal.CodePermission},
		{"erase key read only", h.EraseKey(ro, "k"), hal.CodePermission},
		{"erase all read only", h.EraseAll(ro), hal.CodePermission},
		{"write closed", h.WriteBits(closed, "k", hal.TypeU8, 1), hal.CodeInvalid},
		{"commit closed", h.Commit(closed), hal.CodeInvalid},
		{"close nil", h.Close(nil), hal.CodeInvalid},
		{"close closed", h.Close(closed), hal.CodeNormal},
	}
	for _, c := range checks {
		if c.code != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.code)
		}
	}
	if e.calls != 0 {
		t.Errorf("Expected no engine calls, got %d", e.calls)
	}

	if code := h.WriteBits(hal.NewHandle(3, "nvs", "ns", hal.ReadWrite), "k", hal.ValueType(99), 1); code != hal.CodeError {
		t.Errorf("Expected Error for unsupported value type, got %s", code)
	}
}

func TestMetrics(t *testing.T) {
	e, err := memory.NewMemoryEngine(nil)
	if err != nil {
		t.Fatal(err)
	}
	h := New(e, &Options{Name: "1"})
	defer h.Shutdown()

	h.Initialize()
	h.Open("missing", hal.ReadOnly, "")

	var buf bytes.Buffer
	h.WriteMetrics(&buf)
	out := buf.String()
	for _, want := range []string{
		`nvs_hal_ops_total{store="1",op="init",code="Normal"} 1`,
		`nvs_hal_ops_total{store="1",op="open",code="NamespaceNotFound"} 1`,
		`nvs_hal_op_duration_seconds_bucket{store="1",op="init"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics to contain %q, got:\n%s", want, out)
		}
	}
}
