package testing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/hal"
)

// Env describes the storage a factory has to prepare.
type Env struct {
	// Partitions is the partition table (nil = engine.DefaultPartitionTable())
	Partitions []engine.PartitionSpec
	// OutdatedFormat prepares the default partition with an older format version
	OutdatedFormat bool
}

// HALFactory creates a new HAL over empty storage prepared as described by env.
// Nothing is initialized. The factory is responsible for cleaning up.
type HALFactory func(env Env) hal.IStorageHAL

// RunHALTests runs the conformance test suite for a hal.IStorageHAL implementation.
func RunHALTests(t *testing.T, name string, factory HALFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("NeverWrittenKey", func(t *testing.T) {
			testNeverWrittenKey(t, factory)
		})

		t.Run("DurabilityRoundTrip", func(t *testing.T) {
			testDurabilityRoundTrip(t, factory)
		})

		t.Run("ReadOnlyPermission", func(t *testing.T) {
			testReadOnlyPermission(t, factory)
		})

		t.Run("UseAfterClose", func(t *testing.T) {
			testUseAfterClose(t, factory)
		})

		t.Run("WidthMismatch", func(t *testing.T) {
			testWidthMismatch(t, factory)
		})

		t.Run("CounterScenario", func(t *testing.T) {
			testCounterScenario(t, factory)
		})

		t.Run("VersionRecovery", func(t *testing.T) {
			testVersionRecovery(t, factory)
		})

		t.Run("MissingNamespace", func(t *testing.T) {
			testMissingNamespace(t, factory)
		})

		t.Run("Lifecycle", func(t *testing.T) {
			testLifecycle(t, factory)
		})

		t.Run("Names", func(t *testing.T) {
			testNames(t, factory)
		})

		t.Run("Full", func(t *testing.T) {
			testFull(t, factory)
		})

		t.Run("EraseKey&EraseAll", func(t *testing.T) {
			testEraseKeyEraseAll(t, factory)
		})

		t.Run("UncommittedDropped", func(t *testing.T) {
			testUncommittedDropped(t, factory)
		})

		t.Run("EraseInvalidatesHandles", func(t *testing.T) {
			testEraseInvalidatesHandles(t, factory)
		})

		t.Run("Stats&List", func(t *testing.T) {
			testStatsList(t, factory)
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func initialized(t testing.TB, factory HALFactory, env Env) hal.IStorageHAL {
	t.Helper()
	storage := factory(env)
	table := env.Partitions
	if table == nil {
		table = engine.DefaultPartitionTable()
	}
	for _, p := range table {
		if code := storage.InitializePartition(p.Name); code != hal.CodeNormal {
			t.Fatalf("InitializePartition(%s) returned %s", p.Name, code)
		}
	}
	return storage
}

func mustOpen(t testing.TB, storage hal.IStorageHAL, namespace string, mode hal.OpenMode, partition string) *hal.Handle {
	t.Helper()
	handle, code := storage.Open(namespace, mode, partition)
	if code != hal.CodeNormal {
		t.Fatalf("Open(%s, %s, %q) returned %s", namespace, mode, partition, code)
	}
	if handle == nil || handle.Closed() {
		t.Fatalf("Open(%s) returned an unusable handle", namespace)
	}
	return handle
}

func expectCode(t testing.TB, op string, got, want hal.ReturnCode) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %s, got %s", op, want, got)
	}
}

func expectRead[T hal.Scalar](t testing.TB, storage hal.IStorageHAL, handle *hal.Handle, key string, want T) {
	t.Helper()
	got, code := hal.Read[T](storage, handle, key)
	if code != hal.CodeNormal {
		t.Errorf("Read(%s) returned %s", key, code)
		return
	}
	if got != want {
		t.Errorf("Read(%s): expected %v, got %v", key, want, got)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testNeverWrittenKey(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})
	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")

	out8 := int8(17)
	expectCode(t, "ReadInto i8", hal.ReadInto(storage, h, "never", &out8), hal.CodeNotFound)
	out32 := int32(-5)
	expectCode(t, "ReadInto i32", hal.ReadInto(storage, h, "never", &out32), hal.CodeNotFound)
	if out8 != 17 || out32 != -5 {
		t.Errorf("Expected outputs to stay untouched, got %d and %d", out8, out32)
	}

	v, code := hal.Read[uint64](storage, h, "never")
	expectCode(t, "Read u64", code, hal.CodeNotFound)
	if v != 0 {
		t.Errorf("Expected zero value on failure, got %d", v)
	}
}

func testDurabilityRoundTrip(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	h := mustOpen(t, storage, "roundtrip", hal.ReadWrite, "")
	expectCode(t, "Write i8", hal.Write[int8](storage, h, "i8", -128), hal.CodeNormal)
	expectCode(t, "Write u8", hal.Write[uint8](storage, h, "u8", 255), hal.CodeNormal)
	expectCode(t, "Write i16", hal.Write[int16](storage, h, "i16", -1234), hal.CodeNormal)
	expectCode(t, "Write u16", hal.Write[uint16](storage, h, "u16", 65535), hal.CodeNormal)
	expectCode(t, "Write i32", hal.Write[int32](storage, h, "i32", -2147483648), hal.CodeNormal)
	expectCode(t, "Write u32", hal.Write[uint32](storage, h, "u32", 4294967295), hal.CodeNormal)
	expectCode(t, "Write i64", hal.Write[int64](storage, h, "i64", -9223372036854775808), hal.CodeNormal)
	expectCode(t, "Write u64", hal.Write[uint64](storage, h, "u64", 18446744073709551615), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	expectCode(t, "Close", storage.Close(h), hal.CodeNormal)

	// a deinitialize/initialize cycle stands in for a restart
	expectCode(t, "Deinitialize", storage.Deinitialize(""), hal.CodeNormal)
	expectCode(t, "Initialize", storage.Initialize(), hal.CodeNormal)

	h = mustOpen(t, storage, "roundtrip", hal.ReadOnly, "")
	expectRead[int8](t, storage, h, "i8", -128)
	expectRead[uint8](t, storage, h, "u8", 255)
	expectRead[int16](t, storage, h, "i16", -1234)
	expectRead[uint16](t, storage, h, "u16", 65535)
	expectRead[int32](t, storage, h, "i32", -2147483648)
	expectRead[uint32](t, storage, h, "u32", 4294967295)
	expectRead[int64](t, storage, h, "i64", -9223372036854775808)
	expectRead[uint64](t, storage, h, "u64", 18446744073709551615)
	storage.Close(h)
}

func testReadOnlyPermission(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	rw := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	expectCode(t, "Write", hal.Write[int32](storage, rw, "n", 5), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(rw), hal.CodeNormal)
	storage.Close(rw)

	ro := mustOpen(t, storage, "cfg", hal.ReadOnly, "")
	defer storage.Close(ro)
	expectCode(t, "Write read only", hal.Write[int32](storage, ro, "n", 6), hal.CodePermission)
	expectCode(t, "Write new key read only", hal.Write[int8](storage, ro, "other", 1), hal.CodePermission)
	expectCode(t, "Commit read only", storage.Commit(ro), hal.CodePermission)
	expectCode(t, "EraseKey read only", storage.EraseKey(ro, "n"), hal.CodePermission)
	expectCode(t, "EraseAll read only", storage.EraseAll(ro), hal.CodePermission)

	expectRead[int32](t, storage, ro, "n", 5)
	_, code := hal.Read[int8](storage, ro, "other")
	expectCode(t, "Read rejected write", code, hal.CodeNotFound)
}

func testUseAfterClose(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	expectCode(t, "Write", hal.Write[int32](storage, h, "n", 1), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	expectCode(t, "Close", storage.Close(h), hal.CodeNormal)

	if !h.Closed() {
		t.Error("Expected handle to be in the closed state")
	}
	v, code := hal.Read[int32](storage, h, "n")
	expectCode(t, "Read after Close", code, hal.CodeInvalid)
	if v != 0 {
		t.Errorf("Expected no value after Close, got %d", v)
	}
	expectCode(t, "Write after Close", hal.Write[int32](storage, h, "n", 2), hal.CodeInvalid)
	expectCode(t, "Commit after Close", storage.Commit(h), hal.CodeInvalid)
	expectCode(t, "EraseKey after Close", storage.EraseKey(h, "n"), hal.CodeInvalid)
	expectCode(t, "EraseAll after Close", storage.EraseAll(h), hal.CodeInvalid)
	expectCode(t, "Close twice", storage.Close(h), hal.CodeNormal)

	_, code = storage.ReadBits(nil, "n", hal.TypeI32)
	expectCode(t, "Read nil handle", code, hal.CodeInvalid)

	h = mustOpen(t, storage, "cfg", hal.ReadOnly, "")
	expectRead[int32](t, storage, h, "n", 1)
	storage.Close(h)
}

func testWidthMismatch(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})
	h := mustOpen(t, storage, "widths", hal.ReadWrite, "")
	defer storage.Close(h)

	expectCode(t, "Write i32", hal.Write[int32](storage, h, "wide", 300), hal.CodeNormal)
	expectCode(t, "Write i8", hal.Write[int8](storage, h, "narrow", -1), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)

	for _, valueType := range []hal.ValueType{hal.TypeI8, hal.TypeU8, hal.TypeI16, hal.TypeU16, hal.TypeU32, hal.TypeI64, hal.TypeU64} {
		bits, code := storage.ReadBits(h, "wide", valueType)
		expectCode(t, fmt.Sprintf("Read i32 as %s", valueType), code, hal.CodeSize)
		if bits != 0 {
			t.Errorf("Expected no value on mismatch, got 0x%x", bits)
		}
	}

	_, code := hal.Read[int32](storage, h, "narrow")
	expectCode(t, "Read i8 as i32", code, hal.CodeSize)
	_, code = hal.Read[uint8](storage, h, "narrow")
	expectCode(t, "Read i8 as u8", code, hal.CodeSize)

	expectRead[int32](t, storage, h, "wide", 300)
	expectRead[int8](t, storage, h, "narrow", -1)
}

func testCounterScenario(t *testing.T, factory HALFactory) {
	storage := factory(Env{})

	expectCode(t, "Initialize", storage.Initialize(), hal.CodeNormal)

	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	expectCode(t, "Write 0", hal.Write[int32](storage, h, "n", 0), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	expectRead[int32](t, storage, h, "n", 0)
	expectCode(t, "Write 1", hal.Write[int32](storage, h, "n", 1), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	expectCode(t, "Close", storage.Close(h), hal.CodeNormal)

	h2 := mustOpen(t, storage, "cfg", hal.ReadOnly, "")
	expectRead[int32](t, storage, h2, "n", 1)
	expectCode(t, "Close", storage.Close(h2), hal.CodeNormal)
}

func testVersionRecovery(t *testing.T, factory HALFactory) {
	storage := factory(Env{OutdatedFormat: true})

	expectCode(t, "Initialize outdated", storage.Initialize(), hal.CodeVersion)
	expectCode(t, "Initialize outdated again", storage.Initialize(), hal.CodeVersion)

	_, code := storage.Open("cfg", hal.ReadWrite, "")
	expectCode(t, "Open after failed Initialize", code, hal.CodeNotInitialized)

	expectCode(t, "Erase", storage.Erase(""), hal.CodeNormal)
	expectCode(t, "Initialize after Erase", storage.Initialize(), hal.CodeNormal)
	storage.Close(mustOpen(t, storage, "cfg", hal.ReadWrite, ""))

	recovered := factory(Env{OutdatedFormat: true})
	expectCode(t, "InitializeWithRecovery", hal.InitializeWithRecovery(recovered, ""), hal.CodeNormal)
}

func testMissingNamespace(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	handle, code := storage.Open("missing", hal.ReadOnly, "")
	expectCode(t, "Open missing read only", code, hal.CodeNamespaceNotFound)
	if handle != nil {
		t.Errorf("Expected no handle, got %s", handle)
	}

	// opening read/write creates it
	storage.Close(mustOpen(t, storage, "missing", hal.ReadWrite, ""))
	storage.Close(mustOpen(t, storage, "missing", hal.ReadOnly, ""))
}

func testLifecycle(t *testing.T, factory HALFactory) {
	storage := factory(Env{Partitions: []engine.PartitionSpec{
		{Name: "nvs", Entries: 64},
		{Name: "factory", Entries: 64},
	}})

	_, code := storage.Open("cfg", hal.ReadWrite, "")
	expectCode(t, "Open before Initialize", code, hal.CodeNotInitialized)

	expectCode(t, "Initialize unknown partition", storage.InitializePartition("missing"), hal.CodePartitionNotFound)
	expectCode(t, "Erase unknown partition", storage.Erase("missing"), hal.CodePartitionNotFound)
	_, code = storage.Open("cfg", hal.ReadWrite, "missing")
	expectCode(t, "Open unknown partition", code, hal.CodePartitionNotFound)

	expectCode(t, "Initialize", storage.Initialize(), hal.CodeNormal)
	expectCode(t, "Initialize twice", storage.Initialize(), hal.CodeNormal)

	_, code = storage.Open("cfg", hal.ReadWrite, "factory")
	expectCode(t, "Open uninitialized partition", code, hal.CodeNotInitialized)
	expectCode(t, "InitializePartition", storage.InitializePartition("factory"), hal.CodeNormal)

	// the same namespace in two partitions holds independent keys
	a := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	b := mustOpen(t, storage, "cfg", hal.ReadWrite, "factory")
	expectCode(t, "Write", hal.Write[int32](storage, a, "n", 1), hal.CodeNormal)
	expectCode(t, "Write", hal.Write[int32](storage, b, "n", 2), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(a), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(b), hal.CodeNormal)
	expectRead[int32](t, storage, a, "n", 1)
	expectRead[int32](t, storage, b, "n", 2)
	if a.Partition() != "nvs" || b.Partition() != "factory" {
		t.Errorf("Unexpected partitions %s and %s", a.Partition(), b.Partition())
	}

	expectCode(t, "Deinitialize", storage.Deinitialize("factory"), hal.CodeNormal)
	expectCode(t, "Deinitialize twice", storage.Deinitialize("factory"), hal.CodeNotInitialized)
	_, code = hal.Read[int32](storage, b, "n")
	expectCode(t, "Read after Deinitialize", code, hal.CodeInvalid)
	expectRead[int32](t, storage, a, "n", 1)
}

func testNames(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	_, code := storage.Open("namespace_too_long", hal.ReadWrite, "")
	expectCode(t, "Open long namespace", code, hal.CodeName)
	_, code = storage.Open("", hal.ReadWrite, "")
	expectCode(t, "Open empty namespace", code, hal.CodeName)

	h := mustOpen(t, storage, "abcdefghijklmno", hal.ReadWrite, "")
	defer storage.Close(h)

	expectCode(t, "Write long key", hal.Write[int8](storage, h, "key_is_far_too_long", 1), hal.CodeName)
	expectCode(t, "Write empty key", hal.Write[int8](storage, h, "", 1), hal.CodeName)
	_, code = hal.Read[int8](storage, h, "key_is_far_too_long")
	expectCode(t, "Read long key", code, hal.CodeName)

	expectCode(t, "Write max key", hal.Write[int8](storage, h, "abcdefghijklmno", 1), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	expectRead[int8](t, storage, h, "abcdefghijklmno", 1)
}

func testFull(t *testing.T, factory HALFactory) {
	// 1 namespace + 3 values
	env := Env{Partitions: []engine.PartitionSpec{{Name: "nvs", Entries: 4}}}
	storage := initialized(t, factory, env)

	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	for i := 0; i < 3; i++ {
		expectCode(t, "Write", hal.Write[uint8](storage, h, fmt.Sprintf("k%d", i), uint8(i)), hal.CodeNormal)
	}
	expectCode(t, "Write beyond capacity", hal.Write[uint8](storage, h, "k3", 3), hal.CodeSize)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	_, code := hal.Read[uint8](storage, h, "k3")
	expectCode(t, "Read failed write", code, hal.CodeNotFound)

	_, code = storage.Open("other", hal.ReadWrite, "")
	expectCode(t, "Open new namespace when full", code, hal.CodeFull)
	storage.Close(h)

	// a full partition is not a reason to erase it on the next start
	expectCode(t, "Deinitialize", storage.Deinitialize(""), hal.CodeNormal)
	expectCode(t, "Initialize full", storage.Initialize(), hal.CodeNormal)
	expectCode(t, "Deinitialize", storage.Deinitialize(""), hal.CodeNormal)
	expectCode(t, "InitializeWithRecovery", hal.InitializeWithRecovery(storage, ""), hal.CodeNormal)

	stats, code := storage.Stats("")
	expectCode(t, "Stats", code, hal.CodeNormal)
	if stats.UsedEntries != 4 || stats.TotalEntries != 4 {
		t.Errorf("Expected the full partition to be kept, got %+v", stats)
	}

	h = mustOpen(t, storage, "cfg", hal.ReadOnly, "")
	defer storage.Close(h)
	for i := 0; i < 3; i++ {
		expectRead[uint8](t, storage, h, fmt.Sprintf("k%d", i), uint8(i))
	}
}

func testEraseKeyEraseAll(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})
	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	defer storage.Close(h)

	for i := 0; i < 3; i++ {
		hal.Write[uint16](storage, h, fmt.Sprintf("k%d", i), uint16(i))
	}
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)

	expectCode(t, "EraseKey", storage.EraseKey(h, "k0"), hal.CodeNormal)
	expectCode(t, "EraseKey absent", storage.EraseKey(h, "absent"), hal.CodeNotFound)
	expectCode(t, "EraseKey long key", storage.EraseKey(h, "key_is_far_too_long"), hal.CodeName)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)
	_, code := hal.Read[uint16](storage, h, "k0")
	expectCode(t, "Read erased key", code, hal.CodeNotFound)
	expectRead[uint16](t, storage, h, "k1", 1)

	expectCode(t, "EraseAll", storage.EraseAll(h), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)

	entries, code := storage.List("", "cfg")
	expectCode(t, "List", code, hal.CodeNormal)
	if len(entries) != 0 {
		t.Errorf("Expected no entries after EraseAll, got %+v", entries)
	}
}

func testUncommittedDropped(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	expectCode(t, "Write", hal.Write[int32](storage, h, "n", 1), hal.CodeNormal)
	expectRead[int32](t, storage, h, "n", 1)
	expectCode(t, "Close", storage.Close(h), hal.CodeNormal)

	h = mustOpen(t, storage, "cfg", hal.ReadOnly, "")
	_, code := hal.Read[int32](storage, h, "n")
	expectCode(t, "Read uncommitted after Close", code, hal.CodeNotFound)
	storage.Close(h)
}

func testEraseInvalidatesHandles(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	h := mustOpen(t, storage, "cfg", hal.ReadWrite, "")
	expectCode(t, "Write", hal.Write[int32](storage, h, "n", 1), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(h), hal.CodeNormal)

	expectCode(t, "Erase", storage.Erase(""), hal.CodeNormal)

	_, code := hal.Read[int32](storage, h, "n")
	expectCode(t, "Read after Erase", code, hal.CodeInvalid)
	expectCode(t, "Commit after Erase", storage.Commit(h), hal.CodeInvalid)
	expectCode(t, "Close after Erase", storage.Close(h), hal.CodeNormal)

	_, code = storage.Open("cfg", hal.ReadWrite, "")
	expectCode(t, "Open after Erase", code, hal.CodeNotInitialized)

	expectCode(t, "Initialize", storage.Initialize(), hal.CodeNormal)
	_, code = storage.Open("cfg", hal.ReadOnly, "")
	expectCode(t, "Open erased namespace", code, hal.CodeNamespaceNotFound)
}

func testStatsList(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{Partitions: []engine.PartitionSpec{{Name: "nvs", Entries: 32}}})

	a := mustOpen(t, storage, "alpha", hal.ReadWrite, "")
	b := mustOpen(t, storage, "beta", hal.ReadWrite, "")
	hal.Write[int8](storage, a, "x", 1)
	hal.Write[uint32](storage, a, "y", 2)
	hal.Write[int64](storage, b, "z", 3)
	expectCode(t, "Commit", storage.Commit(a), hal.CodeNormal)
	expectCode(t, "Commit", storage.Commit(b), hal.CodeNormal)

	stats, code := storage.Stats("")
	expectCode(t, "Stats", code, hal.CodeNormal)
	want := hal.PartitionStats{UsedEntries: 5, FreeEntries: 27, TotalEntries: 32, NamespaceCount: 2}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}

	entries, code := storage.List("", "")
	expectCode(t, "List", code, hal.CodeNormal)
	expected := []hal.EntryInfo{
		{Namespace: "alpha", Key: "x", Type: hal.TypeI8},
		{Namespace: "alpha", Key: "y", Type: hal.TypeU32},
		{Namespace: "beta", Key: "z", Type: hal.TypeI64},
	}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %+v", len(expected), entries)
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("Entry %d: expected %+v, got %+v", i, expected[i], entries[i])
		}
	}

	_, code = storage.List("", "gamma")
	expectCode(t, "List missing namespace", code, hal.CodeNamespaceNotFound)
	_, code = storage.Stats("missing")
	expectCode(t, "Stats unknown partition", code, hal.CodePartitionNotFound)

	expectCode(t, "Deinitialize", storage.Deinitialize(""), hal.CodeNormal)
	_, code = storage.Stats("")
	expectCode(t, "Stats after Deinitialize", code, hal.CodeNotInitialized)
}

func testConcurrency(t *testing.T, factory HALFactory) {
	storage := initialized(t, factory, Env{})

	const workers = 6
	const rounds = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ns := fmt.Sprintf("worker%d", w)
			for r := 0; r < rounds; r++ {
				h, code := storage.Open(ns, hal.ReadWrite, "")
				if code != hal.CodeNormal {
					errs <- fmt.Errorf("open %s: %s", ns, code)
					return
				}
				n, code := hal.Read[int32](storage, h, "n")
				if code != hal.CodeNormal && code != hal.CodeNotFound {
					errs <- fmt.Errorf("read %s: %s", ns, code)
					return
				}
				hal.Write(storage, h, "n", n+1)
				if code := storage.Commit(h); code != hal.CodeNormal {
					errs <- fmt.Errorf("commit %s: %s", ns, code)
					return
				}
				storage.Close(h)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for w := 0; w < workers; w++ {
		h := mustOpen(t, storage, fmt.Sprintf("worker%d", w), hal.ReadOnly, "")
		expectRead[int32](t, storage, h, "n", rounds)
		storage.Close(h)
	}
}
