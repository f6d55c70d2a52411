package testing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
)

// EngineFactory creates a new, empty engine with the given partition table.
type EngineFactory func(partitions []engine.PartitionSpec) engine.IEngine

// RunEngineTests runs the conformance test suite for an engine.IEngine implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("InitLifecycle", func(t *testing.T) {
			testInitLifecycle(t, factory)
		})

		t.Run("OpenNamespace", func(t *testing.T) {
			testOpenNamespace(t, factory)
		})

		t.Run("Set&Get&Commit", func(t *testing.T) {
			testSetGetCommit(t, factory)
		})

		t.Run("TypeHandling", func(t *testing.T) {
			testTypeHandling(t, factory)
		})

		t.Run("CloseDropsUncommitted", func(t *testing.T) {
			testCloseDropsUncommitted(t, factory)
		})

		t.Run("EraseKey&EraseAll", func(t *testing.T) {
			testEraseKeyEraseAll(t, factory)
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, factory)
		})

		t.Run("Capacity", func(t *testing.T) {
			testCapacity(t, factory)
		})

		t.Run("NamespaceLimit", func(t *testing.T) {
			testNamespaceLimit(t, factory)
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory)
		})

		t.Run("EraseInvalidatesHandles", func(t *testing.T) {
			testEraseInvalidatesHandles(t, factory)
		})

		t.Run("HandlesNotReused", func(t *testing.T) {
			testHandlesNotReused(t, factory)
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

// newInitialized creates an engine with the given table and initializes all partitions.
func newInitialized(t testing.TB, factory EngineFactory, partitions []engine.PartitionSpec) engine.IEngine {
	t.Helper()
	e := factory(partitions)
	t.Cleanup(func() { _ = e.Shutdown() })

	table := partitions
	if table == nil {
		table = engine.DefaultPartitionTable()
	}
	for _, p := range table {
		if status := e.Init(p.Name); status != engine.StatusOK {
			t.Fatalf("Init(%s) returned %s", p.Name, status)
		}
	}
	return e
}

func mustOpen(t testing.TB, e engine.IEngine, partition, namespace string, readOnly bool) engine.Handle {
	t.Helper()
	h, status := e.Open(partition, namespace, readOnly)
	if status != engine.StatusOK {
		t.Fatalf("Open(%s, %s, %v) returned %s", partition, namespace, readOnly, status)
	}
	return h
}

func expectStatus(t testing.TB, op string, got, want engine.Status) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %s, got %s", op, want, got)
	}
}

func expectValue(t testing.TB, e engine.IEngine, h engine.Handle, key string, itemType engine.ItemType, want uint64) {
	t.Helper()
	bits, status := e.Get(h, key, itemType)
	if status != engine.StatusOK {
		t.Errorf("Get(%s) returned %s", key, status)
		return
	}
	if bits != want {
		t.Errorf("Get(%s): expected 0x%x, got 0x%x", key, want, bits)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInitLifecycle(t *testing.T, factory EngineFactory) {
	e := factory([]engine.PartitionSpec{
		{Name: "nvs", Entries: 32},
		{Name: "factory", Entries: 32},
	})
	defer e.Shutdown()

	expectStatus(t, "Init unknown", e.Init("missing"), engine.StatusPartNotFound)

	_, status := e.Open("nvs", "ns", false)
	expectStatus(t, "Open before Init", status, engine.StatusNotInitialized)

	expectStatus(t, "Init", e.Init("nvs"), engine.StatusOK)
	expectStatus(t, "Init again", e.Init("nvs"), engine.StatusOK)

	_, status = e.Open("factory", "ns", false)
	expectStatus(t, "Open other partition", status, engine.StatusNotInitialized)

	expectStatus(t, "Deinit", e.Deinit("nvs"), engine.StatusOK)
	expectStatus(t, "Deinit again", e.Deinit("nvs"), engine.StatusNotInitialized)
	expectStatus(t, "Deinit unknown", e.Deinit("missing"), engine.StatusPartNotFound)

	_, status = e.Stats("nvs")
	expectStatus(t, "Stats after Deinit", status, engine.StatusNotInitialized)

	info := e.GetInfo()
	if len(info.Partitions) != 2 || info.FormatVersion == 0 {
		t.Errorf("Unexpected engine info %+v", info)
	}
}

func testOpenNamespace(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	_, status := e.Open(engine.DefaultPartition, "settings", true)
	expectStatus(t, "Open missing read only", status, engine.StatusNotFound)

	rw := mustOpen(t, e, engine.DefaultPartition, "settings", false)
	ro := mustOpen(t, e, engine.DefaultPartition, "settings", true)
	if rw == ro || rw == 0 || ro == 0 {
		t.Errorf("Expected distinct non-zero handles, got %d and %d", rw, ro)
	}

	_, status = e.Open(engine.DefaultPartition, "", false)
	expectStatus(t, "Open empty name", status, engine.StatusInvalidName)

	_, status = e.Open(engine.DefaultPartition, "namespace_too_long", false)
	expectStatus(t, "Open long name", status, engine.StatusInvalidName)

	_, status = e.Open("missing", "settings", false)
	expectStatus(t, "Open unknown partition", status, engine.StatusPartNotFound)
}

func testSetGetCommit(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	writer := mustOpen(t, e, engine.DefaultPartition, "app", false)
	reader := mustOpen(t, e, engine.DefaultPartition, "app", true)

	expectStatus(t, "Set", e.Set(writer, "boot_count", engine.ItemTypeU32, 7), engine.StatusOK)

	// the writer sees its own buffered write, other handles do not
	expectValue(t, e, writer, "boot_count", engine.ItemTypeU32, 7)
	_, status := e.Get(reader, "boot_count", engine.ItemTypeU32)
	expectStatus(t, "Get before commit", status, engine.StatusNotFound)

	expectStatus(t, "Commit", e.Commit(writer), engine.StatusOK)
	expectValue(t, e, reader, "boot_count", engine.ItemTypeU32, 7)

	expectStatus(t, "Overwrite", e.Set(writer, "boot_count", engine.ItemTypeU32, 8), engine.StatusOK)
	expectValue(t, e, reader, "boot_count", engine.ItemTypeU32, 7)
	expectStatus(t, "Commit", e.Commit(writer), engine.StatusOK)
	expectValue(t, e, reader, "boot_count", engine.ItemTypeU32, 8)

	expectStatus(t, "Empty commit", e.Commit(writer), engine.StatusOK)

	_, status = e.Get(writer, "absent", engine.ItemTypeU8)
	expectStatus(t, "Get absent", status, engine.StatusNotFound)

	_, status = e.Get(writer, "key_is_far_too_long", engine.ItemTypeU8)
	expectStatus(t, "Get long key", status, engine.StatusKeyTooLong)

	expectStatus(t, "Set invalid type", e.Set(writer, "x", engine.ItemType(0x33), 1), engine.StatusInvalidArg)

	_, status = e.Get(engine.Handle(9999), "boot_count", engine.ItemTypeU32)
	expectStatus(t, "Get unknown handle", status, engine.StatusInvalidHandle)

	// namespaces are isolated
	other := mustOpen(t, e, engine.DefaultPartition, "other", false)
	_, status = e.Get(other, "boot_count", engine.ItemTypeU32)
	expectStatus(t, "Get other namespace", status, engine.StatusNotFound)
}

func testTypeHandling(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)
	h := mustOpen(t, e, engine.DefaultPartition, "types", false)

	tests := []struct {
		key      string
		itemType engine.ItemType
		bits     uint64
		want     uint64
	}{
		{"i8", engine.ItemTypeI8, 0xff, 0xffffffffffffffff},
		{"u8", engine.ItemTypeU8, 0x1ff, 0xff},
		{"i16", engine.ItemTypeI16, 0x8000, 0xffffffffffff8000},
		{"u16", engine.ItemTypeU16, 0xffff, 0xffff},
		{"i32", engine.ItemTypeI32, 0xffffffff, 0xffffffffffffffff},
		{"u32", engine.ItemTypeU32, 0xffffffff, 0xffffffff},
		{"i64", engine.ItemTypeI64, 1 << 63, 1 << 63},
		{"u64", engine.ItemTypeU64, ^uint64(0), ^uint64(0)},
	}

	for _, tc := range tests {
		expectStatus(t, "Set "+tc.key, e.Set(h, tc.key, tc.itemType, tc.bits), engine.StatusOK)
	}
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)

	for _, tc := range tests {
		expectValue(t, e, h, tc.key, tc.itemType, tc.want)
	}

	_, status := e.Get(h, "i32", engine.ItemTypeU32)
	expectStatus(t, "Get with other signedness", status, engine.StatusTypeMismatch)
	_, status = e.Get(h, "u8", engine.ItemTypeU16)
	expectStatus(t, "Get with other width", status, engine.StatusTypeMismatch)

	// overwriting with another type replaces the item
	expectStatus(t, "Set other type", e.Set(h, "u8", engine.ItemTypeI64, 5), engine.StatusOK)
	_, status = e.Get(h, "u8", engine.ItemTypeU8)
	expectStatus(t, "Get old type (buffered)", status, engine.StatusTypeMismatch)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)
	expectValue(t, e, h, "u8", engine.ItemTypeI64, 5)
}

func testCloseDropsUncommitted(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	h := mustOpen(t, e, engine.DefaultPartition, "app", false)
	expectStatus(t, "Set", e.Set(h, "key", engine.ItemTypeU8, 1), engine.StatusOK)
	e.Close(h)
	e.Close(h) // closing twice is a no-op

	_, status := e.Get(h, "key", engine.ItemTypeU8)
	expectStatus(t, "Get after Close", status, engine.StatusInvalidHandle)
	expectStatus(t, "Commit after Close", e.Commit(h), engine.StatusInvalidHandle)

	h = mustOpen(t, e, engine.DefaultPartition, "app", false)
	_, status = e.Get(h, "key", engine.ItemTypeU8)
	expectStatus(t, "Get dropped write", status, engine.StatusNotFound)
}

func testEraseKeyEraseAll(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)
	h := mustOpen(t, e, engine.DefaultPartition, "app", false)
	other := mustOpen(t, e, engine.DefaultPartition, "other", false)

	for i := 0; i < 5; i++ {
		expectStatus(t, "Set", e.Set(h, fmt.Sprintf("k%d", i), engine.ItemTypeU16, uint64(i)), engine.StatusOK)
	}
	expectStatus(t, "Set other", e.Set(other, "keep", engine.ItemTypeU8, 1), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)
	expectStatus(t, "Commit other", e.Commit(other), engine.StatusOK)

	expectStatus(t, "EraseKey", e.EraseKey(h, "k0"), engine.StatusOK)
	_, status := e.Get(h, "k0", engine.ItemTypeU16)
	expectStatus(t, "Get buffered erase", status, engine.StatusNotFound)
	expectStatus(t, "EraseKey twice", e.EraseKey(h, "k0"), engine.StatusNotFound)
	expectStatus(t, "EraseKey absent", e.EraseKey(h, "absent"), engine.StatusNotFound)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)

	entries, status := e.List(engine.DefaultPartition, "app")
	expectStatus(t, "List", status, engine.StatusOK)
	if len(entries) != 4 {
		t.Errorf("Expected 4 entries after EraseKey, got %d", len(entries))
	}

	expectStatus(t, "EraseAll", e.EraseAll(h), engine.StatusOK)
	_, status = e.Get(h, "k1", engine.ItemTypeU16)
	expectStatus(t, "Get after buffered EraseAll", status, engine.StatusNotFound)

	// writes after EraseAll survive the commit
	expectStatus(t, "Set after EraseAll", e.Set(h, "fresh", engine.ItemTypeU8, 9), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)

	entries, _ = e.List(engine.DefaultPartition, "app")
	if len(entries) != 1 || entries[0].Key != "fresh" {
		t.Errorf("Expected only 'fresh' after EraseAll, got %+v", entries)
	}
	expectValue(t, e, other, "keep", engine.ItemTypeU8, 1)
}

func testReadOnly(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)
	rw := mustOpen(t, e, engine.DefaultPartition, "app", false)
	expectStatus(t, "Set", e.Set(rw, "key", engine.ItemTypeI32, 1), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(rw), engine.StatusOK)

	ro := mustOpen(t, e, engine.DefaultPartition, "app", true)
	expectStatus(t, "Set read only", e.Set(ro, "key", engine.ItemTypeI32, 2), engine.StatusReadOnly)
	expectStatus(t, "EraseKey read only", e.EraseKey(ro, "key"), engine.StatusReadOnly)
	expectStatus(t, "EraseAll read only", e.EraseAll(ro), engine.StatusReadOnly)
	expectStatus(t, "Commit read only", e.Commit(ro), engine.StatusReadOnly)
	expectValue(t, e, ro, "key", engine.ItemTypeI32, 1)
}

func testCapacity(t *testing.T, factory EngineFactory) {
	// 1 namespace + 3 items
	e := newInitialized(t, factory, []engine.PartitionSpec{{Name: "small", Entries: 4}})

	h := mustOpen(t, e, "small", "ns", false)
	for i := 0; i < 3; i++ {
		expectStatus(t, "Set", e.Set(h, fmt.Sprintf("k%d", i), engine.ItemTypeU8, 1), engine.StatusOK)
	}
	expectStatus(t, "Set beyond capacity", e.Set(h, "k3", engine.ItemTypeU8, 1), engine.StatusNotEnoughSpace)

	// overwriting an existing key needs no new entry
	expectStatus(t, "Overwrite", e.Set(h, "k0", engine.ItemTypeU8, 2), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)
	expectStatus(t, "Overwrite committed", e.Set(h, "k1", engine.ItemTypeU8, 3), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)

	_, status := e.Open("small", "second", false)
	expectStatus(t, "Open new namespace when full", status, engine.StatusNotEnoughSpace)

	stats, status := e.Stats("small")
	expectStatus(t, "Stats", status, engine.StatusOK)
	if stats.UsedEntries != 4 || stats.FreeEntries != 0 {
		t.Errorf("Expected a full partition, got %+v", stats)
	}

	// a partition filled by writes initializes again and keeps its entries
	expectStatus(t, "Deinit", e.Deinit("small"), engine.StatusOK)
	expectStatus(t, "Init full", e.Init("small"), engine.StatusOK)
	h = mustOpen(t, e, "small", "ns", true)
	expectValue(t, e, h, "k0", engine.ItemTypeU8, 2)
	expectValue(t, e, h, "k1", engine.ItemTypeU8, 3)
	expectValue(t, e, h, "k2", engine.ItemTypeU8, 1)
	e.Close(h)

	stats, status = e.Stats("small")
	expectStatus(t, "Stats after Init", status, engine.StatusOK)
	if stats.UsedEntries != 4 {
		t.Errorf("Expected the entries to survive Init, got %+v", stats)
	}
}

func testNamespaceLimit(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, []engine.PartitionSpec{{Name: "wide", Entries: engine.MaxNamespaces + 16}})

	for i := 0; i < engine.MaxNamespaces; i++ {
		h := mustOpen(t, e, "wide", fmt.Sprintf("ns%d", i), false)
		e.Close(h)
	}
	_, status := e.Open("wide", "one_too_many", false)
	expectStatus(t, "Open beyond namespace limit", status, engine.StatusNotEnoughSpace)

	// existing namespaces can still be opened
	mustOpen(t, e, "wide", "ns0", false)
}

func testPersistence(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	h := mustOpen(t, e, engine.DefaultPartition, "persist", false)
	expectStatus(t, "Set", e.Set(h, "committed", engine.ItemTypeI64, 42), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)
	expectStatus(t, "Set", e.Set(h, "buffered", engine.ItemTypeI64, 43), engine.StatusOK)

	expectStatus(t, "Deinit", e.Deinit(engine.DefaultPartition), engine.StatusOK)
	_, status := e.Get(h, "committed", engine.ItemTypeI64)
	expectStatus(t, "Get after Deinit", status, engine.StatusInvalidHandle)

	expectStatus(t, "Init", e.Init(engine.DefaultPartition), engine.StatusOK)
	h = mustOpen(t, e, engine.DefaultPartition, "persist", true)
	expectValue(t, e, h, "committed", engine.ItemTypeI64, 42)
	_, status = e.Get(h, "buffered", engine.ItemTypeI64)
	expectStatus(t, "Get uncommitted after reinit", status, engine.StatusNotFound)
}

func testEraseInvalidatesHandles(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	h := mustOpen(t, e, engine.DefaultPartition, "app", false)
	expectStatus(t, "Set", e.Set(h, "key", engine.ItemTypeU8, 1), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(h), engine.StatusOK)

	expectStatus(t, "Erase", e.Erase(engine.DefaultPartition), engine.StatusOK)
	expectStatus(t, "Erase unknown", e.Erase("missing"), engine.StatusPartNotFound)

	_, status := e.Get(h, "key", engine.ItemTypeU8)
	expectStatus(t, "Get after Erase", status, engine.StatusInvalidHandle)
	expectStatus(t, "Set after Erase", e.Set(h, "key", engine.ItemTypeU8, 2), engine.StatusInvalidHandle)

	_, status = e.Open(engine.DefaultPartition, "app", false)
	expectStatus(t, "Open after Erase", status, engine.StatusNotInitialized)

	expectStatus(t, "Init", e.Init(engine.DefaultPartition), engine.StatusOK)
	_, status = e.Open(engine.DefaultPartition, "app", true)
	expectStatus(t, "Open erased namespace", status, engine.StatusNotFound)
}

func testHandlesNotReused(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	seen := make(map[engine.Handle]bool)
	for i := 0; i < 100; i++ {
		h := mustOpen(t, e, engine.DefaultPartition, "app", false)
		if seen[h] {
			t.Fatalf("Handle %d was reused", h)
		}
		seen[h] = true
		e.Close(h)
	}
}

func testStatsList(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, []engine.PartitionSpec{{Name: "nvs", Entries: 64}})

	a := mustOpen(t, e, "nvs", "alpha", false)
	b := mustOpen(t, e, "nvs", "beta", false)
	expectStatus(t, "Set", e.Set(b, "z", engine.ItemTypeU8, 1), engine.StatusOK)
	expectStatus(t, "Set", e.Set(a, "y", engine.ItemTypeI16, 1), engine.StatusOK)
	expectStatus(t, "Set", e.Set(a, "x", engine.ItemTypeU64, 1), engine.StatusOK)

	stats, _ := e.Stats("nvs")
	if stats.UsedEntries != 2 {
		t.Errorf("Expected uncommitted writes not to be counted, got %+v", stats)
	}

	expectStatus(t, "Commit", e.Commit(a), engine.StatusOK)
	expectStatus(t, "Commit", e.Commit(b), engine.StatusOK)

	stats, status := e.Stats("nvs")
	expectStatus(t, "Stats", status, engine.StatusOK)
	want := engine.PartitionStats{UsedEntries: 5, FreeEntries: 59, TotalEntries: 64, NamespaceCount: 2}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}

	entries, status := e.List("nvs", "")
	expectStatus(t, "List", status, engine.StatusOK)
	expected := []engine.EntryInfo{
		{Namespace: "alpha", Key: "x", Type: engine.ItemTypeU64},
		{Namespace: "alpha", Key: "y", Type: engine.ItemTypeI16},
		{Namespace: "beta", Key: "z", Type: engine.ItemTypeU8},
	}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %+v", len(expected), entries)
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("Entry %d: expected %+v, got %+v", i, expected[i], entries[i])
		}
	}

	_, status = e.List("nvs", "gamma")
	expectStatus(t, "List missing namespace", status, engine.StatusNotFound)
	_, status = e.Stats("missing")
	expectStatus(t, "Stats unknown partition", status, engine.StatusPartNotFound)
}

func testConcurrency(t *testing.T, factory EngineFactory) {
	e := newInitialized(t, factory, nil)

	const workers = 8
	const keys = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ns := fmt.Sprintf("worker%d", w)
			h, status := e.Open(engine.DefaultPartition, ns, false)
			if status != engine.StatusOK {
				errs <- fmt.Errorf("open %s: %s", ns, status)
				return
			}
			defer e.Close(h)
			for k := 0; k < keys; k++ {
				if status := e.Set(h, fmt.Sprintf("k%d", k), engine.ItemTypeU32, uint64(w*1000+k)); status != engine.StatusOK {
					errs <- fmt.Errorf("set %s/k%d: %s", ns, k, status)
					return
				}
				if k%5 == 4 {
					if status := e.Commit(h); status != engine.StatusOK {
						errs <- fmt.Errorf("commit %s: %s", ns, status)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for w := 0; w < workers; w++ {
		h := mustOpen(t, e, engine.DefaultPartition, fmt.Sprintf("worker%d", w), true)
		for k := 0; k < keys; k++ {
			expectValue(t, e, h, fmt.Sprintf("k%d", k), engine.ItemTypeU32, uint64(w*1000+k))
		}
	}
}
