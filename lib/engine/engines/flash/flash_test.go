package flash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
	enginetesting "github.com/intermode/nvs-hal/lib/engine/testing"
)

func factory(t testing.TB) enginetesting.EngineFactory {
	return func(partitions []engine.PartitionSpec) engine.IEngine {
		e, err := NewFlashEngine(Options{DataDir: t.TempDir(), Partitions: partitions, NoSync: true})
		if err != nil {
			t.Fatalf("Failed to create flash engine: %v", err)
		}
		return e
	}
}

func Test(t *testing.T) {
	enginetesting.RunEngineTests(t, "FlashEngine", factory(t))
}

func Benchmark(b *testing.B) {
	enginetesting.RunEngineBenchmarks(b, "FlashEngine", factory(b))
}

func openEngine(t *testing.T, dir string, version uint32) engine.IEngine {
	t.Helper()
	e, err := NewFlashEngine(Options{DataDir: dir, FormatVersion: version})
	if err != nil {
		t.Fatalf("Failed to create flash engine: %v", err)
	}
	return e
}

func TestDurableAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	e := openEngine(t, dir, 0)
	if status := e.Init(engine.DefaultPartition); status != engine.StatusOK {
		t.Fatalf("Init returned %s", status)
	}
	h, _ := e.Open(engine.DefaultPartition, "nvsStorage", false)
	e.Set(h, "restart_counter", engine.ItemTypeI32, 41)
	if status := e.Commit(h); status != engine.StatusOK {
		t.Fatalf("Commit returned %s", status)
	}
	e.Set(h, "uncommitted", engine.ItemTypeU8, 1)
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, engine.DefaultPartition+fileExtension)); err != nil {
		t.Fatalf("Expected partition file to exist: %v", err)
	}

	e = openEngine(t, dir, 0)
	defer e.Shutdown()
	if status := e.Init(engine.DefaultPartition); status != engine.StatusOK {
		t.Fatalf("Init after restart returned %s", status)
	}
	h, status := e.Open(engine.DefaultPartition, "nvsStorage", true)
	if status != engine.StatusOK {
		t.Fatalf("Open after restart returned %s", status)
	}
	bits, status := e.Get(h, "restart_counter", engine.ItemTypeI32)
	if status != engine.StatusOK || int32(bits) != 41 {
		t.Errorf("Expected 41, got %d (%s)", int32(bits), status)
	}
	if _, status := e.Get(h, "uncommitted", engine.ItemTypeU8); status != engine.StatusNotFound {
		t.Errorf("Expected uncommitted write to be lost, got %s", status)
	}

	stats, _ := e.Stats(engine.DefaultPartition)
	if stats.UsedEntries != 2 || stats.NamespaceCount != 1 {
		t.Errorf("Unexpected stats after restart %+v", stats)
	}
}

func TestVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	old := openEngine(t, dir, 1)
	if status := old.Init(engine.DefaultPartition); status != engine.StatusOK {
		t.Fatalf("Init returned %s", status)
	}
	old.Shutdown()

	e := openEngine(t, dir, 2)
	defer e.Shutdown()
	if status := e.Init(engine.DefaultPartition); status != engine.StatusNewVersionFound {
		t.Fatalf("Expected %s, got %s", engine.StatusNewVersionFound, status)
	}
	if status := e.Erase(engine.DefaultPartition); status != engine.StatusOK {
		t.Fatalf("Erase returned %s", status)
	}
	if status := e.Init(engine.DefaultPartition); status != engine.StatusOK {
		t.Errorf("Expected Init after Erase to succeed, got %s", status)
	}
}

func TestMetadata(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, 0)
	defer e.Shutdown()

	e.Init(engine.DefaultPartition)
	h, _ := e.Open(engine.DefaultPartition, "app", false)
	e.Set(h, "key", engine.ItemTypeU16, 1)
	e.Commit(h)
	e.Get(h, "key", engine.ItemTypeU16)

	info := e.GetInfo()
	if info.Type != engine.ImplFlash {
		t.Errorf("Expected type %s, got %s", engine.ImplFlash, info.Type)
	}
	meta, ok := info.Metadata.(Metadata)
	if !ok {
		t.Fatalf("Unexpected metadata type %T", info.Metadata)
	}
	if meta.DataDir != dir || meta.Mounts != 1 || meta.Commits != 1 {
		t.Errorf("Unexpected metadata %+v", meta)
	}
}

func TestRequiresDataDir(t *testing.T) {
	if _, err := NewFlashEngine(Options{}); err == nil {
		t.Error("Expected error without data directory")
	}
}

func TestFullPartitionAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	open := func(entries int) engine.IEngine {
		t.Helper()
		e, err := NewFlashEngine(Options{DataDir: dir, Partitions: []engine.PartitionSpec{{Name: "nvs", Entries: entries}}, NoSync: true})
		if err != nil {
			t.Fatalf("Failed to create flash engine: %v", err)
		}
		return e
	}

	// 1 namespace + 3 items fill the partition
	e := open(4)
	if status := e.Init("nvs"); status != engine.StatusOK {
		t.Fatalf("Init returned %s", status)
	}
	h, _ := e.Open("nvs", "ns", false)
	for _, key := range []string{"a", "b", "c"} {
		e.Set(h, key, engine.ItemTypeU8, 1)
	}
	if status := e.Commit(h); status != engine.StatusOK {
		t.Fatalf("Commit returned %s", status)
	}
	e.Shutdown()

	e = open(4)
	if status := e.Init("nvs"); status != engine.StatusOK {
		t.Fatalf("Expected a full partition to initialize, got %s", status)
	}
	stats, _ := e.Stats("nvs")
	if stats.UsedEntries != 4 {
		t.Errorf("Expected the entries to survive, got %+v", stats)
	}
	e.Shutdown()

	// a smaller table no longer fits the stored entries
	e = open(2)
	defer e.Shutdown()
	if status := e.Init("nvs"); status != engine.StatusNoFreePages {
		t.Fatalf("Expected %s, got %s", engine.StatusNoFreePages, status)
	}
	if status := e.Erase("nvs"); status != engine.StatusOK {
		t.Fatalf("Erase returned %s", status)
	}
	if status := e.Init("nvs"); status != engine.StatusOK {
		t.Errorf("Expected Init after Erase to succeed, got %s", status)
	}
}
