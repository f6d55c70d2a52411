package memory

import (
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
	enginetesting "github.com/intermode/nvs-hal/lib/engine/testing"
)

func factory(t testing.TB) enginetesting.EngineFactory {
	return func(partitions []engine.PartitionSpec) engine.IEngine {
		e, err := NewMemoryEngine(&Options{Partitions: partitions})
		if err != nil {
			t.Fatalf("Failed to create memory engine: %v", err)
		}
		return e
	}
}

func Test(t *testing.T) {
	enginetesting.RunEngineTests(t, "MemoryEngine", factory(t))
}

func Benchmark(b *testing.B) {
	enginetesting.RunEngineBenchmarks(b, "MemoryEngine", factory(b))
}

func TestStoredVersionMismatch(t *testing.T) {
	e, err := NewMemoryEngine(&Options{StoredVersions: map[string]uint32{engine.DefaultPartition: 1}})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Shutdown()

	if status := e.Init(engine.DefaultPartition); status != engine.StatusNewVersionFound {
		t.Fatalf("Expected %s, got %s", engine.StatusNewVersionFound, status)
	}
	if status := e.Init(engine.DefaultPartition); status != engine.StatusNewVersionFound {
		t.Errorf("Expected repeated Init to fail the same way, got %s", status)
	}
	if status := e.Erase(engine.DefaultPartition); status != engine.StatusOK {
		t.Fatalf("Erase returned %s", status)
	}
	if status := e.Init(engine.DefaultPartition); status != engine.StatusOK {
		t.Errorf("Expected Init after Erase to succeed, got %s", status)
	}
}

func TestMaxOpenHandles(t *testing.T) {
	e, err := NewMemoryEngine(&Options{MaxOpenHandles: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Shutdown()
	e.Init(engine.DefaultPartition)

	h1, _ := e.Open(engine.DefaultPartition, "a", false)
	if _, status := e.Open(engine.DefaultPartition, "a", false); status != engine.StatusOK {
		t.Fatalf("Expected second open to succeed, got %s", status)
	}
	if _, status := e.Open(engine.DefaultPartition, "a", false); status != engine.StatusNoMem {
		t.Errorf("Expected %s, got %s", engine.StatusNoMem, status)
	}
	e.Close(h1)
	if _, status := e.Open(engine.DefaultPartition, "a", false); status != engine.StatusOK {
		t.Errorf("Expected open after close to succeed, got %s", status)
	}
}

func TestInvalidPartitionTable(t *testing.T) {
	if _, err := NewMemoryEngine(&Options{Partitions: []engine.PartitionSpec{}}); err == nil {
		t.Error("Expected error for empty partition table")
	}
	if _, err := NewMemoryEngine(&Options{Partitions: []engine.PartitionSpec{{Name: "a", Entries: 8}, {Name: "a", Entries: 8}}}); err == nil {
		t.Error("Expected error for duplicate partition")
	}
}
