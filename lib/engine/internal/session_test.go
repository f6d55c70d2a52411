package internal

import (
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
)

func TestSessionBuffering(t *testing.T) {
	s := newSession(1, "nvs", "ns", false)

	s.stage("a", Item{Type: engine.ItemTypeU8, Bits: 1}, true)
	s.stage("b", Item{Type: engine.ItemTypeU8, Bits: 2}, false)
	s.stage("a", Item{Type: engine.ItemTypeU8, Bits: 3}, false) // keeps adds of the first write

	if n := s.pendingAdds(); n != 1 {
		t.Errorf("Expected 1 pending add, got %d", n)
	}

	s.stageDelete("b")
	p, found, cleared := s.lookup("b")
	if !found || !p.deleted || cleared {
		t.Errorf("Expected buffered delete for b, got %+v found=%v cleared=%v", p, found, cleared)
	}

	batch := s.drain()
	if batch.Clear || len(batch.Deletes) != 1 || len(batch.Puts) != 1 || !batch.Added["a"] {
		t.Errorf("Unexpected batch %+v", batch)
	}
	if batch.Puts["a"].Bits != 3 {
		t.Errorf("Expected last write to win, got %d", batch.Puts["a"].Bits)
	}
	if !s.drain().Empty() {
		t.Error("Expected empty buffer after drain")
	}
}

func TestSessionClear(t *testing.T) {
	s := newSession(1, "nvs", "ns", false)
	s.stage("a", Item{Type: engine.ItemTypeU8, Bits: 1}, true)
	s.stageClear()

	if _, found, cleared := s.lookup("a"); found || !cleared {
		t.Errorf("Expected clear to drop buffered writes (found=%v cleared=%v)", found, cleared)
	}

	s.stage("c", Item{Type: engine.ItemTypeU16, Bits: 7}, true)
	batch := s.drain()
	if !batch.Clear || len(batch.Puts) != 1 {
		t.Errorf("Unexpected batch %+v", batch)
	}
}

func TestSessionRestore(t *testing.T) {
	s := newSession(1, "nvs", "ns", false)
	s.stage("a", Item{Type: engine.ItemTypeU8, Bits: 1}, true)
	s.stage("b", Item{Type: engine.ItemTypeU8, Bits: 2}, true)
	batch := s.drain()

	// a newer write must survive the restore
	s.stage("a", Item{Type: engine.ItemTypeU8, Bits: 9}, false)
	s.restore(batch)

	p, found, _ := s.lookup("a")
	if !found || p.item.Bits != 9 {
		t.Errorf("Expected newer write to win, got %+v", p)
	}
	if p, found, _ := s.lookup("b"); !found || p.item.Bits != 2 || !p.adds {
		t.Errorf("Expected b to be restored with adds flag, got %+v", p)
	}

	// nothing is restored over a newer clear
	batch = s.drain()
	s.stageClear()
	s.restore(batch)
	if _, found, _ := s.lookup("b"); found {
		t.Error("Expected restore to be skipped after clear")
	}
}

func TestHandleTable(t *testing.T) {
	table := NewHandleTable()

	h1 := table.open("nvs", "a", false)
	h2 := table.open("nvs", "b", true)
	h3 := table.open("other", "a", false)

	if h1.ID != 1 || h2.ID != 2 || h3.ID != 3 {
		t.Fatalf("Expected handles 1,2,3 got %d,%d,%d", h1.ID, h2.ID, h3.ID)
	}

	table.close(h1.ID)
	if _, ok := table.get(h1.ID); ok {
		t.Error("Expected closed handle to be gone")
	}

	if n := table.closePartition("nvs"); n != 1 {
		t.Errorf("Expected 1 handle closed, got %d", n)
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 open handle, got %d", table.Len())
	}

	if h4 := table.open("nvs", "a", false); h4.ID != 4 {
		t.Errorf("Expected handle ids not to be reused, got %d", h4.ID)
	}
}
