package counter

import (
	"errors"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/engines/flash"
	"github.com/intermode/nvs-hal/lib/engine/engines/memory"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/lib/hal/nvshal"
)

func TestIncrement(t *testing.T) {
	e, err := memory.NewMemoryEngine(&memory.Options{})
	if err != nil {
		t.Fatalf("Failed to create memory engine: %v", err)
	}
	h := nvshal.New(e, nil)

	for expected := int32(1); expected <= 3; expected++ {
		restarts, err := Increment(h, "")
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if restarts != expected {
			t.Errorf("expected %d, got %d", expected, restarts)
		}
	}
}

func TestIncrementSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	open := func() *nvshal.HAL {
		e, err := flash.NewFlashEngine(flash.Options{DataDir: dir, NoSync: true})
		if err != nil {
			t.Fatalf("Failed to create flash engine: %v", err)
		}
		return nvshal.New(e, nil)
	}

	for expected := int32(1); expected <= 2; expected++ {
		h := open()
		restarts, err := Increment(h, "")
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if restarts != expected {
			t.Errorf("expected %d, got %d", expected, restarts)
		}
		if err := h.Shutdown(); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}
	}
}

func TestIncrementRecoversOutdatedFormat(t *testing.T) {
	e, err := memory.NewMemoryEngine(&memory.Options{
		StoredVersions: map[string]uint32{engine.DefaultPartition: engine.FormatVersion - 1},
	})
	if err != nil {
		t.Fatalf("Failed to create memory engine: %v", err)
	}

	restarts, err := Increment(nvshal.New(e, nil), "")
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if restarts != 1 {
		t.Errorf("expected a fresh counter after recovery, got %d", restarts)
	}
}

func TestIncrementUnknownPartition(t *testing.T) {
	e, err := memory.NewMemoryEngine(&memory.Options{})
	if err != nil {
		t.Fatalf("Failed to create memory engine: %v", err)
	}

	_, err = Increment(nvshal.New(e, nil), "missing")
	if !errors.Is(err, hal.CodePartitionNotFound.Err()) {
		t.Errorf("expected PartitionNotFound, got %v", err)
	}
}
