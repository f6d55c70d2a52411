package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/intermode/nvs-hal/lib/engine"
)

// RunEngineBenchmarks runs all benchmarks for an engine.IEngine implementation.
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {

	b.Run("SetCommit", func(b *testing.B) {
		benchmarkSetCommit(b, factory)
	})

	b.Run("SetBuffered", func(b *testing.B) {
		benchmarkSetBuffered(b, factory)
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory)
	})

	b.Run("Get(not)", func(b *testing.B) {
		benchmarkGetNot(b, factory)
	})

	b.Run("OpenClose", func(b *testing.B) {
		benchmarkOpenClose(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

const benchKeys = 64

// Benchmark for a single Set followed by Commit
func benchmarkSetCommit(b *testing.B, factory EngineFactory) {
	e := newInitialized(b, factory, nil)
	h := mustOpen(b, e, engine.DefaultPartition, "bench", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Set(h, fmt.Sprintf("k%d", i%benchKeys), engine.ItemTypeU32, uint64(i))
		e.Commit(h)
	}
}

// Benchmark for buffered writes of existing keys (no commit)
func benchmarkSetBuffered(b *testing.B, factory EngineFactory) {
	e := newInitialized(b, factory, nil)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		h, _ := e.Open(engine.DefaultPartition, "bench", false)
		defer e.Close(h)
		counter := 0
		for pb.Next() {
			e.Set(h, fmt.Sprintf("k%d", counter%benchKeys), engine.ItemTypeU32, uint64(counter))
			counter++
		}
	})
}

// Benchmark for Get of committed keys
func benchmarkGet(b *testing.B, factory EngineFactory) {
	e := newInitialized(b, factory, nil)
	h := mustOpen(b, e, engine.DefaultPartition, "bench", false)
	for i := 0; i < benchKeys; i++ {
		e.Set(h, fmt.Sprintf("k%d", i), engine.ItemTypeU32, uint64(i))
	}
	e.Commit(h)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			e.Get(h, fmt.Sprintf("k%d", counter%benchKeys), engine.ItemTypeU32)
			counter++
		}
	})
}

// Benchmark for Get of missing keys
func benchmarkGetNot(b *testing.B, factory EngineFactory) {
	e := newInitialized(b, factory, nil)
	h := mustOpen(b, e, engine.DefaultPartition, "bench", false)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			e.Get(h, "missing", engine.ItemTypeU32)
		}
	})
}

// Benchmark for opening and closing a handle on an existing namespace
func benchmarkOpenClose(b *testing.B, factory EngineFactory) {
	e := newInitialized(b, factory, nil)
	e.Close(mustOpen(b, e, engine.DefaultPartition, "bench", false))

	var failed atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			h, status := e.Open(engine.DefaultPartition, "bench", true)
			if status != engine.StatusOK {
				failed.Add(1)
				continue
			}
			e.Close(h)
		}
	})
	if n := failed.Load(); n > 0 {
		b.Errorf("%d opens failed", n)
	}
}
