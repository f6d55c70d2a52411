// Package memory provides an in-memory engine.IEngine.
//
// The memory engine shares the engine core with the flash engine and therefore has
// identical semantics (handles, buffering, status codes, capacity). It only differs
// in where committed data lives: partitions are kept in process memory and survive
// Deinit/Init cycles, but not the engine instance.
//
// It is intended for tests and for ephemeral stores of the RPC server. Old format
// versions can be simulated with Options.StoredVersions:
//
//	e, _ := memory.NewMemoryEngine(&memory.Options{
//		StoredVersions: map[string]uint32{"nvs": 1},
//	})
//	e.Init("nvs") // returns engine.StatusNewVersionFound
package memory
