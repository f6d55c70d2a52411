// Package testing provides a conformance suite for hal.IStorageHAL implementations.
//
// The suite checks the observable contract of the HAL: return codes of every
// operation, durability after commit, read only and closed handles, value width
// checks, the recovery path of initialize and the documented scenarios.
//
// Example usage:
//
//	factory := func(env haltesting.Env) hal.IStorageHAL {
//		e, _ := memory.NewMemoryEngine(&memory.Options{Partitions: env.Partitions})
//		return nvshal.New(e, nil)
//	}
//
//	haltesting.RunHALTests(t, "NVSHAL", factory)
package testing
