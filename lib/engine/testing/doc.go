// Package testing provides standardised tests and benchmarks for
// engine implementations that satisfy the engine.IEngine interface.
//
// The package contains:
//   - testing: A conformance suite for the engine contract (partition lifecycle,
//     handle lifecycle, buffered writes, status codes, capacity and name limits)
//   - benchmark: Performance tests for the common engine operations
//
// Example usage:
//
//	factory := func(partitions []engine.PartitionSpec) engine.IEngine {
//		e, err := NewMyEngine(partitions)
//		if err != nil {
//			t.Fatal(err)
//		}
//		return e
//	}
//
//	enginetesting.RunEngineTests(t, "MyEngine", factory)
//	enginetesting.RunEngineBenchmarks(b, "MyEngine", factory)
package testing
