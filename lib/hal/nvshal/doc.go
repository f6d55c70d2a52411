// Package nvshal implements hal.IStorageHAL on top of an engine.IEngine.
//
// The HAL adds three things to the engine:
//
//   - Error translation: every operation has its own table mapping native engine
//     status codes to hal.ReturnCode values (translate.go). Read and write share
//     one table each across all value types. Native codes an operation's table
//     does not list become hal.CodeError and are logged with their native name.
//
//   - Handle state: the engine only knows integer handles. The HAL hands out
//     *hal.Handle values and rejects closed handles (hal.CodeInvalid) and write
//     operations on read only handles (hal.CodePermission) without calling the
//     engine.
//
//   - Subsystem lock: initialize, deinitialize and erase hold a process wide lock
//     exclusively, Open holds it shared. Value operations are not serialized by the
//     HAL, concurrent access to one handle is up to the caller.
//
// Every operation is counted in a VictoriaMetrics set per HAL instance:
//
//	nvs_hal_ops_total{store="1",op="commit",code="Normal"}
//	nvs_hal_op_duration_seconds{store="1",op="commit"}
//
// Example:
//
//	e, err := flash.NewFlashEngine(flash.Options{DataDir: dir})
//	if err != nil {
//		return err
//	}
//	storage := nvshal.New(e, nil)
//	defer storage.Shutdown()
//
//	if code := hal.InitializeWithRecovery(storage, ""); code != hal.CodeNormal {
//		return code.Err()
//	}
package nvshal
