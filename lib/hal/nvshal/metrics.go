package nvshal

import (
	"fmt"
	"time"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/hal"
)

// done translates the native status of an operation and records it.
func (h *HAL) done(op string, start time.Time, table translation, status engine.Status) hal.ReturnCode {
	code := table.translate(status)
	if code == hal.CodeError && status != engine.StatusOK {
		log.Warningf("%s failed with unmapped native status %s", op, status)
	}
	return h.record(op, start, code)
}

// record updates the operation metrics:
//
//	nvs_hal_ops_total{store="...",op="...",code="..."}
//	nvs_hal_op_duration_seconds{store="...",op="..."}
func (h *HAL) record(op string, start time.Time, code hal.ReturnCode) hal.ReturnCode {
	h.metrics.GetOrCreateCounter(fmt.Sprintf(`nvs_hal_ops_total{store=%q,op=%q,code=%q}`, h.name, op, code)).Inc()
	h.metrics.GetOrCreateHistogram(fmt.Sprintf(`nvs_hal_op_duration_seconds{store=%q,op=%q}`, h.name, op)).UpdateDuration(start)
	return code
}
