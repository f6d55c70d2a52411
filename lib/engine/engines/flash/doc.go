// Package flash implements the persistent engine.IEngine.
//
// Every partition of the partition table is stored in its own bbolt file
// (<DataDir>/<partition>.nvs). The file layout is:
//
//	meta/version            uint32 big endian, the format version
//	namespaces/<ns>/<key>   1 byte item type + 8 bytes value (big endian)
//
// A namespace is a nested bucket, it exists as soon as it was opened in read/write
// mode once. A commit is a single bbolt write transaction, so it is applied
// completely or not at all, also across process crashes.
//
// A partition file that does not exist yet is created and formatted by Init. A file
// carrying another format version is left untouched and Init reports
// engine.StatusNewVersionFound; the caller decides whether to erase it.
//
// The engine keeps go-metrics timers for mounts, loads and commits. They are
// reported in the Metadata field of engine.EngineInfo.
//
// Example:
//
//	e, err := flash.NewFlashEngine(flash.Options{DataDir: "/var/lib/nvs"})
//	if err != nil {
//		return err
//	}
//	defer e.Shutdown()
//	if status := e.Init(engine.DefaultPartition); status != engine.StatusOK {
//		return fmt.Errorf("init failed: %s", status)
//	}
package flash
