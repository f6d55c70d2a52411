package hal

// InitializeWithRecovery initializes a partition and, if it is full or holds an
// incompatible format, erases it and initializes it once more.
//
// Any other failure, and every failure of the erase or the second initialize, is
// returned as is. The caller decides whether such a secondary failure is fatal.
func InitializeWithRecovery(h IStorageHAL, partition string) ReturnCode {
	partition = ResolvePartition(partition)

	code := h.InitializePartition(partition)
	if code != CodeFull && code != CodeVersion {
		return code
	}

	log.Warningf("partition %s needs to be erased (%s)", partition, code)
	if code := h.Erase(partition); code != CodeNormal {
		log.Errorf("failed to erase partition %s: %s", partition, code)
		return code
	}

	code = h.InitializePartition(partition)
	if code != CodeNormal {
		log.Errorf("failed to initialize partition %s after erase: %s", partition, code)
	}
	return code
}
