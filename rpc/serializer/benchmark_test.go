package serializer

import (
	"fmt"
	"testing"

	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	entries := make([]hal.EntryInfo, 64)
	for i := range entries {
		entries[i] = hal.EntryInfo{Namespace: "nvsStorage", Key: fmt.Sprintf("key-%d", i), Type: hal.TypeU32}
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTInit,
		},
		"Open":         *common.NewOpenRequest("nvsStorage", hal.ReadWrite, "nvs"),
		"Read":         *common.NewReadRequest(12, "restart_counter", hal.TypeI32),
		"ReadResponse": *common.NewReadResponse(0xFFFFFFFFFFFFFFFE, hal.CodeNormal),
		"Write":        *common.NewWriteRequest(12, "restart_counter", hal.TypeI32, 41),
		"Stats":        *common.NewStatsResponse(hal.PartitionStats{UsedEntries: 100, FreeEntries: 530, TotalEntries: 630, NamespaceCount: 4}, hal.CodeNormal),
		"List64":       *common.NewListResponse(entries, hal.CodeNormal),
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Code:    hal.CodeError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					if err := serializer.Deserialize(data, &msg); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
