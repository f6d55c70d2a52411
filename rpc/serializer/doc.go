// Package serializer provides message serialization for the remote HAL. It defines
// a common interface and multiple implementations for serializing and deserializing
// common.Message values between client and server.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A five byte header carries the
//     message type, a flag byte, the open mode, the value type and the return code;
//     the flag byte marks which optional fields follow (handle, partition, namespace,
//     key, bits, stats, entries, error). Strings are prefixed with a 4 byte length.
//
//   - gobSerializerImpl: Implementation using Go's gob encoding.
//
//   - jsonSerializerImpl: Implementation using JSON encoding. Message types, value
//     types and return codes are encoded by name, which makes it the serializer to
//     use when debugging with curl against the http transport.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*common.NewCommitRequest(handleID))
//	// ... send data ...
//	var resp common.Message
//	err = s.Deserialize(receivedData, &resp)
package serializer
