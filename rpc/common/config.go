package common

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/intermode/nvs-hal/lib/engine"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// SocketConf holds socket settings shared by the stream transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific settings. Zero values keep the OS defaults.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerTransportConfig configures a server transport
type ServerTransportConfig struct {
	SocketConf
	TCPConf

	// Endpoint is the listen address (host:port or a unix socket path)
	Endpoint string

	// WorkersPerConn limits the requests processed concurrently per connection
	WorkersPerConn int
}

// ClientTransportConfig configures a client transport
type ClientTransportConfig struct {
	SocketConf
	TCPConf

	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerStoreType string

const (
	StoreTypeFlash  ServerStoreType = "flash"
	StoreTypeMemory ServerStoreType = "memory"
)

// ParseStoreType parses "flash" or "memory".
func ParseStoreType(s string) (ServerStoreType, error) {
	switch ServerStoreType(strings.ToLower(s)) {
	case StoreTypeFlash:
		return StoreTypeFlash, nil
	case StoreTypeMemory:
		return StoreTypeMemory, nil
	default:
		return "", fmt.Errorf("invalid store type: %s. must be one of flash, memory", s)
	}
}

type ServerStore struct {
	// StoreID is the ID clients address the store with
	StoreID uint64
	// Type selects the engine behind the store
	Type ServerStoreType
}

// ServerConfig holds all configuration parameters of the remote HAL server.
type ServerConfig struct {
	// Stores served by this server
	Stores []ServerStore

	// Engine parameters
	DataDir        string
	Partitions     []engine.PartitionSpec
	FormatVersion  uint32
	MaxOpenHandles int
	NoSync         bool

	// Timeout for reading and writing a single frame
	TimeoutSecond int64

	Transport ServerTransportConfig

	// MetricsEndpoint serves /metrics if not empty
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// StoreDataDir returns the data directory of a flash store
func (c *ServerConfig) StoreDataDir(storeID uint64) string {
	return filepath.Join(c.DataDir, strconv.FormatUint(storeID, 10))
}

// Validate checks the configuration before the server starts
func (c *ServerConfig) Validate() error {
	if len(c.Stores) == 0 {
		return fmt.Errorf("no stores configured")
	}
	seen := make(map[uint64]bool, len(c.Stores))
	for _, store := range c.Stores {
		if seen[store.StoreID] {
			return fmt.Errorf("duplicate store id %d", store.StoreID)
		}
		seen[store.StoreID] = true
		if store.Type == StoreTypeFlash && c.DataDir == "" {
			return fmt.Errorf("store %d: flash stores require a data directory", store.StoreID)
		}
		if _, err := ParseStoreType(string(store.Type)); err != nil {
			return fmt.Errorf("store %d: %w", store.StoreID, err)
		}
	}
	if c.Partitions != nil {
		if err := engine.ValidatePartitionTable(c.Partitions); err != nil {
			return err
		}
	}
	if c.Transport.Endpoint == "" {
		return fmt.Errorf("no endpoint configured")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	if c.MetricsEndpoint != "" {
		addField("Metrics", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Engine
	addSection("Engine")
	addField("Data Directory", c.DataDir)
	addField("Format Version", strconv.FormatUint(uint64(c.FormatVersion), 10))
	addField("Max Open Handles", strconv.Itoa(c.MaxOpenHandles))
	addField("No Sync", strconv.FormatBool(c.NoSync))

	// Partitions
	addSection("Partitions")
	partitions := c.Partitions
	if partitions == nil {
		partitions = engine.DefaultPartitionTable()
	}
	for _, p := range partitions {
		addField(p.Name, fmt.Sprintf("%d entries", p.Entries))
	}

	// Stores
	addSection("Stores")
	for _, store := range c.Stores {
		addField(strconv.FormatUint(store.StoreID, 10), string(store.Type))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Transport     ClientTransportConfig
	TimeoutSecond int
	StoreID       uint64
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Store", strconv.FormatUint(c.StoreID, 10))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
