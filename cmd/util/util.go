package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/engines/flash"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/lib/hal/nvshal"
	"github.com/intermode/nvs-hal/rpc/client"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/serializer"
	"github.com/intermode/nvs-hal/rpc/transport"
	"github.com/intermode/nvs-hal/rpc/transport/http"
	"github.com/intermode/nvs-hal/rpc/transport/tcp"
	"github.com/intermode/nvs-hal/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (NVS_<FLAG>)
	EnvPrefix = "nvs"
)

var Logger = logger.GetLogger("cmd")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes every flag settable as NVS_<FLAG>
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// InitLoggers sets up the loggers with the configured log level
func InitLoggers() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "store"
	cmd.PersistentFlags().Uint64(key, 1, WrapString("ID of the store to connect to"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the nvs server. For transports that support load balancing, multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint - for transports that support this feature"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 64, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 64, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time for the transport (in seconds, only for tcp)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		StoreID:       viper.GetUint64("store"),
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransport creates a client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport(bufferSize, workersPerConn int) (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(bufferSize, workersPerConn), nil
	case "unix":
		return unix.NewUnixServerTransport(bufferSize, workersPerConn), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// NewRemoteHAL connects to the configured store of a remote server
func NewRemoteHAL() (*client.RPCHAL, error) {
	config := GetClientConfig()

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}

	return client.NewRPCHAL(config.StoreID, *config, t, s)
}

// --------------------------------------------------------------------------
// Local
// --------------------------------------------------------------------------

// SetupLocalFlags adds the flags of commands that work on a local flash store
func SetupLocalFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, "data", WrapString("Directory holding one file per partition"))

	key = "partition-table"
	cmd.PersistentFlags().String(key, "", WrapString("Optional YAML file with the partition table (default: a single partition named nvs)"))

	key = "format-version"
	cmd.PersistentFlags().Uint32(key, engine.FormatVersion, WrapString("The storage format version written and expected"))
}

// GetPartitionTable reads the configured partition table, nil selects the default table
func GetPartitionTable() ([]engine.PartitionSpec, error) {
	path := viper.GetString("partition-table")
	if path == "" {
		return nil, nil
	}
	return engine.LoadPartitionTable(path)
}

// NewLocalHAL creates a HAL on a flash engine in the configured data directory
func NewLocalHAL() (*nvshal.HAL, error) {
	partitions, err := GetPartitionTable()
	if err != nil {
		return nil, err
	}

	e, err := flash.NewFlashEngine(flash.Options{
		DataDir:       viper.GetString("data-dir"),
		Partitions:    partitions,
		FormatVersion: viper.GetUint32("format-version"),
	})
	if err != nil {
		return nil, err
	}
	return nvshal.New(e, &nvshal.Options{Name: "local"}), nil
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// ParseStores parses a comma-separated list of stores in the format ID=TYPE
func ParseStores(s string) ([]common.ServerStore, error) {
	stores := []common.ServerStore{}
	for _, storeConfig := range strings.Split(s, ",") {
		parts := strings.Split(storeConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid store format: %s (expected ID=TYPE)", storeConfig)
		}

		storeID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid store ID %s: %v", parts[0], err)
		}

		storeType, err := common.ParseStoreType(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}

		stores = append(stores, common.ServerStore{StoreID: storeID, Type: storeType})
	}
	return stores, nil
}

// ParseValue parses the textual form of a value of the given type into its bit pattern
func ParseValue(valueType hal.ValueType, s string) (uint64, error) {
	if valueType.Signed() {
		v, err := strconv.ParseInt(s, 0, valueType.Bits())
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %s: %w", valueType, s, err)
		}
		return uint64(v), nil
	}
	v, err := strconv.ParseUint(s, 0, valueType.Bits())
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %s: %w", valueType, s, err)
	}
	return v, nil
}

// FormatValue formats the bit pattern of a value of the given type
func FormatValue(valueType hal.ValueType, bits uint64) string {
	if valueType.Signed() {
		return strconv.FormatInt(int64(bits), 10)
	}
	return strconv.FormatUint(bits, 10)
}

// CheckCode turns a failed return code into an error naming the operation
func CheckCode(op string, code hal.ReturnCode) error {
	return hal.NewError(op, code)
}
