package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/intermode/nvs-hal/rpc/server"
	"github.com/intermode/nvs-hal/rpc/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the nvs server",
		Long:    `Start the nvs server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is NVS_<flag> (e.g. NVS_DATA_DIR=/var/lib/nvs)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupLocalFlags(ServeCmd)

	key := "stores"
	ServeCmd.PersistentFlags().String(key, "1=flash", cmdUtil.WrapString("Comma-separated list of stores to serve. Format: ID=TYPE where TYPE is one of: flash, memory"))

	key = "max-open-handles"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Limit of concurrently open handles per store (0 = unlimited)"))

	key = "no-sync"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Skip fsync after every commit. Committed data may be lost on a crash"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Idle timeout of client connections in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/nvs.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Requests processed concurrently per connection (ignored for http)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Size of the connection buffers in KB (ignored for http)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address serving Prometheus metrics on /metrics (e.g. localhost:9100)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	stores, err := cmdUtil.ParseStores(viper.GetString("stores"))
	if err != nil {
		return err
	}
	serveCmdConfig.Stores = stores

	if serveCmdConfig.Partitions, err = cmdUtil.GetPartitionTable(); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.FormatVersion = viper.GetUint32("format-version")
	serveCmdConfig.MaxOpenHandles = viper.GetInt("max-open-handles")
	serveCmdConfig.NoSync = viper.GetBool("no-sync")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("workers-per-conn"),
	}

	return serveCmdConfig.Validate()
}

// run starts the nvs server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport(viper.GetInt("buffer-size")*1024, viper.GetInt("workers-per-conn"))
	if err != nil {
		return err
	}

	return serve(server.NewRPCServer(*serveCmdConfig, t, s))
}

func serve(serv *server.RPCServer) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- serv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, transport.ErrClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		cmdUtil.Logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := serv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, transport.ErrClosed) {
		return err
	}
	return nil
}
