package cmd

import (
	"fmt"
	"os"

	"github.com/intermode/nvs-hal/cmd/counter"
	"github.com/intermode/nvs-hal/cmd/kv"
	"github.com/intermode/nvs-hal/cmd/serve"
	"github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "nvs",
		Short: "non-volatile key-value storage",
		Long: fmt.Sprintf(`nvs (v%s)

A storage abstraction over a flash key-value engine with typed values,
namespaces, explicit commits and closed return codes. Stores can be used
locally or served to remote clients.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nvs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nvs v%s (storage format v%d)\n", Version, engine.FormatVersion)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(counter.CounterCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
