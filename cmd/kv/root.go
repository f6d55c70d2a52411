package kv

import (
	"github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcHAL *client.RPCHAL

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform operations on a remote nvs store",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	KeyValueCommands.PersistentFlags().String("partition", "", util.WrapString("Partition to operate on (default: nvs)"))
	KeyValueCommands.PersistentFlags().String("type", "i32", util.WrapString("Value type of get and set (i8, u8, i16, u16, i32, u32, i64, u64)"))

	// Add subcommands
	KeyValueCommands.AddCommand(initCmd)
	KeyValueCommands.AddCommand(eraseCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(statsCmd)
	KeyValueCommands.AddCommand(lsCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the remote HAL
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLoggers(); err != nil {
		return err
	}

	var err error
	rpcHAL, err = util.NewRemoteHAL()
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcHAL == nil {
		return nil
	}
	return rpcHAL.Disconnect()
}

func partition() string {
	return viper.GetString("partition")
}
