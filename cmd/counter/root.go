package counter

import (
	"fmt"

	"github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Namespace and Key of the restart counter
	Namespace = "nvsStorage"
	Key       = "restart_counter"
)

var (
	// CounterCmd increments the restart counter of a local flash store
	CounterCmd = &cobra.Command{
		Use:   "counter",
		Short: "Increments and prints the restart counter of a local store",
		Long: `Initializes the partition (erasing it if it is full or has an incompatible format),
reads the i32 restart counter, increments it and commits the new value.
A missing counter starts at 0.`,
		Args:    cobra.NoArgs,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupLocalFlags(CounterCmd)
	CounterCmd.Flags().String("partition", "", util.WrapString("Partition holding the counter (default: nvs)"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return util.InitLoggers()
}

func run(_ *cobra.Command, _ []string) error {
	h, err := util.NewLocalHAL()
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Shutdown(); err != nil {
			util.Logger.Errorf("failed to shut down storage: %v", err)
		}
	}()

	restarts, err := Increment(h, viper.GetString("partition"))
	if err != nil {
		return err
	}
	fmt.Printf("Restart counter = %d\n", restarts)
	return nil
}

// Increment initializes the partition with recovery and increments the restart
// counter. It returns the new value.
func Increment(h hal.IStorageHAL, partition string) (int32, error) {
	if err := util.CheckCode("init", hal.InitializeWithRecovery(h, partition)); err != nil {
		return 0, err
	}

	handle, code := h.Open(Namespace, hal.ReadWrite, partition)
	if err := util.CheckCode("open", code); err != nil {
		return 0, err
	}
	defer h.Close(handle)

	restarts, code := hal.Read[int32](h, handle, Key)
	switch code {
	case hal.CodeNormal:
	case hal.CodeNotFound:
		util.Logger.Infof("%s is not initialized yet", Key)
		restarts = 0
	default:
		return 0, util.CheckCode("read", code)
	}

	restarts++
	if err := util.CheckCode("write", hal.Write[int32](h, handle, Key, restarts)); err != nil {
		return 0, err
	}
	if err := util.CheckCode("commit", h.Commit(handle)); err != nil {
		return 0, err
	}
	return restarts, nil
}
