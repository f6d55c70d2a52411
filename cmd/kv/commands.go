package kv

import (
	"fmt"

	"github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initializes the partition, use --recover to erase it if it is full or outdated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var code hal.ReturnCode
			if withRecovery, _ := cmd.Flags().GetBool("recover"); withRecovery {
				code = hal.InitializeWithRecovery(rpcHAL, partition())
			} else {
				code = rpcHAL.InitializePartition(partition())
			}
			if err := util.CheckCode("init", code); err != nil {
				return err
			}
			fmt.Println("initialized successfully")
			return nil
		},
	}
	eraseCmd = &cobra.Command{
		Use:   "erase",
		Short: "Erases all entries of the partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.CheckCode("erase", rpcHAL.Erase(partition())); err != nil {
				return err
			}
			fmt.Println("erased successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [namespace] [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			valueType, err := hal.ParseValueType(viper.GetString("type"))
			if err != nil {
				return err
			}

			return withHandle(args[0], hal.ReadOnly, func(handle *hal.Handle) error {
				bits, code := rpcHAL.ReadBits(handle, args[1], valueType)
				switch code {
				case hal.CodeNormal:
					fmt.Printf("namespace=%s, key=%s, found=true, value=%s\n", args[0], args[1], util.FormatValue(valueType, bits))
				case hal.CodeNotFound:
					fmt.Printf("namespace=%s, key=%s, found=false\n", args[0], args[1])
				default:
					return util.CheckCode("read", code)
				}
				return nil
			})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [namespace] [key] [value]",
		Short: "Sets and commits the value for a key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			valueType, err := hal.ParseValueType(viper.GetString("type"))
			if err != nil {
				return err
			}
			bits, err := util.ParseValue(valueType, args[2])
			if err != nil {
				return err
			}

			return withHandle(args[0], hal.ReadWrite, func(handle *hal.Handle) error {
				if err := util.CheckCode("write", rpcHAL.WriteBits(handle, args[1], valueType, bits)); err != nil {
					return err
				}
				if err := util.CheckCode("commit", rpcHAL.Commit(handle)); err != nil {
					return err
				}
				fmt.Println("set successfully")
				return nil
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [namespace] [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(args[0], hal.ReadWrite, func(handle *hal.Handle) error {
				if err := util.CheckCode("erase_key", rpcHAL.EraseKey(handle, args[1])); err != nil {
					return err
				}
				if err := util.CheckCode("commit", rpcHAL.Commit(handle)); err != nil {
					return err
				}
				fmt.Println("delete successfully")
				return nil
			})
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [namespace]",
		Short: "Deletes all keys of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandle(args[0], hal.ReadWrite, func(handle *hal.Handle) error {
				if err := util.CheckCode("erase_all", rpcHAL.EraseAll(handle)); err != nil {
					return err
				}
				if err := util.CheckCode("commit", rpcHAL.Commit(handle)); err != nil {
					return err
				}
				fmt.Println("clear successfully")
				return nil
			})
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the entry usage of the partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, code := rpcHAL.Stats(partition())
			if err := util.CheckCode("stats", code); err != nil {
				return err
			}
			fmt.Printf("used=%d, free=%d, total=%d, namespaces=%d\n",
				stats.UsedEntries, stats.FreeEntries, stats.TotalEntries, stats.NamespaceCount)
			return nil
		},
	}
	lsCmd = &cobra.Command{
		Use:   "ls [namespace]",
		Short: "Lists the committed entries of the partition or of one namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			entries, code := rpcHAL.List(partition(), namespace)
			if err := util.CheckCode("list", code); err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Printf("%s\t%s\t%s\n", entry.Namespace, entry.Key, entry.Type)
			}
			return nil
		},
	}
)

func init() {
	initCmd.Flags().Bool("recover", false, util.WrapString("Erase and initialize again if the partition is full or has an incompatible format"))
}

// withHandle opens a namespace, runs fn and closes the handle again
func withHandle(namespace string, mode hal.OpenMode, fn func(handle *hal.Handle) error) error {
	handle, code := rpcHAL.Open(namespace, mode, partition())
	if err := util.CheckCode("open", code); err != nil {
		return err
	}
	defer rpcHAL.Close(handle)
	return fn(handle)
}
