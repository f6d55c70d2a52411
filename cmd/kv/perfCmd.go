package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/intermode/nvs-hal/cmd/util"
	"github.com/intermode/nvs-hal/lib/hal"
	"github.com/intermode/nvs-hal/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for nvs servers",
		Long:    "Runs parallel benchmarks against a remote store. All benchmarks work in their own namespace below the prefix __perf, which is cleared afterwards.",
		Args:    cobra.NoArgs,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfNamespacePrefix = "__perf"
	perfNumThreads      = 10
	perfKeySpread       = 100
	perfSkip            = make([]string, 0)
)

// perfBenchmark is a single benchmark, op is called with a handle on the benchmark
// namespace and a running counter
type perfBenchmark struct {
	name    string
	prepare func(handle *hal.Handle, keys []string) hal.ReturnCode
	op      func(handle *hal.Handle, key string, counter int) hal.ReturnCode
}

var perfBenchmarks = []perfBenchmark{
	{
		name: "write",
		op: func(handle *hal.Handle, key string, counter int) hal.ReturnCode {
			return hal.Write[int32](rpcHAL, handle, key, int32(counter))
		},
	},
	{
		name: "write-commit",
		op: func(handle *hal.Handle, key string, counter int) hal.ReturnCode {
			if code := hal.Write[int32](rpcHAL, handle, key, int32(counter)); code != hal.CodeNormal {
				return code
			}
			return rpcHAL.Commit(handle)
		},
	},
	{
		name:    "read",
		prepare: writeAll,
		op: func(handle *hal.Handle, key string, _ int) hal.ReturnCode {
			_, code := hal.Read[int32](rpcHAL, handle, key)
			return code
		},
	},
	{
		name: "read-missing",
		op: func(handle *hal.Handle, key string, _ int) hal.ReturnCode {
			if _, code := hal.Read[int32](rpcHAL, handle, key); code != hal.CodeNotFound {
				return code
			}
			return hal.CodeNormal
		},
	},
	{
		name:    "mixed",
		prepare: writeAll,
		op: func(handle *hal.Handle, key string, counter int) hal.ReturnCode {
			switch counter % 4 {
			case 0:
				return hal.Write[int32](rpcHAL, handle, key, int32(counter))
			case 1:
				_, code := hal.Read[int32](rpcHAL, handle, key)
				if code == hal.CodeNotFound {
					return hal.CodeNormal
				}
				return code
			case 2:
				if code := rpcHAL.EraseKey(handle, key); code != hal.CodeNotFound {
					return code
				}
				return hal.CodeNormal
			default:
				return rpcHAL.Commit(handle)
			}
		},
	},
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,read)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for nvs servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	if err := util.CheckCode("init", rpcHAL.InitializePartition(partition())); err != nil {
		return err
	}

	fmt.Println("staring tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, bench := range perfBenchmarks {
		result := runBenchmark(bench)
		results[bench.name] = result
		printResult(bench.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func runBenchmark(bench perfBenchmark) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(bench.name) {
			return
		}

		// namespace names are limited to 15 characters
		namespace := fmt.Sprintf("%s%d", perfNamespacePrefix, perfBenchmarkIndex(bench.name))
		handle, code := rpcHAL.Open(namespace, hal.ReadWrite, partition())
		if code != hal.CodeNormal {
			log.Printf("(%s) - error opening namespace: %s\n", bench.name, code)
			return
		}

		keys := getKeys(bench.name)
		if bench.prepare != nil {
			if code := bench.prepare(handle, keys); code != hal.CodeNormal {
				log.Printf("(%s) - error preparing keys: %s\n", bench.name, code)
			}
		}

		// cleanup
		b.Cleanup(func() {
			if code := rpcHAL.EraseAll(handle); code != hal.CodeNormal {
				log.Printf("(%s) - error erasing namespace: %s\n", bench.name, code)
			}
			if code := rpcHAL.Commit(handle); code != hal.CodeNormal {
				log.Printf("(%s) - error committing cleanup: %s\n", bench.name, code)
			}
			rpcHAL.Close(handle)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if code := bench.op(handle, keys[counter%len(keys)], counter); code != hal.CodeNormal {
					log.Printf("(%s) - error performing operation: %s\n", bench.name, code)
				}
				counter++
			}
		})
	})
}

// writeAll writes and commits every key once
func writeAll(handle *hal.Handle, keys []string) hal.ReturnCode {
	for i, key := range keys {
		if code := hal.Write[int32](rpcHAL, handle, key, int32(i)); code != hal.CodeNormal {
			return code
		}
	}
	return rpcHAL.Commit(handle)
}

func perfBenchmarkIndex(name string) int {
	for i, bench := range perfBenchmarks {
		if bench.name == name {
			return i
		}
	}
	return len(perfBenchmarks)
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of a benchmark, keys are limited to 15 characters
func getKeys(prefix string) []string {
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return keys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"StoreID", "Partition", "Serializer", "Transport",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(config.StoreID, 10),
			hal.ResolvePartition(partition()),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
