// Command poolbench compares creating and dropping many same-sized objects
// on the Go heap against a fixed-size pool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "poolbench",
		Short:        "Benchmark fixed-size pool allocation against the Go heap",
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "poolbench v%s (%s %s/%s)\n",
				version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark",
		Long: `Run allocates, fills and frees the given number of objects, first with
new() and then with a fixed-size pool, and prints both timings.

Example:
  poolbench run --objects 1000000 --payload medium --slots 256 --hold 5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			res, err := runBench(ctx, cfg, log)
			if err != nil {
				log.Error("benchmark failed", zap.Error(err))
				return err
			}
			report(cmd.OutOrStdout(), cfg, res)
			return nil
		},
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML config file")
	defineFlags(runCmd.Flags())
	root.AddCommand(runCmd)

	return root
}

func report(w io.Writer, cfg benchConfig, res result) {
	fmt.Fprintf(w, "Allocating and freeing %d objects of %s (%s backing, %d slots per pool)\n",
		res.Objects, humanize.IBytes(uint64(res.SlotSize)), cfg.Backing, cfg.Slots)
	fmt.Fprintf(w, "  Go heap:    %v\n", res.Heap)
	fmt.Fprintf(w, "  fixed pool: %v\n", res.Pool)
	fmt.Fprintf(w, "  pools:      %d (peak %d), %s each\n",
		res.Stats.Pools, res.PeakPools, humanize.IBytes(uint64(res.Stats.PoolSize)))
	fmt.Fprintf(w, "  reserved:   %s, in use at end: %s\n",
		humanize.IBytes(uint64(res.Stats.Total)), humanize.IBytes(uint64(res.Stats.Allocated)))
	fmt.Fprintf(w, "  unreleased after teardown: %s\n", humanize.IBytes(uint64(res.Leftover)))
}
