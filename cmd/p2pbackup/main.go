package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpilipov/2a-p2p-backup/internal/config"
	"github.com/mpilipov/2a-p2p-backup/internal/sim"
	"github.com/mpilipov/2a-p2p-backup/pkg/utils/logging"
	"github.com/mpilipov/2a-p2p-backup/pkg/utils/timespan"
)

var opts struct {
	maxT    string
	seed    string
	verbose bool
	summary bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "p2pbackup <config>",
		Short: "Discrete-event simulator for a peer-to-peer backup network",
		Long: `p2pbackup simulates a network of nodes that erasure-code their data,
spread the encoded blocks over other nodes while online, and pull them
back after crashes. It reports how durable the data is under the
failure, uptime and bandwidth regime described by the configuration
file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}

	cmd.Flags().StringVar(&opts.maxT, "max-t", "100 years", "maximum simulated time")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "random seed for reproducibility")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log every processed event")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print the simulation summary on exit")

	return cmd
}

func run(configPath string) error {
	setupLogger(opts.verbose)

	maxT, err := timespan.Parse(opts.maxT)
	if err != nil {
		return fmt.Errorf("--max-t: %w", err)
	}

	specs, err := config.Load(configPath)
	if err != nil {
		return err
	}

	s, err := sim.New(specs, opts.seed)
	if err != nil {
		return err
	}

	if err := s.Run(maxT); err != nil {
		return err
	}
	slog.Info(timespan.Format(s.T()) + ": Simulation over")

	if opts.summary {
		fmt.Println(s.Summarize())
	}

	return nil
}

func setupLogger(verbose bool) {
	lopts := logging.DefaultOptions()
	if verbose {
		lopts.SlogOpts.Level = slog.LevelInfo
	} else {
		lopts.SlogOpts.Level = slog.LevelWarn
	}

	h := logging.NewPrettyHandler(os.Stdout, &lopts)
	slog.SetDefault(slog.New(h))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("simulation failed", "error", err.Error())
		os.Exit(1)
	}
}
