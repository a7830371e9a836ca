// Command taiga runs placement problems offline: it loads a TOML problem
// file, anneals it once, and prints the best placement found together with
// a convergence summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/TAIGA/internal/logging"
	"github.com/copyleftdev/TAIGA/internal/placement"
	"github.com/copyleftdev/TAIGA/internal/placement/annealing"
	"github.com/copyleftdev/TAIGA/internal/problem"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "taiga",
		Short:        "TAIGA anneals module placements on a bounded surface",
		Long:         "TAIGA is a simulated annealing placement tool: it relocates rectangular modules on a bounded surface to minimize wirelength and collisions.",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd(&verbose))

	return root.ExecuteContext(ctx)
}

func newRunCmd(verbose *bool) *cobra.Command {
	var (
		seed       int64
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "run <problem.toml>",
		Short: "Anneal a placement problem and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			if seed != 0 {
				cfg.Seed = seed
			}
			if iterations != 0 {
				cfg.MaxIterations = iterations
			}
			cfg.Verbose = *verbose

			level := logging.InfoLevel
			if *verbose {
				level = logging.DebugLevel
			}
			logger := logging.New(level, os.Stderr)
			engineLog := logging.NewZapLogger(logger)

			ann, err := annealing.New(cfg, engineLog)
			if err != nil {
				return err
			}

			result, err := ann.Place(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), cfg, result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "override the iteration budget")

	return cmd
}

func printResult(w io.Writer, cfg placement.PlacerConfig, result *placement.Result) {
	eval := placement.NewEvaluator(cfg.Problem, cfg.OverlapPenalty)
	best := result.Best
	summary := result.Summarize()

	fmt.Fprintf(w, "Best cost:   %.4f\n", best.Cost)
	fmt.Fprintf(w, "Wirelength:  %.4f\n", eval.Wirelength(best.Placement))
	fmt.Fprintf(w, "Overlaps:    %d\n", eval.OverlapCount(best.Placement))
	fmt.Fprintf(w, "Iterations:  %d\n", result.Iterations)
	fmt.Fprintf(w, "Convergence: initial %.4f -> best %.4f (%.1f%% reduction), tail mean %.4f +/- %.4f\n",
		summary.InitialCost, summary.BestCost, summary.Reduction*100, summary.TailMean, summary.TailStdDev)

	fmt.Fprintln(w, "Placement:")
	names := make([]string, 0, len(cfg.Problem.Catalog))
	for _, m := range cfg.Problem.Catalog {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		id, _ := cfg.Problem.Catalog.Index(name)
		m := cfg.Problem.Catalog[id]
		p := best.Placement[id]
		fmt.Fprintf(w, "  %-8s %gx%-6g at (%.3f, %.3f)\n", m.Name, m.W, m.H, p.X, p.Y)
	}
}
