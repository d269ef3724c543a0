package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/scenario"
)

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	var printGraph bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print the decision trace",
		Long: `Build the call graph described by the scenario, run the inlining heuristic
with the reference inliner until nothing changes, and print the decisions,
the cumulative inlined size and the calls left in the graph.

--config replaces the scenario configuration, --mode overrides the mode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], printGraph, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&printGraph, "graph", false, "print the final graph (text format only)")
	return cmd
}

func runScenario(opts *rootOptions, path string, printGraph bool, w io.Writer) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	config, err := opts.effectiveConfig(&s.Config)
	if err != nil {
		return err
	}
	logger, err := opts.newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	result, err := scenario.Run(s, scenario.Options{Logger: logger, Config: config})
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return result.WriteJSON(w)
	}
	if err := result.WriteText(w); err != nil {
		return err
	}
	if printGraph {
		if _, err := fmt.Fprintln(w, "graph:"); err != nil {
			return err
		}
		return graph.Print(w, result.Graph)
	}
	return nil
}
