package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tangzhangming/inlineheur/internal/inlining"
)

func newConfigCommand(rootOpts *rootOptions) *cobra.Command {
	var initPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective inlining configuration",
		Long: `Print the inlining configuration after applying --config and --mode
to the defaults, as TOML.

With --init the configuration is written to a new commented file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := rootOpts.effectiveConfig(inlining.DefaultConfig())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if initPath != "" {
				if _, err := os.Stat(initPath); err == nil {
					return fmt.Errorf("%s already exists", initPath)
				}
				if err := config.Save(initPath); err != nil {
					return err
				}
				_, err := fmt.Fprintf(out, "created %s\n", initPath)
				return err
			}

			data, err := config.MarshalTOML()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&initPath, "init", "", "write the configuration to a new file")
	return cmd
}
