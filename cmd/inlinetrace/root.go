package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/inlining"
)

// rootOptions 全局选项
type rootOptions struct {
	Verbose    bool
	Format     string // "text" | "json"
	ConfigPath string // 内联配置文件
	Mode       string // 覆盖配置中的内联模式
}

// validFormats 支持的输出格式
var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "inlinetrace",
		Short: "Trace inlining decisions",
		Long: `Run the inlining heuristic over call graphs described in YAML scenarios
and print every decision it makes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if opts.Mode != "" {
				if _, err := inlining.ParseMode(opts.Mode); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log heuristic decisions to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "inlining configuration file (TOML)")
	cmd.PersistentFlags().StringVar(&opts.Mode, "mode", "", "inlining mode (general|restricted|stress)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	return cmd
}

// effectiveConfig 在 base 上应用配置文件和模式覆盖
//
// 指定了配置文件时以文件为准，否则使用 base 的副本。
func (o *rootOptions) effectiveConfig(base *inlining.Config) (*inlining.Config, error) {
	config := base.Clone()
	if o.ConfigPath != "" {
		loaded, err := inlining.LoadConfig(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if o.Mode != "" {
		mode, err := inlining.ParseMode(o.Mode)
		if err != nil {
			return nil, err
		}
		config.Mode = mode
	}
	return config, nil
}

// newLogger verbose 时输出开发格式的日志到 stderr
func (o *rootOptions) newLogger() (*zap.Logger, error) {
	if !o.Verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
