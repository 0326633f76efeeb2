package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/types"
)

// =============================================================================
// 📋 list 命令
// =============================================================================

func newListCmd(flags *rootFlags) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the compiled tool catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, stop, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer stop()

			var out any = a.engine.Tools()
			if full {
				out = a.catalog
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Wrap the tools with the API title and version")
	return cmd
}

// =============================================================================
// 🛠️ call 命令
// =============================================================================

// errCallFailed marks a tool error already printed as JSON.
var errCallFailed = errors.New("tool call failed")

func newCallCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-args|-]",
		Short: "Call one tool and print the result as JSON",
		Long:  "Call one tool. Arguments are a JSON object given inline, or read from stdin when '-' is passed.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readArguments(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			a, stop, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer stop()

			res, err := a.engine.CallJSON(cmd.Context(), args[0], raw)
			if err != nil {
				e, _ := types.AsError(err)
				if werr := writeJSON(cmd.OutOrStdout(), e); werr != nil {
					return werr
				}
				cmd.SilenceErrors = true
				return errCallFailed
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func readArguments(stdin io.Reader, args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if args[0] != "-" {
		return json.RawMessage(args[0]), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read arguments from stdin: %w", err)
	}
	return json.RawMessage(strings.TrimSpace(string(data))), nil
}

// =============================================================================
// 📋 版本
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "apiflow %s\n", Version)
			fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
		},
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// openApp 为一次性命令装配应用，不注册 Prometheus 指标
func openApp(ctx context.Context, flags *rootFlags) (*app, func(), error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	a, err := bootstrap(ctx, cfg, logger, bootstrapOptions{})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	stop := func() {
		a.close(context.Background())
		if err := logger.Sync(); err != nil {
			logger.Debug("logger sync failed", zap.Error(err))
		}
	}
	return a, stop, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
