// Command spatial serves gospatial tool calls over HTTP and runs single
// calls from the command line.
//
// Usage:
//
//	spatial serve --config spatial.yaml
//	spatial call rpy_to_quaternion '{"roll":0,"pitch":0,"yaw":1.57}'
//	spatial schema
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/njchilds90/gospatial"
	"github.com/njchilds90/gospatial/internal/config"
	"github.com/njchilds90/gospatial/toolcall"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spatial",
	Short: "Symbolic 3D geometry tool server",
	Long: `spatial exposes gospatial conversions, transforms and symbolic
evaluation as JSON tool calls, either over HTTP or one call at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		zc := zap.NewProductionConfig()
		zc.Encoding = cfg.Logging.Format
		zc.Level = zap.NewAtomicLevelAt(cfg.Logging.GetLevel())
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		gospatial.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP tool server",
	Long: `Endpoints:
  POST /tool   execute a tool call
  GET  /schema tool schema for agent registration
  GET  /health liveness check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), cfg, logger)
	},
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [params-json | -]",
	Short: "Execute one tool call and print the response",
	Long: `Params are a JSON object. "-" reads them from stdin; omitted params
are an empty object. Exits non-zero when the tool reports an error.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := toolcall.Request{Tool: args[0], Params: map[string]interface{}{}}
		if len(args) == 2 {
			raw := []byte(args[1])
			if args[1] == "-" {
				var err error
				raw, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read params: %w", err)
				}
			}
			if err := json.Unmarshal(raw, &req.Params); err != nil {
				return fmt.Errorf("failed to parse params: %w", err)
			}
		}

		h := toolcall.New(logger, toolcall.WithWorkers(cfg.Batch.Workers))
		resp := h.Handle(cmd.Context(), req)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if resp.Error != "" {
			return fmt.Errorf("%s failed", req.Tool)
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the tool schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), toolcall.Schema())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "spatial.yaml", "path to the YAML config")
	rootCmd.AddCommand(serveCmd, callCmd, schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
