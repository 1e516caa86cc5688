// Package main is the entry point for the slime-run binary.
// It assembles a handler tree from a YAML spec and executes it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SlimeAI/slime-core/pkg/config"
	"github.com/SlimeAI/slime-core/pkg/launch"
	"github.com/SlimeAI/slime-core/pkg/logging"
	"github.com/SlimeAI/slime-core/pkg/pipeline"
	"github.com/SlimeAI/slime-core/pkg/telemetry"
)

const (
	defaultPhase    = "train"
	defaultLogLevel = "info"
	defaultLaunch   = "vanilla"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for slime-run
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slime-run",
		Short: "Handler pipeline runner",
		Long: `Assembles the handler tree declared in a YAML spec and executes it
for one phase, with structured logging, tracing and metrics.

Example:
  slime-run --config pipeline.yaml --phase train`,
		RunE: runPipeline,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to pipeline spec file (YAML)")
	rootCmd.Flags().String("phase", defaultPhase, "Phase to assemble and run")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Human-readable log output")
	rootCmd.Flags().String("launch", defaultLaunch, "Launch mode")
	rootCmd.Flags().String("otlp-endpoint", "", "OTLP gRPC endpoint for trace export")
	rootCmd.Flags().Bool("otlp-insecure", false, "Disable TLS for the OTLP endpoint")
	rootCmd.Flags().String("metrics-addr", "", "Address for the Prometheus scrape endpoint, e.g. :9090")
	_ = rootCmd.MarkFlagRequired("config")

	return rootCmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	specPath, _ := cmd.Flags().GetString("config")
	phaseName, _ := cmd.Flags().GetString("phase")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	launchMode, _ := cmd.Flags().GetString("launch")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	otlpInsecure, _ := cmd.Flags().GetBool("otlp-insecure")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger := logging.SetupLogger(logging.Config{Level: logLevel, Pretty: pretty})

	stdCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupProvider(stdCtx, telemetry.Config{
		ServiceName: "slime-run",
		Endpoint:    otlpEndpoint,
		Insecure:    otlpInsecure,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("trace flush failed", "error", err)
		}
	}()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Default().Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(closeCtx)
		}()
		logger.Info("metrics endpoint listening", "addr", metricsAddr)
	}

	provider, err := config.NewFileProvider(specPath)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	launchHook, err := launch.Resolve(launchMode)
	if err != nil {
		return err
	}

	ctx := pipeline.NewContext(logger)
	ctx.SetStdContext(stdCtx)
	ctx.Hooks = pipeline.HookSet{
		Launch:  launchHook,
		Plugins: pipeline.NewPluginSet(),
		Build:   config.NewTreeBuilder(provider.Current()),
	}

	phase := pipeline.Phase(phaseName)
	logger.Info("starting run",
		"run_id", ctx.RunID,
		"phase", phaseName,
		"devices", launchHook.DeviceInfo(ctx),
	)

	if err := pipeline.Assemble(ctx, phase); err != nil {
		return fmt.Errorf("assemble phase %q: %w", phaseName, err)
	}

	err = pipeline.Run(ctx, phase)
	if t, ok := pipeline.AsTerminate(err); ok {
		// A terminate signal is a deliberate stop, not a failure.
		logger.Info("run terminated",
			"run_id", ctx.RunID,
			"origin", t.Origin,
			"reason", t.Reason,
		)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("run complete", "run_id", ctx.RunID)
	return nil
}
