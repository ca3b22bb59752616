package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fishls/internal/config"
	"fishls/internal/lsp"
	"fishls/internal/metrics"
	"fishls/internal/trace"
)

var lspCmd = &cobra.Command{
	Use:     "lsp",
	Aliases: []string{"start"},
	Short:   "Run the fish language server over stdio",
	Args:    cobra.NoArgs,
	RunE:    runLSP,
}

func init() {
	lspCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	lspCmd.Flags().Duration("debounce", 0, "diagnostic debounce (0 keeps the configured value)")
	lspCmd.Flags().Bool("watch", true, "re-index fish files changed on disk")
	// editors commonly pass --stdio; stdio is the only transport
	lspCmd.Flags().Bool("stdio", true, "communicate over stdin/stdout")
	_ = lspCmd.Flags().MarkHidden("stdio")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("failed to get metrics-addr flag: %w", err)
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	if err := setupLogFile(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "lsp: log file: %v\n", err)
	}

	if metricsAddr != "" {
		stop, err := serveMetrics(metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	server := lsp.NewServer(lsp.ServerOptions{
		ConfigPath: configPath,
		Overrides: func(cfg *config.Config) {
			if err := applyFlagOverrides(cmd, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "lsp: %v\n", err)
			}
		},
		Watch:    watch,
		Debounce: debounce,
	})
	err = server.Run(cmd.Context(), lsp.StdioConn{In: os.Stdin, Out: os.Stdout})
	switch {
	case err == nil, errors.Is(err, lsp.ErrExit):
		return nil
	case errors.Is(err, lsp.ErrExitWithoutShutdown):
		return fmt.Errorf("lsp exit without shutdown")
	default:
		return err
	}
}

// setupLogFile streams trace events to the configured log file when no
// --trace flags were given. The server's stdout is the protocol channel, so
// this is the only persistent log.
func setupLogFile(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("trace") || flags.Changed("trace-level") {
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd, wd)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		return nil
	}
	level := cfg.TraceLevel()
	if level == trace.LevelOff {
		level = trace.LevelPhase
	}
	cleanup, err := startTracer(cmd, trace.Config{
		Level:      level,
		Mode:       trace.ModeStream,
		OutputPath: cfg.Log.File,
	})
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)
	return nil
}

func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "lsp: metrics: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
