package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fishls/internal/trace"
)

// setupTracing inspects trace-related flags, attaches a tracer to the
// command context and returns the matching cleanup.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone means phase-level tracing
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	return startTracer(cmd, trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
}

func startTracer(cmd *cobra.Command, cfg trace.Config) (func(), error) {
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if cfg.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, cfg.Heartbeat)
	}

	return func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if cfg.Mode == trace.ModeRing {
			dumpRing(cmd, tracer, cfg.OutputPath)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpRing writes the ring buffer out once the run is over; ring mode
// never streams.
func dumpRing(cmd *cobra.Command, tracer trace.Tracer, path string) {
	ring := trace.RingOf(tracer)
	if ring == nil {
		return
	}
	out := cmd.ErrOrStderr()
	format := trace.FormatText
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
			return
		}
		defer f.Close()
		out = f
		if parsed, err := trace.ParseFormat(formatForPath(path)); err == nil {
			format = parsed
		}
	}
	if err := ring.Dump(out, format); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
	}
}

func formatForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".ndjson"), strings.HasSuffix(path, ".json"):
		return "ndjson"
	default:
		return "text"
	}
}
