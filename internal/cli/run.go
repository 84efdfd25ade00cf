package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/keyhive"
	"github.com/driftsync/driftsync/internal/store"
	"github.com/driftsync/driftsync/internal/transport"
)

// NewRunCommand creates the "run" subcommand: the long-running daemon that
// wires storage, access control, and transport into an engine.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine daemon",
		Long:  "Starts the engine with durable storage and runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			return runDaemon(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "driftsync.yaml", "path to config file")

	return cmd
}

func runDaemon(parent context.Context, cfg *Config, opts *RootOptions) error {
	log := newLogger(cfg.LogLevel, opts.Verbose)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "creating data dir", err)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "driftsync.db"))
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer st.Close()

	khOpts := []keyhive.Option{}
	if cfg.Policy != "" {
		policy, err := keyhive.LoadPolicy(cfg.Policy)
		if err != nil {
			return WrapExitError(ExitCommandError, "loading policy", err)
		}
		khOpts = append(khOpts, keyhive.WithPolicy(policy))
	}
	kh := keyhive.New(khOpts...)

	net := transport.NewLoopback(log)

	var eng *engine.Engine
	exec := store.NewExecutor(st, log, func(res engine.IoResult) {
		eng.Submit(eng.Ingress().IoComplete(res))
	})
	defer exec.Close()

	eng = engine.New(exec, kh, net,
		engine.WithLogger(log),
		engine.WithPeerName(cfg.PeerName),
	)
	net.Attach(eng)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Timer feeding the engine's only notion of time.
	go runTicker(ctx, eng, time.Duration(cfg.TickInterval))

	go func() {
		<-ctx.Done()
		eng.Submit(eng.Ingress().Stop())
	}()

	log.Info("daemon starting", "data_dir", cfg.DataDir, "peer", cfg.PeerName)
	if err := eng.Run(context.WithoutCancel(ctx)); err != nil {
		return WrapExitError(ExitFailure, "engine", err)
	}
	return nil
}

func runTicker(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !eng.Submit(eng.Ingress().Tick()) {
				return
			}
		}
	}
}

func newLogger(level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
