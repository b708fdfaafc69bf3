package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gatewire-dev/gatewire/internal/config"
	"github.com/gatewire-dev/gatewire/internal/debug"
	"github.com/gatewire-dev/gatewire/internal/errors"
	"github.com/gatewire-dev/gatewire/pkg/gateway"
	"github.com/gatewire-dev/gatewire/pkg/protocol"
	"github.com/gatewire-dev/gatewire/pkg/rest"
)

func runCmd() *cobra.Command {
	var (
		shards    int
		debugAddr string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and stream events",
		Long: `Connect to the Discord gateway and keep the connection alive.

Configuration comes from gatewire.json in the current directory,
overlaid with GATEWIRE_* environment variables (a .env file is
loaded if present), then with command-line flags.

The process stays connected until interrupted:
  • Resumes dropped connections instead of re-identifying
  • Detects zombied connections through heartbeat acknowledgements
  • Paces shard handshakes to the gateway's identify limit
  • Exposes /metrics and /debug/sessions when debug is enabled

Examples:
  gatewire run
  gatewire run --shards=4
  gatewire run --debug-addr=127.0.0.1:6060`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(shards, debugAddr, logLevel)
		},
	}

	cmd.Flags().IntVar(&shards, "shards", -1, "Shard count, 0 asks the API (default from gatewire.json)")
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "Serve debug endpoints on this address")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from gatewire.json)")

	return cmd
}

func runRun(shards int, debugAddr, logLevel string) error {
	// A .env file is a convenience for local runs; deployments set
	// GATEWIRE_* directly.
	_ = godotenv.Load()

	cfg, err := config.Resolve(".")
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if shards >= 0 {
		cfg.Shards = shards
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if debugAddr != "" {
		cfg.Debug.Enabled = true
		cfg.Debug.Addr = debugAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)

	printBanner()
	fmt.Println("  run")
	fmt.Println()

	session := gateway.DefaultConfig().
		WithToken(cfg.Token).
		WithLogger(logger)
	// Intents zero means "library default", not "no events".
	if cfg.Intents != 0 {
		session.Intents = protocol.Intents(cfg.Intents)
	}
	session.Presence = presenceFromConfig(cfg.Presence)

	if cfg.GatewayURL != "" {
		session.GatewayURL = cfg.GatewayURL
	} else {
		opts := []rest.Option{rest.WithLogger(logger)}
		if cfg.APIURL != "" {
			opts = append(opts, rest.WithBaseURL(cfg.APIURL))
		}
		session.Resolver = rest.NewClient(cfg.Token, opts...)
	}

	gateway.EnableMetrics()

	mgr, err := gateway.NewManager(&gateway.ManagerConfig{
		Session: session,
		Shards:  cfg.Shards,
		Logger:  logger,
	})
	if err != nil {
		return errors.FromError(err, "E111")
	}

	// A terminal close (bad token, disallowed intents) stops the
	// retry ladder; surface it as the process exit error.
	fatalCh := make(chan error, 1)

	mgr.On(gateway.EventReady, func(e gateway.Event) {
		if r, ok := e.Data.(*gateway.ReadyData); ok {
			logger.Info("shard ready",
				"shard", e.Shard,
				"session_id", r.SessionID,
				"guilds", len(r.Guilds))
		}
	})
	mgr.On(gateway.EventResumed, func(e gateway.Event) {
		logger.Info("shard resumed", "shard", e.Shard, "seq", e.Seq)
	})
	mgr.On(gateway.EventClose, func(e gateway.Event) {
		ci, ok := e.Data.(gateway.CloseInfo)
		if !ok || !ci.Fatal {
			return
		}
		select {
		case fatalCh <- fatalCloseError(ci):
		default:
		}
	})
	mgr.OnAny(func(e gateway.Event) {
		logger.Debug("event", "shard", e.Shard, "name", e.Name, "seq", e.Seq)
	})

	var dbg *debug.Server
	if cfg.Debug.Enabled {
		dbg = debug.NewServer(cfg.Debug.Addr, mgr, logger)
		if err := dbg.Start(); err != nil {
			return errors.New("E130").Wrap(err)
		}
		info("Debug server on http://%s", dbg.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := mgr.Open(ctx); err != nil {
		return errors.FromError(err, "E111")
	}
	success("%d shard(s) connected", len(mgr.Sessions()))
	info("Press Ctrl+C to stop")
	fmt.Println()

	var runErr error
	select {
	case <-sigCh:
		fmt.Println("\n  Shutting down...")
	case runErr = <-fatalCh:
	}

	_ = mgr.Close()
	if dbg != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = dbg.Shutdown(shutCtx)
		shutCancel()
	}
	if runErr != nil {
		return runErr
	}
	success("Disconnected cleanly")
	return nil
}

// fatalCloseError maps a terminal close to its CLI error code.
func fatalCloseError(ci gateway.CloseInfo) error {
	code := "E113"
	switch protocol.CloseCode(ci.Code) {
	case protocol.CloseAuthenticationFailed:
		code = "E120"
	case protocol.CloseDisallowedIntents:
		code = "E121"
	case protocol.CloseInvalidIntents:
		code = "E122"
	case protocol.CloseShardingRequired:
		code = "E123"
	}
	werr := errors.New(code)
	if ci.Err != nil {
		return werr.Wrap(ci.Err)
	}
	return werr.Wrap(&gateway.CloseError{Code: ci.Code, Reason: ci.Reason, Fatal: true})
}

// presenceFromConfig converts the configured presence to its identify
// payload form. The resolved default (online, no activity, not AFK)
// matches what the gateway assumes anyway, so nothing is sent for it.
func presenceFromConfig(pc config.PresenceConfig) *protocol.PresenceUpdate {
	if (pc.Status == "" || pc.Status == config.DefaultStatus) && pc.Activity == "" && !pc.AFK {
		return nil
	}
	p := &protocol.PresenceUpdate{
		Status: protocol.Status(pc.Status),
		AFK:    pc.AFK,
	}
	if pc.Activity != "" {
		p.Activities = []protocol.Activity{{Name: pc.Activity, Type: protocol.ActivityPlaying}}
	}
	return p
}
