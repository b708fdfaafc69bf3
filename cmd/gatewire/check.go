package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gatewire-dev/gatewire/internal/config"
	gatewireerrors "github.com/gatewire-dev/gatewire/internal/errors"
	"github.com/gatewire-dev/gatewire/pkg/rest"
)

func checkCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify credentials and show gateway limits",
		Long: `Verify the configured token against the Discord API and print the
recommended shard count and the remaining session starts.

Run this before deploying: it catches a bad token, missing
configuration, and an exhausted session start limit without
consuming a gateway identify.

Examples:
  gatewire check
  GATEWIRE_TOKEN=... gatewire check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "API request timeout")

	return cmd
}

func runCheck(timeout time.Duration) error {
	_ = godotenv.Load()

	cfg, err := config.Resolve(".")
	if err != nil {
		return err
	}

	opts := []rest.Option{rest.WithLogger(cfg.NewLogger(os.Stderr))}
	if cfg.APIURL != "" {
		opts = append(opts, rest.WithBaseURL(cfg.APIURL))
	}
	client := rest.NewClient(cfg.Token, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bg, err := client.BotGateway(ctx)
	if err != nil {
		return checkError(err)
	}

	printBanner()
	success("Token accepted")
	fmt.Println()
	info("Token:              %s", rest.Redact(cfg.Token))
	info("Gateway URL:        %s", bg.URL)
	info("Recommended shards: %d", bg.Shards)
	info("Session starts:     %d of %d remaining",
		bg.SessionStartLimit.Remaining, bg.SessionStartLimit.Total)
	info("Limit resets in:    %s",
		(time.Duration(bg.SessionStartLimit.ResetAfter) * time.Millisecond).Round(time.Second))
	info("Max concurrency:    %d", bg.SessionStartLimit.MaxConcurrency)

	if bg.SessionStartLimit.Remaining == 0 {
		fmt.Println()
		return gatewireerrors.New("E112")
	}
	if bg.SessionStartLimit.Remaining < bg.Shards {
		fmt.Println()
		warn("Fewer session starts remaining than recommended shards")
	}
	return nil
}

// checkError distinguishes a rejected token from an unreachable API.
func checkError(err error) error {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
		return gatewireerrors.New("E120").Wrap(err)
	}
	return gatewireerrors.New("E110").Wrap(err)
}
