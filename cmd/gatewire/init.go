package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gatewire-dev/gatewire/internal/config"
	"github.com/gatewire-dev/gatewire/internal/errors"
	"github.com/gatewire-dev/gatewire/pkg/protocol"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter gatewire.json",
		Long: `Create a gatewire.json with default settings in the current
directory.

The token is never written to the file. Set GATEWIRE_TOKEN in the
environment or in a .env file next to the config.

Examples:
  gatewire init
  gatewire init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing gatewire.json")

	return cmd
}

func runInit(force bool) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	if config.Exists(dir) && !force {
		return errors.Newf(errors.CategoryConfig,
			"%s already exists, pass --force to overwrite", config.ConfigFileName)
	}

	cfg := config.New()
	// Spell the default intents out so the file shows which knob to
	// turn when a bot needs more event groups.
	cfg.Intents = uint32(protocol.IntentsDefault)
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return err
	}

	success("Created %s", config.ConfigFileName)
	info("Set GATEWIRE_TOKEN, then try 'gatewire check'")
	return nil
}
