package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/podgen/podgen/internal/tts"
)

func handleVoices(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if p := c.String("provider"); p != "" {
		cfg.Provider = p
	}

	provider, err := tts.New(ctx, cfg)
	if err != nil {
		return err
	}

	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("provider '%s' is not available (check credentials)", provider.Name())
	}

	voices, err := provider.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	fmt.Printf("Available voices for %s:\n\n", provider.Name())
	for _, v := range voices {
		details := v.Language
		if v.Gender != "" {
			details += ", " + v.Gender
		}
		if v.Description != "" {
			details += " - " + v.Description
		}
		fmt.Printf("  %-28s %s\n", v.ID, details)
	}
	return nil
}
