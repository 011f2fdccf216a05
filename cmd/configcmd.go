package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/podgen/podgen/internal/config"
)

func handleConfigExample(ctx context.Context, c *cli.Command) error {
	fmt.Print(config.GenerateExampleConfig())
	return nil
}

func handleConfigValidate(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("config path is required")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	problems := cfg.Validate()
	if len(problems) == 0 {
		color.Green("✓ %s is valid", path)
		return nil
	}

	for _, p := range problems {
		color.Red("✗ %s", p)
	}
	return fmt.Errorf("configuration has %d problem(s)", len(problems))
}

func handleConfigShow(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("config path is required")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.MaskSecrets())
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
