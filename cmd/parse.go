package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/podgen/podgen/internal/dialogue"
)

func handleParse(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	_, turns, err := parseScript(c, cfg)
	if err != nil {
		return err
	}

	for _, t := range turns {
		fmt.Println(dialogue.Summary(t))
	}
	fmt.Printf("\n%d turn(s)\n", len(turns))
	return nil
}
