package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/podgen/podgen/internal/audio"
	"github.com/podgen/podgen/internal/video"
)

func handleVideo(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	_, turns, err := parseScript(c, cfg)
	if err != nil {
		return err
	}

	audioDir := c.String("audio-dir")
	if audioDir == "" {
		audioDir = cfg.Output.OutputDir
	}

	composer, err := video.NewComposer(cfg)
	if err != nil {
		return err
	}

	clips, err := composer.MatchClips(ctx, turns, audioDir)
	if err != nil {
		return err
	}

	// The video sound track is the merged dialogue. Build it from the clips
	// when a previous synth run did not leave one behind.
	audioPath := filepath.Join(audioDir, fmt.Sprintf("%s_complete.%s", cfg.Output.Prefix, cfg.Output.Format))
	if _, err := os.Stat(audioPath); err != nil {
		if cfg.Output.Format != "wav" {
			return fmt.Errorf("merged track %s not found; run synth with merging enabled", audioPath)
		}
		files := make([]string, 0, len(clips))
		for _, clip := range clips {
			files = append(files, clip.Path)
		}
		if err := audio.MergeWAV(files, audioPath, cfg.Output.SilenceBetween); err != nil {
			return fmt.Errorf("failed to merge audio: %w", err)
		}
	}

	output := c.String("output")
	if output == "" {
		output = cfg.Output.Prefix + ".mp4"
	}

	if err := composer.Compose(ctx, clips, audioPath, output); err != nil {
		return err
	}

	color.Green("✓ video written to %s", output)
	return nil
}
