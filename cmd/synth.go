package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/podgen/podgen/internal/config"
	"github.com/podgen/podgen/internal/dialogue"
	"github.com/podgen/podgen/internal/synth"
	"github.com/podgen/podgen/internal/tts"
)

// loadConfig reads the --config file, falling back to built-in defaults.
func loadConfig(c *cli.Command) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// parserOptions maps the configuration onto the script parser's knobs.
func parserOptions(cfg *config.Config) dialogue.Options {
	return dialogue.Options{
		DefaultEmotion:    dialogue.Emotion(cfg.Emotion.DefaultEmotion),
		UseEmotion:        cfg.Emotion.UseEmotion,
		RemoveParentheses: cfg.Text.RemoveParentheses,
		LocalizeFigures:   cfg.Text.LocalizeFigures,
	}
}

// parseScript reads and parses the script named by the first CLI argument.
func parseScript(c *cli.Command, cfg *config.Config) (string, []dialogue.Turn, error) {
	script := c.Args().First()
	if script == "" {
		return "", nil, fmt.Errorf("script path is required (see --help)")
	}

	raw, err := os.ReadFile(script)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read script: %w", err)
	}

	parser, err := dialogue.NewParser(parserOptions(cfg))
	if err != nil {
		return "", nil, err
	}

	turns, err := parser.Parse(string(raw))
	if err != nil {
		return "", nil, err
	}
	if len(turns) == 0 {
		return "", nil, fmt.Errorf("no dialogue blocks found in %s", script)
	}
	return string(raw), turns, nil
}

func handleSynth(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if p := c.String("provider"); p != "" {
		cfg.Provider = p
	}
	if out := c.String("output"); out != "" {
		cfg.Output.OutputDir = out
		cfg.Output.UseTimestampSubdir = false
	}
	if c.Bool("no-mood") {
		cfg.Mood.Enable = false
	}
	if c.Bool("no-merge") {
		cfg.Output.MergeAudio = false
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Error().Msg(p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	document, turns, err := parseScript(c, cfg)
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		fmt.Printf("Provider: %s (model: %s)\n", cfg.Provider, cfg.API.Model)
		fmt.Printf("Turns: %d\n\n", len(turns))
		for _, t := range turns {
			fmt.Println(dialogue.Summary(t))
		}
		return nil
	}

	provider, err := tts.New(ctx, cfg)
	if err != nil {
		return err
	}

	outDir := synth.ResolveOutputDir(cfg, time.Now())
	log.Info().Str("provider", provider.Name()).Str("dir", outDir).Int("turns", len(turns)).Msg("Starting synthesis")

	d := synth.NewDispatcher(cfg, provider)
	d.OnEvent = printProgress(len(turns))

	result, err := d.Run(ctx, turns, synth.RunOptions{
		Document: document,
		OutDir:   outDir,
		Start:    int(c.Int("start")),
		End:      int(c.Int("end")),
	})
	if err != nil {
		return err
	}

	color.Green("✓ %d clip(s) written to %s", len(result.Files), outDir)
	if result.Merged != "" {
		color.Green("✓ merged track: %s", result.Merged)
	}
	return nil
}

// printProgress renders one line per turn as workers finish. The dispatcher
// calls the handler from concurrent goroutines.
func printProgress(total int) func(synth.Event) {
	var mu sync.Mutex
	return func(e synth.Event) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case e.Err != nil:
			color.Red("✗ [%03d/%03d] %s: %v", e.Turn.Number(), total, e.Turn.Speaker, e.Err)
		case e.Skipped:
			color.Yellow("- [%03d/%03d] %s (already exists)", e.Turn.Number(), total, e.Turn.Speaker)
		default:
			color.Green("✓ [%03d/%03d] %s %s", e.Turn.Number(), total, e.Turn.Speaker, truncateText(e.Turn.Text, 30))
		}
	}
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
