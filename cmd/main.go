package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "podgen",
		Usage: "Generate podcast audio and video from Markdown dialogue scripts",
		Description: `podgen reads a two-speaker dialogue script written in triple-hash
Markdown blocks, synthesizes each turn with a cloud TTS vendor, and
optionally composes the result into a subtitled MP4.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "synth",
				Usage:     "Synthesize audio for every turn in a script",
				Action:    handleSynth,
				Aliases:   []string{"s"},
				ArgsUsage: "<script.md>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (overrides config, disables timestamp subdir)",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "TTS provider: qwen, siliconflow, minimax, polly, gcp",
					},
					&cli.IntFlag{
						Name:  "start",
						Usage: "First turn number to synthesize (1-based, inclusive)",
					},
					&cli.IntFlag{
						Name:  "end",
						Usage: "Last turn number to synthesize (1-based, inclusive)",
					},
					&cli.BoolFlag{
						Name:  "no-mood",
						Usage: "Disable mood-derived prosody overrides",
					},
					&cli.BoolFlag{
						Name:  "no-merge",
						Usage: "Skip merging clips into a single track",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Parse and print the plan without calling the vendor",
					},
				},
			},
			{
				Name:      "parse",
				Usage:     "Parse a script and print the turn list",
				Action:    handleParse,
				Aliases:   []string{"p"},
				ArgsUsage: "<script.md>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
				},
			},
			{
				Name:      "video",
				Usage:     "Compose synthesized clips into a subtitled MP4",
				Action:    handleVideo,
				Aliases:   []string{"v"},
				ArgsUsage: "<script.md>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
					&cli.StringFlag{
						Name:  "audio-dir",
						Usage: "Directory holding the synthesized clips (default: output dir from config)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output video path (default: <prefix>.mp4)",
					},
				},
			},
			{
				Name:   "voices",
				Usage:  "List available voices for the selected provider",
				Action: handleVoices,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "TTS provider: qwen, siliconflow, minimax, polly, gcp",
					},
				},
			},
			{
				Name:  "config",
				Usage: "Manage configuration",
				Commands: []*cli.Command{
					{
						Name:   "example",
						Usage:  "Print an example configuration",
						Action: handleConfigExample,
					},
					{
						Name:      "validate",
						Usage:     "Check a configuration file for problems",
						Action:    handleConfigValidate,
						ArgsUsage: "<config.yaml>",
					},
					{
						Name:      "show",
						Usage:     "Print a configuration with secrets masked",
						Action:    handleConfigShow,
						ArgsUsage: "<config.yaml>",
					},
				},
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}
