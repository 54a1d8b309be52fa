package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notex/internal"
	pkgconfig "github.com/starford/notex/pkg/config"
)

var errNoInput = errors.New("input directory is required")

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file (optional)",
			DefaultText: "notex.yaml",
			Value:       "notex.yaml",
			Sources:     cli.EnvVars("NOTEX_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "index",
			Usage: "Maintain a SQLite catalog of the output tree",
			Value: true,
		},
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory",
			Value:   "./compressed",
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Model name sent to the endpoint",
			Value:   "gpt-3.5-turbo",
			Sources: cli.EnvVars("NOTEX_MODEL"),
		},
		&cli.StringFlag{
			Name:    "url",
			Usage:   "Base URL of an OpenAI-compatible API",
			Value:   "http://localhost:8080/v1",
			Sources: cli.EnvVars("NOTEX_URL"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the endpoint",
			Value:   "sk-no-key-required",
			Sources: cli.EnvVars("NOTEX_API_KEY"),
		},
		&cli.IntFlag{
			Name:    "parallel",
			Aliases: []string{"p"},
			Usage:   "Maximum concurrent model calls",
			Value:   8,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: markdown or plain",
			Value:   "markdown",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Categorize only, print the plan and write nothing",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"e"},
			Usage:   "Glob pattern to exclude (repeatable)",
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "Attempts per model call",
			Value: 3,
		},
		&cli.BoolFlag{
			Name:  "reorganize",
			Usage: "Ask the model to propose and apply file moves after writing",
		},
		&cli.BoolFlag{
			Name:  "cross-ref",
			Usage: "Ask the model to add see-also links between files",
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "HTTP port",
			Value: 8080,
		},
	}
}

// loadConfig layers defaults, the optional config file and explicitly set
// flags, in that order.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	var err error
	if cmd.IsSet("config") {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	set := func(name string, apply func()) {
		if cmd.IsSet(name) {
			apply()
		}
	}
	set("verbose", func() {
		if cmd.Bool("verbose") {
			cfg.App.LogLevel = slog.LevelDebug
		}
	})
	set("index", func() { cfg.Index.Enabled = cmd.Bool("index") })
	set("output", func() { cfg.Pipeline.Output = cmd.String("output") })
	set("model", func() { cfg.LLM.Model = cmd.String("model") })
	set("url", func() { cfg.LLM.URL = cmd.String("url") })
	set("api-key", func() { cfg.LLM.APIKey = cmd.String("api-key") })
	set("parallel", func() { cfg.Pipeline.Parallel = int(cmd.Int("parallel")) })
	set("format", func() { cfg.Pipeline.Format = cmd.String("format") })
	set("dry-run", func() { cfg.Pipeline.DryRun = cmd.Bool("dry-run") })
	set("exclude", func() { cfg.Pipeline.Exclude = append(cfg.Pipeline.Exclude, cmd.StringSlice("exclude")...) })
	set("retries", func() { cfg.LLM.Retries = int(cmd.Int("retries")) })
	set("reorganize", func() { cfg.Pipeline.Reorganize = cmd.Bool("reorganize") })
	set("cross-ref", func() { cfg.Pipeline.CrossRef = cmd.Bool("cross-ref") })
	set("port", func() { cfg.HTTP.Port = int(cmd.Int("port")) })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func inputAction(run func(context.Context, string, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		input := cmd.Args().First()
		if input == "" {
			return errNoInput
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(ctx, input, internal.WithConfig(cfg))
	}
}

func outputAction(run func(context.Context, string, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		output := cmd.Args().First()
		if output == "" {
			output = cfg.Pipeline.Output
		}
		return run(ctx, output, internal.WithConfig(cfg))
	}
}

// Root flags are inherited by the subcommands.
func main() {
	cmd := &cli.Command{
		Name:      "notex",
		Usage:     "Turn a folder of messy notes into an organized, enhanced knowledge base",
		ArgsUsage: "<input-dir>",
		Version:   internal.Version,
		Flags:     append(commonFlags(), pipelineFlags()...),
		Action:    inputAction(internal.Run),
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "Re-run the pipeline whenever the input directory changes",
				ArgsUsage: "<input-dir>",
				Action:    inputAction(internal.Watch),
			},
			{
				Name:      "serve",
				Usage:     "Serve a generated knowledge base over a read-only HTTP API",
				ArgsUsage: "[output-dir]",
				Flags:     serveFlags(),
				Action:    outputAction(internal.Serve),
			},
			{
				Name:      "mcp",
				Usage:     "Expose a generated knowledge base to MCP clients over stdio",
				ArgsUsage: "[output-dir]",
				Action:    outputAction(internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
