// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/tradevec"
	"github.com/poiesic/tradevec/ai"
	"github.com/poiesic/tradevec/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runner carries the resolved configuration from the Before hook to the
// command actions.
type runner struct {
	cfg *config.Config
}

func newApp() *cli.App {
	r := &runner{}
	return &cli.App{
		Name:  "tradevec",
		Usage: "Ingest trade records into a vector store and search them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Embedding provider (openai, ollama, mock)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.IntFlag{
				Name:  "dimension",
				Usage: "Embedding dimension (0 asks the provider)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of texts per embedding call",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of embedding batches in flight",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Vector store backend (badger, sqlite, postgres)",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "Directory of the badger or sqlite store",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "PostgreSQL connection string for the postgres backend",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Vector collection name",
			},
			&cli.StringFlag{
				Name:  "raw-dir",
				Usage: "Directory of pending raw files",
			},
			&cli.StringFlag{
				Name:  "processed-dir",
				Usage: "Directory committed files are moved to",
			},
		},
		Before: r.before,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Embed and store every pending raw file",
				Action: r.ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and ingest new files as they arrive",
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period after a file event before ingesting",
						Value: 2 * time.Second,
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print per-file progress",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find stored records similar to a question",
				ArgsUsage: "QUERY",
				Action:    r.searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Metadata condition such as hs_code=851712, date>=2024-01-01 or flow=in:Import|Export",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Drop results below this cosine similarity",
						Value: -1,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show vector count, intake directories and the commit journal",
				Action: r.statsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "recent",
						Usage: "Number of recent commits to list",
						Value: 10,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed every stored entry with the configured provider",
				Action: r.reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Entries read, embedded and written at a time",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print progress",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Write sample raw files into the raw directory",
				Action: r.seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hs-code",
						Usage: "HS code of the sample records",
						Value: "851712",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of file pairs to write",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "records",
						Usage: "Records per file",
						Value: 5,
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Random seed (0 uses the current time)",
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: r.configCommand,
			},
		},
	}
}

// before resolves the configuration and installs the logger.
func (r *runner) before(c *cli.Context) error {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	cfg.Apply(flagOptions(c)...)
	r.cfg = cfg
	return setupLogger(cfg.LogLevel)
}

// flagOptions turns explicitly set global flags into config options.
func flagOptions(c *cli.Context) []config.Option {
	var opts []config.Option
	str := func(name string, opt func(string) config.Option) {
		if c.IsSet(name) {
			opts = append(opts, opt(c.String(name)))
		}
	}
	num := func(name string, opt func(int) config.Option) {
		if c.IsSet(name) {
			opts = append(opts, opt(c.Int(name)))
		}
	}

	str("log-level", config.WithLogLevel)
	str("provider", func(s string) config.Option { return config.WithProvider(ai.ProviderKind(strings.ToLower(s))) })
	str("embedding-host", config.WithHost)
	str("embedding-model", config.WithModel)
	num("dimension", config.WithDimension)
	num("batch-size", config.WithBatchSize)
	num("concurrency", config.WithConcurrency)
	str("backend", func(s string) config.Option { return config.WithBackend(config.Backend(strings.ToLower(s))) })
	str("store-path", config.WithStorePath)
	str("dsn", config.WithDSN)
	str("collection", config.WithCollection)
	str("raw-dir", config.WithRawDir)
	str("processed-dir", config.WithProcessedDir)
	return opts
}

func (r *runner) openDatabase(c *cli.Context) (*tradevec.Database, error) {
	return tradevec.Open(c.Context, r.cfg)
}

func setupLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)
	if levelStr == "" {
		levelStr = "info"
	}

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
