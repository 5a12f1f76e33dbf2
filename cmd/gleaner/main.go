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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/config"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/server"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gleaner",
		Usage: "Extract structured study records from web sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML configuration file",
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the ingestion HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides config)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a URL and print the extracted record",
				ArgsUsage: "<url>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					dbFlag(),
					communityFlag(),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source ID (a new UUID if empty)",
					},
					&cli.IntFlag{
						Name:  "report-every",
						Usage: "Report progress every N chunks",
						Value: 1,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show a source's job and record",
				Action: statusCommand,
				Flags:  []cli.Flag{dbFlag(), communityFlag(), sourceFlag()},
			},
			{
				Name:   "list",
				Usage:  "List a community's sources",
				Action: listCommand,
				Flags: []cli.Flag{
					dbFlag(),
					communityFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum sources to show (0 for all)",
						Value: server.DefaultListLimit,
					},
					&cli.StringFlag{
						Name:  "cursor",
						Usage: "Continue after this source ID",
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a finished source and its record",
				Action: deleteCommand,
				Flags:  []cli.Flag{dbFlag(), communityFlag(), sourceFlag()},
			},
			{
				Name:      "scrape",
				Usage:     "Fetch a URL and print its normalized text",
				ArgsUsage: "<url>",
				Action:    scrapeCommand,
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (overrides config)",
	}
}

func communityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "community",
		Aliases:  []string{"c"},
		Usage:    "Community that owns the sources",
		Required: true,
	}
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "source",
		Aliases:  []string{"s"},
		Usage:    "Source ID",
		Required: true,
	}
}

// loadConfig reads the configuration and applies command flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	return cfg, nil
}

// openGleaner opens the database described by the configuration.
func openGleaner(cfg *config.Config) (*gleaner.Gleaner, error) {
	g, err := gleaner.Open(cfg.Storage.Path,
		gleaner.WithAIConfig(cfg.AIConfig()),
		gleaner.WithFetchOptions(fetchOptions(cfg)...),
		gleaner.WithPipelineOptions(
			ingestion.WithPoolSize(cfg.Pipeline.PoolSize),
			ingestion.WithChunkConcurrency(cfg.Pipeline.ChunkConcurrency),
			ingestion.WithMaxChunkLength(cfg.Pipeline.MaxChunkLength),
		),
		gleaner.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return g, nil
}

func fetchOptions(cfg *config.Config) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
	}
	if cfg.Fetch.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(cfg.Fetch.UserAgent))
	}
	return opts
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	g, err := openGleaner(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(os.Stderr, "Extraction model: %s\n", cfg.AI.ExtractionModel)
	fmt.Fprintf(os.Stderr, "Cleanup model: %s\n", cfg.AI.CleanupModel)
	fmt.Fprintln(os.Stderr)

	return server.New(g, server.WithLogger(slog.Default())).ListenAndServe(ctx, addr)
}

func ingestCommand(c *cli.Context) error {
	url := c.Args().First()
	if url == "" {
		return fmt.Errorf("url argument is required")
	}
	if c.Int("report-every") <= 0 {
		return fmt.Errorf("report-every must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGleaner(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	tracker := ingestion.NewProgressTracker(os.Stderr, c.Int("report-every"))
	job, record, err := g.Ingest(c.Context, c.String("community"), url, &ingestion.IngestOptions{
		SourceID: c.String("source"),
		Progress: tracker.Observe,
	})
	tracker.Finish()
	if err != nil {
		if job != nil {
			return fmt.Errorf("ingestion of source %s failed: %w", job.SourceID, err)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Source: %s (%d/%d chunks, cleaned=%t)\n",
		job.SourceID, job.ChunksProcessed, job.ChunkCount, job.Cleaned)
	return printJSON(c.App.Writer, record)
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGleaner(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	report, err := g.Query(c.Context, c.String("community"), c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to query source: %w", err)
	}
	return printJSON(c.App.Writer, report)
}

func listCommand(c *cli.Context) error {
	if c.Int("limit") < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGleaner(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	jobs, next, err := g.List(c.Context, c.String("community"), c.Int("limit"), c.String("cursor"))
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	w := c.App.Writer
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s", job.SourceID, job.Status, job.URL)
		if job.Failure != "" {
			fmt.Fprintf(w, "\t%s", job.Failure)
		}
		fmt.Fprintln(w)
	}
	if next != "" {
		fmt.Fprintf(os.Stderr, "More sources follow; continue with --cursor %s\n", next)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGleaner(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Delete(c.Context, c.String("community"), c.String("source")); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

func scrapeCommand(c *cli.Context) error {
	url := c.Args().First()
	if url == "" {
		return fmt.Errorf("url argument is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := append(fetchOptions(cfg), fetch.WithLogger(slog.Default()))
	text, err := fetch.NewHTTPNormalizer(opts...).FetchAndNormalize(c.Context, url)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// logCloser closes the log file opened by setupLogger.
var logCloser = func() error { return nil }

func setupLogger(c *cli.Context) error {
	levelStr := c.String("log-level")
	logFile := c.String("log-file")

	// Flags win over the log section of the config file
	if path := c.String("config"); path != "" && (levelStr == "" || logFile == "") {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if levelStr == "" {
			levelStr = cfg.Log.Level
		}
		if logFile == "" {
			logFile = cfg.Log.File
		}
	}

	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		return err
	}

	logger, closeFn := config.SetupLogger(logFile, level)
	logCloser = closeFn
	slog.SetDefault(logger)

	return nil
}

func closeLogger(c *cli.Context) error {
	return logCloser()
}
