package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/api"
	"github.com/LurkingFox/Tradeworth-sub000/internal/app"
	"github.com/LurkingFox/Tradeworth-sub000/internal/config"
	"github.com/LurkingFox/Tradeworth-sub000/internal/importer"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/internal/version"
	"github.com/LurkingFox/Tradeworth-sub000/mocks"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

// loadConfig reads --config and applies the command line overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}

	if cmd.IsSet("db") {
		cfg.DatabasePath = cmd.String("db")
	}

	if cmd.IsSet("user") {
		cfg.UserID = cmd.String("user")
	}

	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	return cfg, cfg.Validate()
}

// openApp builds the engine from the command's configuration. The caller closes it.
func openApp(ctx context.Context, cmd *cli.Command) (*app.App, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return a, log, nil
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	raws, err := readTrades(cmd.String("file"))
	if err != nil {
		return err
	}

	a, log, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	defer log.Sync() //nolint:errcheck

	bar := progressbar.Default(int64(len(raws)), "Importing "+filepath.Base(cmd.String("file")))

	opts := a.ImportOptions()
	opts.ChunkSize = int(cmd.Int("chunk-size"))
	opts.OnProgress = optional.Some[importer.ProgressCallback](func(p types.ImportProgress) {
		_ = bar.Set(p.Processed)
	})

	if cmd.Bool("no-dedup") {
		opts.Deduplicate = false
	}

	job, err := a.Imports().Run(ctx, raws, opts)
	_ = bar.Finish()

	fmt.Println()
	fmt.Println(renderImport(job))

	return err
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	a, log, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	defer log.Sync() //nolint:errcheck

	fmt.Println(renderStatistics(a.Store().GetStatistics(), a.StartingBalance(), int(cmd.Int("pairs"))))

	if path := cmd.String("export"); path != "" {
		if err := a.ExportStatistics(path); err != nil {
			return err
		}

		fmt.Printf("Statistics exported to %s\n", path)
	}

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, log, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	defer log.Sync() //nolint:errcheck

	addr := a.Config().Server.Address
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(a, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("HTTP API listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP API")

	return server.Shutdown(shutdownCtx)
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	cfg := config.Default()

	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	dir := cmd.String("out")
	if dir == "" {
		fmt.Println(schemaJSON)

		return nil
	}

	schemaName := "tradeworth-config.json"
	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, "tradeworth-config.yaml")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	if _, err := os.Stat(sampleConfigPath); os.IsNotExist(err) {
		yamlBytes, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal sample config: %w", err)
		}

		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

		if err := os.WriteFile(sampleConfigPath, yamlBytes, 0644); err != nil {
			return fmt.Errorf("failed to write sample config: %w", err)
		}

		fmt.Printf("Sample config generated at %s\n", sampleConfigPath)
	}

	fmt.Printf("Schema generated at %s\n", schemaPath)

	return nil
}

func generateAction(_ context.Context, cmd *cli.Command) error {
	genConfig := mocks.DefaultTradeConfig()
	genConfig.Count = int(cmd.Int("count"))

	raws := mocks.NewTradeGenerator(int64(cmd.Int("seed"))).Generate(genConfig)

	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trades: %w", err)
	}

	out := cmd.String("out")
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("%d trades written to %s\n", len(raws), out)

	return nil
}

// journalFlags returns the flags of every command that opens the journal.
func journalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file",
			Sources: cli.EnvVars("TRADEWORTH_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "DuckDB database file, overrides database_path",
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "User id, overrides user_id",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "tradeworth",
		Usage:   "Trading journal analytics",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import trades from a JSON file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON file with an array of trades",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Records per persisted chunk, computed from the input when 0",
					},
					&cli.BoolFlag{
						Name:  "no-dedup",
						Usage: "Import records even when they were imported before",
					},
				}, journalFlags()...),
				Action: importAction,
			},
			{
				Name:  "stats",
				Usage: "Print the statistics report",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"e"},
						Usage:   "Also write the snapshot as YAML to this path",
					},
					&cli.IntFlag{
						Name:  "pairs",
						Usage: "Number of pairs in the breakdown, 0 for all",
						Value: 10,
					},
				}, journalFlags()...),
				Action: statsAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the HTTP API",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides server.address",
					},
				}, journalFlags()...),
				Action: serveAction,
			},
			{
				Name:  "schema",
				Usage: "Print the config JSON schema, or write it with a sample config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output directory",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "generate",
				Usage: "Write synthetic trades for testing imports",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of trades",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed",
						Value: 42,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file",
						Value:   "trades.json",
					},
				},
				Action: generateAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(ErrorStyle.Render(err.Error()))
	}
}
