// Package main is the Chizu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/config"
	"github.com/hyperjump/chizu/internal/embedding"
	"github.com/hyperjump/chizu/internal/generation"
	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/pipeline"
	"github.com/hyperjump/chizu/internal/server"
	"github.com/hyperjump/chizu/internal/store"
	"github.com/hyperjump/chizu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chizu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "export":
		runExport()
	case "import":
		runImport()
	case "version", "--version", "-v":
		fmt.Printf("chizu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`chizu - dataset mapping and retrieval engine

Usage:
  chizu process -input <file.jsonl> [-name <name>] [-config <path>]
  chizu search -query <text> [-type lexical|semantic] [-k <n>]
  chizu ask -question <text> [-scope <id,...>]
  chizu export -output <file.json>
  chizu import -input <file.json>
  chizu server [-config <path>] [-debug]
  chizu version`)
}

// newEngine wires the pipeline with the mock encoder and generator. Real
// providers are swapped in via config when an API key is present.
func newEngine(cfg *config.Config, logger *zap.Logger) (*pipeline.Engine, error) {
	enc := embedding.NewMockEncoder(cfg.Embedding.Dimensions)

	var gen generation.Generator
	if key := os.Getenv("CHIZU_API_KEY"); key != "" {
		gen = generation.NewOpenAIGenerator(key, os.Getenv("CHIZU_API_BASE"), envOr("CHIZU_MODEL", "gpt-4o-mini"))
	} else {
		gen = generation.NewMockGenerator()
	}

	blobs, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	return pipeline.NewEngine(cfg, enc, gen,
		pipeline.WithLogger(logger),
		pipeline.WithBlobStore(blobs))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setup(configPath string, debugFlag bool) (*config.Config, *pipeline.Engine, *zap.Logger) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))

	engine, err := newEngine(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}
	return cfg, engine, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, engine, logger := setup(*configPath, *debug)
	defer logger.Sync()
	defer engine.Close()

	srv := server.NewServer(engine, &cfg.Server, logger)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	inputPath := fs.String("input", "", "JSON lines file, one document per line")
	name := fs.String("name", "dataset", "dataset name")
	_ = fs.Parse(os.Args[2:])

	if *inputPath == "" {
		fmt.Println("process requires -input")
		os.Exit(1)
	}
	_, engine, logger := setup(*configPath, false)
	defer logger.Sync()
	defer engine.Close()

	inputs, err := readDocuments(*inputPath)
	if err != nil {
		fmt.Printf("Failed to read documents: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	summary, err := engine.ProcessDataset(ctx, *name, inputs, func(stage string, f float64) {
		logger.Debug("progress", zap.String("stage", stage), zap.Float64("fraction", f))
	})
	if err != nil {
		fmt.Printf("Processing failed: %v\n", err)
		os.Exit(1)
	}

	id, err := engine.SaveDataset(ctx)
	if err != nil {
		fmt.Printf("Failed to save dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Processed %d documents into %d chunks (%d clusters, %d noise)\n",
		summary.DocumentCount, summary.ChunkCount, summary.ClusterCount, summary.NoiseCount)
	if summary.DroppedEmpty > 0 || summary.DroppedDuplicates > 0 {
		fmt.Printf("Dropped %d empty and %d duplicate documents\n",
			summary.DroppedEmpty, summary.DroppedDuplicates)
	}
	for _, w := range summary.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Printf("Saved dataset %s\n", id)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	query := fs.String("query", "", "search query")
	searchType := fs.String("type", "lexical", "search type: lexical or semantic")
	k := fs.Int("k", 10, "number of results")
	dataset := fs.String("dataset", "", "dataset ID to load")
	_ = fs.Parse(os.Args[2:])

	if *query == "" {
		fmt.Println("search requires -query")
		os.Exit(1)
	}
	_, engine, logger := setup(*configPath, false)
	defer logger.Sync()
	defer engine.Close()

	ctx := context.Background()
	mustLoadDataset(ctx, engine, *dataset)

	results, err := engine.Search(ctx, &models.SearchQuery{
		Query: *query,
		Type:  models.SearchType(*searchType),
		K:     *k,
	})
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	for _, r := range results {
		fmt.Printf("%2d. [%.4f] %s\n    %s\n", r.Rank, r.Score, r.ID, utils.Truncate(r.Text, 120))
	}
	if len(results) == 0 {
		fmt.Println("No results")
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	question := fs.String("question", "", "question to answer")
	dataset := fs.String("dataset", "", "dataset ID to load")
	_ = fs.Parse(os.Args[2:])

	if *question == "" {
		fmt.Println("ask requires -question")
		os.Exit(1)
	}
	_, engine, logger := setup(*configPath, false)
	defer logger.Sync()
	defer engine.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT)
	defer cancel()
	mustLoadDataset(ctx, engine, *dataset)

	answer, err := engine.AskQuestionStream(ctx, &models.AskRequest{Question: *question}, func(fragment string) error {
		fmt.Print(fragment)
		return nil
	})
	if err != nil {
		fmt.Printf("Ask failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()
	if answer.Cancelled {
		fmt.Println("(cancelled)")
	}
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			fmt.Printf("  %s (from %s)\n", src.ChunkID, src.ParentID)
		}
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "output archive path")
	dataset := fs.String("dataset", "", "dataset ID to load")
	_ = fs.Parse(os.Args[2:])

	if *output == "" {
		fmt.Println("export requires -output")
		os.Exit(1)
	}
	_, engine, logger := setup(*configPath, false)
	defer logger.Sync()
	defer engine.Close()

	mustLoadDataset(context.Background(), engine, *dataset)

	data, err := engine.ExportDataset()
	if err != nil {
		fmt.Printf("Export failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Printf("Failed to write archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported dataset to %s\n", *output)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "archive path to import")
	_ = fs.Parse(os.Args[2:])

	if *input == "" {
		fmt.Println("import requires -input")
		os.Exit(1)
	}
	_, engine, logger := setup(*configPath, false)
	defer logger.Sync()
	defer engine.Close()

	data, err := os.ReadFile(*input)
	if err != nil {
		fmt.Printf("Failed to read archive: %v\n", err)
		os.Exit(1)
	}
	if err := engine.ImportDataset(data); err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	id, err := engine.SaveDataset(context.Background())
	if err != nil {
		fmt.Printf("Failed to save imported dataset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported dataset %s\n", id)
}

// mustLoadDataset loads the named dataset, or the only stored one when the
// ID is omitted.
func mustLoadDataset(ctx context.Context, engine *pipeline.Engine, datasetID string) {
	if datasetID == "" {
		fmt.Println("No dataset specified; use -dataset <id> from a previous process run")
		os.Exit(1)
	}
	if err := engine.LoadDataset(ctx, datasetID); err != nil {
		fmt.Printf("Failed to load dataset %s: %v\n", datasetID, err)
		os.Exit(1)
	}
}

// readDocuments parses a JSON lines file: each line is one DocumentInput.
// A leading '[' switches to whole-file JSON array parsing.
func readDocuments(path string) ([]models.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var inputs []models.DocumentInput
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("failed to parse document array: %w", err)
		}
		return inputs, nil
	}

	var inputs []models.DocumentInput
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var in models.DocumentInput
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("failed to parse document line %d: %w", len(inputs)+1, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
