// Package main is the efsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/greenbase/efsearch/internal/cli"
	"github.com/greenbase/efsearch/internal/config"
	"github.com/greenbase/efsearch/internal/corpus"
	"github.com/greenbase/efsearch/internal/embedding"
	"github.com/greenbase/efsearch/internal/search"
	"github.com/greenbase/efsearch/internal/server"
	"github.com/greenbase/efsearch/internal/vecadmin"
	"github.com/greenbase/efsearch/internal/watcher"
	"github.com/greenbase/efsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "reload":
		runReload()
	case "collection":
		runCollection()
	case "version", "--version", "-v":
		fmt.Printf("efsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	// Provider credentials (AWS keys, OPENAI_API_KEY) may live in a .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", *configPath),
		zap.String("data_dir", cfg.Corpus.DataDir),
		zap.String("provider", cfg.Embedding.Provider),
		zap.Bool("debug", debugMode),
	)

	embedder, err := newEmbedder(context.Background(), &cfg.Embedding)
	if err != nil {
		logger.Fatal("Failed to create embedding provider", zap.Error(err))
	}

	loader := corpus.NewLoader(cfg.Corpus.DataDir, logger)
	service := search.NewService(loader, embedder, logger)

	// Build the index eagerly; on failure the service stays uninitialized and
	// the first search request retries the same path.
	if err := service.Initialize(context.Background()); err != nil {
		logger.Warn("initial index build failed; will retry on first request", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Corpus.Watch {
		w := watcher.New(cfg.Corpus.DataDir, 0, func() {
			if err := service.Reload(context.Background()); err != nil {
				logger.Warn("watch-triggered reload failed", zap.Error(err))
			}
		}, logger)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(service, &cfg.Server, &cfg.Search, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newEmbedder builds the configured embedding provider.
func newEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "bedrock":
		return embedding.NewBedrockEmbedder(ctx, cfg.Region, cfg.Model, cfg.RequestsPerSecond)
	case "openai":
		return embedding.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), cfg.BaseURL, cfg.Model, cfg.RequestsPerSecond)
	case "mock":
		return embedding.NewMockEmbedder(cfg.MockDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want bedrock, openai, or mock)", cfg.Provider)
	}
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: efsearch search [flags] <query>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	body, _ := json.Marshal(server.SearchRequest{Query: query, TopK: *topK})
	resp, err := http.Post(*serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Search failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var response search.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteResults(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var st search.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/reload", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Reload failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Reloaded: %s\n", strings.TrimSpace(string(b)))
}

func runCollection() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: efsearch collection <ensure|drop> [flags]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("collection", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dims := fs.Int("dims", 1536, "vector dimension (ensure only)")
	_ = fs.Parse(os.Args[3:])

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	client, err := vecadmin.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	switch sub {
	case "ensure":
		if err := client.Ensure(ctx, *dims); err != nil {
			fmt.Printf("Ensure failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Collection %s ready\n", cfg.Qdrant.Collection)
	case "drop":
		if err := client.Drop(ctx); err != nil {
			fmt.Printf("Drop failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Collection %s dropped\n", cfg.Qdrant.Collection)
	default:
		fmt.Printf("Unknown collection subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func printUsage() {
	fmt.Println(`efsearch - Emission factor semantic search

Usage:
  efsearch server [flags]               Start the HTTP server
  efsearch search [flags] <query>       Search emission factors
  efsearch status [flags]               Show service status
  efsearch reload [flags]               Rebuild the index from the data directory
  efsearch collection <ensure|drop>     Manage the managed vector-db collection
  efsearch version                      Show version
  efsearch help                         Show this help

Server Flags:
  --config string    Config file path (default: config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080)
  --top-k int        Number of results (0 = server default)
  --output string    Output format: text or json (default: text)

Examples:
  efsearch server
  efsearch search "diesel combustion road transport"
  efsearch search --top-k 10 --output json methane livestock
  efsearch reload
  efsearch collection drop`)
}
