// Package main is the Erabu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/hyperjump/erabu/internal/caption"
	"github.com/hyperjump/erabu/internal/catalog"
	"github.com/hyperjump/erabu/internal/config"
	"github.com/hyperjump/erabu/internal/encoder"
	"github.com/hyperjump/erabu/internal/models"
	"github.com/hyperjump/erabu/internal/recommend"
	"github.com/hyperjump/erabu/internal/server"
	"github.com/hyperjump/erabu/internal/vector"
	"github.com/hyperjump/erabu/internal/watcher"
	"github.com/hyperjump/erabu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/erabu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "erabu server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
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
	case "recommend":
		runRecommend()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("erabu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (catalog ingestion, query details, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reload := func(ctx context.Context) error {
		cat, index, err := components.Ingestor.Run(ctx)
		if err != nil {
			return err
		}
		components.Engine.Install(&recommend.State{Index: index, Catalog: cat})
		return nil
	}
	if err := reload(context.Background()); err != nil {
		logger.Fatal("Failed to ingest catalog", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Catalog.Watch {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Catalog.MetadataPath, func() {
			// A failed rebuild keeps the previous snapshot serving.
			if err := reload(watchCtx); err != nil {
				logger.Warn("catalog reload failed, keeping previous snapshot", zap.Error(err))
				return
			}
			logger.Info("catalog reloaded")
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start catalog watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Engine, cfg, logger)
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

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the pipeline locally)")
	prompt := fs.String("prompt", "", "optional text prompt refining the query")
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: erabu recommend [flags] <image-file>")
		os.Exit(1)
	}
	imagePath := fs.Arg(0)

	var rec *models.Recommendation
	if *serverURL != "" {
		res, err := recommendViaHTTP(*serverURL, imagePath, *prompt, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		rec = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		ctx := context.Background()
		cat, index, err := components.Ingestor.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Catalog ingestion failed: %v\n", err)
			os.Exit(1)
		}
		components.Engine.Install(&recommend.State{Index: index, Catalog: cat})

		img, err := imaging.Open(imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
			os.Exit(1)
		}
		rec, err = components.Engine.Recommend(ctx, img, *prompt, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("query description: %s\n", rec.Description)
		fmt.Printf("query time:        %dms\n\n", rec.QueryTime)
		for i, r := range rec.Results {
			fmt.Printf("%2d. %s  (similarity %.4f)\n", i+1, r.ID, r.Similarity)
			if c := r.Meta["caption"]; c != "" {
				fmt.Printf("    %s\n", c)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func recommendViaHTTP(serverURL, imagePath, prompt string, topK int) (*models.Recommendation, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if prompt != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			return nil, err
		}
	}
	if topK > 0 {
		if err := mw.WriteField("top_k", fmt.Sprintf("%d", topK)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/api/v1/recommend", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var rec models.Recommendation
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &rec, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Ready        bool                   `json:"ready"`
	CatalogItems int                    `json:"catalog_items"`
	IndexSize    int                    `json:"index_size"`
	Dimensions   int                    `json:"dimensions"`
	Config       map[string]interface{} `json:"config"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("ready:          %t\n", status.Ready)
		fmt.Printf("catalog_items:  %d\n", status.CatalogItems)
		fmt.Printf("index_size:     %d\n", status.IndexSize)
		fmt.Printf("dimensions:     %d\n", status.Dimensions)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Model    encoder.ModelEncoder
	Dual     *encoder.DualEncoder
	Pipeline *caption.Pipeline
	Engine   *recommend.Engine
	Ingestor *catalog.Ingestor
}

func (c *Components) Close() {
	if c.Model != nil {
		_ = c.Model.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var model encoder.ModelEncoder
	switch cfg.Encoder.Provider {
	case "onnx":
		onnxModel, err := encoder.NewONNXEncoder(
			cfg.Encoder.VisionModelPath,
			cfg.Encoder.TextModelPath,
			cfg.Encoder.Dimensions,
		)
		if err != nil {
			if logger != nil {
				logger.Warn("ONNX encoder unavailable, falling back to mock", zap.Error(err))
			}
			model = encoder.NewMockModelEncoder(cfg.Encoder.Dimensions)
		} else {
			model = onnxModel
		}
	case "openai":
		openaiModel, err := encoder.NewOpenAIEncoder(encoder.OpenAIEncoderConfig{
			BaseURL:    cfg.Encoder.BaseURL,
			APIKey:     cfg.Encoder.APIKey,
			Model:      cfg.Encoder.Model,
			Dimensions: cfg.Encoder.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai encoder: %w", err)
		}
		model = openaiModel
	case "mock":
		model = encoder.NewMockModelEncoder(cfg.Encoder.Dimensions)
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Encoder.Provider)
	}

	dual, err := encoder.NewDualEncoder(model, *cfg.Encoder.TextWeight)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("failed to initialize dual encoder: %w", err)
	}

	var captioner caption.Captioner
	switch cfg.Caption.Provider {
	case "openai":
		openaiCaptioner, err := caption.NewOpenAICaptioner(caption.OpenAICaptionerConfig{
			BaseURL:      cfg.Caption.BaseURL,
			APIKey:       cfg.Caption.APIKey,
			CaptionModel: cfg.Caption.CaptionModel,
			RewriteModel: cfg.Caption.RewriteModel,
		})
		if err != nil {
			if logger != nil {
				logger.Warn("OpenAI captioner unavailable, falling back to mock", zap.Error(err))
			}
			captioner = caption.NewMockCaptioner()
		} else {
			captioner = openaiCaptioner
		}
	case "mock":
		captioner = caption.NewMockCaptioner()
	default:
		_ = model.Close()
		return nil, fmt.Errorf("unknown caption provider %q", cfg.Caption.Provider)
	}

	pipeline, err := caption.NewPipeline(captioner)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("failed to initialize caption pipeline: %w", err)
	}

	engineOpts := []recommend.Option{recommend.WithTopK(cfg.Search.TopK)}
	if debug && logger != nil {
		engineOpts = append(engineOpts, recommend.WithLogger(logger))
	}
	engine, err := recommend.NewEngine(pipeline, dual, engineOpts...)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	source, err := catalog.NewSource(cfg.Catalog.MetadataPath)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("failed to open catalog source: %w", err)
	}
	ingOpts := []catalog.IngestorOption{
		catalog.WithWorkers(cfg.Catalog.Workers),
		catalog.WithIndexOptions(vector.WithOverfetch(cfg.Search.Overfetch)),
	}
	if logger != nil {
		ingOpts = append(ingOpts, catalog.WithLogger(logger))
	}
	ingestor := catalog.NewIngestor(source, cfg.Catalog.ImageDir, dual, ingOpts...)

	return &Components{
		Model:    model,
		Dual:     dual,
		Pipeline: pipeline,
		Engine:   engine,
		Ingestor: ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`erabu - Multi-modal product recommendation engine

Usage:
  erabu server [flags]              Start the HTTP server
  erabu recommend [flags] <image>   Recommend products for a query image
  erabu status [flags]              Show catalog/index status
  erabu version                     Show version
  erabu help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/erabu/config.yaml)
  --debug            Enable debug logging (catalog ingestion, query details, etc.)

Recommend Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline locally.
  --prompt string    Optional text prompt refining the query
  --top-k int        Number of results (0 = server default)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  erabu server
  erabu recommend shoes.jpg
  erabu recommend --prompt "something red, low-top" shoes.jpg
  erabu recommend --top-k 10 --output json shoes.jpg
  erabu status`)
}
