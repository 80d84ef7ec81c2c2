package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/apisift/apisift-go/internal/ai"
	"github.com/apisift/apisift-go/internal/config"
	"github.com/apisift/apisift-go/internal/generate"
	"github.com/apisift/apisift-go/internal/input"
	"github.com/apisift/apisift-go/internal/logging"
	"github.com/apisift/apisift-go/internal/model"
	"github.com/apisift/apisift-go/internal/notification"
	"github.com/apisift/apisift-go/internal/parser"
	"github.com/apisift/apisift-go/internal/render"
	"github.com/apisift/apisift-go/internal/storage"
	"github.com/apisift/apisift-go/pkg/logger"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI arguments first
	cli := config.ParseCLI()

	// Handle -help flag
	if cli.ShowHelp {
		config.PrintUsage()
		return exitSuccess
	}

	// Handle -version flag
	if cli.ShowVersion {
		fmt.Printf("apisift %s\n", version)
		if gitCommit != "unknown" {
			fmt.Printf("  commit: %s\n", gitCommit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
		return exitSuccess
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load configuration with CLI overrides
	cfg, err := config.LoadWithCLI(cli)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFailure
	}

	if cfg.InputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "No input file specified. Use -input <path> or set INPUT_PATH.")
		return exitFailure
	}

	// Initialize logger with credential sanitization
	logDir, logFile := filepath.Split(cfg.LogFilePath)
	baseLog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		LogDir:     logDir,
		Filename:   logFile,
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    false,
	})
	log := logging.NewSecure(baseLog)
	defer func() {
		if err := log.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	log.Info().Str("input", cfg.InputPath).Str("format", cfg.OutputFormat).Msg("Starting API call extraction")

	if err := runExtraction(ctx, cfg, cli, log); err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		render.PrintError(os.Stderr, err.Error())
		return exitFailure
	}

	log.Info().Msg("Extraction completed successfully")
	return exitSuccess
}

func runExtraction(ctx context.Context, cfg *config.Config, cli *config.CLIOptions, log *logging.SecureLogger) error {
	startTime := time.Now()

	// 1. Read the log file
	reader := input.NewReader(cfg.MaxLogSizeMB, cfg.MaxPromptTokens)
	logContent, err := reader.Read(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	log.Info().
		Str("path", cfg.InputPath).
		Int("bytes", len(logContent)).
		Msg("Log file read")

	extractor := parser.NewExtractor()

	// Handle -detect-only: report the sniffed format and stop
	if cli != nil && cli.DetectOnly {
		format := extractor.DetectFormat(logContent)
		if format == "" {
			fmt.Println("unknown")
		} else {
			fmt.Println(format)
		}
		return nil
	}

	// 2. Extract API calls with the parser chain
	detectedFormat := extractor.DetectFormat(logContent)
	calls, err := extractor.Extract(logContent, cfg.InputPath)

	// 3. LLM fallback when the parsers come up empty
	var stats *ai.Stats
	llmUsed := false
	if errors.Is(err, parser.ErrNoAPICalls) && cfg.EnableLLMFallback {
		log.Info().Str("provider", cfg.LLMProvider).Msg("No calls parsed, trying LLM fallback")

		provider, perr := createProvider(cfg)
		if perr != nil {
			return fmt.Errorf("failed to initialize LLM provider: %w", perr)
		}

		calls, stats, err = provider.ExtractCalls(ctx, reader.ClipForPrompt(logContent))
		if err != nil {
			return fmt.Errorf("LLM fallback failed: %w", err)
		}
		llmUsed = true
		detectedFormat = "llm"

		log.Info().
			Str("provider", stats.Provider).
			Int("input_tokens", stats.InputTokens).
			Int("output_tokens", stats.OutputTokens).
			Float64("cost_usd", stats.CostUSD).
			Msg("LLM fallback completed")
	}
	if err != nil && !llmUsed {
		return err
	}

	duration := time.Since(startTime)
	log.Info().
		Str("detected_format", detectedFormat).
		Int("calls", len(calls)).
		Float64("duration_s", duration.Seconds()).
		Msg("Extraction finished")

	// 4. Emit output
	if err := writeOutput(cfg, calls, stats); err != nil {
		return err
	}

	// 5. Record the run (if database enabled)
	run := &storage.Run{
		Timestamp:       time.Now(),
		Source:          cfg.InputPath,
		DetectedFormat:  detectedFormat,
		CallCount:       len(calls),
		DurationSeconds: duration.Seconds(),
		LLMUsed:         llmUsed,
	}
	if stats != nil {
		run.LLMProvider = stats.Provider
		run.InputTokens = stats.InputTokens
		run.OutputTokens = stats.OutputTokens
		run.CostUSD = stats.CostUSD
	}

	if cfg.EnableDatabase {
		store, err := storage.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func(store *storage.Storage) {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}(store)

		if err := store.SaveRun(run, calls); err != nil {
			log.Warn().Err(err).Msg("Failed to save run to database")
		} else {
			log.Info().Str("id", run.ID).Msg("Run saved to database")
		}

		// Cleanup old runs (>90 days)
		deleted, err := store.CleanupOldRuns(90)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to cleanup old runs")
		} else if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Old runs cleaned up")
		}
	}

	// 6. Send Telegram notification (if enabled)
	if cfg.EnableTelegram {
		telegramClient, err := notification.NewTelegramClient(
			cfg.TelegramBotToken,
			cfg.TelegramArchiveChannel,
			cfg.TelegramAlertsChannel,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		defer func(telegramClient *notification.TelegramClient) {
			if err := telegramClient.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Telegram client")
			}
		}(telegramClient)

		if err := telegramClient.SendRunReport(run); err != nil {
			return fmt.Errorf("failed to send Telegram notification: %w", err)
		}
		log.Info().Msg("Telegram notification sent")
	}

	return nil
}

// writeOutput renders the extracted calls in the configured format, to
// stdout or to the configured output file.
func writeOutput(cfg *config.Config, calls []model.ApiCall, stats *ai.Stats) error {
	switch generate.Format(cfg.OutputFormat) {
	case generate.FormatCurl:
		return writeLines(cfg.OutputPath, generate.Curl(calls))

	case generate.FormatHTTP:
		return writeLines(cfg.OutputPath, generate.HTTPDump(calls))

	case generate.FormatPostman:
		collection := generate.NewCollection(calls, cfg.CollectionName)
		if cfg.OutputPath == "" {
			return generate.WriteCollection(collection, "collection.postman_collection.json")
		}
		return generate.WriteCollection(collection, cfg.OutputPath)

	default: // "table"
		render.PrintCalls(os.Stdout, calls)
		if stats != nil {
			fmt.Println()
			render.PrintStats(os.Stdout, stats)
		}
		return nil
	}
}

// writeLines joins generated outputs with blank lines and writes them to
// path, or stdout when path is empty.
func writeLines(path string, outputs []string) error {
	text := strings.Join(outputs, "\n\n")
	if len(outputs) > 0 {
		text += "\n"
	}

	if path == "" {
		fmt.Print(text)
		return nil
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// createProvider builds the configured LLM provider from a registry of
// factories, so each backend is only constructed when selected.
func createProvider(cfg *config.Config) (ai.Provider, error) {
	registry := ai.NewRegistry()

	if err := registry.Register("anthropic", func() (ai.Provider, error) {
		proxyURL := cfg.GetProxyURL(true) // HTTPS proxy for API calls
		return ai.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, proxyURL, cfg.AITimeoutSeconds, cfg.AIMaxTokens)
	}); err != nil {
		return nil, err
	}

	if err := registry.Register("ollama", func() (ai.Provider, error) {
		return ai.NewOllamaClient(ai.OllamaConfig{
			BaseURL:        cfg.OllamaBaseURL,
			Model:          cfg.OllamaModel,
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	}); err != nil {
		return nil, err
	}

	if err := registry.Register("lmstudio", func() (ai.Provider, error) {
		return ai.NewLMStudioClient(ai.LMStudioConfig{
			BaseURL:        cfg.LMStudioBaseURL,
			Model:          cfg.LMStudioModel,
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	}); err != nil {
		return nil, err
	}

	return registry.Create(cfg.LLMProvider)
}
