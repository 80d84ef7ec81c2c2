package config

import (
	"crypto/subtle"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/apisift/apisift-go/internal/generate"
)

// CLIOptions holds command-line argument overrides
type CLIOptions struct {
	InputPath      string // -input: path to log file
	OutputFormat   string // -format: output format (table, curl, http, postman)
	OutputPath     string // -output: file to write generated output to
	CollectionName string // -collection-name: Postman collection name
	LLMFallback    bool   // -llm-fallback: use the LLM when parsers find nothing
	DetectOnly     bool   // -detect-only: print the detected log format and exit
	ShowHelp       bool   // -help: show usage
	ShowVersion    bool   // -version: show version
}

// ParseCLI parses command-line arguments and returns CLIOptions
func ParseCLI() *CLIOptions {
	opts := &CLIOptions{}

	flag.StringVar(&opts.InputPath, "input", "", "Path to log file (overrides config)")
	flag.StringVar(&opts.OutputFormat, "format", "", "Output format: table, curl, http, postman")
	flag.StringVar(&opts.OutputPath, "output", "", "Write generated output to file instead of stdout")
	flag.StringVar(&opts.CollectionName, "collection-name", "", "Postman collection name (for -format postman)")
	flag.BoolVar(&opts.LLMFallback, "llm-fallback", false, "Send the log to the configured LLM when no calls are parsed")
	flag.BoolVar(&opts.DetectOnly, "detect-only", false, "Print the detected log format and exit")
	flag.BoolVar(&opts.ShowHelp, "help", false, "Show usage information")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	// Custom usage message
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ApiSift - Extract API calls from application logs\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nExamples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s -input /var/log/app.log\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -input access.log -format curl\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -input app.log -format postman -output calls.postman_collection.json\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -input trace.log -llm-fallback\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment variables can be set in .env file or exported directly.\n")
		_, _ = fmt.Fprintf(os.Stderr, "CLI arguments override environment variables.\n")
	}

	flag.Parse()

	return opts
}

// PrintUsage prints the command-line usage information
func PrintUsage() {
	flag.Usage()
}

// Config holds all application configuration
type Config struct {
	// Input
	InputPath    string
	MaxLogSizeMB int

	// Output
	OutputFormat   string // "table", "curl", "http", "postman"
	OutputPath     string // file destination, empty means stdout
	CollectionName string

	// LLM fallback
	EnableLLMFallback bool
	LLMProvider       string // "anthropic" (default), "ollama", or "lmstudio"

	// Anthropic/Claude Settings (used when LLMProvider = "anthropic")
	AnthropicAPIKey string
	ClaudeModel     string

	// Ollama Settings (used when LLMProvider = "ollama")
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3.3:latest"

	// LM Studio Settings (used when LLMProvider = "lmstudio")
	LMStudioBaseURL string // e.g., "http://localhost:1234"
	LMStudioModel   string // e.g., "local-model" or specific model name

	// Telegram notifications (optional)
	EnableTelegram         bool
	TelegramBotToken       string
	TelegramArchiveChannel int64
	TelegramAlertsChannel  int64 // Optional

	// Application
	LogLevel       string
	LogFilePath    string
	EnableDatabase bool
	DatabasePath   string

	// Prompt budget for the LLM fallback
	MaxPromptTokens int

	// Proxy
	HTTPProxy  string
	HTTPSProxy string

	// AI Settings
	AITimeoutSeconds int
	AIMaxTokens      int
}

// Load loads configuration from .env file and environment variables
// Priority: .env file > OS environment variables
// For CLI overrides, use LoadWithCLI instead
func Load() (*Config, error) {
	return LoadWithCLI(nil)
}

// LoadWithCLI loads configuration with CLI argument overrides
// Priority: CLI args > .env file > OS environment variables
func LoadWithCLI(cli *CLIOptions) (*Config, error) {
	// Set up viper first to read OS environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env file to override OS environment variables
	// godotenv.Load() sets OS env vars from .env, which viper will then read
	_ = godotenv.Load()

	// Set defaults
	setDefaults()

	config := &Config{
		// Input settings
		InputPath:    viper.GetString("INPUT_PATH"),
		MaxLogSizeMB: viper.GetInt("MAX_LOG_SIZE_MB"),

		// Output settings
		OutputFormat:   viper.GetString("OUTPUT_FORMAT"),
		OutputPath:     viper.GetString("OUTPUT_PATH"),
		CollectionName: viper.GetString("COLLECTION_NAME"),

		// LLM fallback settings
		EnableLLMFallback: viper.GetBool("ENABLE_LLM_FALLBACK"),
		LLMProvider:       viper.GetString("LLM_PROVIDER"),
		AnthropicAPIKey:   viper.GetString("ANTHROPIC_API_KEY"),
		ClaudeModel:       viper.GetString("CLAUDE_MODEL"),
		OllamaBaseURL:     viper.GetString("OLLAMA_BASE_URL"),
		OllamaModel:       viper.GetString("OLLAMA_MODEL"),
		LMStudioBaseURL:   viper.GetString("LMSTUDIO_BASE_URL"),
		LMStudioModel:     viper.GetString("LMSTUDIO_MODEL"),

		// Telegram settings
		EnableTelegram:         viper.GetBool("ENABLE_TELEGRAM"),
		TelegramBotToken:       viper.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramArchiveChannel: viper.GetInt64("TELEGRAM_CHANNEL_ARCHIVE_ID"),
		TelegramAlertsChannel:  viper.GetInt64("TELEGRAM_CHANNEL_ALERTS_ID"),

		// Application settings
		LogLevel:        viper.GetString("LOG_LEVEL"),
		LogFilePath:     viper.GetString("LOG_FILE_PATH"),
		EnableDatabase:  viper.GetBool("ENABLE_DATABASE"),
		DatabasePath:    viper.GetString("DATABASE_PATH"),
		MaxPromptTokens: viper.GetInt("MAX_PROMPT_TOKENS"),

		HTTPProxy:        viper.GetString("HTTP_PROXY"),
		HTTPSProxy:       viper.GetString("HTTPS_PROXY"),
		AITimeoutSeconds: viper.GetInt("AI_TIMEOUT_SECONDS"),
		AIMaxTokens:      viper.GetInt("AI_MAX_TOKENS"),
	}

	// Apply CLI overrides (highest priority)
	if cli != nil {
		if cli.InputPath != "" {
			config.InputPath = cli.InputPath
		}
		if cli.OutputFormat != "" {
			config.OutputFormat = cli.OutputFormat
		}
		if cli.OutputPath != "" {
			config.OutputPath = cli.OutputPath
		}
		if cli.CollectionName != "" {
			config.CollectionName = cli.CollectionName
		}
		if cli.LLMFallback {
			config.EnableLLMFallback = true
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Output defaults
	viper.SetDefault("OUTPUT_FORMAT", "table")
	viper.SetDefault("COLLECTION_NAME", "API Collection")

	// LLM Provider defaults
	viper.SetDefault("ENABLE_LLM_FALLBACK", false)
	viper.SetDefault("LLM_PROVIDER", "anthropic")
	viper.SetDefault("CLAUDE_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	viper.SetDefault("OLLAMA_MODEL", "llama3.3:latest")
	viper.SetDefault("LMSTUDIO_BASE_URL", "http://localhost:1234")
	viper.SetDefault("LMSTUDIO_MODEL", "local-model")

	// Input defaults
	viper.SetDefault("MAX_LOG_SIZE_MB", 10)

	// Application defaults
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE_PATH", "./logs/apisift.log")
	viper.SetDefault("ENABLE_DATABASE", true)
	viper.SetDefault("DATABASE_PATH", "./data/extractions.db")
	viper.SetDefault("ENABLE_TELEGRAM", false)
	viper.SetDefault("MAX_PROMPT_TOKENS", 150000)
	viper.SetDefault("AI_TIMEOUT_SECONDS", 120)
	viper.SetDefault("AI_MAX_TOKENS", 8000)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate output format ("table" is the terminal listing, the rest
	// are generated artifacts)
	if c.OutputFormat != "table" && !generate.IsValidFormat(c.OutputFormat) {
		return fmt.Errorf("OUTPUT_FORMAT must be 'table', 'curl', 'http', or 'postman' (got: %s)", c.OutputFormat)
	}

	// LLM provider settings only matter when the fallback is enabled
	if c.EnableLLMFallback {
		if err := c.validateLLMProvider(); err != nil {
			return err
		}
	}

	// Telegram settings only matter when notifications are enabled
	if c.EnableTelegram {
		if err := c.validateTelegram(); err != nil {
			return err
		}
	}

	// Validate max log size
	if c.MaxLogSizeMB < 1 || c.MaxLogSizeMB > 100 {
		return fmt.Errorf("MAX_LOG_SIZE_MB must be between 1 and 100")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	// Validate prompt budget
	if c.EnableLLMFallback && c.MaxPromptTokens < 10000 {
		return fmt.Errorf("MAX_PROMPT_TOKENS must be at least 10000")
	}

	// Validate AI settings
	if c.AITimeoutSeconds < 30 || c.AITimeoutSeconds > 600 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 30 and 600")
	}
	if c.AIMaxTokens < 1000 || c.AIMaxTokens > 16000 {
		return fmt.Errorf("AI_MAX_TOKENS must be between 1000 and 16000")
	}

	return nil
}

// validateTelegram validates Telegram notification settings
func (c *Config) validateTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when ENABLE_TELEGRAM=true")
	}
	telegramTokenRegex := regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
	if !telegramTokenRegex.MatchString(c.TelegramBotToken) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN has invalid format (expected: 'number:token')")
	}

	if c.TelegramArchiveChannel == 0 {
		return fmt.Errorf("TELEGRAM_CHANNEL_ARCHIVE_ID is required when ENABLE_TELEGRAM=true")
	}
	if c.TelegramArchiveChannel > -100 {
		return fmt.Errorf("TELEGRAM_CHANNEL_ARCHIVE_ID must be a supergroup/channel ID (starts with -100)")
	}

	if c.TelegramAlertsChannel != 0 && c.TelegramAlertsChannel > -100 {
		return fmt.Errorf("TELEGRAM_CHANNEL_ALERTS_ID must be a supergroup/channel ID (starts with -100)")
	}

	return nil
}

// HasAlertsChannel returns true if alerts channel is configured
func (c *Config) HasAlertsChannel() bool {
	return c.TelegramAlertsChannel != 0
}

// GetProxyURL returns the appropriate proxy URL for HTTP/HTTPS requests
func (c *Config) GetProxyURL(isHTTPS bool) string {
	if isHTTPS && c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	if c.HTTPProxy != "" {
		return c.HTTPProxy
	}
	return ""
}

// constantTimePrefixMatch checks if s starts with prefix using constant-time comparison.
// This prevents timing attacks that could leak information about the string content.
// Returns false if s is shorter than prefix.
func constantTimePrefixMatch(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	// Compare only the prefix portion using constant-time comparison
	return subtle.ConstantTimeCompare([]byte(s[:len(prefix)]), []byte(prefix)) == 1
}

// validateLLMProvider validates LLM provider configuration
func (c *Config) validateLLMProvider() error {
	validProviders := map[string]bool{
		"anthropic": true,
		"ollama":    true,
		"lmstudio":  true,
	}

	if !validProviders[c.LLMProvider] {
		return fmt.Errorf("LLM_PROVIDER must be 'anthropic', 'ollama', or 'lmstudio' (got: %s)", c.LLMProvider)
	}

	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
		// Use constant-time comparison to prevent timing attacks
		if !constantTimePrefixMatch(c.AnthropicAPIKey, "sk-ant-") {
			return fmt.Errorf("ANTHROPIC_API_KEY must start with 'sk-ant-'")
		}
		if c.ClaudeModel == "" {
			return fmt.Errorf("CLAUDE_MODEL is required when LLM_PROVIDER=anthropic")
		}

	case "ollama":
		if c.OllamaModel == "" {
			return fmt.Errorf("OLLAMA_MODEL is required when LLM_PROVIDER=ollama")
		}
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL is required when LLM_PROVIDER=ollama")
		}
		if !strings.HasPrefix(c.OllamaBaseURL, "http://") && !strings.HasPrefix(c.OllamaBaseURL, "https://") {
			return fmt.Errorf("OLLAMA_BASE_URL must start with 'http://' or 'https://'")
		}

	case "lmstudio":
		if c.LMStudioBaseURL == "" {
			return fmt.Errorf("LMSTUDIO_BASE_URL is required when LLM_PROVIDER=lmstudio")
		}
		if !strings.HasPrefix(c.LMStudioBaseURL, "http://") && !strings.HasPrefix(c.LMStudioBaseURL, "https://") {
			return fmt.Errorf("LMSTUDIO_BASE_URL must start with 'http://' or 'https://'")
		}
		// Model is optional for LM Studio (defaults to "local-model")
	}

	return nil
}

// IsOllama returns true if the LLM provider is Ollama
func (c *Config) IsOllama() bool {
	return c.LLMProvider == "ollama"
}

// IsAnthropic returns true if the LLM provider is Anthropic
func (c *Config) IsAnthropic() bool {
	return c.LLMProvider == "anthropic"
}

// IsLMStudio returns true if the LLM provider is LM Studio
func (c *Config) IsLMStudio() bool {
	return c.LLMProvider == "lmstudio"
}

// GetLLMModel returns the model name for the current LLM provider
func (c *Config) GetLLMModel() string {
	switch c.LLMProvider {
	case "ollama":
		return c.OllamaModel
	case "lmstudio":
		return c.LMStudioModel
	default:
		return c.ClaudeModel
	}
}
