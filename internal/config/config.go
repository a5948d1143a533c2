package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

const (
	ProviderTesseract = "tesseract"
	ProviderTyphoon   = "typhoon"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config is the runtime configuration shared by the server and the CLI.
type Config struct {
	GRPCAddr        string   `yaml:"grpc_addr"`
	DefaultCurrency string   `yaml:"default_currency"`
	Categories      []string `yaml:"categories"`
	LogLevel        string   `yaml:"log_level"`

	OCR        OCRConfig        `yaml:"ocr"`
	Completion CompletionConfig `yaml:"completion"`
	Storage    StorageConfig    `yaml:"storage"`
	BigQuery   BigQueryConfig   `yaml:"bigquery"`
	Discord    DiscordConfig    `yaml:"discord"`
}

type OCRConfig struct {
	Provider   string   `yaml:"provider"` // tesseract | typhoon
	Languages  []string `yaml:"languages"`
	Workers    int      `yaml:"workers"`
	MinChars   int      `yaml:"min_chars"`
	MinWidth   int      `yaml:"min_width"`
	GCSEnabled bool     `yaml:"gcs_enabled"` // accept gs:// sources
	TyphoonURL string   `yaml:"typhoon_url"`
	TyphoonKey string   `yaml:"typhoon_api_key"`
}

type CompletionConfig struct {
	Provider   string        `yaml:"provider"` // ollama | openai | gemini | none
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxTokens  int           `yaml:"max_tokens"`
	OllamaHost string        `yaml:"ollama_host"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// BigQueryConfig enables the invocation sink when Project is set.
type BigQueryConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

// DiscordConfig enables the chat bot when Token is set.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

func Default() *Config {
	return &Config{
		GRPCAddr:        ":50051",
		DefaultCurrency: domain.DefaultCurrency,
		Categories:      append([]string(nil), domain.DefaultCategories...),
		LogLevel:        "info",
		OCR: OCRConfig{
			Provider:  ProviderTesseract,
			Languages: []string{"eng"},
			Workers:   3,
			MinChars:  10,
			MinWidth:  800,
		},
		Completion: CompletionConfig{
			Provider:   ProviderOllama,
			Timeout:    30 * time.Second,
			MaxTokens:  500,
			OllamaHost: "localhost",
		},
		Storage: StorageConfig{
			SQLitePath: "transactions.db",
		},
		BigQuery: BigQueryConfig{
			Table: "invocations",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.GRPCAddr = env("GRPC_ADDR", c.GRPCAddr)
	c.DefaultCurrency = strings.ToUpper(env("DEFAULT_CURRENCY", c.DefaultCurrency))
	c.Categories = envList("CATEGORIES", c.Categories)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)

	c.OCR.Provider = strings.ToLower(env("OCR_PROVIDER", c.OCR.Provider))
	c.OCR.Languages = envList("OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.TyphoonURL = env("TYPHOON_URL", c.OCR.TyphoonURL)
	c.OCR.TyphoonKey = env("TYPHOON_API_KEY", c.OCR.TyphoonKey)

	c.Completion.Provider = strings.ToLower(env("COMPLETION_PROVIDER", c.Completion.Provider))
	c.Completion.Model = env("COMPLETION_MODEL", c.Completion.Model)
	c.Completion.BaseURL = env("COMPLETION_BASE_URL", c.Completion.BaseURL)
	c.Completion.APIKey = env("COMPLETION_API_KEY", c.Completion.APIKey)
	c.Completion.OllamaHost = env("HOST_IP", c.Completion.OllamaHost)

	c.Storage.SQLitePath = env("SQLITE_PATH", c.Storage.SQLitePath)
	c.BigQuery.Project = env("BIGQUERY_PROJECT", c.BigQuery.Project)
	c.BigQuery.Dataset = env("BIGQUERY_DATASET", c.BigQuery.Dataset)
	c.BigQuery.Table = env("BIGQUERY_TABLE", c.BigQuery.Table)
	c.Discord.Token = env("DISCORD_BOT_TOKEN", c.Discord.Token)
	c.Discord.ChannelID = env("DISCORD_CHANNEL_ID", c.Discord.ChannelID)

	var err error
	if c.OCR.Workers, err = envInt("OCR_WORKERS", c.OCR.Workers); err != nil {
		return err
	}
	if c.OCR.MinChars, err = envInt("OCR_MIN_CHARS", c.OCR.MinChars); err != nil {
		return err
	}
	if c.OCR.MinWidth, err = envInt("OCR_MIN_WIDTH", c.OCR.MinWidth); err != nil {
		return err
	}
	if c.Completion.MaxTokens, err = envInt("COMPLETION_MAX_TOKENS", c.Completion.MaxTokens); err != nil {
		return err
	}
	if v := os.Getenv("GCS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GCS_ENABLED: %w", err)
		}
		c.OCR.GCSEnabled = b
	}
	if v := os.Getenv("COMPLETION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMPLETION_TIMEOUT: %w", err)
		}
		c.Completion.Timeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.OCR.Provider {
	case ProviderTesseract, ProviderTyphoon:
	default:
		errs = append(errs, fmt.Errorf("unknown ocr provider %q", c.OCR.Provider))
	}
	switch c.Completion.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderGemini, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown completion provider %q", c.Completion.Provider))
	}
	if !isCurrencyCode(c.DefaultCurrency) {
		errs = append(errs, fmt.Errorf("default currency %q is not a 3-letter code", c.DefaultCurrency))
	}
	if c.OCR.Workers <= 0 {
		errs = append(errs, errors.New("ocr workers must be positive"))
	}
	if c.OCR.MinWidth <= 0 {
		errs = append(errs, errors.New("ocr min width must be positive"))
	}
	if c.Completion.Timeout <= 0 {
		errs = append(errs, errors.New("completion timeout must be positive"))
	}
	if c.Completion.MaxTokens <= 0 {
		errs = append(errs, errors.New("completion max tokens must be positive"))
	}
	if c.OCR.Provider == ProviderTyphoon && c.OCR.TyphoonKey == "" {
		errs = append(errs, errors.New("TYPHOON_API_KEY is required for the typhoon provider"))
	}
	if c.Discord.Token != "" && c.Discord.ChannelID == "" {
		errs = append(errs, errors.New("DISCORD_CHANNEL_ID is required when the bot is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) Taxonomy() domain.Taxonomy {
	return domain.NewTaxonomy(c.Categories)
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
