package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"
)

// DefaultFile is read when Load is called without a path and the file exists.
const DefaultFile = "skillflow.yaml"

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

type Config struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	OpenAIAPIKey  string `json:"openaiApiKey"`
	OpenAIBaseURL string `json:"openaiBaseUrl"`
	GeminiAPIKey  string `json:"geminiApiKey"`

	ListenAddr string `json:"listenAddr"`

	// CompanyContext is put into the system prompt. CompanyContextFile is only
	// read when CompanyContext is empty.
	CompanyContext     string `json:"companyContext"`
	CompanyContextFile string `json:"companyContextFile"`

	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile"`
}

func defaults() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		Model:         "gpt-4o",
		OpenAIBaseURL: "https://api.openai.com/v1",
		ListenAddr:    ":3000",
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// DefaultFile if path is empty and it exists), a .env file in the working
// directory and finally the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := defaults()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.CompanyContext == "" && cfg.CompanyContextFile != "" {
		data, err := os.ReadFile(cfg.CompanyContextFile)
		if err != nil {
			return nil, fmt.Errorf("reading company context: %w", err)
		}
		cfg.CompanyContext = string(data)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	for name, field := range map[string]*string{
		"LLM_PROVIDER":         &c.Provider,
		"LLM_MODEL":            &c.Model,
		"OPENAI_API_KEY":       &c.OpenAIAPIKey,
		"OPENAI_BASE_URL":      &c.OpenAIBaseURL,
		"GEMINI_API_KEY":       &c.GeminiAPIKey,
		"LISTEN_ADDR":          &c.ListenAddr,
		"COMPANY_CONTEXT":      &c.CompanyContext,
		"COMPANY_CONTEXT_FILE": &c.CompanyContextFile,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_FILE":             &c.LogFile,
	} {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			*field = value
		}
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
}

// Validate checks that the selected provider can be used.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGoogle:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the google provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.ListenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	return nil
}
