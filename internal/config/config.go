package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"llm-arena/internal/catalog"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port" validate:"required,min=1,max=65535"`
	} `json:"server"`
	MongoDB struct {
		URI          string `json:"uri" validate:"required"`
		Database     string `json:"database" validate:"required"`
		Transactions bool   `json:"transactions"` // requires a replica set
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	OpenRouter struct {
		APIKey         string `json:"apiKey" validate:"required"`
		BaseURL        string `json:"baseUrl"`
		Referer        string `json:"referer"`
		TimeoutSeconds int    `json:"timeoutSeconds" validate:"min=0"`
	} `json:"openrouter"`
	Arena struct {
		PromptTokenBudget   int     `json:"promptTokenBudget" validate:"min=0"`
		ResponseTokenBudget int     `json:"responseTokenBudget" validate:"min=0"`
		TruncatePolicy      string  `json:"truncatePolicy" validate:"omitempty,oneof=hard word"`
		TokensPerWord       float64 `json:"tokensPerWord"`
	} `json:"arena"`
	RAG struct {
		CorpusDir    string `json:"corpusDir"`
		ChunkSize    int    `json:"chunkSize"`
		ChunkOverlap int    `json:"chunkOverlap"`
		TopK         int    `json:"topK"`
	} `json:"rag"`
	Models []catalog.Entry `json:"models"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Replace environment variables in the config
	configStr := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	if len(cfg.Models) == 0 {
		cfg.Models = catalog.Default()
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("ARENA_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
