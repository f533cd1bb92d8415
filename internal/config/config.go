package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"invoiceaudit/classification"
	"invoiceaudit/normalization"
	"invoiceaudit/quality"
	"invoiceaudit/reference"
)

// Config конфигурация сервиса аудита счетов.
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База данных
	DatabasePath string `json:"database_path"`

	// AI извлечение
	OpenAIAPIKey  string  `json:"openai_api_key"`
	OpenAIModel   string  `json:"openai_model"`
	ExtractionRPS float64 `json:"extraction_rps"`

	// Пороги движков. Эвристические константы намеренно не зашиты
	// в код (допуски биржевых товаров, окно устаревания референса).
	Normalizer normalization.Options `json:"normalizer"`
	Reference  reference.Config      `json:"reference"`
	Detector   quality.Config        `json:"detector"`

	// Словарь классификатора. Отсутствие в файле означает словарь
	// по умолчанию.
	Keywords *classification.Keywords `json:"keywords,omitempty"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Port:          "8090",
		DatabasePath:  "audit.db",
		OpenAIModel:   "gpt-4o",
		ExtractionRPS: 1,
		Normalizer:    normalization.DefaultOptions(),
		Reference:     reference.DefaultConfig(),
		Detector:      quality.DefaultConfig(),
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем JSON-файл
// (если указан), затем переменные окружения поверх.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения.
func (c *Config) applyEnv() {
	if v := os.Getenv("AUDIT_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("AUDIT_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
	if v := os.Getenv("AUDIT_EXTRACTION_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps > 0 {
			c.ExtractionRPS = rps
		}
	}
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Reference.CommodityTolerance < 0 || c.Reference.CommodityTolerance > 1 {
		return fmt.Errorf("commodity tolerance must be within [0, 1], got %v", c.Reference.CommodityTolerance)
	}
	if c.Reference.StableTolerance < 0 || c.Reference.StableTolerance > 1 {
		return fmt.Errorf("stable tolerance must be within [0, 1], got %v", c.Reference.StableTolerance)
	}
	if c.Detector.NoiseFloor < 0 {
		return fmt.Errorf("noise floor must be non-negative, got %v", c.Detector.NoiseFloor)
	}
	return nil
}

// ClassifierKeywords возвращает словарь классификатора.
func (c *Config) ClassifierKeywords() classification.Keywords {
	if c.Keywords != nil {
		return *c.Keywords
	}
	return classification.DefaultKeywords()
}
