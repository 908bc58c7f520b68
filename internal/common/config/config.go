package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `yaml:"port"`
	Environment  string `yaml:"environment"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`

	// Datastore: при пустом DatabaseURL используется sqlite по DBPath.
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`

	// Адреса внутренних сервисов и внешнего AI endpoint.
	TakeoffURL  string `yaml:"takeoff_url"`
	AnalysisURL string `yaml:"analysis_url"`
	AIEndpoint  string `yaml:"ai_endpoint"`
	AIAPIKey    string `yaml:"ai_api_key"`
}

// Load загружает конфигурацию из переменных окружения.
// Если задан CONFIG_PATH, значения из YAML применяются поверх дефолтов,
// но переменные окружения имеют приоритет.
func Load() *Config {
	cfg := &Config{
		Port:         "3000",
		Environment:  "development",
		ReadTimeout:  10,
		WriteTimeout: 10,
		DBPath:       "data/db/takeoff.db",
		TakeoffURL:   "http://localhost:3001",
		AnalysisURL:  "http://localhost:3002",
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.DBPath = getEnv("TAKEOFF_DB_PATH", cfg.DBPath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TakeoffURL = getEnv("TAKEOFF_URL", cfg.TakeoffURL)
	cfg.AnalysisURL = getEnv("ANALYSIS_URL", cfg.AnalysisURL)
	cfg.AIEndpoint = getEnv("AI_ENDPOINT", cfg.AIEndpoint)
	cfg.AIAPIKey = getEnv("AI_API_KEY", cfg.AIAPIKey)

	return cfg
}

// applyFile читает YAML поверх текущих значений.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
