package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load читает YAML-файл (отсутствующий файл - значения по умолчанию),
// подгружает .env, применяет переопределения из окружения и проверяет результат.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromYAML(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	}

	// .env необязателен
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	cfg.propagate()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("FERT_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bench.Seed = n
		}
	}
	if v := os.Getenv("FERT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bench.Workers = n
		}
	}
	if v := os.Getenv("FERT_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bench.Runs = n
		}
	}

	// GA
	if v := os.Getenv("FERT_GA_POPULATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GA.Population = n
		}
	}
	if v := os.Getenv("FERT_GA_GENERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GA.Generations = n
		}
	}

	// Uncertainty
	if v := os.Getenv("FERT_SCENARIOS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Uncertainty.NumScenarios = n
		}
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
}
