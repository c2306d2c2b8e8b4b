// Package config - конфигурация планировщика: веса модели оценки,
// параметры всех алгоритмов, логирование и прогоны.
package config

import (
	"time"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/dp"
	"fertTiming/internal/ga"
	"fertTiming/internal/mlguided"
	"fertTiming/internal/moo"
	"fertTiming/internal/sa"
	"fertTiming/internal/uncertainty"
)

// Config - корневая структура конфигурации.
type Config struct {
	Env         string             `yaml:"env"`
	Logging     LoggingConfig      `yaml:"logging"`
	Weights     agronomy.Weights   `yaml:"weights"`
	DP          dp.Config          `yaml:"dp"`
	GA          ga.Config          `yaml:"ga"`
	MOO         moo.Config         `yaml:"moo"`
	ML          mlguided.Config    `yaml:"ml"`
	SA          sa.Config          `yaml:"sa"`
	Uncertainty uncertainty.Config `yaml:"uncertainty"`
	Bench       BenchConfig        `yaml:"bench"`
}

// LoggingConfig - уровень и формат логов.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BenchConfig - параметры серии прогонов.
type BenchConfig struct {
	Runs int   `yaml:"runs"`
	Seed int64 `yaml:"seed"`
	// Workers > 0 переопределяет число обработчиков GA, MOO и Монте-Карло.
	Workers  int    `yaml:"workers"`
	Timeout  string `yaml:"per_run_timeout"`
	Output   string `yaml:"output"`
	Scenario string `yaml:"scenario"`
}

// PerRunTimeout возвращает ограничение времени одного прогона (0 - без ограничения).
func (b *BenchConfig) PerRunTimeout() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Env: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Weights:     agronomy.DefaultWeights(),
		DP:          dp.DefaultConfig(),
		GA:          ga.DefaultConfig(),
		MOO:         moo.DefaultConfig(),
		ML:          mlguided.DefaultConfig(),
		SA:          sa.DefaultConfig(),
		Uncertainty: uncertainty.DefaultConfig(),
		Bench: BenchConfig{
			Runs:    5,
			Seed:    1,
			Timeout: "0s",
			Output:  "results.csv",
		},
	}
}

// propagate переносит общие веса и число обработчиков в конфигурации алгоритмов.
func (c *Config) propagate() {
	c.DP.Weights = c.Weights
	c.GA.Weights = c.Weights
	c.MOO.Weights = c.Weights
	c.ML.Weights = c.Weights
	c.SA.Weights = c.Weights
	c.Uncertainty.Weights = c.Weights

	if c.Bench.Workers > 0 {
		c.GA.Workers = c.Bench.Workers
		c.MOO.Workers = c.Bench.Workers
		c.Uncertainty.Workers = c.Bench.Workers
	}
}
