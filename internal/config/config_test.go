package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "development", cfg.Env)
	assert.Zero(t, cfg.Bench.PerRunTimeout())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := Default()
	def.propagate()
	assert.Equal(t, def, cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
env: test
logging:
  level: debug
  format: json
weights:
  yield: 1.0
  cost: 0.5
  environmental: 0.2
  risk: 0.25
  violation_penalty: 0.5
  mitscherlich_k: 3.0
  curvature: 0.25
  soil_supply: 0.6
ga:
  population: 40
  generations: 25
uncertainty:
  num_scenarios: 250
  confidence_level: 0.9
bench:
  runs: 3
  seed: 42
  workers: 4
  per_run_timeout: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 40, cfg.GA.Population)
	assert.Equal(t, 25, cfg.GA.Generations)
	assert.Equal(t, 250, cfg.Uncertainty.NumScenarios)
	assert.Equal(t, 0.9, cfg.Uncertainty.ConfidenceLevel)
	assert.Equal(t, int64(42), cfg.Bench.Seed)
	assert.Equal(t, 30*time.Second, cfg.Bench.PerRunTimeout())

	// общие веса и число обработчиков переносятся в алгоритмы
	assert.Equal(t, 0.5, cfg.DP.Weights.Cost)
	assert.Equal(t, 0.5, cfg.ML.Weights.Cost)
	assert.Equal(t, 0.5, cfg.SA.Weights.Cost)
	assert.Equal(t, cfg.Weights, cfg.Uncertainty.Weights)
	assert.Equal(t, 4, cfg.GA.Workers)
	assert.Equal(t, 4, cfg.MOO.Workers)
	assert.Equal(t, 4, cfg.Uncertainty.Workers)

	// не указанные в файле секции сохраняют значения по умолчанию
	assert.Equal(t, Default().DP.MaxStates, cfg.DP.MaxStates)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("FERT_SEED", "7")
	t.Setenv("FERT_RUNS", "2")
	t.Setenv("FERT_GA_POPULATION", "16")
	t.Setenv("FERT_SCENARIOS", "50")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, int64(7), cfg.Bench.Seed)
	assert.Equal(t, 2, cfg.Bench.Runs)
	assert.Equal(t, 16, cfg.GA.Population)
	assert.Equal(t, 50, cfg.Uncertainty.NumScenarios)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("FERT_RUNS", "many")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Bench.Runs, cfg.Bench.Runs)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"env", func(c *Config) { c.Env = "qa" }, "env"},
		{"runs", func(c *Config) { c.Bench.Runs = 0 }, "bench.runs"},
		{"workers", func(c *Config) { c.Bench.Workers = -1 }, "bench.workers"},
		{"timeout", func(c *Config) { c.Bench.Timeout = "soon" }, "bench.per_run_timeout"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"weights", func(c *Config) { c.Weights.SoilSupply = 2 }, "weights"},
		{"ga", func(c *Config) { c.GA.Population = 1 }, "ga"},
		{"uncertainty", func(c *Config) { c.Uncertainty.NumScenarios = 0 }, "uncertainty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ves ValidationErrors
			require.ErrorAs(t, err, &ves)
			fields := make([]string, len(ves))
			for i, ve := range ves {
				fields[i] = ve.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "bench: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bench:\n  runs: -1\n"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
