package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError - ошибка одного поля конфигурации.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors - набор ошибок валидации.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// Validate проверяет конфигурацию целиком и возвращает все найденные ошибки.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[cfg.Env] {
		errs = append(errs, ValidationError{
			Field:   "env",
			Message: "must be one of: development, staging, production, test",
		})
	}

	// Алгоритмы проверяют себя сами
	sections := []struct {
		field string
		check func() error
	}{
		{"weights", cfg.Weights.Validate},
		{"dp", cfg.DP.Validate},
		{"ga", cfg.GA.Validate},
		{"moo", cfg.MOO.Validate},
		{"ml", cfg.ML.Validate},
		{"sa", cfg.SA.Validate},
		{"uncertainty", cfg.Uncertainty.Validate},
	}
	for _, s := range sections {
		if err := s.check(); err != nil {
			errs = append(errs, ValidationError{Field: s.field, Message: err.Error()})
		}
	}

	errs = append(errs, validateBench(&cfg.Bench)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBench(b *BenchConfig) ValidationErrors {
	var errs ValidationErrors

	if b.Runs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "bench.runs",
			Message: "must be greater than 0",
		})
	}
	if b.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "bench.workers",
			Message: "must be non-negative",
		})
	}
	if b.Timeout != "" {
		if d, err := time.ParseDuration(b.Timeout); err != nil || d < 0 {
			errs = append(errs, ValidationError{
				Field:   "bench.per_run_timeout",
				Message: "must be a non-negative duration (e.g. 30s)",
			})
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[l.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be one of: json, console",
		})
	}

	return errs
}

// IsValidationError проверяет, является ли ошибка ошибкой валидации конфигурации.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
