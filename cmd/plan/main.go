package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"fertTiming/internal/bench"
	"fertTiming/internal/config"
	"fertTiming/internal/dp"
	"fertTiming/internal/ga"
	"fertTiming/internal/mlguided"
	"fertTiming/internal/moo"
	"fertTiming/internal/opt"
	"fertTiming/internal/sa"
	"fertTiming/internal/scenario"
	"fertTiming/internal/uncertainty"
)

// Фабрики

func newDPFactory(cfg dp.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(int64) opt.Optimizer {
		solver, _ := dp.New(cfg)
		solver.Logger = log
		return solver
	}
}

func newGAFactory(cfg ga.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := ga.New(cfg, seed)
		solver.Logger = log
		return solver
	}
}

func newMOFactory(cfg moo.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := moo.New(cfg, seed)
		solver.Logger = log
		return solver
	}
}

func newSAFactory(cfg sa.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := sa.New(cfg, seed)
		solver.Logger = log
		return solver
	}
}

func newMLFactory(cfg mlguided.Config, model mlguided.YieldModel, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := mlguided.New(cfg, seed, model)
		solver.Logger = log
		return solver
	}
}

// configExitCode - код выхода для ошибки конфигурации:
// 2 - недопустимые значения, 1 - файл не прочитан или не разобран.
func configExitCode(err error) (string, int) {
	if config.IsValidationError(err) {
		return "Некорректная конфигурация:", 2
	}
	return "Ошибка чтения конфигурации:", 1
}

func exitOnConfigError(err error) {
	msg, code := configExitCode(err)
	fmt.Fprintln(os.Stderr, msg, err)
	os.Exit(code)
}

func main() {
	var (
		configPath   = flag.String("config", "", "путь к YAML-конфигурации (пусто - значения по умолчанию)")
		scenarioPath = flag.String("scenario", "", "путь к YAML-сценарию (пусто - синтетический сезон)")
		days         = flag.Int("days", 120, "длина синтетического сезона в днях")
		algos        = flag.String("algos", "DP,GA,MO,ML", "список алгоритмов: DP, GA, MO, ML, SA (через запятую)")
		runs         = flag.Int("runs", 0, "количество запусков каждого алгоритма (0 - из конфигурации)")
		baseSeed     = flag.Int64("seed", 0, "базовый сид (0 - из конфигурации)")
		withUnc      = flag.Bool("uncertainty", false, "анализ неопределённости лучшего графика каждого алгоритма")
		trainModel   = flag.Bool("train", true, "обучить ансамбль для ML на симулированных графиках (иначе эвристика)")
		out          = flag.String("out", "", "путь к выходному CSV-файлу (пусто - из конфигурации)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		exitOnConfigError(err)
	}
	if *runs > 0 {
		cfg.Bench.Runs = *runs
	}
	if *baseSeed != 0 {
		cfg.Bench.Seed = *baseSeed
	}
	if *out != "" {
		cfg.Bench.Output = *out
	}
	if *scenarioPath == "" {
		*scenarioPath = cfg.Bench.Scenario
	}
	// флаги командной строки перекрывают файл, проверяем итог ещё раз
	if err := config.Validate(cfg); err != nil {
		exitOnConfigError(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка инициализации логгера:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	c, err := loadCase(*scenarioPath, *days, cfg.Bench.Seed)
	if err != nil {
		logger.Fatal("failed to load scenario", zap.Error(err))
	}
	logger.Info("scenario loaded",
		zap.String("case", c.Name),
		zap.String("request", c.Scenario.Request.String()),
		zap.Int("windows", len(c.Scenario.Windows)),
		zap.Int("stages", len(c.Scenario.Stages)),
	)

	var model mlguided.YieldModel
	if *trainModel && cfg.ML.TrainSamples > 0 {
		sc := c.Scenario
		ens, err := mlguided.Train(ctx, sc.Request, sc.Windows, sc.Stages, cfg.ML, cfg.Bench.Seed)
		if err != nil {
			logger.Warn("yield model training failed, ML falls back to heuristic scoring", zap.Error(err))
		} else {
			model = ens
			logger.Info("yield model trained", zap.Float64("in_sample_confidence", ens.InSampleConfidence()))
		}
	}

	available := map[string]bench.Algorithm{
		"DP": {Name: "DP", Factory: newDPFactory(cfg.DP, logger)},
		"GA": {Name: "GA", Factory: newGAFactory(cfg.GA, logger)},
		"MO": {Name: "MO", Factory: newMOFactory(cfg.MOO, logger)},
		"ML": {Name: "ML", Factory: newMLFactory(cfg.ML, model, logger)},
		"SA": {Name: "SA", Factory: newSAFactory(cfg.SA, logger)},
	}

	var selected []bench.Algorithm
	for _, a := range splitCSV(*algos) {
		al, ok := available[strings.ToUpper(a)]
		if !ok {
			logger.Fatal("unknown algorithm", zap.String("algorithm", a), zap.Strings("available", keys(available)))
		}
		selected = append(selected, al)
	}

	runner := bench.Runner{
		Runs:          cfg.Bench.Runs,
		BaseSeed:      cfg.Bench.Seed,
		PerRunTimeout: cfg.Bench.PerRunTimeout(),
		Logger:        logger,
	}

	var handler *uncertainty.Handler
	if *withUnc {
		handler, err = uncertainty.New(cfg.Uncertainty, cfg.Bench.Seed)
		if err != nil {
			logger.Fatal("invalid uncertainty config", zap.Error(err))
		}
		handler.Logger = logger
	}

	var records []bench.Record
	for _, a := range selected {
		logger.Info("running algorithm", zap.String("algorithm", a.Name), zap.Int("runs", runner.Runs))

		rec, results, err := runner.RunCase(ctx, c, a)
		if err != nil {
			logger.Fatal("run failed", zap.String("algorithm", a.Name), zap.Error(err))
		}
		records = append(records, rec)

		logger.Info("algorithm finished",
			zap.String("algorithm", a.Name),
			zap.Int("feasible", rec.Feasible),
			zap.Float64("value_best", rec.ValueBest),
			zap.Float64("value_mean", rec.ValueMean),
			zap.Float64("value_std", rec.ValueStd),
			zap.Float64("confidence_mean", rec.ConfidenceMean),
			zap.Float64("time_mean_ms", rec.TimeMeanMs),
		)

		best, ok := bench.Best(results)
		if !ok {
			logger.Warn("no feasible schedule", zap.String("algorithm", a.Name), zap.String("note", results[0].Note))
			continue
		}
		for _, ev := range best.Schedule.Events {
			logger.Info("scheduled application", zap.String("algorithm", a.Name), zap.String("event", ev.String()))
		}
		if best.Note != "" {
			logger.Warn("partial schedule", zap.String("algorithm", a.Name), zap.String("note", best.Note))
		}

		if handler != nil {
			sc := c.Scenario
			analysis, err := handler.Analyze(ctx, sc.Request, best.Schedule, sc.Windows, sc.Stages)
			if err != nil {
				logger.Fatal("uncertainty analysis failed", zap.String("algorithm", a.Name), zap.Error(err))
			}
			logger.Info("uncertainty analysis",
				zap.String("algorithm", a.Name),
				zap.Int("scenarios", len(analysis.Scenarios)),
				zap.Float64("mean_yield", analysis.MeanOutcome[uncertainty.MetricYield]),
				zap.Float64(uncertainty.VaRKey(analysis.ConfidenceLevel), analysis.RiskMetrics[uncertainty.VaRKey(analysis.ConfidenceLevel)]),
				zap.Float64("mean_net_return", analysis.MeanOutcome[uncertainty.MetricNetReturn]),
				zap.Float64("confidence", analysis.Confidence),
			)
			path := scenariosPath(cfg.Bench.Output, a.Name)
			if err := bench.WriteScenariosCSV(path, analysis); err != nil {
				logger.Fatal("failed to write scenarios CSV", zap.String("path", path), zap.Error(err))
			}
		}
	}

	if err := bench.WriteCSV(cfg.Bench.Output, records); err != nil {
		logger.Fatal("failed to write CSV", zap.String("path", cfg.Bench.Output), zap.Error(err))
	}
	logger.Info("saved", zap.String("path", cfg.Bench.Output))
}

// initLogger строит zap-логгер по настройкам конфигурации.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Logging.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Logging.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}

// helpers

func loadCase(path string, days int, seed int64) (bench.Case, error) {
	if path == "" {
		if days <= 0 {
			return bench.Case{}, fmt.Errorf("длина сезона должна быть > 0 (получено %d)", days)
		}
		return bench.Case{
			Name:     fmt.Sprintf("synthetic-%dd", days),
			Scenario: scenario.Generate(days, rand.New(rand.NewSource(seed))),
		}, nil
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return bench.Case{}, err
	}
	return bench.Case{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Scenario: sc}, nil
}

func scenariosPath(out, algo string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "_uncertainty_" + strings.ToLower(algo) + ext
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func keys(m map[string]bench.Algorithm) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
