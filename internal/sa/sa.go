package sa

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/ga"
	"fertTiming/internal/opt"
)

const algorithm = "SA"

// Solver - имитация отжига над пространством графиков внесения.
// Служит базовой линией для сравнения с GA и ML.
type Solver struct {
	Cfg    Config
	Seed   int64
	Logger *zap.Logger
}

// New возвращает новый SA-солвер с валидацией конфигурации.
// Используется в фабриках.
func New(cfg Config, seed int64) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Seed: seed, Logger: zap.NewNop()}, nil
}

func (s *Solver) Optimize(ctx context.Context, req *domain.Request, windows []domain.WeatherWindow, stages domain.StageCalendar) (opt.Result, error) {
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, err
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	eval, err := agronomy.NewEvaluator(req, windows, stages, agronomy.Options{
		MinSuitability: s.Cfg.MinSuitability,
		Weights:        s.Cfg.Weights,
	})
	if err != nil {
		return opt.Result{}, err
	}
	space := ga.NewSpace(eval, s.Cfg.MaxSplits)
	if space.Empty() {
		log.Info("sa: no feasible application days", zap.String("field", req.FieldID))
		return opt.Infeasible(algorithm, req, s.Seed, opt.ReasonNoWindows), nil
	}

	maxIter := s.Cfg.Iterations
	if maxIter <= 0 {
		maxIter = s.Cfg.IterationsPerDay * eval.Horizon()
	}

	rng := rand.New(rand.NewSource(s.Seed))

	score := func(events []domain.ApplicationEvent) ga.Scored {
		sch, a := eval.Score(events)
		return ga.Scored{Schedule: sch, Assessment: a}
	}

	curr := score(space.Random(rng))
	best := curr
	evals := 1
	accepted := 0
	T := s.Cfg.InitialTemp

	iter := 0
	for ; iter < maxIter && T > s.Cfg.FinalTemp; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}

		var cand []domain.ApplicationEvent
		switch s.Cfg.Neighborhood {
		case NeighborhoodRecombine:
			cand, _ = ga.Crossover(curr.Schedule.Events, space.Random(rng), eval.Nutrients(), rng)
		default:
			cand = space.Mutate(curr.Schedule.Events, rng)
		}
		next := score(cand)
		evals++

		// максимизация: ухудшение - отрицательная дельта
		delta := next.Schedule.Fitness - curr.Schedule.Fitness
		accept := delta >= 0
		if !accept {
			// Критерий Метрополиса
			accept = rng.Float64() < math.Exp(delta/T)
		}
		if accept {
			curr = next
			accepted++
			if curr.Schedule.Fitness > best.Schedule.Fitness {
				best = curr
			}
		}

		// Охлаждение температуры
		T *= s.Cfg.Alpha
	}

	if err := best.Schedule.CheckRequirement(req); err != nil {
		return opt.Result{}, domain.NewInvariantError(algorithm, "%v", err)
	}

	acceptance := 0.0
	if iter > 0 {
		acceptance = float64(accepted) / float64(iter)
	}
	confidence := 0.6*best.Assessment.Coverage + 0.4*eval.MeanSuitability(best.Schedule.Events)
	if best.Assessment.Violations > 0 {
		confidence *= 0.5
	}

	log.Debug("sa: finished",
		zap.String("field", req.FieldID),
		zap.Int("iterations", iter),
		zap.Float64("final_temp", T),
		zap.Float64("fitness", best.Schedule.Fitness),
	)

	return opt.Result{
		RunID:       opt.RunID(algorithm, req, s.Seed),
		Algorithm:   algorithm,
		Schedule:    best.Schedule,
		Value:       best.Schedule.Fitness,
		Confidence:  opt.Clamp01(confidence),
		Feasible:    true,
		Note:        opt.ShortfallNote(req, best.Schedule),
		Evaluations: evals,
		Iterations:  iter,
		Recommended: -1,
		Meta: map[string]any{
			"initial_temp":    s.Cfg.InitialTemp,
			"final_temp":      T,
			"alpha":           s.Cfg.Alpha,
			"neighborhood":    string(s.Cfg.Neighborhood),
			"acceptance_rate": acceptance,
			"expected_yield":  best.Assessment.ExpectedYield,
		},
	}, nil
}
