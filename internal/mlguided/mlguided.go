package mlguided

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

const algorithm = "ML"

// Solver - локальный поиск (hill climbing с epsilon-greedy исследованием),
// целевая функция которого - предсказание YieldModel.
// Model == nil означает эвристическую оценку со сниженной уверенностью.
type Solver struct {
	Cfg    Config
	Seed   int64
	Model  YieldModel
	Logger *zap.Logger
}

func New(cfg Config, seed int64, model YieldModel) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Seed: seed, Model: model, Logger: zap.NewNop()}, nil
}

type candidate struct {
	events     []domain.ApplicationEvent
	mean       float64
	std        float64
	violations int
	objective  float64
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
		log.Info("ml: no feasible application days", zap.String("field", req.FieldID))
		return opt.Infeasible(algorithm, req, s.Seed, opt.ReasonNoWindows), nil
	}

	model, fallback := s.Model, false
	if model == nil {
		model, fallback = newHeuristic(eval, s.Cfg.FallbackConfidence), true
		log.Info("ml: no model supplied, using heuristic scoring", zap.String("field", req.FieldID))
	}

	evaluations := 0
	score := func(events []domain.ApplicationEvent) candidate {
		evaluations++
		mean, std := model.Predict(Features(eval, events, s.Cfg.DiscountFactor))
		v := eval.Assess(events).Violations
		return candidate{
			events:     events,
			mean:       mean,
			std:        std,
			violations: v,
			objective:  mean - s.Cfg.UncertaintyPenalty*std - float64(v)*s.Cfg.Weights.ViolationPenalty*eval.BaseYield(),
		}
	}

	rng := rand.New(rand.NewSource(s.Seed))

	// Старт: лучший из случайных допустимых графиков
	cur := score(space.Random(rng))
	for i := 1; i < s.Cfg.InitialCandidates; i++ {
		if c := score(space.Random(rng)); c.objective > cur.objective {
			cur = c
		}
	}
	best := cur

	explored, improved := 0, 0
	iterations := 0
	for ; iterations < s.Cfg.MaxIterations; iterations++ {
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}

		neighbors := make([]candidate, s.Cfg.Neighbors)
		top := 0
		for i := range neighbors {
			neighbors[i] = score(space.Mutate(cur.events, rng))
			if neighbors[i].objective > neighbors[top].objective {
				top = i
			}
		}

		if rng.Float64() < s.Cfg.ExplorationRate {
			cur = neighbors[rng.Intn(len(neighbors))]
			explored++
		} else if neighbors[top].objective > cur.objective {
			cur = neighbors[top]
			improved++
		}
		if cur.objective > best.objective {
			best = cur
		}
	}

	schedule, assessment := eval.Score(best.events)
	if err := schedule.CheckRequirement(req); err != nil {
		return opt.Result{}, domain.NewInvariantError(algorithm, "%v", err)
	}

	inSample := opt.Clamp01(model.InSampleConfidence())
	modelConfidence := 0.0
	if math.Abs(best.mean) > 0 {
		// разброс предсказания на победителе снижает уверенность относительно качества подгонки
		cv := best.std / math.Abs(best.mean)
		modelConfidence = 0.9 * inSample / (1 + cv)
	}
	confidence := modelConfidence * (0.5 + 0.5*assessment.Coverage)
	if assessment.Violations > 0 {
		confidence *= 0.5
	}

	log.Debug("ml: finished",
		zap.String("field", req.FieldID),
		zap.Bool("fallback", fallback),
		zap.Float64("predicted_yield", best.mean),
		zap.Float64("model_confidence", modelConfidence),
	)

	return opt.Result{
		RunID:       opt.RunID(algorithm, req, s.Seed),
		Algorithm:   algorithm,
		Schedule:    schedule,
		Value:       best.objective,
		Confidence:  opt.Clamp01(confidence),
		Feasible:    true,
		Note:        opt.ShortfallNote(req, schedule),
		Evaluations: evaluations,
		Iterations:  iterations,
		Recommended: -1,
		Model: &opt.ModelDiagnostics{
			PredictedYield:     best.mean,
			PredictionStd:      best.std,
			ModelConfidence:    modelConfidence,
			InSampleConfidence: inSample,
			Fallback:           fallback,
		},
		Meta: map[string]any{
			"explored_moves":  explored,
			"improving_moves": improved,
			"expected_yield":  assessment.ExpectedYield,
			"fallback":        fallback,
		},
	}, nil
}
