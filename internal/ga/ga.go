package ga

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/opt"
)

const algorithm = "GA"

// Solver - генетический алгоритм над графиками внесения.
// Генератор случайных чисел создаётся из Seed в каждом вызове Optimize,
// поэтому повторные вызовы с теми же входами дают тот же результат.
type Solver struct {
	Cfg    Config
	Seed   int64
	Logger *zap.Logger
}

// New возвращает новый GA-солвер с валидацией конфигурации.
// Используется в фабриках.
func New(cfg Config, seed int64) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Seed: seed, Logger: zap.NewNop()}, nil
}

// Optimize - основной цикл алгоритма.
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

	space := NewSpace(eval, s.Cfg.MaxSplits)
	if space.Empty() {
		log.Info("ga: no feasible application days", zap.String("field", req.FieldID))
		return opt.Infeasible(algorithm, req, s.Seed, opt.ReasonNoWindows), nil
	}

	popSize := s.Cfg.Population
	rng := rand.New(rand.NewSource(s.Seed))

	// Инициализация начальной популяции
	genomes := make([][]domain.ApplicationEvent, popSize)
	for i := range genomes {
		genomes[i] = space.Random(rng)
	}
	pop, err := EvaluateAll(ctx, eval, genomes, s.Cfg.Workers)
	if err != nil {
		return opt.Result{}, err
	}
	evaluations := popSize

	best := bestOf(pop)
	history := []float64{best.Schedule.Fitness}

	scores := make([]float64, popSize)
	idxs := make([]int, popSize)
	converged := false

	for gen := 1; gen <= s.Cfg.Generations; gen++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}

		for i := range pop {
			scores[i] = pop[i].Schedule.Fitness
			idxs[i] = i
		}
		// Сортировка по убыванию приспособленности, при равенстве - по индексу
		sort.SliceStable(idxs, func(i, j int) bool {
			return scores[idxs[i]] > scores[idxs[j]]
		})

		next := make([]Scored, 0, popSize)

		// Элитизм (переносим лучших особей без изменений)
		for e := 0; e < s.Cfg.Elite; e++ {
			next = append(next, pop[idxs[e]])
		}

		// Генерация остальных особей нового поколения
		children := make([][]domain.ApplicationEvent, 0, popSize-len(next))
		for len(next)+len(children) < popSize {
			// Турнирный отбор
			p1 := tournamentSelect(scores, s.Cfg.TournamentSize, rng)
			p2 := tournamentSelect(scores, s.Cfg.TournamentSize, rng)
			for tries := 0; p2 == p1 && tries < 8; tries++ {
				p2 = tournamentSelect(scores, s.Cfg.TournamentSize, rng)
			}

			// Кроссовер
			c1, c2 := pop[p1].Schedule.Events, pop[p2].Schedule.Events
			if rng.Float64() < s.Cfg.CrossoverRate {
				c1, c2 = Crossover(c1, c2, eval.Nutrients(), rng)
			}

			// Мутация
			if rng.Float64() < s.Cfg.MutationRate {
				c1 = space.Mutate(c1, rng)
			}
			if rng.Float64() < s.Cfg.MutationRate {
				c2 = space.Mutate(c2, rng)
			}

			children = append(children, c1)
			if len(next)+len(children) < popSize {
				children = append(children, c2)
			}
		}

		// Оценка потомков
		scored, err := EvaluateAll(ctx, eval, children, s.Cfg.Workers)
		if err != nil {
			return opt.Result{}, err
		}
		evaluations += len(children)

		// Смена поколений
		pop = append(next, scored...)

		if cand := bestOf(pop); cand.Schedule.Fitness > best.Schedule.Fitness {
			best = cand
		}
		history = append(history, best.Schedule.Fitness)

		log.Debug("ga: generation",
			zap.Int("generation", gen),
			zap.Float64("best_fitness", best.Schedule.Fitness),
		)

		if p := s.Cfg.ConvergencePatience; p > 0 && len(history) > p {
			if history[len(history)-1]-history[len(history)-1-p] < s.Cfg.ConvergenceThreshold {
				converged = true
				break
			}
		}
	}
	generations := len(history) - 1

	if err := best.Schedule.CheckRequirement(req); err != nil {
		return opt.Result{}, domain.NewInvariantError(algorithm, "%v", err)
	}

	stability := 0.5
	if converged {
		stability = 1
	}
	confidence := 0.5*best.Assessment.Coverage + 0.3*eval.MeanSuitability(best.Schedule.Events) + 0.2*stability
	if best.Assessment.Violations > 0 {
		confidence *= 0.5
	}

	log.Debug("ga: finished",
		zap.String("field", req.FieldID),
		zap.Int("generations", generations),
		zap.Bool("converged", converged),
		zap.Float64("fitness", best.Schedule.Fitness),
	)

	return opt.Result{
		RunID:          opt.RunID(algorithm, req, s.Seed),
		Algorithm:      algorithm,
		Schedule:       best.Schedule,
		Value:          best.Schedule.Fitness,
		Confidence:     opt.Clamp01(confidence),
		Feasible:       true,
		Note:           opt.ShortfallNote(req, best.Schedule),
		Evaluations:    evaluations,
		Iterations:     generations,
		FitnessHistory: history,
		Recommended:    -1,
		Meta: map[string]any{
			"population":     s.Cfg.Population,
			"generations":    generations,
			"elite":          s.Cfg.Elite,
			"converged":      converged,
			"expected_yield": best.Assessment.ExpectedYield,
			"violations":     best.Assessment.Violations,
		},
	}, nil
}

// bestOf возвращает особь с наибольшей приспособленностью (первую при равенстве).
func bestOf(pop []Scored) Scored {
	best := pop[0]
	for _, p := range pop[1:] {
		if p.Schedule.Fitness > best.Schedule.Fitness {
			best = p
		}
	}
	return best
}
