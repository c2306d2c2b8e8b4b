package moo

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/ga"
	"fertTiming/internal/opt"
)

const algorithm = "MO"

// Solver - многокритериальный поиск (недоминируемая сортировка + crowding distance)
// на тех же генетических операторах, что и GA.
type Solver struct {
	Cfg    Config
	Seed   int64
	Logger *zap.Logger
}

// New возвращает новый многокритериальный солвер с валидацией конфигурации.
func New(cfg Config, seed int64) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Seed: seed, Logger: zap.NewNop()}, nil
}

type individual struct {
	ga.Scored
	objectives []float64
	rank       int
	crowding   float64
}

func toIndividuals(scored []ga.Scored) []individual {
	out := make([]individual, len(scored))
	for i, s := range scored {
		out[i] = individual{Scored: s, objectives: s.Assessment.Objectives()}
	}
	return out
}

// Optimize строит фронт Парето и выбирает рекомендованный график по приоритетам запроса.
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
		log.Info("moo: no feasible application days", zap.String("field", req.FieldID))
		return opt.Infeasible(algorithm, req, s.Seed, opt.ReasonNoWindows), nil
	}

	rng := rand.New(rand.NewSource(s.Seed))
	n := s.Cfg.Population

	genomes := make([][]domain.ApplicationEvent, n)
	for i := range genomes {
		genomes[i] = space.Random(rng)
	}
	scored, err := ga.EvaluateAll(ctx, eval, genomes, s.Cfg.Workers)
	if err != nil {
		return opt.Result{}, err
	}
	pop := toIndividuals(scored)
	assignRankAndCrowding(pop)
	evaluations := n

	frontSizes := make([]int, 0, s.Cfg.Generations)
	for gen := 0; gen < s.Cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}

		// Потомки: бинарный турнир по (ранг, crowding), кроссовер, мутация
		children := make([][]domain.ApplicationEvent, 0, n)
		for len(children) < n {
			p1 := crowdedTournament(pop, rng)
			p2 := crowdedTournament(pop, rng)
			c1, c2 := pop[p1].Schedule.Events, pop[p2].Schedule.Events
			if rng.Float64() < s.Cfg.CrossoverRate {
				c1, c2 = ga.Crossover(c1, c2, eval.Nutrients(), rng)
			}
			if rng.Float64() < s.Cfg.MutationRate {
				c1 = space.Mutate(c1, rng)
			}
			if rng.Float64() < s.Cfg.MutationRate {
				c2 = space.Mutate(c2, rng)
			}
			children = append(children, c1)
			if len(children) < n {
				children = append(children, c2)
			}
		}
		offspring, err := ga.EvaluateAll(ctx, eval, children, s.Cfg.Workers)
		if err != nil {
			return opt.Result{}, err
		}
		evaluations += len(offspring)

		// Отбор из объединения родителей и потомков по фронтам
		combined := append(append(make([]individual, 0, 2*n), pop...), toIndividuals(offspring)...)
		pop = selectNext(combined, n)
		frontSizes = append(frontSizes, countRank(pop, 0))

		log.Debug("moo: generation", zap.Int("generation", gen+1), zap.Int("front_size", frontSizes[len(frontSizes)-1]))
	}

	front := paretoFront(pop)
	rec := recommend(front, req)
	chosen := front[rec]

	yp, cp, ep := req.Priorities()
	confidence := 0.4*chosen.Assessment.Coverage +
		0.3*eval.MeanSuitability(chosen.Schedule.Events) +
		0.3*math.Min(1, float64(len(front))/5)
	if chosen.Assessment.Violations > 0 {
		confidence *= 0.5
	}

	entries := make([]opt.ParetoEntry, len(front))
	for i, f := range front {
		entries[i] = opt.ParetoEntry{Schedule: f.Schedule, Objectives: f.objectives}
	}

	log.Debug("moo: finished",
		zap.String("field", req.FieldID),
		zap.Int("front_size", len(front)),
		zap.Int("recommended", rec),
	)

	return opt.Result{
		RunID:       opt.RunID(algorithm, req, s.Seed),
		Algorithm:   algorithm,
		Schedule:    chosen.Schedule,
		Value:       scalarize(chosen.objectives, weightVector(req)),
		Confidence:  opt.Clamp01(confidence),
		Feasible:    true,
		Note:        opt.ShortfallNote(req, chosen.Schedule),
		Evaluations: evaluations,
		Iterations:  s.Cfg.Generations,
		Pareto:      entries,
		Recommended: rec,
		Meta: map[string]any{
			"population":       n,
			"front_size":       len(front),
			"front_history":    frontSizes,
			"priority_weights": []float64{yp, cp, ep},
			"objectives":       opt.Objectives,
		},
	}, nil
}

// objectivesOf собирает векторы целей и число нарушений ограничений популяции.
func objectivesOf(pop []individual) ([][]float64, []int) {
	objs := make([][]float64, len(pop))
	viol := make([]int, len(pop))
	for i := range pop {
		objs[i] = pop[i].objectives
		viol[i] = pop[i].Assessment.Violations
	}
	return objs, viol
}

// assignRankAndCrowding проставляет ранг фронта и crowding distance.
func assignRankAndCrowding(pop []individual) {
	objs, viol := objectivesOf(pop)
	for r, front := range ConstrainedNonDominatedSort(objs, viol) {
		dist := CrowdingDistance(objs, front)
		for _, i := range front {
			pop[i].rank = r
			pop[i].crowding = dist[i]
		}
	}
}

// selectNext - элитарный отбор NSGA-II: целые фронты, последний частично по crowding distance.
func selectNext(combined []individual, n int) []individual {
	objs, viol := objectivesOf(combined)
	next := make([]individual, 0, n)
	for r, front := range ConstrainedNonDominatedSort(objs, viol) {
		dist := CrowdingDistance(objs, front)
		for _, i := range front {
			combined[i].rank = r
			combined[i].crowding = dist[i]
		}
		if len(next)+len(front) <= n {
			for _, i := range front {
				next = append(next, combined[i])
			}
			continue
		}
		ordered := append([]int(nil), front...)
		sort.SliceStable(ordered, func(a, b int) bool {
			return dist[ordered[a]] > dist[ordered[b]]
		})
		for _, i := range ordered[:n-len(next)] {
			next = append(next, combined[i])
		}
		break
	}
	// crowding distance пересчитывается на новой популяции
	assignRankAndCrowding(next)
	return next
}

func crowdedTournament(pop []individual, rng *rand.Rand) int {
	a := rng.Intn(len(pop))
	b := rng.Intn(len(pop))
	va, vb := pop[a].Assessment.Violations, pop[b].Assessment.Violations
	switch {
	case va < vb:
		return a
	case vb < va:
		return b
	case pop[a].rank < pop[b].rank:
		return a
	case pop[b].rank < pop[a].rank:
		return b
	case pop[a].crowding >= pop[b].crowding:
		return a
	default:
		return b
	}
}

func countRank(pop []individual, rank int) int {
	n := 0
	for _, p := range pop {
		if p.rank == rank {
			n++
		}
	}
	return n
}

// paretoFront возвращает недоминируемых членов популяции без дубликатов векторов целей.
// Доминирование с ограничениями: если есть допустимые решения, во фронт попадают только они.
func paretoFront(pop []individual) []individual {
	objs, viol := objectivesOf(pop)
	fronts := ConstrainedNonDominatedSort(objs, viol)
	var out []individual
	for _, i := range fronts[0] {
		dup := false
		for _, o := range out {
			if equalVectors(o.objectives, pop[i].objectives) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, pop[i])
		}
	}
	return out
}

func equalVectors(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// weightVector - веса целей из приоритетов запроса; вес риска растёт с неприятием риска.
func weightVector(req *domain.Request) []float64 {
	yp, cp, ep := req.Priorities()
	risk := 0.25 * (1 - req.RiskTolerance)
	sum := yp + cp + ep + risk
	return []float64{yp / sum, cp / sum, ep / sum, risk / sum}
}

func scalarize(objectives, weights []float64) float64 {
	v := 0.0
	for i := range objectives {
		v += weights[i] * objectives[i]
	}
	return v
}

// recommend выбирает член фронта, ближайший к идеальной точке
// по взвешенной метрике Чебышёва (цели нормированы на размах фронта).
func recommend(front []individual, req *domain.Request) int {
	w := weightVector(req)
	m := len(w)
	ideal := make([]float64, m)
	worst := make([]float64, m)
	for k := 0; k < m; k++ {
		ideal[k] = math.Inf(-1)
		worst[k] = math.Inf(1)
		for _, f := range front {
			ideal[k] = math.Max(ideal[k], f.objectives[k])
			worst[k] = math.Min(worst[k], f.objectives[k])
		}
	}

	best, bestDist := 0, math.Inf(1)
	for i, f := range front {
		d := 0.0
		for k := 0; k < m; k++ {
			span := ideal[k] - worst[k]
			if span <= 0 {
				continue
			}
			d = math.Max(d, w[k]*(ideal[k]-f.objectives[k])/span)
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
