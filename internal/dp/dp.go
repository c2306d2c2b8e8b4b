package dp

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/opt"
)

const algorithm = "DP"

// Solver - точный оптимизатор динамическим программированием
// по дискретизированному пространству (период, остаток потребности по элементам).
type Solver struct {
	Cfg    Config
	Logger *zap.Logger
}

// New возвращает DP-солвер с валидацией конфигурации.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{Cfg: cfg, Logger: zap.NewNop()}, nil
}

// nutrientDim - одно измерение состояния: остаток элемента в корзинах.
type nutrientDim struct {
	nutrient    domain.Nutrient
	requirement float64
	buckets     int // B: полное значение остатка
	stride      int
	penalty     float64 // $ за полную недостачу
	credit      float64 // $ за полную эффективную дозу
}

// remaining - остаток потребности, соответствующий корзине b.
func (d nutrientDim) remaining(b int, step float64) float64 {
	return math.Min(float64(b)*step, d.requirement)
}

// action - действие периода: внести k корзин элемента dim способом method.
type action struct {
	dim    int
	method int
	k      int
}

// encode упаковывает действие в int32 политики; пропуск кодируется как -1.
func (a action) encode() int32 {
	return int32(a.dim)<<24 | int32(a.method)<<16 | int32(a.k)
}

func decodeAction(v int32) action {
	return action{dim: int(v >> 24), method: int(v>>16) & 0xff, k: int(v & 0xffff)}
}

// Optimize - обратный проход Беллмана и восстановление оптимального графика.
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

	step := s.Cfg.StateDiscretization
	gamma := s.Cfg.DiscountFactor
	periods := eval.Horizon()
	if periods > s.Cfg.MaxHorizonDays {
		periods = s.Cfg.MaxHorizonDays
	}
	methods := eval.Methods()

	// Периоды, в которых возможно хотя бы одно внесение
	usable := 0
	for t := 0; t < periods; t++ {
		for m := range methods {
			if ok, _ := eval.Candidate(t, m); ok {
				usable++
				break
			}
		}
	}
	if usable == 0 {
		log.Info("dp: no feasible periods", zap.String("field", req.FieldID), zap.Int("periods", periods))
		res := opt.Infeasible(algorithm, req, 0, opt.ReasonNoWindows)
		res.Meta["periods"] = periods
		return res, nil
	}

	// Измерения состояния (элементы с положительной потребностью)
	totalNeed := req.TotalRequirement()
	var dims []nutrientDim
	states := 1
	for _, n := range eval.Nutrients() {
		r := req.NutrientRequirements[n]
		if r <= 0 {
			continue
		}
		share := r / totalNeed
		d := nutrientDim{
			nutrient:    n,
			requirement: r,
			buckets:     int(math.Ceil(r/step - 1e-9)),
			stride:      states,
			penalty:     s.Cfg.ShortfallPenalty * eval.YieldValue() * share,
			credit:      eval.YieldValue() * share,
		}
		dims = append(dims, d)
		states *= d.buckets + 1
		if states > s.Cfg.MaxStates {
			break
		}
	}
	if len(dims) > 127 || len(methods) > 255 {
		return opt.Result{}, fmt.Errorf("dp: too many nutrients (%d) or methods (%d)", len(dims), len(methods))
	}
	for _, d := range dims {
		if d.buckets > 0xffff {
			return opt.Result{}, fmt.Errorf("dp: %s needs %d buckets; increase state_discretization", d.nutrient, d.buckets)
		}
	}
	if len(dims) == 0 {
		res := opt.Infeasible(algorithm, req, 0, opt.ReasonNothingDue)
		res.Feasible = true
		res.Confidence = 1
		res.Meta = map[string]any{"periods": periods}
		return res, nil
	}
	if int64(states)*int64(periods) > int64(s.Cfg.MaxStates) {
		return opt.Result{}, fmt.Errorf(
			"dp: state space %d states x %d periods exceeds limit %d; increase state_discretization",
			states, periods, s.Cfg.MaxStates,
		)
	}

	decode := func(state int, out []int) {
		for i, d := range dims {
			out[i] = (state / d.stride) % (d.buckets + 1)
		}
	}

	// Терминальное условие: штраф за недостачу
	next := make([]float64, states)
	cur := make([]float64, states)
	buckets := make([]int, len(dims))
	for st := 0; st < states; st++ {
		decode(st, buckets)
		v := 0.0
		for i, d := range dims {
			v -= d.penalty * d.remaining(buckets[i], step) / d.requirement
		}
		next[st] = v
	}
	baseline := 0.0
	for _, d := range dims {
		baseline += d.penalty
	}

	policy := make([][]int32, periods)
	evaluations := 0

	for t := periods - 1; t >= 0; t-- {
		if err := ctx.Err(); err != nil {
			return opt.Result{}, err
		}

		// Действия, допустимые в периоде (без учёта состояния)
		type periodMethod struct {
			method  int
			util    float64
			cost    float64
			maxRate float64
		}
		var pms []periodMethod
		for m, method := range methods {
			ok, override := eval.Candidate(t, m)
			if !ok {
				continue
			}
			prof := method.Profile()
			c := prof.OperatingCost
			if override {
				c += s.Cfg.OffWindowPenalty
			}
			pms = append(pms, periodMethod{method: m, util: eval.Utilization(t, m), cost: c, maxRate: prof.MaxRate})
		}

		policy[t] = make([]int32, states)
		for st := 0; st < states; st++ {
			decode(st, buckets)

			best := gamma * next[st] // пропуск периода
			bestAct := int32(-1)

			for i, d := range dims {
				b := buckets[i]
				if b == 0 {
					continue
				}
				if !req.SplitApplicationAllowed && b != d.buckets {
					continue
				}
				before := d.remaining(b, step)
				price := req.Price(d.nutrient)
				for _, pm := range pms {
					for k := 1; k <= b; k++ {
						after := d.remaining(b-k, step)
						amount := before - after
						if amount > pm.maxRate+1e-9 {
							break
						}
						if !req.SplitApplicationAllowed && k != b {
							continue
						}
						evaluations++
						reward := d.credit * pm.util * eval.Effective(amount, d.requirement) / d.requirement
						cost := amount*price + pm.cost
						q := reward - cost + gamma*next[st-k*d.stride]
						if q > best {
							best = q
							bestAct = action{dim: i, method: pm.method, k: k}.encode()
						}
					}
				}
			}
			cur[st] = best
			policy[t][st] = bestAct
		}
		next, cur = cur, next
	}

	// Восстановление графика из политики
	start := states - 1
	value := next[start]
	var events []domain.ApplicationEvent
	remaining := make([]float64, len(dims))
	for i, d := range dims {
		remaining[i] = d.requirement
	}
	st := start
	for t := 0; t < periods; t++ {
		idx := policy[t][st]
		if idx < 0 {
			continue
		}
		a := decodeAction(idx)
		d := dims[a.dim]
		decode(st, buckets)
		b := buckets[a.dim]
		if a.k > b {
			return opt.Result{}, domain.NewInvariantError(algorithm, "action takes %d buckets from %d at period %d", a.k, b, t)
		}
		amount := d.remaining(b, step) - d.remaining(b-a.k, step)
		remaining[a.dim] -= amount
		if remaining[a.dim] < -1e-9 {
			return opt.Result{}, domain.NewInvariantError(algorithm, "negative remaining %s requirement %.6f", d.nutrient, remaining[a.dim])
		}
		events = append(events, eval.NewEvent(t, a.method, d.nutrient, amount))
		st -= a.k * d.stride
	}

	schedule, assessment := eval.Score(events)
	if err := schedule.CheckRequirement(req); err != nil {
		return opt.Result{}, domain.NewInvariantError(algorithm, "%v", err)
	}

	coverage := schedule.Coverage(req)
	confidence := opt.Clamp01(0.6*coverage + 0.4*eval.CandidateSuitability())

	log.Debug("dp: solved",
		zap.String("field", req.FieldID),
		zap.Int("periods", periods),
		zap.Int("states", states),
		zap.Int("events", len(events)),
		zap.Float64("value", value+baseline),
	)

	shortfall := make(map[string]float64, len(dims))
	for i, d := range dims {
		shortfall[string(d.nutrient)] = math.Max(0, remaining[i])
	}

	return opt.Result{
		RunID:       opt.RunID(algorithm, req, 0),
		Algorithm:   algorithm,
		Schedule:    schedule,
		Value:       value + baseline,
		Confidence:  confidence,
		Feasible:    true,
		Note:        opt.ShortfallNote(req, schedule),
		Evaluations: evaluations,
		Iterations:  periods,
		Recommended: -1,
		Meta: map[string]any{
			"periods":              periods,
			"usable_periods":       usable,
			"states_per_period":    states,
			"state_space_size":     states * periods,
			"state_discretization": step,
			"discount_factor":      gamma,
			"raw_value":            value,
			"baseline_value":       -baseline,
			"expected_yield":       assessment.ExpectedYield,
			"shortfall":            shortfall,
		},
	}, nil
}
