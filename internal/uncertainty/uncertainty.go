package uncertainty

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
)

// Метрики исхода сценария.
const (
	MetricYield     = "yield"
	MetricCost      = "cost"
	MetricRisk      = "risk"
	MetricNetReturn = "net_return"
)

// Outcome - результат воспроизведения графика в одном сценарии.
type Outcome struct {
	Index int
	Seed  int64

	WeatherShock float64
	YieldShock   float64
	PriceShock   float64

	Yield     float64
	Cost      float64
	Risk      float64
	NetReturn float64
}

func (o Outcome) metric(name string) float64 {
	switch name {
	case MetricYield:
		return o.Yield
	case MetricCost:
		return o.Cost
	case MetricRisk:
		return o.Risk
	default:
		return o.NetReturn
	}
}

// Analysis - распределение исходов фиксированного графика.
type Analysis struct {
	Scenarios   []Outcome
	MeanOutcome map[string]float64
	StdOutcome  map[string]float64
	// RiskMetrics: value_at_risk_<tail%>, value_at_risk, conditional_value_at_risk,
	// net_return_at_risk, shortfall_probability, coefficient_of_variation.
	RiskMetrics     map[string]float64
	ConfidenceLevel float64
	Confidence      float64
}

// Handler - анализ неопределённости методом Монте-Карло.
type Handler struct {
	Cfg    Config
	Seed   int64
	Logger *zap.Logger
}

func New(cfg Config, seed int64) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{Cfg: cfg, Seed: seed, Logger: zap.NewNop()}, nil
}

// VaRKey - имя метрики VaR для уровня доверия: хвост в процентах с точностью
// до сотых, дробная часть через "_" (0.95 → "value_at_risk_5", 0.975 → "value_at_risk_2_5").
func VaRKey(level float64) string {
	tail := math.Round((1-level)*10000) / 100
	return "value_at_risk_" + strings.ReplaceAll(strconv.FormatFloat(tail, 'f', -1, 64), ".", "_")
}

// Analyze воспроизводит schedule в NumScenarios возмущённых сценариях погоды,
// урожайности и цен. Сиды сценариев выбираются последовательно из Seed,
// сами сценарии считаются параллельно и пишутся по индексу.
func (h *Handler) Analyze(ctx context.Context, req *domain.Request, schedule domain.Schedule, windows []domain.WeatherWindow, stages domain.StageCalendar) (Analysis, error) {
	if err := h.Cfg.Validate(); err != nil {
		return Analysis{}, err
	}
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts := agronomy.Options{MinSuitability: h.Cfg.MinSuitability, Weights: h.Cfg.Weights}

	// базовая оценка проверяет входы и даёт цену культуры
	base, err := agronomy.NewEvaluator(req, windows, stages, opts)
	if err != nil {
		return Analysis{}, err
	}
	cropPrice := 0.0
	if base.BaseYield() > 0 {
		cropPrice = base.YieldValue() / base.BaseYield()
	}
	expected := base.Assess(schedule.Events).ExpectedYield

	weatherSigma, yieldSigma := h.Cfg.WeatherVolatility, h.Cfg.YieldVolatility
	if h.Cfg.SeasonalCalibration {
		f := calibration(req)
		weatherSigma *= f
		yieldSigma *= f
	}

	n := h.Cfg.NumScenarios
	master := rand.New(rand.NewSource(h.Seed))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	out := make([]Outcome, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.Cfg.Workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			o := Outcome{
				Index:        i,
				Seed:         seeds[i],
				WeatherShock: rng.NormFloat64() * weatherSigma,
				YieldShock:   rng.NormFloat64() * yieldSigma,
				PriceShock:   rng.NormFloat64() * h.Cfg.PriceVolatility,
			}
			eval, err := agronomy.NewEvaluator(req, perturb(windows, o.WeatherShock, weatherSigma, rng), stages, opts)
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}
			a := eval.Assess(schedule.Events)
			o.Yield = math.Max(0, a.ExpectedYield*(1+o.YieldShock))
			o.Cost = math.Max(0, a.Cost*(1+o.PriceShock))
			o.Risk = a.Risk
			o.NetReturn = o.Yield*cropPrice - o.Cost
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Analysis{}, err
	}

	res := summarize(out, h.Cfg.ConfidenceLevel, expected)
	log.Debug("uncertainty: finished",
		zap.String("field", req.FieldID),
		zap.Int("scenarios", n),
		zap.Float64("mean_yield", res.MeanOutcome[MetricYield]),
		zap.Float64("value_at_risk", res.RiskMetrics["value_at_risk"]),
	)
	return res, nil
}

// perturb возмущает окна: общий сдвиг пригодности shock плюс собственный шум окна.
// Даты окон не меняются.
func perturb(windows []domain.WeatherWindow, shock, sigma float64, rng *rand.Rand) []domain.WeatherWindow {
	out := make([]domain.WeatherWindow, len(windows))
	for i, w := range windows {
		local := rng.NormFloat64() * sigma * 0.5
		w.SuitabilityScore = clamp01(w.SuitabilityScore * (1 + shock + local))
		w.PrecipitationProbability = clamp01(w.PrecipitationProbability - shock + rng.NormFloat64()*sigma*0.5)
		w.SoilMoisture = clamp01(w.SoilMoisture * (1 + rng.NormFloat64()*sigma*0.5))
		out[i] = w
	}
	return out
}

// calibration - множитель волатильности по сезону посадки и широте.
// Весенние посадки и высокие широты дают больший разброс погоды.
func calibration(req *domain.Request) float64 {
	f := 1.0
	month := req.PlantingDate.Month()
	if req.Location.Latitude < 0 {
		month = (month+5)%12 + 1 // южное полушарие: сдвиг на полгода
	}
	switch month {
	case time.March, time.April, time.May:
		f *= 1.2
	case time.June, time.July, time.August:
		f *= 1.0
	default:
		f *= 1.1
	}
	if lat := math.Abs(req.Location.Latitude); lat > 35 {
		f *= 1 + 0.5*math.Min(1, (lat-35)/30)
	}
	return f
}

func summarize(outcomes []Outcome, level, expected float64) Analysis {
	metrics := []string{MetricYield, MetricCost, MetricRisk, MetricNetReturn}
	res := Analysis{
		Scenarios:       outcomes,
		MeanOutcome:     make(map[string]float64, len(metrics)),
		StdOutcome:      make(map[string]float64, len(metrics)),
		RiskMetrics:     make(map[string]float64),
		ConfidenceLevel: level,
	}
	for _, m := range metrics {
		vals := values(outcomes, m)
		mean, std := meanStd(vals)
		res.MeanOutcome[m] = mean
		res.StdOutcome[m] = std
	}

	tail := 1 - level
	yields := values(outcomes, MetricYield)
	sort.Float64s(yields)
	meanYield := res.MeanOutcome[MetricYield]
	// квантиль хвоста не выше среднего
	v := math.Min(percentile(yields, tail), meanYield)
	res.RiskMetrics["value_at_risk"] = v
	res.RiskMetrics[VaRKey(level)] = v

	cvar, cnt := 0.0, 0
	for _, y := range yields {
		if y <= v {
			cvar += y
			cnt++
		}
	}
	if cnt > 0 {
		res.RiskMetrics["conditional_value_at_risk"] = cvar / float64(cnt)
	} else {
		res.RiskMetrics["conditional_value_at_risk"] = v
	}

	returns := values(outcomes, MetricNetReturn)
	sort.Float64s(returns)
	res.RiskMetrics["net_return_at_risk"] = math.Min(percentile(returns, tail), res.MeanOutcome[MetricNetReturn])

	below := 0
	for _, y := range yields {
		if y < 0.9*expected {
			below++
		}
	}
	res.RiskMetrics["shortfall_probability"] = float64(below) / float64(len(yields))

	cv := 0.0
	if meanYield > 0 {
		cv = res.StdOutcome[MetricYield] / meanYield
	}
	res.RiskMetrics["coefficient_of_variation"] = cv
	res.Confidence = clamp01(1 - cv)
	return res
}

func values(outcomes []Outcome, metric string) []float64 {
	out := make([]float64, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.metric(metric)
	}
	return out
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	v := 0.0
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(v / float64(len(xs)-1))
}

// percentile - линейная интерполяция по отсортированной выборке, p ∈ [0,1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
