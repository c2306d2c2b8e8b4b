package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"fertTiming/internal/opt"
	"fertTiming/internal/scenario"
	"fertTiming/internal/uncertainty"
)

var tracer = otel.Tracer("fertTiming/internal/bench")

type Algorithm struct {
	Name    string
	Factory func(seed int64) opt.Optimizer
}

type Case struct {
	Name     string
	Scenario *scenario.Scenario
}

type Record struct {
	Algo     string
	Case     string
	Runs     int
	Feasible int

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64

	ValueBest   float64
	ValueMean   float64
	ValueStd    float64
	ValueMedian float64

	ConfidenceMean float64
	CostMean       float64
	EventsMean     float64
}

type Runner struct {
	Runs          int
	BaseSeed      int64
	PerRunTimeout time.Duration // 0 = no timeout
	Logger        *zap.Logger
}

// RunCase запускает алгоритм Runs раз с сидами BaseSeed+i и возвращает сводку
// и результаты всех прогонов (в порядке сидов).
func (r Runner) RunCase(ctx context.Context, c Case, algo Algorithm) (Record, []opt.Result, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sc := c.Scenario

	values := make([]float64, 0, r.Runs)
	confidences := make([]float64, 0, r.Runs)
	costs := make([]float64, 0, r.Runs)
	events := make([]int, 0, r.Runs)
	timesMs := make([]float64, 0, r.Runs)
	results := make([]opt.Result, 0, r.Runs)
	feasible := 0

	for i := 0; i < r.Runs; i++ {
		runSeed := r.BaseSeed + int64(i)

		op := algo.Factory(runSeed)

		runCtx := ctx
		cancel := func() {}
		if r.PerRunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, r.PerRunTimeout)
		}
		runCtx, span := tracer.Start(runCtx, "optimize", trace.WithAttributes(
			attribute.String("algorithm", algo.Name),
			attribute.String("case", c.Name),
			attribute.Int64("seed", runSeed),
		))

		start := time.Now()
		res, err := op.Optimize(runCtx, sc.Request, sc.Windows, sc.Stages)
		dur := time.Since(start)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			timedOut := runCtx.Err() != nil
			cancel()
			if timedOut {
				return Record{}, nil, fmt.Errorf("run %d: cancelled/timeout: %w", i, err)
			}
			return Record{}, nil, fmt.Errorf("run %d: optimize error: %w", i, err)
		}
		span.SetAttributes(
			attribute.Float64("value", res.Value),
			attribute.Float64("confidence", res.Confidence),
			attribute.Bool("feasible", res.Feasible),
		)
		span.End()
		cancel()

		if res.Feasible {
			if err := res.Schedule.CheckRequirement(sc.Request); err != nil {
				return Record{}, nil, fmt.Errorf("run %d: %w", i, err)
			}
			feasible++
		}

		log.Debug("bench: run finished",
			zap.String("algorithm", algo.Name),
			zap.Int64("seed", runSeed),
			zap.Float64("value", res.Value),
			zap.Duration("duration", dur),
		)

		values = append(values, res.Value)
		confidences = append(confidences, res.Confidence)
		costs = append(costs, res.Schedule.TotalCost)
		events = append(events, len(res.Schedule.Events))
		timesMs = append(timesMs, float64(dur.Microseconds())/1000.0)
		results = append(results, res)
	}

	vStats := CalcFloatStats(values)
	tStats := CalcFloatStats(timesMs)
	eStats := CalcIntStats(events)

	return Record{
		Algo:     algo.Name,
		Case:     c.Name,
		Runs:     r.Runs,
		Feasible: feasible,

		TimeBestMs: tStats.Min,
		TimeMeanMs: tStats.Mean,
		TimeStdMs:  tStats.Std,

		ValueBest:   vStats.Max,
		ValueMean:   vStats.Mean,
		ValueStd:    vStats.Std,
		ValueMedian: Percentile(values, 0.5),

		ConfidenceMean: CalcFloatStats(confidences).Mean,
		CostMean:       CalcFloatStats(costs).Mean,
		EventsMean:     eStats.Mean,
	}, results, nil
}

// Best возвращает результат с наибольшим Value среди допустимых (первый при равенстве).
func Best(results []opt.Result) (opt.Result, bool) {
	var best opt.Result
	found := false
	for _, r := range results {
		if !r.Feasible {
			continue
		}
		if !found || r.Value > best.Value {
			best, found = r, true
		}
	}
	return best, found
}

func WriteCSV(path string, records []Record) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"algo", "case", "runs", "feasible",
		"time_best_ms", "time_mean_ms", "time_std_ms",
		"value_best", "value_mean", "value_std", "value_median",
		"confidence_mean", "cost_mean", "events_mean",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Algo,
			r.Case,
			itoa(r.Runs),
			itoa(r.Feasible),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),

			ftoa(r.ValueBest),
			ftoa(r.ValueMean),
			ftoa(r.ValueStd),
			ftoa(r.ValueMedian),

			ftoa(r.ConfidenceMean),
			ftoa(r.CostMean),
			ftoa(r.EventsMean),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// WriteScenariosCSV сохраняет исходы сценариев анализа неопределённости.
func WriteScenariosCSV(path string, a uncertainty.Analysis) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"scenario", "seed", "weather_shock", "yield_shock", "price_shock", "yield", "cost", "risk", "net_return"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, o := range a.Scenarios {
		row := []string{
			itoa(o.Index),
			i64toa(o.Seed),
			ftoa(o.WeatherShock),
			ftoa(o.YieldShock),
			ftoa(o.PriceShock),
			ftoa(o.Yield),
			ftoa(o.Cost),
			ftoa(o.Risk),
			ftoa(o.NetReturn),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func create(path string) (*os.File, error) {
	if d := dirOf(path); d != "" {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
