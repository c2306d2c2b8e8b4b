package ga

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
)

var planting = time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)

func e2eRequest() *domain.Request {
	return &domain.Request{
		RequestID:               "req-e2e",
		FieldID:                 "field-e2e",
		CropType:                "corn",
		PlantingDate:            planting,
		NutrientRequirements:    map[domain.Nutrient]float64{domain.NutrientNitrogen: 150},
		ApplicationMethods:      []domain.ApplicationMethod{domain.MethodBroadcast},
		OptimizationHorizonDays: 90,
		RiskTolerance:           0.5,
		SplitApplicationAllowed: true,
		WeatherDependentTiming:  true,
	}
}

func optimalWindows(n int) []domain.WeatherWindow {
	out := make([]domain.WeatherWindow, n)
	for i := range out {
		d := planting.AddDate(0, 0, i)
		out[i] = domain.WeatherWindow{
			StartDate: d, EndDate: d,
			Condition: domain.ConditionOptimal, Temperature: 18,
			PrecipitationProbability: 0.1, SoilMoisture: 0.4, SuitabilityScore: 0.9,
		}
	}
	return out
}

// mixedWindows - окна через день с чередующейся пригодностью, часть ниже порога.
func mixedWindows() []domain.WeatherWindow {
	var out []domain.WeatherWindow
	for i := 0; i < 40; i++ {
		d := planting.AddDate(0, 0, 2*i)
		suit := 0.3 + 0.6*float64(i%4)/3
		out = append(out, domain.WeatherWindow{
			StartDate: d, EndDate: d,
			Temperature: 20, PrecipitationProbability: 1 - suit, SoilMoisture: 0.5,
			SuitabilityScore: suit,
		})
	}
	return out
}

func mixedRequest() *domain.Request {
	req := e2eRequest()
	req.NutrientRequirements[domain.NutrientPhosphorus] = 60
	req.NutrientRequirements[domain.NutrientPotassium] = 80
	req.ApplicationMethods = []domain.ApplicationMethod{domain.MethodBroadcast, domain.MethodSidedress, domain.MethodFoliar}
	req.WeatherDependentTiming = false
	return req
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Population = 30
	cfg.Generations = 20
	return cfg
}

func newSolver(t *testing.T, cfg Config, seed int64) *Solver {
	t.Helper()
	s, err := New(cfg, seed)
	require.NoError(t, err)
	s.Logger = zaptest.NewLogger(t)
	return s
}

func TestOptimizeEndToEnd(t *testing.T) {
	s := newSolver(t, smallConfig(), 42)
	req := e2eRequest()

	res, err := s.Optimize(context.Background(), req, optimalWindows(30), nil)
	require.NoError(t, err)

	assert.Equal(t, "GA", res.Algorithm)
	assert.True(t, res.Feasible)
	assert.Greater(t, res.Schedule.Fitness, 0.0)
	assert.Equal(t, res.Schedule.Fitness, res.Value)
	assert.NotEmpty(t, res.Schedule.Events)
	assert.NoError(t, res.Schedule.CheckRequirement(req))
	assert.Greater(t, res.Confidence, 0.0)
	assert.Equal(t, -1, res.Recommended)
}

func TestAvailabilityInLocalTimeZone(t *testing.T) {
	cst := time.FixedZone("CST", -6*60*60)
	req := e2eRequest()
	req.EquipmentAvailability = map[time.Time][]string{}
	req.LaborAvailability = map[time.Time]int{}
	for d := 0; d < req.OptimizationHorizonDays; d++ {
		day := time.Date(2025, time.April, 20, 0, 0, 0, 0, cst).AddDate(0, 0, d)
		req.EquipmentAvailability[day] = []string{"spreader"}
		req.LaborAvailability[day] = 2
	}

	res, err := newSolver(t, smallConfig(), 42).Optimize(context.Background(), req, optimalWindows(30), nil)
	require.NoError(t, err)

	assert.True(t, res.Feasible)
	assert.Greater(t, res.Confidence, 0.0)
	assert.NotEmpty(t, res.Schedule.Events)
}

func TestFitnessHistoryNonDecreasing(t *testing.T) {
	cfg := smallConfig()
	cfg.ConvergencePatience = 0
	s := newSolver(t, cfg, 7)

	res, err := s.Optimize(context.Background(), mixedRequest(), mixedWindows(), nil)
	require.NoError(t, err)

	require.Len(t, res.FitnessHistory, cfg.Generations+1)
	for i := 1; i < len(res.FitnessHistory); i++ {
		assert.GreaterOrEqual(t, res.FitnessHistory[i], res.FitnessHistory[i-1], "generation %d", i)
	}
	assert.Equal(t, res.FitnessHistory[len(res.FitnessHistory)-1], res.Schedule.Fitness)
}

func TestDeterministicAcrossRunsAndWorkers(t *testing.T) {
	cfg := smallConfig()
	a, err := newSolver(t, cfg, 11).Optimize(context.Background(), mixedRequest(), mixedWindows(), nil)
	require.NoError(t, err)

	solver := newSolver(t, cfg, 11)
	b, err := solver.Optimize(context.Background(), mixedRequest(), mixedWindows(), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// повторный вызов того же солвера
	c, err := solver.Optimize(context.Background(), mixedRequest(), mixedWindows(), nil)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	cfg.Workers = 4
	d, err := newSolver(t, cfg, 11).Optimize(context.Background(), mixedRequest(), mixedWindows(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Schedule, d.Schedule)
	assert.Equal(t, a.FitnessHistory, d.FitnessHistory)
}

func TestFeasibilityInvariant(t *testing.T) {
	cfg := smallConfig()
	s := newSolver(t, cfg, 3)
	req := mixedRequest()
	windows := mixedWindows()

	res, err := s.Optimize(context.Background(), req, windows, nil)
	require.NoError(t, err)
	require.True(t, res.Feasible)

	for _, ev := range res.Schedule.Events {
		var suit float64
		inWindow := false
		for _, w := range windows {
			if w.Contains(ev.Date) {
				inWindow, suit = true, w.SuitabilityScore
			}
		}
		assert.True(t, inWindow, "event %s outside any window", ev)
		assert.True(t, suit >= cfg.MinSuitability || ev.RiskOverride, "event %s below min suitability without override", ev)
	}
}

func TestZeroWindowsIsInfeasible(t *testing.T) {
	s := newSolver(t, smallConfig(), 1)

	res, err := s.Optimize(context.Background(), e2eRequest(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Zero(t, res.Confidence)
	assert.True(t, res.Schedule.IsEmpty())
}

func TestCancelled(t *testing.T) {
	s := newSolver(t, smallConfig(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Optimize(ctx, e2eRequest(), optimalWindows(30), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOperatorsKeepSchedulesValid(t *testing.T) {
	req := mixedRequest()
	eval, err := agronomy.NewEvaluator(req, mixedWindows(), nil, agronomy.Options{
		MinSuitability: 0.5,
		Weights:        agronomy.DefaultWeights(),
	})
	require.NoError(t, err)

	space := NewSpace(eval, 3)
	rng := rand.New(rand.NewSource(5))

	check := func(events []domain.ApplicationEvent) {
		t.Helper()
		counts := map[domain.Nutrient]int{}
		for n, total := range domain.SumByNutrient(events) {
			assert.LessOrEqual(t, total, req.NutrientRequirements[n]+1e-9)
		}
		for _, ev := range events {
			counts[ev.Nutrient]++
			ok, override := eval.Candidate(eval.DayIndex(ev.Date), eval.MethodIndex(ev.Method))
			assert.True(t, ok, "event %s not on a candidate day", ev)
			if override {
				assert.True(t, ev.RiskOverride)
			}
			assert.LessOrEqual(t, ev.Amount, ev.Method.Profile().MaxRate+1e-9)
		}
		for _, c := range counts {
			assert.LessOrEqual(t, c, 3)
		}
	}

	p1, p2 := space.Random(rng), space.Random(rng)
	check(p1)
	check(p2)
	for i := 0; i < 200; i++ {
		c1, c2 := Crossover(p1, p2, eval.Nutrients(), rng)
		check(c1)
		check(c2)
		p1 = space.Mutate(c1, rng)
		p2 = space.Mutate(c2, rng)
		check(p1)
		check(p2)
	}
}

func TestMutateDoesNotAlias(t *testing.T) {
	eval, err := agronomy.NewEvaluator(mixedRequest(), mixedWindows(), nil, agronomy.Options{
		MinSuitability: 0.5,
		Weights:        agronomy.DefaultWeights(),
	})
	require.NoError(t, err)
	space := NewSpace(eval, 3)
	rng := rand.New(rand.NewSource(9))

	parent := space.Random(rng)
	snapshot := append([]domain.ApplicationEvent(nil), parent...)
	for i := 0; i < 50; i++ {
		_ = space.Mutate(parent, rng)
	}
	assert.Equal(t, snapshot, parent)
}

func TestTournamentSelectPicksBest(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	scores := []float64{0.1, 0.9, 0.3}
	// турнир размера больше популяции почти всегда находит лучшего
	hits := 0
	for i := 0; i < 100; i++ {
		if tournamentSelect(scores, 20, rng) == 1 {
			hits++
		}
	}
	assert.Greater(t, hits, 95)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Elite = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MutationRate = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())
}
