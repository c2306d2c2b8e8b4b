package moo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/ga"
)

var planting = time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)

func testRequest() *domain.Request {
	return &domain.Request{
		RequestID:    "req-moo",
		FieldID:      "field-moo",
		CropType:     "corn",
		PlantingDate: planting,
		NutrientRequirements: map[domain.Nutrient]float64{
			domain.NutrientNitrogen:   150,
			domain.NutrientPhosphorus: 50,
		},
		ApplicationMethods:      []domain.ApplicationMethod{domain.MethodBroadcast, domain.MethodSidedress},
		OptimizationHorizonDays: 60,
		RiskTolerance:           0.3,
		YieldPriority:           0.6,
		CostPriority:            0.2,
		EnvironmentalPriority:   0.2,
		SplitApplicationAllowed: true,
		WeatherDependentTiming:  true,
	}
}

func testWindows() []domain.WeatherWindow {
	var out []domain.WeatherWindow
	for i := 0; i < 20; i++ {
		d := planting.AddDate(0, 0, 3*i)
		suit := 0.5 + 0.45*float64(i%3)/2
		out = append(out, domain.WeatherWindow{
			StartDate: d, EndDate: d.AddDate(0, 0, 1),
			Temperature: 20, PrecipitationProbability: 1 - suit, SoilMoisture: 0.45,
			SuitabilityScore: suit,
		})
	}
	return out
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Population = 24
	cfg.Generations = 15
	return cfg
}

func newSolver(t *testing.T, cfg Config, seed int64) *Solver {
	t.Helper()
	s, err := New(cfg, seed)
	require.NoError(t, err)
	s.Logger = zaptest.NewLogger(t)
	return s
}

func TestParetoFrontConsistency(t *testing.T) {
	res, err := newSolver(t, smallConfig(), 17).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)

	require.True(t, res.Feasible)
	require.NotEmpty(t, res.Pareto)
	for i, a := range res.Pareto {
		require.Len(t, a.Objectives, 4)
		for j, b := range res.Pareto {
			if i == j {
				continue
			}
			assert.False(t, Dominates(a.Objectives, b.Objectives), "entry %d dominates %d", i, j)
		}
		assert.NoError(t, a.Schedule.CheckRequirement(testRequest()))
	}
}

func TestRecommendedMember(t *testing.T) {
	res, err := newSolver(t, smallConfig(), 5).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)

	require.GreaterOrEqual(t, res.Recommended, 0)
	require.Less(t, res.Recommended, len(res.Pareto))
	assert.Equal(t, res.Pareto[res.Recommended].Schedule, res.Schedule)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestDeterministic(t *testing.T) {
	cfg := smallConfig()
	a, err := newSolver(t, cfg, 99).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)

	cfg.Workers = 3
	b, err := newSolver(t, cfg, 99).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Pareto, b.Pareto)
	assert.Equal(t, a.Recommended, b.Recommended)
}

func TestZeroWindowsIsInfeasible(t *testing.T) {
	res, err := newSolver(t, smallConfig(), 1).Optimize(context.Background(), testRequest(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Pareto)
	assert.Equal(t, -1, res.Recommended)
}

func TestDominates(t *testing.T) {
	assert.True(t, Dominates([]float64{1, 1}, []float64{1, 0}))
	assert.False(t, Dominates([]float64{1, 1}, []float64{1, 1}))
	assert.False(t, Dominates([]float64{1, 0}, []float64{0, 1}))
}

func TestNonDominatedSort(t *testing.T) {
	objs := [][]float64{
		{1, 0}, // 0: фронт 0
		{0, 1}, // 1: фронт 0
		{0.5, 0.5},
		{0.4, 0.4}, // 3: доминируется 2
		{0, 0},     // 4: доминируется всеми
	}
	fronts := NonDominatedSort(objs)
	require.Len(t, fronts, 3)
	assert.Equal(t, []int{0, 1, 2}, fronts[0])
	assert.Equal(t, []int{3}, fronts[1])
	assert.Equal(t, []int{4}, fronts[2])
}

func TestConstrainedNonDominatedSort(t *testing.T) {
	objs := [][]float64{
		{1, 1},     // 0: лучшие цели, но 2 нарушения
		{0.2, 0.2}, // 1: допустимое
		{0.5, 0.1}, // 2: допустимое
		{0.9, 0.9}, // 3: 1 нарушение
	}
	fronts := ConstrainedNonDominatedSort(objs, []int{2, 0, 0, 1})
	require.Len(t, fronts, 3)
	assert.Equal(t, []int{1, 2}, fronts[0])
	assert.Equal(t, []int{3}, fronts[1])
	assert.Equal(t, []int{0}, fronts[2])

	assert.True(t, ConstrainedDominates([]float64{0}, []float64{1}, 0, 1))
	assert.False(t, ConstrainedDominates([]float64{1}, []float64{0}, 1, 0))
	assert.True(t, ConstrainedDominates([]float64{1}, []float64{0}, 3, 3))
}

func TestParetoFrontKeepsOnlyFeasible(t *testing.T) {
	pop := []individual{
		{Scored: ga.Scored{Assessment: agronomy.Assessment{Violations: 1}}, objectives: []float64{1, 1, 1, 1}},
		{Scored: ga.Scored{Assessment: agronomy.Assessment{Violations: 0}}, objectives: []float64{0.3, 0.3, 0.3, 0.3}},
		{Scored: ga.Scored{Assessment: agronomy.Assessment{Violations: 0}}, objectives: []float64{0.1, 0.6, 0.1, 0.1}},
	}
	front := paretoFront(pop)
	require.Len(t, front, 2)
	for _, f := range front {
		assert.Zero(t, f.Assessment.Violations)
	}
}

// Один человек в день на трёх окнах: два прохода в один день нарушают ограничение,
// такие графики не должны попадать во фронт рядом с допустимыми.
func TestParetoFrontRespectsLabor(t *testing.T) {
	req := testRequest()
	req.OptimizationHorizonDays = 45
	var windows []domain.WeatherWindow
	req.LaborAvailability = map[time.Time]int{}
	for _, day := range []int{0, 20, 40} {
		d := planting.AddDate(0, 0, day)
		windows = append(windows, domain.WeatherWindow{
			StartDate: d, EndDate: d,
			Temperature: 20, PrecipitationProbability: 0.1, SoilMoisture: 0.45,
			SuitabilityScore: 0.9,
		})
		req.LaborAvailability[d] = 1
	}

	cfg := smallConfig()
	eval, err := agronomy.NewEvaluator(req, windows, nil, agronomy.Options{
		MinSuitability: cfg.MinSuitability,
		Weights:        cfg.Weights,
	})
	require.NoError(t, err)

	for seed := int64(1); seed <= 10; seed++ {
		res, err := newSolver(t, cfg, seed).Optimize(context.Background(), req, windows, nil)
		require.NoError(t, err)
		require.True(t, res.Feasible)
		require.NotEmpty(t, res.Pareto)
		for i, p := range res.Pareto {
			a := eval.Assess(p.Schedule.Events)
			assert.Zero(t, a.Violations, "seed %d: pareto entry %d", seed, i)
		}
		assert.Zero(t, eval.Assess(res.Schedule.Events).Violations, "seed %d: recommended", seed)
	}
}

func TestCrowdingDistance(t *testing.T) {
	objs := [][]float64{{0, 3}, {1, 2}, {2, 1}, {3, 0}, {1.5, 1.5}}
	front := []int{0, 1, 4, 2, 3}
	dist := CrowdingDistance(objs, front)

	assert.True(t, math.IsInf(dist[0], 1))
	assert.True(t, math.IsInf(dist[3], 1))
	assert.InDelta(t, (1.5-0)/3+(3-1.5)/3, dist[1], 1e-12)
	assert.InDelta(t, (2-1)/3.0+(2-1)/3.0, dist[4], 1e-12)
}

func TestRecommendPrefersPriorities(t *testing.T) {
	front := []individual{
		{objectives: []float64{1.0, 0.2, 0.5, 0.5}},
		{objectives: []float64{0.2, 1.0, 0.5, 0.5}},
	}
	req := testRequest()
	assert.Equal(t, 0, recommend(front, req))

	req.YieldPriority, req.CostPriority = 0.1, 0.8
	assert.Equal(t, 1, recommend(front, req))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Population = 2
	assert.Error(t, cfg.Validate())
}
