package sa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fertTiming/internal/domain"
)

var planting = time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)

func testRequest() *domain.Request {
	return &domain.Request{
		RequestID:               "req-sa",
		FieldID:                 "field-sa",
		CropType:                "corn",
		PlantingDate:            planting,
		NutrientRequirements:    map[domain.Nutrient]float64{domain.NutrientNitrogen: 150, domain.NutrientPhosphorus: 40},
		ApplicationMethods:      []domain.ApplicationMethod{domain.MethodBroadcast},
		OptimizationHorizonDays: 60,
		RiskTolerance:           0.5,
		SplitApplicationAllowed: true,
		WeatherDependentTiming:  true,
	}
}

func testWindows() []domain.WeatherWindow {
	var out []domain.WeatherWindow
	for i := 0; i < 20; i++ {
		d := planting.AddDate(0, 0, 3*i)
		suit := 0.5 + 0.1*float64(i%5)
		out = append(out, domain.WeatherWindow{
			StartDate: d, EndDate: d.AddDate(0, 0, 1),
			Temperature: 18, PrecipitationProbability: 1 - suit, SoilMoisture: 0.4,
			SuitabilityScore: suit,
		})
	}
	return out
}

func newSolver(t *testing.T, cfg Config, seed int64) *Solver {
	t.Helper()
	s, err := New(cfg, seed)
	require.NoError(t, err)
	s.Logger = zaptest.NewLogger(t)
	return s
}

func TestOptimize(t *testing.T) {
	for _, nb := range []Neighborhood{NeighborhoodMutate, NeighborhoodRecombine} {
		t.Run(string(nb), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Iterations = 400
			cfg.Neighborhood = nb

			req := testRequest()
			res, err := newSolver(t, cfg, 5).Optimize(context.Background(), req, testWindows(), nil)
			require.NoError(t, err)

			require.True(t, res.Feasible)
			assert.Equal(t, "SA", res.Algorithm)
			assert.NoError(t, res.Schedule.CheckRequirement(req))
			assert.Equal(t, res.Schedule.Fitness, res.Value)
			assert.LessOrEqual(t, res.Iterations, 400)
			assert.Equal(t, res.Iterations+1, res.Evaluations)
			assert.Greater(t, res.Confidence, 0.0)
		})
	}
}

func TestCoolingStopsEarly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 100000
	cfg.Alpha = 0.5
	cfg.InitialTemp = 1
	cfg.FinalTemp = 0.1

	res, err := newSolver(t, cfg, 1).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)
	// 1 → 0.5 → 0.25 → 0.125 → 0.0625
	assert.Equal(t, 4, res.Iterations)
}

func TestDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 200
	a, err := newSolver(t, cfg, 9).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)
	b, err := newSolver(t, cfg, 9).Optimize(context.Background(), testRequest(), testWindows(), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZeroWindows(t *testing.T) {
	res, err := newSolver(t, DefaultConfig(), 1).Optimize(context.Background(), testRequest(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.Empty(t, res.Schedule.Events)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSolver(t, DefaultConfig(), 1).Optimize(ctx, testRequest(), testWindows(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no iterations", func(c *Config) { c.Iterations, c.IterationsPerDay = 0, 0 }},
		{"final above initial", func(c *Config) { c.FinalTemp = c.InitialTemp * 2 }},
		{"alpha", func(c *Config) { c.Alpha = 1 }},
		{"neighborhood", func(c *Config) { c.Neighborhood = "swap" }},
		{"splits", func(c *Config) { c.MaxSplits = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
