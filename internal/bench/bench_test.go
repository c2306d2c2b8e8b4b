package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fertTiming/internal/domain"
	"fertTiming/internal/ga"
	"fertTiming/internal/opt"
	"fertTiming/internal/scenario"
	"fertTiming/internal/uncertainty"
)

// fixed возвращает график без событий со значением, равным сиду.
type fixed struct {
	seed int64
	err  error
}

func (f fixed) Optimize(ctx context.Context, req *domain.Request, _ []domain.WeatherWindow, _ domain.StageCalendar) (opt.Result, error) {
	if f.err != nil {
		return opt.Result{}, f.err
	}
	res := opt.Infeasible("FIXED", req, f.seed, "fixed")
	res.Value = float64(f.seed)
	res.Confidence = 0.5
	return res, nil
}

func testCase(days int) Case {
	return Case{Name: "synthetic", Scenario: scenario.Generate(days, rand.New(rand.NewSource(1)))}
}

func TestCalcStats(t *testing.T) {
	is := CalcIntStats([]int{1, 2, 3, 4})
	assert.Equal(t, 4, is.N)
	assert.Equal(t, 1, is.Min)
	assert.Equal(t, 4, is.Max)
	assert.InDelta(t, 2.5, is.Mean, 1e-12)
	assert.InDelta(t, 1.2909944, is.Std, 1e-6)

	fs := CalcFloatStats([]float64{2})
	assert.Equal(t, FloatStats{N: 1, Min: 2, Max: 2, Mean: 2}, fs)

	assert.Equal(t, IntStats{}, CalcIntStats(nil))
	assert.Equal(t, FloatStats{}, CalcFloatStats(nil))
}

func TestPercentile(t *testing.T) {
	in := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Percentile(in, 0.5), 1e-12)
	assert.Equal(t, 1.0, Percentile(in, 0))
	assert.Equal(t, 4.0, Percentile(in, 1))
	assert.Equal(t, []float64{4, 1, 3, 2}, in, "input must not be reordered")
	assert.Zero(t, Percentile(nil, 0.5))
}

func TestRunCaseSeeds(t *testing.T) {
	r := Runner{Runs: 4, BaseSeed: 10, Logger: zaptest.NewLogger(t)}
	algo := Algorithm{Name: "FIXED", Factory: func(seed int64) opt.Optimizer { return fixed{seed: seed} }}

	rec, results, err := r.RunCase(context.Background(), testCase(30), algo)
	require.NoError(t, err)

	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, float64(10+i), res.Value)
	}
	assert.Equal(t, "FIXED", rec.Algo)
	assert.Equal(t, "synthetic", rec.Case)
	assert.Equal(t, 4, rec.Runs)
	assert.Zero(t, rec.Feasible)
	assert.Equal(t, 13.0, rec.ValueBest)
	assert.InDelta(t, 11.5, rec.ValueMean, 1e-12)
	assert.InDelta(t, 11.5, rec.ValueMedian, 1e-12)
	assert.InDelta(t, 0.5, rec.ConfidenceMean, 1e-12)

	_, ok := Best(results)
	assert.False(t, ok, "infeasible results are never best")
}

func TestRunCaseError(t *testing.T) {
	boom := errors.New("boom")
	r := Runner{Runs: 2, BaseSeed: 1}
	algo := Algorithm{Name: "FIXED", Factory: func(seed int64) opt.Optimizer { return fixed{seed: seed, err: boom} }}

	_, _, err := r.RunCase(context.Background(), testCase(30), algo)
	assert.ErrorIs(t, err, boom)
}

func TestRunCaseGA(t *testing.T) {
	cfg := ga.DefaultConfig()
	cfg.Population = 20
	cfg.Generations = 10
	algo := Algorithm{Name: "GA", Factory: func(seed int64) opt.Optimizer {
		s, err := ga.New(cfg, seed)
		require.NoError(t, err)
		return s
	}}

	r := Runner{Runs: 3, BaseSeed: 1, Logger: zaptest.NewLogger(t)}
	rec, results, err := r.RunCase(context.Background(), testCase(60), algo)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.Feasible)
	assert.GreaterOrEqual(t, rec.ValueBest, rec.ValueMean)
	assert.Greater(t, rec.EventsMean, 0.0)

	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, rec.ValueBest, best.Value)
}

func TestBestPrefersFirstOnTie(t *testing.T) {
	results := []opt.Result{
		{Algorithm: "a", Value: 1, Feasible: true},
		{Algorithm: "b", Value: 3, Feasible: true},
		{Algorithm: "c", Value: 3, Feasible: true},
		{Algorithm: "d", Value: 9, Feasible: false},
	}
	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, "b", best.Algorithm)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.csv")
	records := []Record{
		{Algo: "DP", Case: "c1", Runs: 2, Feasible: 2, ValueBest: 1.5},
		{Algo: "GA", Case: "c1", Runs: 2, Feasible: 1, ValueBest: 2.25},
	}
	require.NoError(t, WriteCSV(path, records))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "algo", rows[0][0])
	assert.Equal(t, []string{"DP", "c1", "2", "2"}, rows[1][:4])
	assert.Equal(t, "2.250000", rows[2][7])
}

func TestWriteScenariosCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.csv")
	a := uncertainty.Analysis{Scenarios: []uncertainty.Outcome{
		{Index: 0, Seed: 99, Yield: 180},
		{Index: 1, Seed: 100, Yield: 175.5},
	}}
	require.NoError(t, WriteScenariosCSV(path, a))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "scenario", rows[0][0])
	assert.Equal(t, []string{"1", "100"}, rows[2][:2])
	assert.Equal(t, "175.500000", rows[2][5])
}
