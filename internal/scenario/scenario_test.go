package scenario

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fertTiming/internal/domain"
)

const sample = `
request:
  request_id: req-1
  field_id: north-40
  crop_type: corn
  planting_date: 2025-04-20
  nutrient_requirements:
    nitrogen: 150
    potassium: 60
  application_methods: [broadcast, sidedress]
  fertilizer_prices:
    nitrogen: 0.6
  location:
    latitude: 41.6
    longitude: -93.6
  labor_availability:
    2025-04-22: 0
  optimization_horizon_days: 60
  risk_tolerance: 0.4
  yield_priority: 0.6
  split_application_allowed: true
  weather_dependent_timing: true
weather_windows:
  - start_date: 2025-04-20
    end_date: 2025-04-23
    condition: optimal
    temperature: 18
    precipitation_probability: 0.1
    soil_moisture: 0.35
    suitability_score: 0.9
  - start_date: 2025-05-10
    end_date: 2025-05-10
    condition: marginal
    suitability_score: 0.4
crop_stages:
  2025-04-20: planting
  2025-05-20: v6
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)

	req := s.Request
	assert.Equal(t, "north-40", req.FieldID)
	assert.Equal(t, time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC), req.PlantingDate)
	assert.Equal(t, 150.0, req.NutrientRequirements[domain.NutrientNitrogen])
	assert.Equal(t, []domain.ApplicationMethod{domain.MethodBroadcast, domain.MethodSidedress}, req.ApplicationMethods)
	assert.Equal(t, 0.6, req.FertilizerPrices[domain.NutrientNitrogen])
	assert.Equal(t, 41.6, req.Location.Latitude)
	assert.Equal(t, 60, req.OptimizationHorizonDays)
	assert.True(t, req.SplitApplicationAllowed)
	require.Contains(t, req.LaborAvailability, time.Date(2025, time.April, 22, 0, 0, 0, 0, time.UTC))

	require.Len(t, s.Windows, 2)
	assert.Equal(t, domain.ConditionOptimal, s.Windows[0].Condition)
	assert.Equal(t, time.Date(2025, time.April, 23, 0, 0, 0, 0, time.UTC), s.Windows[0].EndDate)
	assert.Equal(t, 0.4, s.Windows[1].SuitabilityScore)

	assert.Len(t, s.Stages, 2)
	assert.Equal(t, domain.StageV6, s.Stages[time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad date", "request:\n  planting_date: 20-04-2025\n"},
		{"bad window date", sampleWith("end_date: 2025-04-23", "end_date: tomorrow")},
		{"bad stage date", sampleWith("2025-05-20: v6", "may: v6")},
		{"invalid request", sampleWith("risk_tolerance: 0.4", "risk_tolerance: 4")},
		{"inverted window", sampleWith("end_date: 2025-04-23", "end_date: 2025-04-01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := Parse([]byte("request: [oops"))
	assert.Error(t, err)
}

func sampleWith(old, repl string) string {
	return strings.Replace(sample, old, repl, 1)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "req-1", s.Request.RequestID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGenerateIsValid(t *testing.T) {
	for _, days := range []int{10, 60, 120, 200} {
		s := Generate(days, rand.New(rand.NewSource(int64(days))))
		require.NoError(t, domain.ValidateInputs(s.Request, s.Windows, s.Stages), "days=%d", days)
		require.NotEmpty(t, s.Windows)

		end := SeasonStart.AddDate(0, 0, days)
		for i, w := range s.Windows {
			assert.True(t, w.EndDate.Before(end), "window %d ends past horizon", i)
			if i > 0 {
				assert.True(t, w.StartDate.After(s.Windows[i-1].EndDate), "window %d overlaps", i)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(90, rand.New(rand.NewSource(3)))
	b := Generate(90, rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)

	c := Generate(90, rand.New(rand.NewSource(4)))
	assert.NotEqual(t, a.Windows, c.Windows)
}
