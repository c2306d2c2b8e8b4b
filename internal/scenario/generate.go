package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"fertTiming/internal/domain"
)

// Календарь фаз кукурузы: смещение от посадки в днях.
var cornCalendar = []struct {
	offset int
	stage  domain.GrowthStage
}{
	{0, domain.StagePlanting},
	{7, domain.StageEmergence},
	{14, domain.StageV2},
	{21, domain.StageV4},
	{28, domain.StageV6},
	{35, domain.StageV8},
	{42, domain.StageV10},
	{49, domain.StageV12},
	{60, domain.StageVT},
	{65, domain.StageFlowering},
	{75, domain.StageR2},
	{85, domain.StageR3},
	{100, domain.StageR5},
	{120, domain.StageMaturity},
}

// SeasonStart - дата посадки синтетического сезона.
var SeasonStart = time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)

// Generate строит синтетический сезон кукурузы длиной days дней:
// окна по 1-5 дней с паузами, пригодность коррелирована между соседними окнами.
func Generate(days int, rng *rand.Rand) *Scenario {
	req := &domain.Request{
		RequestID:    fmt.Sprintf("synthetic-%d", days),
		FieldID:      "synthetic-field",
		CropType:     "corn",
		PlantingDate: SeasonStart,
		NutrientRequirements: map[domain.Nutrient]float64{
			domain.NutrientNitrogen:   150,
			domain.NutrientPhosphorus: 60,
			domain.NutrientPotassium:  80,
		},
		ApplicationMethods: []domain.ApplicationMethod{
			domain.MethodBroadcast,
			domain.MethodSidedress,
			domain.MethodFoliar,
		},
		Soil:                    domain.SoilCharacteristics{Texture: "loam", OrganicMatter: 3.2, PH: 6.5, CEC: 18, Drainage: "well"},
		Location:                domain.Location{Latitude: 41.6, Longitude: -93.6},
		OptimizationHorizonDays: days,
		RiskTolerance:           0.5,
		YieldPriority:           0.5,
		CostPriority:            0.3,
		EnvironmentalPriority:   0.2,
		SplitApplicationAllowed: true,
		WeatherDependentTiming:  true,
	}

	var windows []domain.WeatherWindow
	suit := 0.7
	for d := rng.Intn(3); d < days; {
		length := 1 + rng.Intn(5)
		if d+length > days {
			length = days - d
		}
		suit = clamp(0.6*suit+0.4*rng.Float64()+rng.NormFloat64()*0.05, 0, 1)
		precip := clamp(1-suit+rng.NormFloat64()*0.1, 0, 1)
		start := SeasonStart.AddDate(0, 0, d)
		windows = append(windows, domain.WeatherWindow{
			StartDate:                start,
			EndDate:                  start.AddDate(0, 0, length-1),
			Condition:                conditionFor(suit),
			Temperature:              12 + 14*math.Min(1, float64(d)/60) + rng.NormFloat64()*2,
			PrecipitationProbability: precip,
			WindSpeed:                5 + rng.Float64()*20,
			SoilMoisture:             clamp(0.2+0.2*precip+rng.NormFloat64()*0.03, 0, 1),
			SuitabilityScore:         suit,
		})
		d += length + rng.Intn(4)
	}

	stages := make(domain.StageCalendar)
	for _, c := range cornCalendar {
		if c.offset < days {
			stages[SeasonStart.AddDate(0, 0, c.offset)] = c.stage
		}
	}
	return &Scenario{Request: req, Windows: windows, Stages: stages}
}

func conditionFor(s float64) domain.WeatherCondition {
	switch {
	case s >= 0.8:
		return domain.ConditionOptimal
	case s >= 0.6:
		return domain.ConditionAcceptable
	case s >= 0.4:
		return domain.ConditionMarginal
	case s >= 0.2:
		return domain.ConditionPoor
	default:
		return domain.ConditionUnsuitable
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
