// Package scenario - файлы сценариев планирования (запрос, погодные окна,
// календарь фаз) и генератор синтетического сезона.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fertTiming/internal/domain"
)

const dateLayout = "2006-01-02"

// Scenario - полностью разрешённые входы оптимизаторов.
type Scenario struct {
	Request *domain.Request
	Windows []domain.WeatherWindow
	Stages  domain.StageCalendar
}

type fileRequest struct {
	RequestID               string              `yaml:"request_id"`
	FieldID                 string              `yaml:"field_id"`
	CropType                string              `yaml:"crop_type"`
	PlantingDate            string              `yaml:"planting_date"`
	ExpectedHarvestDate     string              `yaml:"expected_harvest_date"`
	NutrientRequirements    map[string]float64  `yaml:"nutrient_requirements"`
	ApplicationMethods      []string            `yaml:"application_methods"`
	FertilizerPrices        map[string]float64  `yaml:"fertilizer_prices"`
	Soil                    fileSoil            `yaml:"soil"`
	Location                fileLocation        `yaml:"location"`
	EquipmentAvailability   map[string][]string `yaml:"equipment_availability"`
	LaborAvailability       map[string]int      `yaml:"labor_availability"`
	OptimizationHorizonDays int                 `yaml:"optimization_horizon_days"`
	RiskTolerance           float64             `yaml:"risk_tolerance"`
	YieldPriority           float64             `yaml:"yield_priority"`
	CostPriority            float64             `yaml:"cost_priority"`
	EnvironmentalPriority   float64             `yaml:"environmental_priority"`
	SplitApplicationAllowed bool                `yaml:"split_application_allowed"`
	WeatherDependentTiming  bool                `yaml:"weather_dependent_timing"`
	AllowExcess             bool                `yaml:"allow_excess"`
}

type fileSoil struct {
	Texture       string  `yaml:"texture"`
	OrganicMatter float64 `yaml:"organic_matter"`
	PH            float64 `yaml:"ph"`
	CEC           float64 `yaml:"cec"`
	Drainage      string  `yaml:"drainage"`
}

type fileLocation struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type fileWindow struct {
	StartDate                string  `yaml:"start_date"`
	EndDate                  string  `yaml:"end_date"`
	Condition                string  `yaml:"condition"`
	Temperature              float64 `yaml:"temperature"`
	PrecipitationProbability float64 `yaml:"precipitation_probability"`
	WindSpeed                float64 `yaml:"wind_speed"`
	SoilMoisture             float64 `yaml:"soil_moisture"`
	SuitabilityScore         float64 `yaml:"suitability_score"`
}

type file struct {
	Request    fileRequest       `yaml:"request"`
	Windows    []fileWindow      `yaml:"weather_windows"`
	CropStages map[string]string `yaml:"crop_stages"`
}

// Load читает сценарий из YAML-файла.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse разбирает YAML и проверяет получившиеся входы.
func Parse(data []byte) (*Scenario, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	req, err := f.Request.toDomain()
	if err != nil {
		return nil, err
	}

	windows := make([]domain.WeatherWindow, len(f.Windows))
	for i, w := range f.Windows {
		start, err := parseDate(fmt.Sprintf("weather_windows[%d].start_date", i), w.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(fmt.Sprintf("weather_windows[%d].end_date", i), w.EndDate)
		if err != nil {
			return nil, err
		}
		windows[i] = domain.WeatherWindow{
			StartDate:                start,
			EndDate:                  end,
			Condition:                domain.WeatherCondition(w.Condition),
			Temperature:              w.Temperature,
			PrecipitationProbability: w.PrecipitationProbability,
			WindSpeed:                w.WindSpeed,
			SoilMoisture:             w.SoilMoisture,
			SuitabilityScore:         w.SuitabilityScore,
		}
	}

	stages := make(domain.StageCalendar, len(f.CropStages))
	for k, v := range f.CropStages {
		d, err := parseDate("crop_stages", k)
		if err != nil {
			return nil, err
		}
		stages[d] = domain.GrowthStage(v)
	}

	if err := domain.ValidateInputs(req, windows, stages); err != nil {
		return nil, err
	}
	return &Scenario{Request: req, Windows: windows, Stages: stages}, nil
}

func (r fileRequest) toDomain() (*domain.Request, error) {
	planting, err := parseDate("request.planting_date", r.PlantingDate)
	if err != nil {
		return nil, err
	}
	var harvest time.Time
	if r.ExpectedHarvestDate != "" {
		if harvest, err = parseDate("request.expected_harvest_date", r.ExpectedHarvestDate); err != nil {
			return nil, err
		}
	}

	req := &domain.Request{
		RequestID:               r.RequestID,
		FieldID:                 r.FieldID,
		CropType:                r.CropType,
		PlantingDate:            planting,
		ExpectedHarvestDate:     harvest,
		NutrientRequirements:    make(map[domain.Nutrient]float64, len(r.NutrientRequirements)),
		OptimizationHorizonDays: r.OptimizationHorizonDays,
		RiskTolerance:           r.RiskTolerance,
		YieldPriority:           r.YieldPriority,
		CostPriority:            r.CostPriority,
		EnvironmentalPriority:   r.EnvironmentalPriority,
		SplitApplicationAllowed: r.SplitApplicationAllowed,
		WeatherDependentTiming:  r.WeatherDependentTiming,
		AllowExcess:             r.AllowExcess,
		Soil: domain.SoilCharacteristics{
			Texture:       r.Soil.Texture,
			OrganicMatter: r.Soil.OrganicMatter,
			PH:            r.Soil.PH,
			CEC:           r.Soil.CEC,
			Drainage:      r.Soil.Drainage,
		},
		Location: domain.Location{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude},
	}
	for n, v := range r.NutrientRequirements {
		req.NutrientRequirements[domain.Nutrient(n)] = v
	}
	for _, m := range r.ApplicationMethods {
		req.ApplicationMethods = append(req.ApplicationMethods, domain.ApplicationMethod(m))
	}
	if len(r.FertilizerPrices) > 0 {
		req.FertilizerPrices = make(map[domain.Nutrient]float64, len(r.FertilizerPrices))
		for n, v := range r.FertilizerPrices {
			req.FertilizerPrices[domain.Nutrient(n)] = v
		}
	}
	if len(r.EquipmentAvailability) > 0 {
		req.EquipmentAvailability = make(map[time.Time][]string, len(r.EquipmentAvailability))
		for k, v := range r.EquipmentAvailability {
			d, err := parseDate("request.equipment_availability", k)
			if err != nil {
				return nil, err
			}
			req.EquipmentAvailability[d] = v
		}
	}
	if len(r.LaborAvailability) > 0 {
		req.LaborAvailability = make(map[time.Time]int, len(r.LaborAvailability))
		for k, v := range r.LaborAvailability {
			d, err := parseDate("request.labor_availability", k)
			if err != nil {
				return nil, err
			}
			req.LaborAvailability[d] = v
		}
	}
	return req, nil
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, domain.InputError{Field: field, Reason: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", v)}
	}
	return t, nil
}
