package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// SoilCharacteristics - свойства почвы поля.
type SoilCharacteristics struct {
	Texture       string  // sand, loam, clay, ...
	OrganicMatter float64 // %
	PH            float64
	CEC           float64 // мг-экв/100 г
	Drainage      string  // well, moderate, poor
}

// Location - координаты поля.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Request - постановка задачи планирования. Создаётся один раз на вызов
// и оптимизаторами только читается.
type Request struct {
	RequestID string
	FieldID   string
	CropType  string

	PlantingDate        time.Time
	ExpectedHarvestDate time.Time // нулевое значение - без ограничения

	NutrientRequirements map[Nutrient]float64
	ApplicationMethods   []ApplicationMethod
	FertilizerPrices     map[Nutrient]float64

	Soil     SoilCharacteristics
	Location Location

	// EquipmentAvailability: дата → доступная техника. Пустая карта - без ограничений,
	// иначе отсутствующая дата означает, что техники нет.
	EquipmentAvailability map[time.Time][]string
	// LaborAvailability: дата → число доступных бригад. Семантика как у техники.
	LaborAvailability map[time.Time]int

	OptimizationHorizonDays int
	RiskTolerance           float64 // [0,1]

	YieldPriority         float64
	CostPriority          float64
	EnvironmentalPriority float64

	SplitApplicationAllowed bool
	WeatherDependentTiming  bool
	// AllowExcess снимает ограничение «сумма внесений ≤ потребности».
	AllowExcess bool
}

// Validate проверяет запрос. Обычно это делает внешний слой API,
// ядро повторяет проверку и трактует нарушения как ошибки.
func (r *Request) Validate() error {
	if r == nil {
		return InputError{Field: "request", Reason: "request is nil"}
	}
	if r.PlantingDate.IsZero() {
		return InputError{Field: "planting_date", Reason: "must be set"}
	}
	if r.OptimizationHorizonDays < 1 {
		return inputErrorf("optimization_horizon_days", "must be >= 1 (got %d)", r.OptimizationHorizonDays)
	}
	if !r.ExpectedHarvestDate.IsZero() && Day(r.ExpectedHarvestDate).Before(Day(r.PlantingDate)) {
		return InputError{Field: "expected_harvest_date", Reason: "before planting date"}
	}
	if len(r.NutrientRequirements) == 0 {
		return InputError{Field: "nutrient_requirements", Reason: "must not be empty"}
	}
	for _, n := range r.Nutrients() {
		if v := r.NutrientRequirements[n]; v < 0 {
			return inputErrorf("nutrient_requirements", "%s must be >= 0 (got %f)", n, v)
		}
	}
	if len(r.ApplicationMethods) == 0 {
		return InputError{Field: "application_methods", Reason: "must not be empty"}
	}
	for _, m := range r.ApplicationMethods {
		if !m.IsValid() {
			return inputErrorf("application_methods", "unknown method %q", m)
		}
	}
	for n, p := range r.FertilizerPrices {
		if p < 0 {
			return inputErrorf("fertilizer_prices", "%s must be >= 0 (got %f)", n, p)
		}
	}
	if r.RiskTolerance < 0 || r.RiskTolerance > 1 {
		return inputErrorf("risk_tolerance", "must be in [0,1] (got %f)", r.RiskTolerance)
	}
	if r.YieldPriority < 0 || r.CostPriority < 0 || r.EnvironmentalPriority < 0 {
		return InputError{Field: "priorities", Reason: "must be >= 0"}
	}
	for d, n := range r.LaborAvailability {
		if n < 0 {
			return inputErrorf("labor_availability", "%s must be >= 0 (got %d)", FormatDay(d), n)
		}
	}
	return nil
}

// ValidateInputs проверяет тройку (запрос, окна, календарь) на входе оптимизатора.
func ValidateInputs(req *Request, windows []WeatherWindow, stages StageCalendar) error {
	return errors.Join(req.Validate(), ValidateWindows(windows), stages.Validate())
}

// Nutrients возвращает элементы запроса в детерминированном порядке.
func (r *Request) Nutrients() []Nutrient {
	out := make([]Nutrient, 0, len(r.NutrientRequirements))
	for n := range r.NutrientRequirements {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TotalRequirement - суммарная потребность по всем элементам.
// Суммирование идёт в порядке Nutrients, чтобы результат не зависел от порядка обхода карты.
func (r *Request) TotalRequirement() float64 {
	total := 0.0
	for _, n := range r.Nutrients() {
		total += r.NutrientRequirements[n]
	}
	return total
}

// Price возвращает цену элемента за фунт.
func (r *Request) Price(n Nutrient) float64 {
	if p, ok := r.FertilizerPrices[n]; ok {
		return p
	}
	if p, ok := DefaultPrices[n]; ok {
		return p
	}
	return DefaultNutrientPrice
}

// HorizonDays возвращает фактическую длину горизонта с учётом даты уборки.
func (r *Request) HorizonDays() int {
	h := r.OptimizationHorizonDays
	if !r.ExpectedHarvestDate.IsZero() {
		if toHarvest := DaysBetween(r.PlantingDate, r.ExpectedHarvestDate) + 1; toHarvest < h {
			h = toHarvest
		}
	}
	return h
}

// DateOf возвращает дату дня горизонта.
func (r *Request) DateOf(day int) time.Time {
	return Day(r.PlantingDate).AddDate(0, 0, day)
}

// Priorities возвращает нормированные веса урожайности, затрат и экологии.
// Нулевые приоритеты трактуются как равные.
func (r *Request) Priorities() (yield, cost, env float64) {
	sum := r.YieldPriority + r.CostPriority + r.EnvironmentalPriority
	if sum <= 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return r.YieldPriority / sum, r.CostPriority / sum, r.EnvironmentalPriority / sum
}

func (r *Request) String() string {
	return fmt.Sprintf("field=%s crop=%s planting=%s horizon=%d", r.FieldID, r.CropType, FormatDay(r.PlantingDate), r.OptimizationHorizonDays)
}
