package domain

import (
	"fmt"
	"time"
)

// WeatherCondition - категориальная пригодность окна для полевых работ.
type WeatherCondition string

const (
	ConditionOptimal    WeatherCondition = "optimal"
	ConditionAcceptable WeatherCondition = "acceptable"
	ConditionMarginal   WeatherCondition = "marginal"
	ConditionPoor       WeatherCondition = "poor"
	ConditionUnsuitable WeatherCondition = "unsuitable"
)

// IsValid - категория условий известна.
func (c WeatherCondition) IsValid() bool {
	switch c {
	case ConditionOptimal, ConditionAcceptable, ConditionMarginal, ConditionPoor, ConditionUnsuitable:
		return true
	default:
		return false
	}
}

// WeatherWindow - непрерывный интервал дат [StartDate, EndDate] с оценкой пригодности.
// Окна приходят от погодного сервиса уже рассчитанными и не изменяются ядром.
type WeatherWindow struct {
	StartDate time.Time
	EndDate   time.Time
	Condition WeatherCondition

	Temperature              float64 // °C
	PrecipitationProbability float64 // [0,1]
	WindSpeed                float64 // км/ч
	SoilMoisture             float64 // объёмная доля [0,1]

	SuitabilityScore float64 // [0,1]
}

// Contains проверяет, попадает ли день в окно (границы включительно).
func (w WeatherWindow) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(w.StartDate)) && !d.After(Day(w.EndDate))
}

// Days возвращает длину окна в днях.
func (w WeatherWindow) Days() int {
	return DaysBetween(w.StartDate, w.EndDate) + 1
}

func (w WeatherWindow) validate(i int) error {
	field := fmt.Sprintf("weather_windows[%d]", i)
	if w.EndDate.Before(w.StartDate) {
		return inputErrorf(field, "end date %s before start date %s", FormatDay(w.EndDate), FormatDay(w.StartDate))
	}
	if w.SuitabilityScore < 0 || w.SuitabilityScore > 1 {
		return inputErrorf(field, "suitability_score must be in [0,1] (got %f)", w.SuitabilityScore)
	}
	if w.PrecipitationProbability < 0 || w.PrecipitationProbability > 1 {
		return inputErrorf(field, "precipitation_probability must be in [0,1] (got %f)", w.PrecipitationProbability)
	}
	if w.SoilMoisture < 0 || w.SoilMoisture > 1 {
		return inputErrorf(field, "soil_moisture must be in [0,1] (got %f)", w.SoilMoisture)
	}
	if w.Condition != "" && !w.Condition.IsValid() {
		return inputErrorf(field, "unknown condition %q", w.Condition)
	}
	return nil
}

// ValidateWindows проверяет окна: каждое корректно, окна отсортированы и не пересекаются.
// Пустой список допустим - это случай недостижимости, а не ошибка.
func ValidateWindows(windows []WeatherWindow) error {
	for i, w := range windows {
		if err := w.validate(i); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := windows[i-1]
		if !Day(w.StartDate).After(Day(prev.EndDate)) {
			return inputErrorf(
				fmt.Sprintf("weather_windows[%d]", i),
				"window starting %s overlaps or precedes window ending %s",
				FormatDay(w.StartDate), FormatDay(prev.EndDate),
			)
		}
	}
	return nil
}

// Day нормализует время до полуночи UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает число дней от a до b (b - a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}

// FormatDay форматирует дату в ISO-вид.
func FormatDay(t time.Time) string {
	return t.Format("2006-01-02")
}
