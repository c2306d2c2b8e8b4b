package uncertainty

import (
	"fmt"

	"fertTiming/internal/agronomy"
)

type Config struct {
	NumScenarios int `yaml:"num_scenarios"`
	// Уровень доверия VaR: хвост 1 - ConfidenceLevel (0.95 → value_at_risk_5).
	ConfidenceLevel float64 `yaml:"confidence_level"`
	Workers         int     `yaml:"workers"`

	// Базовые стандартные отклонения возмущений (относительные).
	WeatherVolatility float64 `yaml:"weather_volatility"`
	YieldVolatility   float64 `yaml:"yield_volatility"`
	PriceVolatility   float64 `yaml:"price_volatility"`

	// Калибровка по сезону и широте поля.
	SeasonalCalibration bool `yaml:"seasonal_calibration"`

	MinSuitability float64          `yaml:"min_suitability"`
	Weights        agronomy.Weights `yaml:"-"`
}

func (c Config) Validate() error {
	if c.NumScenarios <= 0 {
		return fmt.Errorf("число сценариев должно быть > 0 (получено %d)", c.NumScenarios)
	}
	if c.ConfidenceLevel < 0.5 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("уровень доверия должен быть в диапазоне [0.5,1) (получено %f)", c.ConfidenceLevel)
	}
	if c.Workers < 1 {
		return fmt.Errorf("число обработчиков должно быть >= 1 (получено %d)", c.Workers)
	}
	if c.WeatherVolatility < 0 || c.YieldVolatility < 0 || c.PriceVolatility < 0 {
		return fmt.Errorf(
			"волатильности должны быть >= 0 (получено %f, %f, %f)",
			c.WeatherVolatility, c.YieldVolatility, c.PriceVolatility,
		)
	}
	if c.MinSuitability < 0 || c.MinSuitability > 1 {
		return fmt.Errorf("минимальная пригодность должна быть в диапазоне [0,1] (получено %f)", c.MinSuitability)
	}
	return c.Weights.Validate()
}

func DefaultConfig() Config {
	return Config{
		NumScenarios:        1000,
		ConfidenceLevel:     0.95,
		Workers:             1,
		WeatherVolatility:   0.15,
		YieldVolatility:     0.10,
		PriceVolatility:     0.10,
		SeasonalCalibration: true,
		MinSuitability:      0.5,
		Weights:             agronomy.DefaultWeights(),
	}
}
