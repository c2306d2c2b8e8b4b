package dp

import (
	"fmt"

	"fertTiming/internal/agronomy"
)

type Config struct {
	// Шаг дискретизации остатка потребности, фунт/акр. Чем крупнее шаг,
	// тем меньше пространство состояний и грубее оптимум.
	StateDiscretization float64 `yaml:"state_discretization"`
	// Коэффициент дисконтирования γ ∈ (0,1], снижает ценность поздних внесений.
	DiscountFactor float64 `yaml:"discount_factor"`
	// Минимальная пригодность окна для внесения без пометки риска.
	MinSuitability float64 `yaml:"min_suitability"`
	// Ограничение длины горизонта в днях.
	MaxHorizonDays int `yaml:"max_horizon_days"`
	// Ограничение числа состояний (периоды × корзины остатка).
	MaxStates int `yaml:"max_states"`
	// Штраф за недовнесение в долях стоимости урожая на всю потребность.
	ShortfallPenalty float64 `yaml:"shortfall_penalty"`
	// Штраф за проход вне допустимого окна, $/акр.
	OffWindowPenalty float64 `yaml:"off_window_penalty"`

	Weights agronomy.Weights `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		StateDiscretization: 10,
		DiscountFactor:      0.995,
		MinSuitability:      0.5,
		MaxHorizonDays:      365,
		MaxStates:           5_000_000,
		ShortfallPenalty:    0.5,
		OffWindowPenalty:    25,
		Weights:             agronomy.DefaultWeights(),
	}
}

func (c Config) Validate() error {
	if c.StateDiscretization <= 0 {
		return fmt.Errorf(
			"шаг дискретизации должен быть > 0 (получено %f)",
			c.StateDiscretization,
		)
	}
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return fmt.Errorf(
			"коэффициент дисконтирования должен быть в диапазоне (0,1] (получено %f)",
			c.DiscountFactor,
		)
	}
	if c.MinSuitability < 0 || c.MinSuitability > 1 {
		return fmt.Errorf(
			"минимальная пригодность должна быть в диапазоне [0,1] (получено %f)",
			c.MinSuitability,
		)
	}
	if c.MaxHorizonDays <= 0 {
		return fmt.Errorf(
			"максимальный горизонт должен быть > 0 (получено %d)",
			c.MaxHorizonDays,
		)
	}
	if c.MaxStates <= 0 {
		return fmt.Errorf(
			"ограничение числа состояний должно быть > 0 (получено %d)",
			c.MaxStates,
		)
	}
	if c.ShortfallPenalty < 0 || c.OffWindowPenalty < 0 {
		return fmt.Errorf(
			"штрафы должны быть >= 0 (получено %f, %f)",
			c.ShortfallPenalty,
			c.OffWindowPenalty,
		)
	}
	return c.Weights.Validate()
}
