package moo

import (
	"fmt"

	"fertTiming/internal/agronomy"
)

type Config struct {
	Population    int     `yaml:"population"`
	Generations   int     `yaml:"generations"`
	CrossoverRate float64 `yaml:"crossover_rate"`
	MutationRate  float64 `yaml:"mutation_rate"`

	// Минимальная пригодность окна для внесения без пометки риска.
	MinSuitability float64 `yaml:"min_suitability"`
	// Максимум внесений одного элемента при дробном внесении.
	MaxSplits int `yaml:"max_splits"`
	// Число параллельных обработчиков при оценке популяции.
	Workers int `yaml:"workers"`

	Weights agronomy.Weights `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Population:     60,
		Generations:    80,
		CrossoverRate:  0.90,
		MutationRate:   0.30,
		MinSuitability: 0.5,
		MaxSplits:      3,
		Workers:        1,
		Weights:        agronomy.DefaultWeights(),
	}
}

func (c Config) Validate() error {
	if c.Population < 4 {
		return fmt.Errorf(
			"размер популяции должен быть >= 4 (получено %d)",
			c.Population,
		)
	}
	if c.Generations <= 0 {
		return fmt.Errorf(
			"количество поколений должно быть > 0 (получено %d)",
			c.Generations,
		)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf(
			"вероятность кроссовера должна быть в диапазоне [0,1] (получено %f)",
			c.CrossoverRate,
		)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf(
			"вероятность мутации должна быть в диапазоне [0,1] (получено %f)",
			c.MutationRate,
		)
	}
	if c.MinSuitability < 0 || c.MinSuitability > 1 {
		return fmt.Errorf(
			"минимальная пригодность должна быть в диапазоне [0,1] (получено %f)",
			c.MinSuitability,
		)
	}
	if c.MaxSplits < 1 {
		return fmt.Errorf(
			"максимум внесений на элемент должен быть >= 1 (получено %d)",
			c.MaxSplits,
		)
	}
	if c.Workers < 1 {
		return fmt.Errorf(
			"число обработчиков должно быть >= 1 (получено %d)",
			c.Workers,
		)
	}
	return c.Weights.Validate()
}
