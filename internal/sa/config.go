package sa

import (
	"fmt"

	"fertTiming/internal/agronomy"
)

// Тип окрестности
type Neighborhood string

const (
	// одна мутация графика (сдвиг, смена способа, перераспределение дозы)
	NeighborhoodMutate Neighborhood = "mutate"
	// скрещивание с новым случайным графиком
	NeighborhoodRecombine Neighborhood = "recombine"
)

type Config struct {
	Iterations       int `yaml:"iterations"`
	IterationsPerDay int `yaml:"iterations_per_day"`

	InitialTemp float64 `yaml:"initial_temp"`
	FinalTemp   float64 `yaml:"final_temp"`
	Alpha       float64 `yaml:"alpha"`

	Neighborhood Neighborhood `yaml:"neighborhood"`

	MinSuitability float64          `yaml:"min_suitability"`
	MaxSplits      int              `yaml:"max_splits"`
	Weights        agronomy.Weights `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:       0,
		IterationsPerDay: 25,

		InitialTemp: 0.05,
		FinalTemp:   1e-4,
		Alpha:       0.995,

		Neighborhood: NeighborhoodMutate,

		MinSuitability: 0.5,
		MaxSplits:      3,
		Weights:        agronomy.DefaultWeights(),
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerDay <= 0 {
		return fmt.Errorf(
			"должно быть задано Iterations > 0 или IterationsPerDay > 0",
		)
	}
	if c.InitialTemp <= 0 {
		return fmt.Errorf(
			"InitialTemp должно быть > 0 (получено %f)",
			c.InitialTemp,
		)
	}
	if c.FinalTemp <= 0 {
		return fmt.Errorf(
			"FinalTemp должно быть > 0 (получено %f)",
			c.FinalTemp,
		)
	}
	if c.FinalTemp >= c.InitialTemp {
		return fmt.Errorf(
			"FinalTemp должно быть < InitialTemp (получено %f >= %f)",
			c.FinalTemp,
			c.InitialTemp,
		)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf(
			"alpha должно лежать в интервале (0,1) (получено %f)",
			c.Alpha,
		)
	}
	switch c.Neighborhood {
	case NeighborhoodMutate, NeighborhoodRecombine:
		// ok
	default:
		return fmt.Errorf(
			"неизвестный тип окрестности %q",
			c.Neighborhood,
		)
	}
	if c.MinSuitability < 0 || c.MinSuitability > 1 {
		return fmt.Errorf("минимальная пригодность должна быть в диапазоне [0,1] (получено %f)", c.MinSuitability)
	}
	if c.MaxSplits < 1 {
		return fmt.Errorf("максимум внесений на элемент должен быть >= 1 (получено %d)", c.MaxSplits)
	}
	return c.Weights.Validate()
}
