package mlguided

import (
	"fmt"

	"fertTiming/internal/agronomy"
)

type Config struct {
	// Число шагов локального поиска.
	MaxIterations int `yaml:"max_iterations"`
	// Число соседей (мутаций), оцениваемых на каждом шаге.
	Neighbors int `yaml:"neighbors"`
	// Число случайных стартовых графиков.
	InitialCandidates int `yaml:"initial_candidates"`
	// Вероятность перехода к случайному соседу вместо лучшего.
	ExplorationRate float64 `yaml:"exploration_rate"`
	// Дисконт поздних внесений в признаках графика.
	DiscountFactor float64 `yaml:"discount_factor"`
	// Штраф за разброс предсказания: objective = mean - UncertaintyPenalty·std.
	UncertaintyPenalty float64 `yaml:"uncertainty_penalty"`
	// Множитель уверенности при эвристической оценке без модели.
	FallbackConfidence float64 `yaml:"fallback_confidence"`

	MinSuitability float64 `yaml:"min_suitability"`
	MaxSplits      int     `yaml:"max_splits"`

	// Обучение ансамбля на симулированных графиках (используется CLI).
	TrainSamples    int     `yaml:"train_samples"`
	EnsembleMembers int     `yaml:"ensemble_members"`
	RidgeLambda     float64 `yaml:"ridge_lambda"`

	Weights agronomy.Weights `yaml:"-"`
}

func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("число итераций должно быть > 0 (получено %d)", c.MaxIterations)
	}
	if c.Neighbors <= 0 {
		return fmt.Errorf("число соседей должно быть > 0 (получено %d)", c.Neighbors)
	}
	if c.InitialCandidates <= 0 {
		return fmt.Errorf("число стартовых графиков должно быть > 0 (получено %d)", c.InitialCandidates)
	}
	if c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		return fmt.Errorf("exploration rate должен быть в диапазоне [0,1] (получено %f)", c.ExplorationRate)
	}
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("коэффициент дисконтирования должен быть в диапазоне (0,1] (получено %f)", c.DiscountFactor)
	}
	if c.UncertaintyPenalty < 0 {
		return fmt.Errorf("штраф за неопределённость должен быть >= 0 (получено %f)", c.UncertaintyPenalty)
	}
	if c.FallbackConfidence <= 0 || c.FallbackConfidence >= 1 {
		return fmt.Errorf("множитель уверенности эвристики должен быть в диапазоне (0,1) (получено %f)", c.FallbackConfidence)
	}
	if c.MinSuitability < 0 || c.MinSuitability > 1 {
		return fmt.Errorf("минимальная пригодность должна быть в диапазоне [0,1] (получено %f)", c.MinSuitability)
	}
	if c.MaxSplits < 1 {
		return fmt.Errorf("максимум внесений на элемент должен быть >= 1 (получено %d)", c.MaxSplits)
	}
	if c.TrainSamples < 0 || c.EnsembleMembers < 1 || c.RidgeLambda < 0 {
		return fmt.Errorf(
			"параметры обучения некорректны (samples=%d, members=%d, lambda=%f)",
			c.TrainSamples, c.EnsembleMembers, c.RidgeLambda,
		)
	}
	return c.Weights.Validate()
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:      150,
		Neighbors:          8,
		InitialCandidates:  10,
		ExplorationRate:    0.1,
		DiscountFactor:     0.98,
		UncertaintyPenalty: 0.5,
		FallbackConfidence: 0.5,
		MinSuitability:     0.5,
		MaxSplits:          3,
		TrainSamples:       200,
		EnsembleMembers:    10,
		RidgeLambda:        1e-3,
		Weights:            agronomy.DefaultWeights(),
	}
}
