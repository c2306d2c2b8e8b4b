package mlguided

import (
	"math"

	"fertTiming/internal/agronomy"
)

// heuristic - фиксированная оценка урожайности по кривой Митчерлиха
// от дисконтированной эффективной доли внесённой потребности. Используется без модели.
type heuristic struct {
	baseYield  float64
	k          float64
	soil       float64
	confidence float64
}

func newHeuristic(eval *agronomy.Evaluator, confidence float64) heuristic {
	w := eval.Weights()
	return heuristic{baseYield: eval.BaseYield(), k: w.MitscherlichK, soil: w.SoilSupply, confidence: confidence}
}

func (h heuristic) Predict(features []float64) (float64, float64) {
	x := math.Max(0, math.Min(1, features[8]))
	rel := h.soil + (1-h.soil)*(1-math.Exp(-h.k*x))/(1-math.Exp(-h.k))
	return h.baseYield * rel, 0
}

func (h heuristic) InSampleConfidence() float64 { return h.confidence }
