package opt

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fertTiming/internal/domain"
)

// Optimizer - общий контракт всех алгоритмов планирования.
type Optimizer interface {
	Optimize(ctx context.Context, req *domain.Request, windows []domain.WeatherWindow, stages domain.StageCalendar) (Result, error)
}

// ParetoEntry - член фронта Парето: график и вектор целей
// (урожайность, затраты, экология, 1 - риск; все максимизируются).
type ParetoEntry struct {
	Schedule   domain.Schedule
	Objectives []float64
}

// ModelDiagnostics - диагностика поиска по предсказательной модели.
type ModelDiagnostics struct {
	PredictedYield     float64
	PredictionStd      float64
	ModelConfidence    float64
	InSampleConfidence float64
	Fallback           bool
}

// Result - единый результат оптимизатора. Поля времени намеренно отсутствуют:
// одинаковые входы и сид дают одинаковый результат.
type Result struct {
	RunID     uuid.UUID
	Algorithm string

	Schedule   domain.Schedule
	Value      float64 // total value / fitness / скаляризованная оценка
	Confidence float64 // [0,1]
	Feasible   bool
	Note       string

	Evaluations int
	Iterations  int

	// GA: лучшая приспособленность по поколениям.
	FitnessHistory []float64
	// MOO: фронт Парето и индекс рекомендованного члена.
	Pareto      []ParetoEntry
	Recommended int
	// ML: диагностика модели.
	Model *ModelDiagnostics

	Meta map[string]any
}

// Objectives - порядок целей в ParetoEntry.Objectives.
var Objectives = []string{"yield", "cost", "environmental", "risk"}

var runNamespace = uuid.MustParse("6f1c2d0e-8a4b-4c3e-9d55-3f0a9c1b7e21")

// RunID - детерминированный идентификатор запуска (алгоритм, поле, запрос, сид).
func RunID(algorithm string, req *domain.Request, seed int64) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s|%s|%d", algorithm, req.FieldID, req.RequestID, domain.FormatDay(req.PlantingDate), seed)
	return uuid.NewSHA1(runNamespace, []byte(name))
}

// Infeasible - результат для случая, когда не существует ни одного допустимого внесения.
func Infeasible(algorithm string, req *domain.Request, seed int64, reason string) Result {
	return Result{
		RunID:       RunID(algorithm, req, seed),
		Algorithm:   algorithm,
		Schedule:    domain.NewSchedule(nil),
		Value:       0,
		Confidence:  0,
		Feasible:    false,
		Note:        reason,
		Recommended: -1,
		Meta:        map[string]any{"infeasible": true},
	}
}

// Clamp01 ограничивает оценку уверенности диапазоном [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Причины недостижимости и неполного решения, общие для алгоритмов.
const (
	ReasonNoWindows  = "no usable application periods: no weather window in the horizon admits an allowed method"
	ReasonNothingDue = "nothing to apply: all nutrient requirements are zero"
)

// ShortfallNote формирует пояснение о недовнесении для пользователя.
func ShortfallNote(req *domain.Request, s domain.Schedule) string {
	short := s.Shortfall(req)
	note := ""
	for _, n := range req.Nutrients() {
		if short[n] > 1e-6 {
			if note != "" {
				note += "; "
			}
			note += fmt.Sprintf("could not fully meet %s requirement within weather-safe windows (short %.1f)", n, short[n])
		}
	}
	return note
}
