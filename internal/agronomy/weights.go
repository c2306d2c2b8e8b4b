package agronomy

import (
	"fmt"
	"strings"
)

// Weights - настраиваемые коэффициенты модели оценки графика.
// Вклады урожайности, затрат и экологии дополнительно масштабируются приоритетами запроса.
type Weights struct {
	Yield         float64 `yaml:"yield"`
	Cost          float64 `yaml:"cost"`
	Environmental float64 `yaml:"environmental"`
	Risk          float64 `yaml:"risk"`

	// Штраф за каждое нарушение ограничений.
	ViolationPenalty float64 `yaml:"violation_penalty"`

	// Крутизна кривой Митчерлиха и убывающая отдача одного прохода.
	MitscherlichK float64 `yaml:"mitscherlich_k"`
	Curvature     float64 `yaml:"curvature"`
	// Доля урожая, обеспечиваемая почвой без внесения.
	SoilSupply float64 `yaml:"soil_supply"`
}

func DefaultWeights() Weights {
	return Weights{
		Yield:            1.0,
		Cost:             0.25,
		Environmental:    0.20,
		Risk:             0.25,
		ViolationPenalty: 0.5,
		MitscherlichK:    3.0,
		Curvature:        0.25,
		SoilSupply:       0.60,
	}
}

func (w Weights) Validate() error {
	var problems []string
	if w.Yield < 0 || w.Cost < 0 || w.Environmental < 0 || w.Risk < 0 {
		problems = append(problems, "веса целевой функции должны быть >= 0")
	}
	if w.Yield+w.Cost+w.Environmental == 0 {
		problems = append(problems, "хотя бы один из весов yield/cost/environmental должен быть > 0")
	}
	if w.ViolationPenalty < 0 {
		problems = append(problems, fmt.Sprintf("штраф за нарушение должен быть >= 0 (получено %f)", w.ViolationPenalty))
	}
	if w.MitscherlichK <= 0 {
		problems = append(problems, fmt.Sprintf("mitscherlich_k должно быть > 0 (получено %f)", w.MitscherlichK))
	}
	if w.Curvature < 0 || w.Curvature >= 0.5 {
		problems = append(problems, fmt.Sprintf("curvature должно быть в диапазоне [0,0.5) (получено %f)", w.Curvature))
	}
	if w.SoilSupply < 0 || w.SoilSupply >= 1 {
		problems = append(problems, fmt.Sprintf("soil_supply должно быть в диапазоне [0,1) (получено %f)", w.SoilSupply))
	}
	if len(problems) > 0 {
		return fmt.Errorf("некорректные веса оценки: %s", strings.Join(problems, "; "))
	}
	return nil
}

// priorityScale переводит нормированный приоритет [0,1] в множитель веса.
// При равных приоритетах (1/3) множитель равен 1, урожайность никогда не обнуляется.
func priorityScale(p float64) float64 {
	return 0.5 + 1.5*p
}
