package mlguided

import (
	"math"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
)

// NumFeatures - длина вектора признаков графика.
const NumFeatures = 9

// Features строит вектор признаков графика:
// смещение, покрытие потребности, усвоение, пригодность, фаза,
// дисконтированный срок, осадки, дробность, дисконтированная эффективная доза.
// discount ∈ (0,1] снижает вклад поздних внесений в сроке и в эффективной дозе.
func Features(eval *agronomy.Evaluator, events []domain.ApplicationEvent, discount float64) []float64 {
	req := eval.Request()
	f := make([]float64, NumFeatures)
	f[0] = 1

	need := req.TotalRequirement()
	total := 0.0
	effective := 0.0
	for _, ev := range events {
		day := eval.DayIndex(ev.Date)
		mi := eval.MethodIndex(ev.Method)
		if day < 0 || day >= eval.Horizon() || mi < 0 {
			continue
		}
		info := eval.Day(day)
		u := eval.Utilization(day, mi)
		a := ev.Amount
		total += a
		f[2] += a * u
		f[3] += a * info.Suitability
		f[4] += a * info.Uptake
		w := math.Pow(discount, float64(day))
		f[5] += a * w
		f[6] += a * info.Precipitation
		effective += w * u * eval.Effective(a, req.NutrientRequirements[ev.Nutrient])
	}
	if total > 0 {
		for i := 2; i <= 6; i++ {
			f[i] /= total
		}
	}
	if need > 0 {
		f[1] = math.Min(1, total/need)
		f[8] = effective / need
	}
	if n := len(eval.Nutrients()); n > 0 {
		f[7] = math.Min(1, float64(len(events))/float64(3*n))
	}
	return f
}
