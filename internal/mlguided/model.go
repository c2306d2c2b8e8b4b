package mlguided

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// YieldModel - предсказательная модель урожайности по признакам графика.
type YieldModel interface {
	// Predict возвращает ожидаемую урожайность и оценку разброса предсказания.
	Predict(features []float64) (mean, std float64)
	// InSampleConfidence - качество подгонки на обучающей выборке, [0,1].
	InSampleConfidence() float64
}

// Sample - обучающий пример: признаки графика и наблюдённая урожайность.
type Sample struct {
	Features []float64
	Yield    float64
}

// Ensemble - ансамбль гребневых регрессий, обученных на бутстреп-выборках.
// Разброс предсказаний членов ансамбля служит оценкой неопределённости.
type Ensemble struct {
	members  [][]float64
	inSample float64
}

var errNotEnoughSamples = errors.New("недостаточно обучающих примеров")

// TrainEnsemble обучает members гребневых регрессий с регуляризацией lambda.
func TrainEnsemble(samples []Sample, members int, lambda float64, seed int64) (*Ensemble, error) {
	if members < 1 {
		return nil, fmt.Errorf("размер ансамбля должен быть >= 1 (получено %d)", members)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("lambda должно быть >= 0 (получено %f)", lambda)
	}
	if len(samples) < 2 {
		return nil, errNotEnoughSamples
	}
	p := len(samples[0].Features)
	for i, s := range samples {
		if len(s.Features) != p {
			return nil, fmt.Errorf("sample %d: %d features, want %d", i, len(s.Features), p)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	e := &Ensemble{members: make([][]float64, members)}
	boot := make([]Sample, len(samples))
	for m := 0; m < members; m++ {
		for i := range boot {
			boot[i] = samples[rng.Intn(len(samples))]
		}
		w, err := fitRidge(boot, p, lambda)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", m, err)
		}
		e.members[m] = w
	}

	// R² ансамбля на всей выборке
	mean := 0.0
	for _, s := range samples {
		mean += s.Yield
	}
	mean /= float64(len(samples))
	ssTot, ssRes := 0.0, 0.0
	for _, s := range samples {
		pred, _ := e.Predict(s.Features)
		ssRes += (s.Yield - pred) * (s.Yield - pred)
		ssTot += (s.Yield - mean) * (s.Yield - mean)
	}
	if ssTot > 0 {
		e.inSample = math.Max(0, math.Min(1, 1-ssRes/ssTot))
	}
	return e, nil
}

func (e *Ensemble) Predict(features []float64) (mean, std float64) {
	preds := make([]float64, len(e.members))
	for m, w := range e.members {
		for i, x := range features {
			preds[m] += w[i] * x
		}
		mean += preds[m]
	}
	mean /= float64(len(preds))
	if len(preds) < 2 {
		return mean, 0
	}
	for _, p := range preds {
		std += (p - mean) * (p - mean)
	}
	return mean, math.Sqrt(std / float64(len(preds)-1))
}

func (e *Ensemble) InSampleConfidence() float64 { return e.inSample }

// fitRidge решает (XᵀX + λI)w = Xᵀy.
func fitRidge(samples []Sample, p int, lambda float64) ([]float64, error) {
	a := make([][]float64, p)
	for i := range a {
		a[i] = make([]float64, p+1)
		a[i][i] = lambda
	}
	for _, s := range samples {
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				a[i][j] += s.Features[i] * s.Features[j]
			}
			a[i][p] += s.Features[i] * s.Yield
		}
	}
	return solve(a, p)
}

// solve - метод Гаусса с выбором главного элемента над расширенной матрицей.
func solve(a [][]float64, p int) ([]float64, error) {
	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("вырожденная система, увеличьте lambda")
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := 0; r < p; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for c := col; c <= p; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	w := make([]float64, p)
	for i := 0; i < p; i++ {
		w[i] = a[i][p] / a[i][i]
	}
	return w, nil
}
