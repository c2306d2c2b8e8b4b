package mlguided

import (
	"context"
	"math/rand"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
	"fertTiming/internal/ga"
)

// Simulate генерирует n обучающих примеров: случайные допустимые графики,
// урожайность которых оценена агрономической моделью.
func Simulate(ctx context.Context, req *domain.Request, windows []domain.WeatherWindow, stages domain.StageCalendar, cfg Config, n int, seed int64) ([]Sample, error) {
	eval, err := agronomy.NewEvaluator(req, windows, stages, agronomy.Options{
		MinSuitability: cfg.MinSuitability,
		Weights:        cfg.Weights,
	})
	if err != nil {
		return nil, err
	}
	space := ga.NewSpace(eval, cfg.MaxSplits)
	if space.Empty() {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(seed))
	genomes := make([][]domain.ApplicationEvent, n)
	for i := range genomes {
		genomes[i] = space.Random(rng)
		// часть примеров с неполным внесением, чтобы модель видела отклик на дозу
		if i%3 == 0 {
			genomes[i] = scaleAmounts(genomes[i], 0.2+0.8*rng.Float64())
		}
	}
	scored, err := ga.EvaluateAll(ctx, eval, genomes, 1)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, len(scored))
	for i, s := range scored {
		out[i] = Sample{
			Features: Features(eval, s.Schedule.Events, cfg.DiscountFactor),
			Yield:    s.Assessment.ExpectedYield,
		}
	}
	return out, nil
}

func scaleAmounts(events []domain.ApplicationEvent, f float64) []domain.ApplicationEvent {
	out := make([]domain.ApplicationEvent, len(events))
	for i, e := range events {
		e.Amount *= f
		out[i] = e
	}
	return out
}

// Train - Simulate + TrainEnsemble с параметрами из конфигурации.
func Train(ctx context.Context, req *domain.Request, windows []domain.WeatherWindow, stages domain.StageCalendar, cfg Config, seed int64) (*Ensemble, error) {
	samples, err := Simulate(ctx, req, windows, stages, cfg, cfg.TrainSamples, seed)
	if err != nil {
		return nil, err
	}
	return TrainEnsemble(samples, cfg.EnsembleMembers, cfg.RidgeLambda, seed)
}
