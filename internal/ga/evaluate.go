package ga

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
)

// Scored - особь популяции после оценки.
type Scored struct {
	Schedule   domain.Schedule
	Assessment agronomy.Assessment
}

// EvaluateAll оценивает кандидатов, распределяя работу между workers обработчиками.
// Результаты пишутся по индексу, поэтому порядок и значения не зависят от числа обработчиков.
func EvaluateAll(ctx context.Context, eval *agronomy.Evaluator, candidates [][]domain.ApplicationEvent, workers int) ([]Scored, error) {
	out := make([]Scored, len(candidates))
	if workers <= 1 {
		for i, c := range candidates {
			s, a := eval.Score(c)
			out[i] = Scored{Schedule: s, Assessment: a}
		}
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, a := eval.Score(candidates[i])
			out[i] = Scored{Schedule: s, Assessment: a}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
