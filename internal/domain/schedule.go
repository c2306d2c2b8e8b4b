package domain

import (
	"fmt"
	"math"
	"sort"
)

// amountTolerance - допуск сравнения сумм с потребностью (фунт/акр).
const amountTolerance = 1e-6

// Schedule - упорядоченный по дате набор внесений для одного поля и сезона
// вместе с производными агрегатами. Значение неизменяемо: операторы поиска
// создают новые графики, а не модифицируют существующие.
type Schedule struct {
	Events []ApplicationEvent

	TotalCost       float64
	TotalByNutrient map[Nutrient]float64
	RiskScore       float64
	Fitness         float64
}

// NewSchedule копирует события и сортирует их по дате, элементу и способу.
func NewSchedule(events []ApplicationEvent) Schedule {
	out := make([]ApplicationEvent, len(events))
	copy(out, events)
	SortEvents(out)
	return Schedule{Events: out, TotalByNutrient: SumByNutrient(out)}
}

// SortEvents задаёт детерминированный порядок событий.
func SortEvents(events []ApplicationEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Nutrient != b.Nutrient {
			return a.Nutrient < b.Nutrient
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Amount < b.Amount
	})
}

// SumByNutrient агрегирует внесённое количество по элементам.
func SumByNutrient(events []ApplicationEvent) map[Nutrient]float64 {
	out := make(map[Nutrient]float64)
	for _, e := range events {
		out[e.Nutrient] += e.Amount
	}
	return out
}

// IsEmpty - в графике нет ни одного внесения.
func (s Schedule) IsEmpty() bool {
	return len(s.Events) == 0
}

// Shortfall возвращает недовнесённое количество по каждому элементу запроса.
func (s Schedule) Shortfall(req *Request) map[Nutrient]float64 {
	out := make(map[Nutrient]float64, len(req.NutrientRequirements))
	for n, need := range req.NutrientRequirements {
		out[n] = math.Max(0, need-s.TotalByNutrient[n])
	}
	return out
}

// Coverage - доля общей потребности, покрытая графиком, [0,1].
func (s Schedule) Coverage(req *Request) float64 {
	need, got := 0.0, 0.0
	for _, n := range req.Nutrients() {
		r := req.NutrientRequirements[n]
		need += r
		got += math.Min(r, s.TotalByNutrient[n])
	}
	if need <= 0 {
		return 1
	}
	return got / need
}

// CheckRequirement проверяет инварианты графика: каждое событие корректно и лежит
// в горизонте запроса, суммарные нормы не превышают потребность,
// если запрос явно не разрешает превышение.
func (s Schedule) CheckRequirement(req *Request) error {
	horizon := req.HorizonDays()
	for i, e := range s.Events {
		if err := e.Validate(req.PlantingDate, horizon); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrInvariant, i, err)
		}
	}
	if req.AllowExcess {
		return nil
	}
	totals := SumByNutrient(s.Events)
	for n, got := range totals {
		need := req.NutrientRequirements[n]
		if got > need+amountTolerance {
			return fmt.Errorf("%w: %s applied %.3f exceeds requirement %.3f", ErrInvariant, n, got, need)
		}
	}
	return nil
}
