package agronomy

import (
	"math"

	"fertTiming/internal/domain"
)

// Assessment - агрономическая оценка набора внесений.
type Assessment struct {
	Effective map[domain.Nutrient]float64
	Applied   map[domain.Nutrient]float64

	RelativeYield float64 // доля от урожая при полном обеспечении
	YieldScore    float64 // отклик урожая на внесение, [0,1]
	ExpectedYield float64 // бушель/акр

	Cost      float64 // $/акр
	CostScore float64 // [0,1], выше - дешевле

	Environmental float64 // [0,1], выше - меньше потерь
	Risk          float64 // [0,1], выше - рискованнее

	Coverage   float64
	Violations int
	Overrides  int
}

// Objectives - вектор целей для многокритериального поиска (все максимизируются).
func (a Assessment) Objectives() []float64 {
	return []float64{a.YieldScore, a.CostScore, a.Environmental, 1 - a.Risk}
}

type passKey struct {
	day    int
	method domain.ApplicationMethod
}

// Assess оценивает события. Функция чистая: оценщик не изменяется.
func (e *Evaluator) Assess(events []domain.ApplicationEvent) Assessment {
	w := e.opts.Weights
	a := Assessment{
		Effective: make(map[domain.Nutrient]float64, len(e.nutrients)),
		Applied:   make(map[domain.Nutrient]float64, len(e.nutrients)),
	}

	passes := make(map[passKey]bool)
	passesPerDay := make(map[int]int)
	eventsPerNutrient := make(map[domain.Nutrient]int)
	maxShare := 0.0
	exposure, totalAmount, lost := 0.0, 0.0, 0.0

	for _, ev := range events {
		day := e.DayIndex(ev.Date)
		mi := e.MethodIndex(ev.Method)
		need := e.req.NutrientRequirements[ev.Nutrient]
		prof := ev.Method.Profile()

		a.Applied[ev.Nutrient] += ev.Amount
		a.Cost += ev.Amount * e.req.Price(ev.Nutrient)
		eventsPerNutrient[ev.Nutrient]++
		totalAmount += ev.Amount

		inHorizon := day >= 0 && day < len(e.days)
		if mi < 0 || !inHorizon {
			a.Violations++
			exposure += ev.Amount
			lost += ev.Amount
			continue
		}

		k := passKey{day: day, method: ev.Method}
		if !passes[k] {
			passes[k] = true
			passesPerDay[day]++
			a.Cost += prof.OperatingCost
		}

		info := e.days[day]
		if ok, override := e.Candidate(day, mi); !ok {
			a.Violations++
		} else if override || ev.RiskOverride {
			a.Overrides++
		}

		a.Effective[ev.Nutrient] += e.util[day][mi] * e.Effective(ev.Amount, need)

		suit, precip := info.Suitability, info.Precipitation
		if !info.InWindow() {
			suit, precip = 0, 1
		}
		exposure += ev.Amount * (0.6*(1-suit) + 0.4*precip)

		lossRate := prof.Volatility + 0.35*precip + 0.25*(1-suit)
		if info.SoilMoisture > 0.8 {
			lossRate += info.SoilMoisture - 0.8
		}
		lost += ev.Amount * math.Min(1, lossRate)

		if need > 0 {
			maxShare = math.Max(maxShare, ev.Amount/need)
		}
	}

	for day, n := range passesPerDay {
		if labor := e.days[day].Labor; labor >= 0 && n > labor {
			a.Violations += n - labor
		}
	}
	if !e.req.SplitApplicationAllowed {
		for _, n := range eventsPerNutrient {
			if n > 1 {
				a.Violations += n - 1
			}
		}
	}

	totalNeed := e.req.TotalRequirement()
	relative := 1.0
	covered := 0.0
	for _, n := range e.nutrients {
		need := e.req.NutrientRequirements[n]
		applied := a.Applied[n]
		if applied > need {
			lost += applied - need
			if !e.req.AllowExcess && applied > need+1e-6 {
				a.Violations++
			}
		}
		covered += math.Min(applied, need)
		if need <= 0 {
			continue
		}
		response := 1 - math.Exp(-w.MitscherlichK*a.Effective[n]/need)
		relative *= w.SoilSupply + (1-w.SoilSupply)*response
	}

	floor := math.Pow(w.SoilSupply, float64(countPositive(e.req.NutrientRequirements)))
	a.RelativeYield = relative
	if floor < 1 {
		a.YieldScore = clamp01((relative - floor) / (1 - floor))
	}
	a.ExpectedYield = e.crop.BaseYield * relative

	if e.referenceCost > 0 {
		a.CostScore = e.referenceCost / (e.referenceCost + a.Cost)
	} else {
		a.CostScore = 1
	}

	if totalNeed > 0 {
		a.Coverage = covered / totalNeed
		a.Environmental = clamp01(1 - lost/totalNeed)
	} else {
		a.Coverage = 1
		a.Environmental = 1
	}

	if totalAmount > 0 {
		a.Risk = clamp01(0.8*exposure/totalAmount + 0.2*math.Min(1, maxShare))
	}

	return a
}

// Fitness - скалярная оценка для генетического и локального поиска.
func (e *Evaluator) Fitness(a Assessment) float64 {
	w := e.opts.Weights
	return e.wYield*a.YieldScore +
		e.wCost*a.CostScore +
		e.wEnv*a.Environmental -
		w.Risk*a.Risk*(1-e.req.RiskTolerance) -
		w.ViolationPenalty*float64(a.Violations)
}

// Score строит неизменяемый график с заполненными агрегатами.
func (e *Evaluator) Score(events []domain.ApplicationEvent) (domain.Schedule, Assessment) {
	s := domain.NewSchedule(events)
	a := e.Assess(s.Events)
	s.TotalCost = a.Cost
	s.RiskScore = a.Risk
	s.Fitness = e.Fitness(a)
	return s, a
}

// MeanSuitability - средняя пригодность дней, в которые выполняются внесения.
func (e *Evaluator) MeanSuitability(events []domain.ApplicationEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range events {
		if d := e.DayIndex(ev.Date); d >= 0 && d < len(e.days) {
			sum += e.days[d].Suitability
		}
	}
	return sum / float64(len(events))
}

// CandidateSuitability - средняя пригодность дней, доступных хотя бы одному способу.
func (e *Evaluator) CandidateSuitability() float64 {
	sum, n := 0.0, 0
	for d := range e.days {
		for m := range e.methods {
			if ok, _ := e.Candidate(d, m); ok {
				sum += e.days[d].Suitability
				n++
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func countPositive(m map[domain.Nutrient]float64) int {
	n := 0
	for _, v := range m {
		if v > 0 {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
