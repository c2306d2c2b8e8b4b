package ga

import (
	"math"
	"math/rand"
	"sort"

	"fertTiming/internal/agronomy"
	"fertTiming/internal/domain"
)

// Space - пространство поиска графиков: доступные дни по способам и ограничения дробления.
// Все операторы чистые: возвращают новые срезы событий и не изменяют аргументы.
type Space struct {
	Eval      *agronomy.Evaluator
	MaxSplits int

	days    [][]int // индекс способа → доступные дни
	methods []int   // способы, у которых есть хотя бы один день
}

// NewSpace строит пространство поиска над оценщиком.
func NewSpace(eval *agronomy.Evaluator, maxSplits int) *Space {
	s := &Space{Eval: eval, MaxSplits: maxSplits}
	s.days = make([][]int, len(eval.Methods()))
	for m := range eval.Methods() {
		s.days[m] = eval.CandidateDays(m)
		if len(s.days[m]) > 0 {
			s.methods = append(s.methods, m)
		}
	}
	if !eval.Request().SplitApplicationAllowed {
		s.MaxSplits = 1
	}
	return s
}

// Empty - ни одна пара (день, способ) не доступна.
func (s *Space) Empty() bool { return len(s.methods) == 0 }

func (s *Space) randomMethod(rng *rand.Rand) int {
	return s.methods[rng.Intn(len(s.methods))]
}

func (s *Space) randomDay(method int, rng *rand.Rand) int {
	days := s.days[method]
	return days[rng.Intn(len(days))]
}

// nearDay выбирает доступный день способа в пределах ±radius от текущего,
// а при отсутствии таких - любой доступный.
func (s *Space) nearDay(method, day, radius int, rng *rand.Rand) int {
	days := s.days[method]
	lo := sort.SearchInts(days, day-radius)
	hi := sort.SearchInts(days, day+radius+1)
	if hi > lo {
		return days[lo+rng.Intn(hi-lo)]
	}
	return days[rng.Intn(len(days))]
}

func (s *Space) event(day, method int, n domain.Nutrient, amount float64) domain.ApplicationEvent {
	return s.Eval.NewEvent(day, method, n, amount)
}

// Random генерирует случайный, но допустимый график: даты из доступных окон,
// суммы не превышают потребность.
func (s *Space) Random(rng *rand.Rand) []domain.ApplicationEvent {
	if s.Empty() {
		return nil
	}
	req := s.Eval.Request()
	var out []domain.ApplicationEvent
	for _, n := range s.Eval.Nutrients() {
		need := req.NutrientRequirements[n]
		if need <= 0 {
			continue
		}
		k := 1
		if s.MaxSplits > 1 {
			k = 1 + rng.Intn(s.MaxSplits)
		}
		parts := make([]float64, k)
		sum := 0.0
		for i := range parts {
			parts[i] = 0.5 + rng.Float64()
			sum += parts[i]
		}
		for i := range parts {
			m := s.randomMethod(rng)
			amount := math.Min(need*parts[i]/sum, s.Eval.Methods()[m].Profile().MaxRate)
			out = append(out, s.event(s.randomDay(m, rng), m, n, amount))
		}
	}
	domain.SortEvents(out)
	return out
}

// Crossover - равномерный кроссовер по блокам элементов: каждый элемент питания
// потомок наследует целиком от одного из родителей, поэтому суммы не нарушаются.
func Crossover(p1, p2 []domain.ApplicationEvent, nutrients []domain.Nutrient, rng *rand.Rand) (c1, c2 []domain.ApplicationEvent) {
	byNutrient := func(events []domain.ApplicationEvent) map[domain.Nutrient][]domain.ApplicationEvent {
		out := make(map[domain.Nutrient][]domain.ApplicationEvent)
		for _, e := range events {
			out[e.Nutrient] = append(out[e.Nutrient], e)
		}
		return out
	}
	a, b := byNutrient(p1), byNutrient(p2)
	for _, n := range nutrients {
		if rng.Float64() < 0.5 {
			c1 = append(c1, a[n]...)
			c2 = append(c2, b[n]...)
		} else {
			c1 = append(c1, b[n]...)
			c2 = append(c2, a[n]...)
		}
	}
	domain.SortEvents(c1)
	domain.SortEvents(c2)
	return c1, c2
}

// Mutate возмущает один ген: дату, способ, норму или число внесений.
func (s *Space) Mutate(events []domain.ApplicationEvent, rng *rand.Rand) []domain.ApplicationEvent {
	if s.Empty() {
		return events
	}
	if len(events) == 0 {
		return s.Random(rng)
	}
	out := make([]domain.ApplicationEvent, len(events))
	copy(out, events)

	i := rng.Intn(len(out))
	ev := out[i]
	day := s.Eval.DayIndex(ev.Date)
	method := s.Eval.MethodIndex(ev.Method)
	if method < 0 || len(s.days[method]) == 0 {
		method = s.randomMethod(rng)
	}
	maxRate := func(m int) float64 { return s.Eval.Methods()[m].Profile().MaxRate }

	switch rng.Intn(4) {
	case 0:
		// сдвиг даты в пределах недели
		out[i] = s.event(s.nearDay(method, day, 7, rng), method, ev.Nutrient, ev.Amount)
	case 1:
		// смена способа
		m := s.randomMethod(rng)
		d := day
		if d < 0 || d >= s.Eval.Horizon() {
			d = s.nearDay(m, day, 7, rng)
		} else if ok, _ := s.Eval.Candidate(d, m); !ok {
			d = s.nearDay(m, day, 7, rng)
		}
		out[i] = s.event(d, m, ev.Nutrient, math.Min(ev.Amount, maxRate(m)))
	case 2:
		// перераспределение нормы между внесениями одного элемента
		j := s.peer(out, i, rng)
		if j < 0 {
			out[i] = s.event(s.nearDay(method, day, 7, rng), method, ev.Nutrient, ev.Amount)
			break
		}
		other := out[j]
		mj := s.Eval.MethodIndex(other.Method)
		delta := ev.Amount * (0.1 + 0.4*rng.Float64())
		if mj >= 0 {
			delta = math.Min(delta, math.Max(0, maxRate(mj)-other.Amount))
		}
		out[i].Amount = ev.Amount - delta
		out[j].Amount = other.Amount + delta
	default:
		// дробление или слияние внесений
		count := 0
		for _, e := range out {
			if e.Nutrient == ev.Nutrient {
				count++
			}
		}
		if j := s.peer(out, i, rng); j >= 0 && (count >= s.MaxSplits || rng.Float64() < 0.5) {
			merged := out[i].Amount + out[j].Amount
			if mj := s.Eval.MethodIndex(out[j].Method); mj >= 0 {
				out[j].Amount = math.Min(merged, maxRate(mj))
			} else {
				out[j].Amount = merged
			}
			out[i].Amount = merged - out[j].Amount
			if out[i].Amount <= 1e-9 {
				out = append(out[:i], out[i+1:]...)
			}
		} else if count < s.MaxSplits && ev.Amount > 0 {
			half := ev.Amount / 2
			m := s.randomMethod(rng)
			half = math.Min(half, maxRate(m))
			out[i].Amount = ev.Amount - half
			out = append(out, s.event(s.randomDay(m, rng), m, ev.Nutrient, half))
		} else {
			out[i] = s.event(s.randomDay(method, rng), method, ev.Nutrient, ev.Amount)
		}
	}

	domain.SortEvents(out)
	return out
}

// peer возвращает индекс другого внесения того же элемента или -1.
func (s *Space) peer(events []domain.ApplicationEvent, i int, rng *rand.Rand) int {
	var idx []int
	for j, e := range events {
		if j != i && e.Nutrient == events[i].Nutrient {
			idx = append(idx, j)
		}
	}
	if len(idx) == 0 {
		return -1
	}
	return idx[rng.Intn(len(idx))]
}

// tournamentSelect реализует турнирный отбор.
// Возвращается индекс особи с наибольшей приспособленностью.
func tournamentSelect(scores []float64, tournamentSize int, rng *rand.Rand) int {
	best := rng.Intn(len(scores))
	bestScore := scores[best]
	for i := 1; i < tournamentSize; i++ {
		cand := rng.Intn(len(scores))
		if scores[cand] > bestScore {
			best = cand
			bestScore = scores[cand]
		}
	}
	return best
}
