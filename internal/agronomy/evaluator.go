package agronomy

import (
	"fmt"
	"math"
	"time"

	"fertTiming/internal/domain"
)

// DayInfo - предрасчитанные условия одного дня горизонта.
type DayInfo struct {
	Index int
	Date  time.Time

	Window        int // индекс покрывающего окна, -1 если окна нет
	Suitability   float64
	Precipitation float64
	SoilMoisture  float64
	Temperature   float64
	WindSpeed     float64

	Stage      domain.GrowthStage
	StageKnown bool
	Uptake     float64

	Labor     int // -1 - без ограничения
	equipment map[string]bool
}

// InWindow - день покрыт погодным окном.
func (d DayInfo) InWindow() bool { return d.Window >= 0 }

// Options - параметры оценщика, общие для всех алгоритмов.
type Options struct {
	MinSuitability float64
	Weights        Weights
}

// Evaluator - оценщик графиков для одной тройки (запрос, окна, календарь).
// После создания только читается, поэтому безопасен для параллельной оценки.
type Evaluator struct {
	req       *domain.Request
	opts      Options
	days      []DayInfo
	methods   []domain.ApplicationMethod
	nutrients []domain.Nutrient

	// [день][индекс способа]
	feasible [][]bool
	usable   [][]bool
	util     [][]float64

	crop          cropProfile
	referenceCost float64
	wYield        float64
	wCost         float64
	wEnv          float64
}

// NewEvaluator проверяет входные данные и строит таблицу горизонта.
func NewEvaluator(req *domain.Request, windows []domain.WeatherWindow, stages domain.StageCalendar, opts Options) (*Evaluator, error) {
	if err := domain.ValidateInputs(req, windows, stages); err != nil {
		return nil, err
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if opts.MinSuitability < 0 || opts.MinSuitability > 1 {
		return nil, fmt.Errorf("min suitability must be in [0,1] (got %f)", opts.MinSuitability)
	}

	e := &Evaluator{
		req:       req,
		opts:      opts,
		methods:   dedupMethods(req.ApplicationMethods),
		nutrients: req.Nutrients(),
		crop:      profileFor(req.CropType),
	}

	yp, cp, ep := req.Priorities()
	e.wYield = opts.Weights.Yield * priorityScale(yp)
	e.wCost = opts.Weights.Cost * priorityScale(cp)
	e.wEnv = opts.Weights.Environmental * priorityScale(ep)

	cheapestPass := math.Inf(1)
	for _, m := range e.methods {
		cheapestPass = math.Min(cheapestPass, m.Profile().OperatingCost)
	}
	for _, n := range e.nutrients {
		e.referenceCost += req.NutrientRequirements[n]*req.Price(n) + cheapestPass
	}

	h := req.HorizonDays()
	e.days = make([]DayInfo, h)
	e.feasible = make([][]bool, h)
	e.usable = make([][]bool, h)
	e.util = make([][]float64, h)

	labor, equipment := availability(req)

	w := 0
	for i := 0; i < h; i++ {
		date := req.DateOf(i)
		info := DayInfo{Index: i, Date: date, Window: -1, Labor: -1}

		// окна отсортированы, поэтому достаточно одного прохода
		for w < len(windows) && domain.Day(windows[w].EndDate).Before(date) {
			w++
		}
		if w < len(windows) && windows[w].Contains(date) {
			win := windows[w]
			info.Window = w
			info.Suitability = win.SuitabilityScore
			info.Precipitation = win.PrecipitationProbability
			info.SoilMoisture = win.SoilMoisture
			info.Temperature = win.Temperature
			info.WindSpeed = win.WindSpeed
		}

		info.Stage, info.StageKnown = stages.StageOn(date)
		info.Uptake = domain.UnknownStageUptake
		if info.StageKnown {
			info.Uptake = info.Stage.Uptake()
		}

		if labor != nil {
			info.Labor = labor[date]
		}
		if equipment != nil {
			info.equipment = equipment[date]
			if info.equipment == nil {
				info.equipment = map[string]bool{}
			}
		}

		e.days[i] = info
		e.feasible[i] = make([]bool, len(e.methods))
		e.usable[i] = make([]bool, len(e.methods))
		e.util[i] = make([]float64, len(e.methods))
		for mi, m := range e.methods {
			e.usable[i][mi] = e.operable(info, m)
			e.feasible[i][mi] = e.usable[i][mi] && info.Suitability >= opts.MinSuitability
			e.util[i][mi] = m.Profile().Efficiency * weatherFactor(info) * info.Uptake
		}
	}

	return e, nil
}

// availability приводит ключи доступности людей и техники к дню (domain.Day),
// как окна и календарь фаз. Записи одного дня объединяются: техника по объединению,
// люди по минимуму.
func availability(req *domain.Request) (map[time.Time]int, map[time.Time]map[string]bool) {
	var labor map[time.Time]int
	if len(req.LaborAvailability) > 0 {
		labor = make(map[time.Time]int, len(req.LaborAvailability))
		for k, n := range req.LaborAvailability {
			d := domain.Day(k)
			if prev, ok := labor[d]; !ok || n < prev {
				labor[d] = n
			}
		}
	}
	var equipment map[time.Time]map[string]bool
	if len(req.EquipmentAvailability) > 0 {
		equipment = make(map[time.Time]map[string]bool, len(req.EquipmentAvailability))
		for k, names := range req.EquipmentAvailability {
			d := domain.Day(k)
			if equipment[d] == nil {
				equipment[d] = make(map[string]bool, len(names))
			}
			for _, name := range names {
				equipment[d][name] = true
			}
		}
	}
	return labor, equipment
}

// operable - день в окне, фаза, ветер, техника и люди позволяют работу способом m.
func (e *Evaluator) operable(d DayInfo, m domain.ApplicationMethod) bool {
	if !d.InWindow() {
		return false
	}
	if !m.AdmitsStage(d.Stage, d.StageKnown) {
		return false
	}
	// снос при опрыскивании и разбрасывании
	if p := m.Profile(); p.MaxWind > 0 && d.WindSpeed > p.MaxWind {
		return false
	}
	if d.equipment != nil && !d.equipment[m.Profile().Equipment] {
		return false
	}
	if d.Labor == 0 {
		return false
	}
	return true
}

// weatherFactor - пригодность окна с поправкой на влажность почвы и температуру.
func weatherFactor(d DayInfo) float64 {
	if !d.InWindow() {
		return 0
	}
	f := d.Suitability
	switch m := d.SoilMoisture; {
	case m < 0.2:
		f *= 0.6 + 2*m
	case m > 0.8:
		f *= 1 - 1.5*(m-0.8)
	}
	if d.Temperature < 5 {
		f *= 0.7
	}
	return f
}

func dedupMethods(in []domain.ApplicationMethod) []domain.ApplicationMethod {
	seen := make(map[domain.ApplicationMethod]bool, len(in))
	out := make([]domain.ApplicationMethod, 0, len(in))
	for _, m := range in {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func (e *Evaluator) Request() *domain.Request { return e.req }

func (e *Evaluator) Horizon() int { return len(e.days) }

func (e *Evaluator) Day(i int) DayInfo { return e.days[i] }

func (e *Evaluator) Methods() []domain.ApplicationMethod { return e.methods }

func (e *Evaluator) Nutrients() []domain.Nutrient { return e.nutrients }

func (e *Evaluator) MinSuitability() float64 { return e.opts.MinSuitability }

func (e *Evaluator) Weights() Weights { return e.opts.Weights }

// YieldValue - стоимость полного урожая с акра, $.
func (e *Evaluator) YieldValue() float64 { return e.crop.BaseYield * e.crop.Price }

// BaseYield - урожайность при полном обеспечении, бушель/акр.
func (e *Evaluator) BaseYield() float64 { return e.crop.BaseYield }

// Feasible: день в окне с пригодностью не ниже порога и способ применим.
func (e *Evaluator) Feasible(day, method int) bool { return e.feasible[day][method] }

// Usable: способ применим в окне без учёта порога пригодности (рисковое внесение).
func (e *Evaluator) Usable(day, method int) bool { return e.usable[day][method] }

// Utilization - доля внесённого элемента, которую усвоит растение.
func (e *Evaluator) Utilization(day, method int) float64 { return e.util[day][method] }

// AllowsOverride: рисковые внесения допустимы, если сроки не привязаны к погоде.
func (e *Evaluator) AllowsOverride() bool { return !e.req.WeatherDependentTiming }

// Candidate возвращает, может ли способ использоваться в день, и нужна ли пометка риска.
func (e *Evaluator) Candidate(day, method int) (ok, override bool) {
	if e.feasible[day][method] {
		return true, false
	}
	if e.AllowsOverride() && e.usable[day][method] {
		return true, true
	}
	return false, false
}

// CandidateDays возвращает дни, доступные способу.
func (e *Evaluator) CandidateDays(method int) []int {
	var out []int
	for d := range e.days {
		if ok, _ := e.Candidate(d, method); ok {
			out = append(out, d)
		}
	}
	return out
}

// MethodIndex возвращает индекс способа или -1.
func (e *Evaluator) MethodIndex(m domain.ApplicationMethod) int {
	for i, x := range e.methods {
		if x == m {
			return i
		}
	}
	return -1
}

// DayIndex возвращает индекс дня горизонта (может быть вне [0, Horizon)).
func (e *Evaluator) DayIndex(date time.Time) int {
	return domain.DaysBetween(e.req.PlantingDate, date)
}

// Effective - эффективная доза одного прохода с убывающей отдачей.
func (e *Evaluator) Effective(amount, requirement float64) float64 {
	if requirement <= 0 || amount <= 0 {
		return 0
	}
	return amount * math.Max(0, 1-e.opts.Weights.Curvature*amount/requirement)
}

// NewEvent строит событие с корректной пометкой риска.
func (e *Evaluator) NewEvent(day, method int, n domain.Nutrient, amount float64) domain.ApplicationEvent {
	_, override := e.Candidate(day, method)
	return domain.ApplicationEvent{
		Date:         e.days[day].Date,
		Nutrient:     n,
		Amount:       amount,
		Method:       e.methods[method],
		RiskOverride: override,
	}
}
