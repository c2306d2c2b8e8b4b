package domain

import (
	"sort"
	"time"
)

// GrowthStage - фенологическая фаза культуры.
type GrowthStage string

const (
	StagePlanting  GrowthStage = "planting"
	StageEmergence GrowthStage = "emergence"
	StageV2        GrowthStage = "v2"
	StageV4        GrowthStage = "v4"
	StageV6        GrowthStage = "v6"
	StageV8        GrowthStage = "v8"
	StageV10       GrowthStage = "v10"
	StageV12       GrowthStage = "v12"
	StageVT        GrowthStage = "vt"
	StageFlowering GrowthStage = "flowering"
	StageR2        GrowthStage = "r2"
	StageR3        GrowthStage = "r3"
	StageR5        GrowthStage = "r5"
	StageMaturity  GrowthStage = "maturity"
)

// stageOrder - порядок фаз от посева к созреванию.
var stageOrder = map[GrowthStage]int{
	StagePlanting:  0,
	StageEmergence: 1,
	StageV2:        2,
	StageV4:        3,
	StageV6:        4,
	StageV8:        5,
	StageV10:       6,
	StageV12:       7,
	StageVT:        8,
	StageFlowering: 9,
	StageR2:        10,
	StageR3:        11,
	StageR5:        12,
	StageMaturity:  13,
}

// stageUptake - относительная ценность внесения азота перед фазой (пик поглощения V6–V10).
var stageUptake = map[GrowthStage]float64{
	StagePlanting:  0.55,
	StageEmergence: 0.65,
	StageV2:        0.72,
	StageV4:        0.85,
	StageV6:        1.00,
	StageV8:        1.00,
	StageV10:       0.95,
	StageV12:       0.90,
	StageVT:        0.75,
	StageFlowering: 0.60,
	StageR2:        0.45,
	StageR3:        0.35,
	StageR5:        0.20,
	StageMaturity:  0.05,
}

// UnknownStageUptake используется для дней до первой записи календаря.
const UnknownStageUptake = 0.70

// IsValid - фаза развития известна.
func (s GrowthStage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Ordinal возвращает порядковый номер фазы, -1 для неизвестной.
func (s GrowthStage) Ordinal() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

// Uptake возвращает коэффициент поглощения для фазы.
func (s GrowthStage) Uptake() float64 {
	if u, ok := stageUptake[s]; ok {
		return u
	}
	return UnknownStageUptake
}

// StageCalendar - разреженное отображение дата → фаза от фенологического сервиса.
type StageCalendar map[time.Time]GrowthStage

// StageOn возвращает фазу, действующую на дату: последнюю запись календаря не позже дня.
// Фазы не выводятся, только ищутся.
func (c StageCalendar) StageOn(day time.Time) (GrowthStage, bool) {
	d := Day(day)
	var (
		best     GrowthStage
		bestDate time.Time
		found    bool
	)
	for date, stage := range c {
		date = Day(date)
		if date.After(d) {
			continue
		}
		// при равных датах выбираем более позднюю фазу, чтобы не зависеть от порядка обхода map
		if !found || date.After(bestDate) || (date.Equal(bestDate) && stage.Ordinal() > best.Ordinal()) {
			best, bestDate, found = stage, date, true
		}
	}
	return best, found
}

// Validate проверяет, что все фазы известны.
func (c StageCalendar) Validate() error {
	keys := make([]time.Time, 0, len(c))
	for d := range c {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	for _, d := range keys {
		if s := c[d]; !s.IsValid() {
			return inputErrorf("crop_stages["+FormatDay(d)+"]", "unknown growth stage %q", s)
		}
	}
	return nil
}
