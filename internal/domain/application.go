package domain

import (
	"fmt"
	"time"
)

// Nutrient - элемент питания (или тип удобрения), для которого задана потребность.
type Nutrient string

const (
	NutrientNitrogen   Nutrient = "nitrogen"
	NutrientPhosphorus Nutrient = "phosphorus"
	NutrientPotassium  Nutrient = "potassium"
	NutrientSulfur     Nutrient = "sulfur"
)

// DefaultPrices - цена за фунт действующего вещества, если запрос не задаёт свою.
var DefaultPrices = map[Nutrient]float64{
	NutrientNitrogen:   0.62,
	NutrientPhosphorus: 0.78,
	NutrientPotassium:  0.45,
	NutrientSulfur:     0.40,
}

// DefaultNutrientPrice используется для элементов вне DefaultPrices.
const DefaultNutrientPrice = 0.60

// ApplicationMethod - способ внесения.
type ApplicationMethod string

const (
	MethodBroadcast   ApplicationMethod = "broadcast"
	MethodBand        ApplicationMethod = "band"
	MethodSidedress   ApplicationMethod = "sidedress"
	MethodFoliar      ApplicationMethod = "foliar"
	MethodFertigation ApplicationMethod = "fertigation"
	MethodInjection   ApplicationMethod = "injection"
)

// MethodProfile - агротехнические параметры способа внесения.
type MethodProfile struct {
	Efficiency    float64 // доля элемента, доступная растению при идеальных условиях
	OperatingCost float64 // $/акр за один проход
	MaxRate       float64 // максимальная норма за проход, фунт/акр
	Volatility    float64 // базовая доля потерь (улетучивание, смыв)
	Equipment     string  // требуемая техника
	MaxWind       float64 // предельная скорость ветра для прохода, км/ч (0 - без ограничения)
	MinStage      GrowthStage
	MaxStage      GrowthStage
}

var methodProfiles = map[ApplicationMethod]MethodProfile{
	MethodBroadcast: {
		Efficiency: 0.70, OperatingCost: 6.0, MaxRate: 250, Volatility: 0.10,
		Equipment: "spreader", MaxWind: 30, MinStage: StagePlanting, MaxStage: StageV6,
	},
	MethodBand: {
		Efficiency: 0.82, OperatingCost: 9.0, MaxRate: 120, Volatility: 0.04,
		Equipment: "planter", MaxWind: 40, MinStage: StagePlanting, MaxStage: StageV4,
	},
	MethodSidedress: {
		Efficiency: 0.85, OperatingCost: 11.0, MaxRate: 180, Volatility: 0.04,
		Equipment: "sidedress_bar", MaxWind: 40, MinStage: StageV2, MaxStage: StageVT,
	},
	MethodFoliar: {
		Efficiency: 0.90, OperatingCost: 8.0, MaxRate: 20, Volatility: 0.06,
		Equipment: "sprayer", MaxWind: 16, MinStage: StageV4, MaxStage: StageR3,
	},
	MethodFertigation: {
		Efficiency: 0.88, OperatingCost: 4.0, MaxRate: 60, Volatility: 0.03,
		Equipment: "irrigation", MinStage: StagePlanting, MaxStage: StageR5,
	},
	MethodInjection: {
		Efficiency: 0.86, OperatingCost: 12.0, MaxRate: 220, Volatility: 0.02,
		Equipment: "applicator", MinStage: StagePlanting, MaxStage: StageV6,
	},
}

// IsValid - способ внесения известен.
func (m ApplicationMethod) IsValid() bool {
	_, ok := methodProfiles[m]
	return ok
}

// Profile возвращает параметры способа внесения.
func (m ApplicationMethod) Profile() MethodProfile {
	return methodProfiles[m]
}

// AdmitsStage проверяет, допускает ли способ внесение в данной фазе.
// Неизвестная фаза (нет записей календаря) ограничений не накладывает.
func (m ApplicationMethod) AdmitsStage(stage GrowthStage, known bool) bool {
	if !known {
		return true
	}
	p := m.Profile()
	o := stage.Ordinal()
	return o >= p.MinStage.Ordinal() && o <= p.MaxStage.Ordinal()
}

// ApplicationEvent - атомарная единица графика: одно внесение одного элемента.
type ApplicationEvent struct {
	Date     time.Time
	Nutrient Nutrient
	Amount   float64 // фунт/акр, >= 0
	Method   ApplicationMethod

	// RiskOverride помечает внесение вне допустимого окна пригодности.
	RiskOverride bool
}

// Validate проверяет инварианты события относительно горизонта [start, start+days).
func (e ApplicationEvent) Validate(start time.Time, days int) error {
	if e.Amount < 0 {
		return inputErrorf("application_event", "amount must be >= 0 (got %f)", e.Amount)
	}
	if !e.Method.IsValid() {
		return inputErrorf("application_event", "unknown method %q", e.Method)
	}
	offset := DaysBetween(start, e.Date)
	if offset < 0 || offset >= days {
		return inputErrorf("application_event", "date %s outside horizon %s + %d days", FormatDay(e.Date), FormatDay(start), days)
	}
	return nil
}

func (e ApplicationEvent) String() string {
	return fmt.Sprintf("%s %s %.1f via %s", FormatDay(e.Date), e.Nutrient, e.Amount, e.Method)
}
