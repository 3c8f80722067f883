package domain

import "fmt"

// Renovation types selectable at project creation.
const (
	RenovationCosmetic = "cosmetic"
	RenovationStandard = "standard"
	RenovationMajor    = "major"
	RenovationDesigner = "designer"
)

// ValidRenovationType reports whether s is a known renovation type.
func ValidRenovationType(s string) bool {
	switch s {
	case RenovationCosmetic, RenovationStandard, RenovationMajor, RenovationDesigner:
		return true
	}
	return false
}

// StageTemplate describes one auto-generated stage.
type StageTemplate struct {
	Name         string
	Order        int
	IsCheckpoint bool
	IsParallel   bool
}

// StandardStages is the default 13-stage renovation pipeline. Checkpoint
// stages require client approval before the next stage starts.
var StandardStages = []StageTemplate{
	{Name: "Демонтаж", Order: 1},
	{Name: "Электрика", Order: 2, IsCheckpoint: true},
	{Name: "Сантехника", Order: 3, IsCheckpoint: true},
	{Name: "Штукатурка", Order: 4},
	{Name: "Стяжка пола", Order: 5},
	{Name: "Плитка", Order: 6, IsCheckpoint: true},
	{Name: "Шпаклёвка", Order: 7, IsCheckpoint: true},
	{Name: "Покраска / обои", Order: 8},
	{Name: "Напольное покрытие", Order: 9},
	{Name: "Установка дверей", Order: 10},
	{Name: "Чистовая электрика", Order: 11},
	{Name: "Чистовая сантехника", Order: 12},
	{Name: "Финальная приёмка", Order: 13, IsCheckpoint: true},
}

// CustomItemLabels maps custom-furniture keys to display names.
var CustomItemLabels = map[string]string{
	"kitchen":   "Кухня",
	"wardrobes": "Шкафы",
	"walkin":    "Гардеробная",
	"doors":     "Двери на заказ",
}

// CustomItemSubstages is the shared sub-flow every custom item goes through.
var CustomItemSubstages = []string{
	"Замер",
	"Договор и предоплата",
	"Производство",
	"Доставка",
	"Монтаж",
}

// ParallelStageBaseOrder keeps furniture pipelines sorted after the main
// stages.
const ParallelStageBaseOrder = 100

// BuildParallelStages expands the selected custom items into parallel stage
// templates: item i, substage j gets order 100 + 10*i + j.
func BuildParallelStages(selectedItems []string) []StageTemplate {
	var stages []StageTemplate
	for i, key := range selectedItems {
		label, ok := CustomItemLabels[key]
		if !ok {
			label = key
		}
		for j, sub := range CustomItemSubstages {
			stages = append(stages, StageTemplate{
				Name:       fmt.Sprintf("%s → %s", label, sub),
				Order:      ParallelStageBaseOrder + i*10 + j,
				IsParallel: true,
			})
		}
	}
	return stages
}
