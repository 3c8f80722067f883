package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Budget categories.
const (
	CategoryElectrical = "electrical"
	CategoryPlumbing   = "plumbing"
	CategoryWalls      = "walls"
	CategoryFlooring   = "flooring"
	CategoryTiling     = "tiling"
	CategoryCeilings   = "ceilings"
	CategoryDoors      = "doors"
	CategoryFurniture  = "furniture"
	CategoryDemolition = "demolition"
	CategoryPainting   = "painting"
	CategoryOther      = "other"
)

// CategoryLabels are Russian display labels for budget categories.
var CategoryLabels = map[string]string{
	CategoryElectrical: "⚡ Электрика",
	CategoryPlumbing:   "🚿 Сантехника",
	CategoryWalls:      "🧱 Стены",
	CategoryFlooring:   "🪵 Полы",
	CategoryTiling:     "🔲 Плитка",
	CategoryCeilings:   "🏗 Потолки",
	CategoryDoors:      "🚪 Двери",
	CategoryFurniture:  "🪑 Мебель",
	CategoryDemolition: "🔨 Демонтаж",
	CategoryPainting:   "🎨 Покраска/обои",
	CategoryOther:      "📦 Прочее",
}

// stageToCategory maps stage-name keywords to categories for auto-linking
// expenses to the stage being worked on.
var stageToCategory = []struct {
	keyword  string
	category string
}{
	{"демонтаж", CategoryDemolition},
	{"электрика", CategoryElectrical},
	{"сантехника", CategoryPlumbing},
	{"штукатурка", CategoryWalls},
	{"стяжка", CategoryFlooring},
	{"плитка", CategoryTiling},
	{"шпаклёвка", CategoryWalls},
	{"шпаклевка", CategoryWalls},
	{"покраска", CategoryPainting},
	{"обои", CategoryPainting},
	{"пол", CategoryFlooring},
	{"двери", CategoryDoors},
	{"потолк", CategoryCeilings},
	{"мебель", CategoryFurniture},
	{"кухн", CategoryFurniture},
	{"шкаф", CategoryFurniture},
	{"гардероб", CategoryFurniture},
}

// CategoryLabel returns a human-readable label for a category.
func CategoryLabel(category string) string {
	if label, ok := CategoryLabels[category]; ok {
		return label
	}
	return "📦 " + category
}

// GuessCategoryFromStage maps a stage name onto a budget category,
// falling back to "other".
func GuessCategoryFromStage(stageName string) string {
	lower := strings.ToLower(stageName)
	for _, m := range stageToCategory {
		if strings.Contains(lower, m.keyword) {
			return m.category
		}
	}
	return CategoryOther
}

// ── Budget analysis ──────────────────────────────────────────

// Budget health statuses.
const (
	BudgetOK      = "ok"
	BudgetWarning = "warning"
	BudgetOver    = "over"
)

// BudgetAnalysis classifies how much of the project budget is used.
type BudgetAnalysis struct {
	HasBudget bool
	Remaining float64
	UsagePct  float64
	Status    string
	Message   string
}

// AnalyzeBudget compares spending against the total budget: warning at
// >=90% used, over when spending exceeds the budget.
func AnalyzeBudget(totalBudget *float64, totalSpent float64) BudgetAnalysis {
	if totalBudget == nil || *totalBudget <= 0 {
		return BudgetAnalysis{Status: BudgetOK, Message: "Общий бюджет не задан"}
	}

	budget := *totalBudget
	remaining := budget - totalSpent
	usagePct := totalSpent / budget * 100

	switch {
	case totalSpent > budget:
		return BudgetAnalysis{
			HasBudget: true,
			Remaining: remaining,
			UsagePct:  usagePct,
			Status:    BudgetOver,
			Message: fmt.Sprintf("Бюджет превышен на %s ₸ (%.0f%%)",
				FormatAmount(totalSpent-budget), usagePct),
		}
	case usagePct >= 90:
		return BudgetAnalysis{
			HasBudget: true,
			Remaining: remaining,
			UsagePct:  usagePct,
			Status:    BudgetWarning,
			Message: fmt.Sprintf("Бюджет на исходе! Использовано %.0f%%, осталось %s ₸",
				usagePct, FormatAmount(remaining)),
		}
	default:
		return BudgetAnalysis{
			HasBudget: true,
			Remaining: remaining,
			UsagePct:  usagePct,
			Status:    BudgetOK,
			Message: fmt.Sprintf("Использовано %.0f%%, осталось %s ₸",
				usagePct, FormatAmount(remaining)),
		}
	}
}

// ParseAmount parses a money amount from user input, tolerating thousand
// spaces, comma decimals and currency symbols ("500 000", "1500,50 ₸").
func ParseAmount(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	for _, sym := range []string{"₸", "тг", "руб", "₽", "$", "€"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount < 0 {
		return 0, Validationf("не удалось распознать сумму %q", text)
	}
	return amount, nil
}

// FormatAmount renders a float with space-separated thousands, no decimals.
func FormatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 0, 64)
	if n := len(s); n > 3 {
		var b strings.Builder
		rem := n % 3
		if rem > 0 {
			b.WriteString(s[:rem])
		}
		for i := rem; i < n; i += 3 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}
