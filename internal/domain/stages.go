package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
)

// Stage statuses.
const (
	StagePlanned    = "planned"
	StageInProgress = "in_progress"
	StageCompleted  = "completed"
	StageDelayed    = "delayed"
)

// StatusLabels are Russian display labels for stage statuses.
var StatusLabels = map[string]string{
	StagePlanned:    "📋 Запланирован",
	StageInProgress: "🔨 В работе",
	StageCompleted:  "✅ Завершён",
	StageDelayed:    "⚠️ Задержка",
}

// StatusIcons are compact icons used in keyboards and lists.
var StatusIcons = map[string]string{
	StagePlanned:    "📋",
	StageInProgress: "🔨",
	StageCompleted:  "✅",
	StageDelayed:    "⚠️",
}

// stageTransitions is the stage status machine:
//
//	planned -> in_progress -> completed
//	planned/in_progress -> delayed -> in_progress/completed
var stageTransitions = map[string]map[string]bool{
	StagePlanned:    {StageInProgress: true, StageDelayed: true},
	StageInProgress: {StageCompleted: true, StageDelayed: true, StagePlanned: true},
	StageDelayed:    {StageInProgress: true, StageCompleted: true},
	StageCompleted:  {StageDelayed: true},
}

// ValidStageTransition reports whether a stage may move from -> to.
func ValidStageTransition(from, to string) bool {
	return stageTransitions[from][to]
}

// ── Date helpers ─────────────────────────────────────────────

const DateFormat = "02.01.2006"

var dateLayouts = []string{DateFormat, "02/01/2006", "2006-01-02"}

// ParseDate parses DD.MM.YYYY, DD/MM/YYYY or YYYY-MM-DD into a UTC
// timestamp at midnight. Returns a validation error otherwise.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if dt, err := time.Parse(layout, text); err == nil {
			return dt.UTC(), nil
		}
	}
	return time.Time{}, Validationf("неверный формат даты %q, ожидается ДД.ММ.ГГГГ", text)
}

// FormatDate renders DD.MM.YYYY, or a dash for nil.
func FormatDate(dt *time.Time) string {
	if dt == nil {
		return "—"
	}
	return dt.Format(DateFormat)
}

// DaysBetween returns whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// ValidateStageDates enforces end > start when both set.
func ValidateStageDates(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return Validationf("дата окончания должна быть позже даты начала")
	}
	return nil
}

// ValidateDuration enforces the 1..365 day range for duration entry.
func ValidateDuration(days int) error {
	if days < 1 || days > 365 {
		return Validationf("длительность должна быть от 1 до 365 дней")
	}
	return nil
}

// ── Launch readiness ─────────────────────────────────────────

// ValidateLaunchReadiness checks whether a project can be launched: the
// first main stage must have a start date. Warnings list per-stage gaps
// that do not block the launch.
func ValidateLaunchReadiness(project *db.Project) (bool, []string) {
	if len(project.Stages) == 0 {
		return false, []string{"Нет этапов в проекте"}
	}

	var mainStages []db.Stage
	for _, s := range project.Stages {
		if !s.IsParallel {
			mainStages = append(mainStages, s)
		}
	}
	if len(mainStages) == 0 {
		return false, []string{"Нет основных этапов"}
	}

	if mainStages[0].StartDate == nil {
		return false, []string{"Первый этап должен иметь дату начала"}
	}

	var warnings []string
	for _, stage := range mainStages {
		if stage.StartDate == nil {
			warnings = append(warnings, fmt.Sprintf("«%s» — нет даты начала", stage.Name))
		}
		if stage.ResponsibleContact == nil && stage.ResponsibleUserID == nil {
			warnings = append(warnings, fmt.Sprintf("«%s» — нет ответственного", stage.Name))
		}
		if stage.Budget == nil {
			warnings = append(warnings, fmt.Sprintf("«%s» — нет бюджета", stage.Name))
		}
	}
	return true, warnings
}
