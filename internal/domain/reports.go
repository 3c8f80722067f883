package domain

import (
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
)

// Reports are pure data; platform adapters render them into HTML or
// plain text.

// StageCounts aggregates stages by status.
type StageCounts struct {
	Total      int
	Completed  int
	InProgress int
	Delayed    int
	Planned    int
}

// BudgetTotals aggregates all budget items of a project.
type BudgetTotals struct {
	TotalWork        float64
	TotalMaterials   float64
	TotalPrepayments float64
	TotalSpent       float64
	ItemCount        int
	ConfirmedCount   int
}

// CategorySummary aggregates budget items of one category.
type CategorySummary struct {
	Category    string
	Work        float64
	Materials   float64
	Prepayments float64
	Total       float64
	Confirmed   float64
}

// StageBrief is a formatted-friendly stage snapshot used inside reports.
type StageBrief struct {
	Name          string
	Order         int
	Status        string
	StatusLabel   string
	IsParallel    bool
	StartDate     string
	EndDate       string
	Responsible   string
	PaymentStatus string
	Budget        *float64
	IsOverdue     bool
	DaysOverdue   int
	DaysUntil     int
	DaysLeft      int
}

// WeeklyReport covers stage movement and budget health for the week.
type WeeklyReport struct {
	ProjectName    string
	GeneratedAt    time.Time
	Stages         StageCounts
	CompletedList  []StageBrief
	CurrentList    []StageBrief
	OverdueList    []StageBrief
	UpcomingList   []StageBrief
	BudgetTotals   BudgetTotals
	BudgetAnalysis BudgetAnalysis
	Categories     []CategorySummary
}

// StatusReport is a compact per-stage list with overdue flags.
type StatusReport struct {
	ProjectName string
	GeneratedAt time.Time
	Stages      []StageBrief
	ProgressPct float64
	Total       int
	Completed   int
}

// NextStageReport shows the current in-progress main stage and the one
// after it.
type NextStageReport struct {
	ProjectName string
	Current     *StageBrief
	Next        *StageBrief
}

// DeadlineReport buckets unfinished stages by urgency.
type DeadlineReport struct {
	ProjectName string
	Overdue     []StageBrief
	DueSoon     []StageBrief
	OnTrack     []StageBrief
}

func responsibleOf(s *db.Stage) string {
	if s.ResponsibleContact != nil && *s.ResponsibleContact != "" {
		return *s.ResponsibleContact
	}
	return "—"
}

func briefOf(s *db.Stage) StageBrief {
	return StageBrief{
		Name:          s.Name,
		Order:         s.Order,
		Status:        s.Status,
		StatusLabel:   StatusLabels[s.Status],
		IsParallel:    s.IsParallel,
		StartDate:     FormatDate(s.StartDate),
		EndDate:       FormatDate(s.EndDate),
		Responsible:   responsibleOf(s),
		PaymentStatus: PaymentStatusLabels[s.PaymentStatus],
		Budget:        s.Budget,
	}
}

// BuildWeeklyReport classifies stages, analyses the budget and assembles
// the weekly digest.
func BuildWeeklyReport(projectName string, totalBudget *float64, stages []db.Stage,
	totals BudgetTotals, categories []CategorySummary, now time.Time) WeeklyReport {

	r := WeeklyReport{
		ProjectName:  projectName,
		GeneratedAt:  now,
		BudgetTotals: totals,
		Categories:   categories,
	}
	r.Stages.Total = len(stages)

	for i := range stages {
		s := &stages[i]
		switch s.Status {
		case StageCompleted:
			r.Stages.Completed++
			r.CompletedList = append(r.CompletedList, briefOf(s))
		case StageInProgress:
			r.Stages.InProgress++
			r.CurrentList = append(r.CurrentList, briefOf(s))
			if s.EndDate != nil && s.EndDate.Before(now) {
				b := briefOf(s)
				b.IsOverdue = true
				b.DaysOverdue = DaysBetween(*s.EndDate, now)
				r.OverdueList = append(r.OverdueList, b)
			}
		case StageDelayed:
			r.Stages.Delayed++
			if s.EndDate != nil && s.EndDate.Before(now) {
				b := briefOf(s)
				b.IsOverdue = true
				b.DaysOverdue = DaysBetween(*s.EndDate, now)
				r.OverdueList = append(r.OverdueList, b)
			}
		default:
			r.Stages.Planned++
			if s.StartDate != nil {
				daysUntil := DaysBetween(now, *s.StartDate)
				if daysUntil >= 0 && daysUntil <= 7 {
					b := briefOf(s)
					b.DaysUntil = daysUntil
					r.UpcomingList = append(r.UpcomingList, b)
				}
			}
		}
	}

	r.BudgetAnalysis = AnalyzeBudget(totalBudget, totals.TotalSpent)
	return r
}

// BuildStatusReport lists every stage with an overdue flag and overall
// completion percentage.
func BuildStatusReport(projectName string, stages []db.Stage, now time.Time) StatusReport {
	r := StatusReport{
		ProjectName: projectName,
		GeneratedAt: now,
		Total:       len(stages),
	}

	for i := range stages {
		s := &stages[i]
		b := briefOf(s)
		if (s.Status == StageInProgress || s.Status == StageDelayed) &&
			s.EndDate != nil && s.EndDate.Before(now) {
			b.IsOverdue = true
			b.DaysOverdue = DaysBetween(*s.EndDate, now)
		}
		if s.Status == StageCompleted {
			r.Completed++
		}
		r.Stages = append(r.Stages, b)
	}

	if r.Total > 0 {
		r.ProgressPct = float64(r.Completed) / float64(r.Total) * 100
	}
	return r
}

// BuildNextStageReport wraps the current and next main stage.
func BuildNextStageReport(projectName string, current, next *db.Stage) NextStageReport {
	r := NextStageReport{ProjectName: projectName}
	if current != nil {
		b := briefOf(current)
		r.Current = &b
	}
	if next != nil {
		b := briefOf(next)
		r.Next = &b
	}
	return r
}

// BuildDeadlineReport buckets unfinished stages into overdue, due within
// 3 days, and on-track.
func BuildDeadlineReport(projectName string, stages []db.Stage, now time.Time) DeadlineReport {
	r := DeadlineReport{ProjectName: projectName}

	for i := range stages {
		s := &stages[i]
		switch s.Status {
		case StageInProgress, StageDelayed, StagePlanned:
		default:
			continue
		}

		if s.EndDate == nil {
			continue
		}

		if s.EndDate.Before(now) && (s.Status == StageInProgress || s.Status == StageDelayed) {
			b := briefOf(s)
			b.IsOverdue = true
			b.DaysOverdue = DaysBetween(*s.EndDate, now)
			r.Overdue = append(r.Overdue, b)
			continue
		}

		daysLeft := DaysBetween(now, *s.EndDate)
		b := briefOf(s)
		b.DaysLeft = daysLeft
		if daysLeft >= 0 && daysLeft <= 3 {
			r.DueSoon = append(r.DueSoon, b)
		} else if s.Status == StageInProgress {
			r.OnTrack = append(r.OnTrack, b)
		}
	}
	return r
}

// ── Quick commands ───────────────────────────────────────────

// quickCommands maps plain-text phrases (without /) onto canonical
// command keys, bilingual.
var quickCommands = map[string]string{
	"бюджет":         "budget",
	"budget":         "budget",
	"этапы":          "stages",
	"stages":         "stages",
	"расходы":        "expenses",
	"expenses":       "expenses",
	"отчёт":          "report",
	"отчет":          "report",
	"report":         "report",
	"следующий этап": "next_stage",
	"next stage":     "next_stage",
	"мой этап":       "my_stage",
	"my stage":       "my_stage",
	"статус":         "status",
	"status":         "status",
	"дедлайн":        "deadline",
	"deadline":       "deadline",
	"эксперт":        "expert",
	"expert":         "expert",
}

// ParseQuickCommand maps free text onto a canonical command key, or ""
// when the text is not a quick command.
func ParseQuickCommand(text string) string {
	return quickCommands[strings.ToLower(strings.TrimSpace(text))]
}
