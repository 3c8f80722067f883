package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/format"
)

// projectScope bundles one project's pass through a job.
type projectScope struct {
	s       *Scheduler
	project *db.Project
}

func responsibleName(st *db.Stage) string {
	if st.ResponsibleContact != nil {
		return *st.ResponsibleContact
	}
	if st.ResponsibleUser != nil {
		return st.ResponsibleUser.FullName
	}
	return ""
}

// ── Deadlines ────────────────────────────────────────────────

func (s *Scheduler) checkDeadlines(ctx context.Context) {
	now := time.Now().UTC()
	s.eachProject(ctx, "deadlines", func(ctx context.Context, ps *projectScope) error {
		stages, err := ps.s.repo.GetStagesDueSoon(ctx, ps.project.ID, now, deadlineWindow)
		if err != nil {
			return err
		}
		for i := range stages {
			st := &stages[i]
			key := fmt.Sprintf("notif:deadline:%d", st.ID)
			if ps.s.seen(ctx, key, dedupeDeadlineTTL) {
				continue
			}
			n := domain.BuildDeadlineApproaching(ps.project.ID, ps.project.Name,
				st.ID, st.Name, *st.EndDate, responsibleName(st), nil)
			if err := ps.notify(ctx, n); err != nil {
				return err
			}
		}

		starting, err := ps.s.repo.GetStagesStartingSoon(ctx, ps.project.ID, now, deadlineWindow)
		if err != nil {
			return err
		}
		for i := range starting {
			st := &starting[i]
			key := fmt.Sprintf("notif:starting:%d", st.ID)
			if ps.s.seen(ctx, key, dedupeDeadlineTTL) {
				continue
			}
			n := domain.BuildStageStartingSoon(ps.project.ID, ps.project.Name,
				st.ID, st.Name, *st.StartDate, responsibleName(st), nil)
			if err := ps.notify(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Scheduler) checkOverdue(ctx context.Context) {
	now := time.Now().UTC()
	s.eachProject(ctx, "overdue", func(ctx context.Context, ps *projectScope) error {
		stages, err := ps.s.repo.GetOverdueStages(ctx, ps.project.ID, now)
		if err != nil {
			return err
		}
		for i := range stages {
			st := &stages[i]
			key := fmt.Sprintf("notif:overdue:%d:%s", st.ID, now.Format("2006-01-02"))
			if ps.s.seen(ctx, key, dedupeDailyTTL) {
				continue
			}
			daysOverdue := int(now.Sub(*st.EndDate).Hours() / 24)
			n := domain.BuildDeadlineOverdue(ps.project.ID, ps.project.Name,
				st.ID, st.Name, *st.EndDate, daysOverdue, responsibleName(st), nil)
			if err := ps.notify(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Status prompts ───────────────────────────────────────────

// requestStatusUpdates pings the responsible person of any in-progress
// stage with no activity for three days.
func (s *Scheduler) requestStatusUpdates(ctx context.Context) {
	now := time.Now().UTC()
	s.eachProject(ctx, "status-prompts", func(ctx context.Context, ps *projectScope) error {
		stages, err := ps.s.repo.GetIdleStages(ctx, ps.project.ID, now, idleThreshold)
		if err != nil {
			return err
		}
		for i := range stages {
			st := &stages[i]
			if st.ResponsibleUserID == nil {
				continue
			}
			key := fmt.Sprintf("notif:idle:%d", st.ID)
			if ps.s.seen(ctx, key, dedupeIdleTTL) {
				continue
			}
			n := domain.BuildStatusUpdateRequest(ps.project.ID, ps.project.Name,
				st.ID, st.Name, []int64{*st.ResponsibleUserID})
			ps.s.dispatch.Dispatch(ctx, n)
		}
		return nil
	})
}

// ── Furniture lead times ─────────────────────────────────────

func (s *Scheduler) checkFurnitureOrders(ctx context.Context) {
	now := time.Now().UTC()
	s.eachProject(ctx, "furniture", func(ctx context.Context, ps *projectScope) error {
		stages, err := ps.s.repo.GetUpcomingInstallations(ctx, ps.project.ID, now, furnitureWindow)
		if err != nil {
			return err
		}
		for i := range stages {
			st := &stages[i]
			key := fmt.Sprintf("notif:furniture:%d:%s", st.ID, now.Format("2006-01-02"))
			if ps.s.seen(ctx, key, dedupeDailyTTL) {
				continue
			}
			daysUntil := int(st.StartDate.Sub(now).Hours() / 24)
			n := domain.BuildFurnitureReminder(ps.project.ID, ps.project.Name,
				st.ID, st.Name, *st.StartDate, daysUntil, nil)
			if err := ps.notify(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Budget ───────────────────────────────────────────────────

func (s *Scheduler) checkOverspending(ctx context.Context) {
	s.eachProject(ctx, "overspending", func(ctx context.Context, ps *projectScope) error {
		if ps.project.TotalBudget == nil || *ps.project.TotalBudget <= 0 {
			return nil
		}
		// The view lags at most one maintenance tick; close enough
		// for a four-hour cadence.
		rows, err := ps.s.cache.BudgetSummary(ctx, ps.project.ID)
		if err != nil {
			return err
		}
		budget := *ps.project.TotalBudget
		var spent float64
		for _, row := range rows {
			spent += row.TotalSpent
		}
		usagePct := spent / budget * 100

		switch {
		case spent > budget:
			key := fmt.Sprintf("notif:overspend:%d:%s", ps.project.ID, time.Now().UTC().Format("2006-01-02"))
			if ps.s.seen(ctx, key, dedupeDailyTTL) {
				return nil
			}
			overspendPct := (spent - budget) / budget * 100
			return ps.notify(ctx, domain.BuildOverspendingAlert(
				ps.project.ID, ps.project.Name, spent, budget, overspendPct, nil))
		case usagePct >= budgetWarningPct:
			key := fmt.Sprintf("notif:budget90:%d", ps.project.ID)
			if ps.s.seen(ctx, key, 7*24*3600) {
				return nil
			}
			return ps.notify(ctx, domain.BuildBudgetWarning(
				ps.project.ID, ps.project.Name, spent, budget, usagePct, nil))
		}
		return nil
	})
}

// ── Weekly report ────────────────────────────────────────────

func (s *Scheduler) sendWeeklyReports(ctx context.Context) {
	now := time.Now().UTC()
	s.eachProject(ctx, "weekly-report", func(ctx context.Context, ps *projectScope) error {
		stages, err := ps.s.repo.GetProjectStages(ctx, ps.project.ID)
		if err != nil {
			return err
		}
		totals, err := ps.s.repo.GetBudgetTotals(ctx, ps.project.ID)
		if err != nil {
			return err
		}
		categories, err := ps.s.repo.GetCategorySummaries(ctx, ps.project.ID)
		if err != nil {
			return err
		}
		r := domain.BuildWeeklyReport(ps.project.Name, ps.project.TotalBudget,
			stages, totals, categories, now)
		return ps.notify(ctx, domain.BuildWeeklyReportNotification(
			ps.project.ID, ps.project.Name, renderWeeklyDigest(&r), nil))
	})
}

// renderWeeklyDigest formats the weekly report as Telegram HTML;
// adapters for other platforms down-convert it.
func renderWeeklyDigest(r *domain.WeeklyReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Еженедельный отчёт: %s</b>\n\n", format.EscapeHTML(r.ProjectName))
	fmt.Fprintf(&sb, "Этапы: всего %d, в работе %d, завершено %d, задержано %d\n",
		r.Stages.Total, r.Stages.InProgress, r.Stages.Completed, r.Stages.Delayed)

	fmt.Fprintf(&sb, "\n💰 Потрачено: %s ₸", domain.FormatAmount(r.BudgetTotals.TotalSpent))
	if r.BudgetAnalysis.HasBudget {
		fmt.Fprintf(&sb, " из %s ₸ (%.0f%%)",
			domain.FormatAmount(r.BudgetTotals.TotalSpent+r.BudgetAnalysis.Remaining),
			r.BudgetAnalysis.UsagePct)
	}
	sb.WriteString("\n")

	if len(r.Categories) > 0 {
		sb.WriteString("\nПо категориям:\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&sb, "• %s: %s ₸\n", domain.CategoryLabel(c.Category), domain.FormatAmount(c.Total))
		}
	}
	if len(r.OverdueList) > 0 {
		sb.WriteString("\n⚠️ Просрочено:\n")
		for _, st := range r.OverdueList {
			fmt.Fprintf(&sb, "• %s (дедлайн %s)\n", format.EscapeHTML(st.Name), st.EndDate)
		}
	}
	return sb.String()
}

// ── Cache maintenance ────────────────────────────────────────

func (s *Scheduler) maintainCache(ctx context.Context) {
	if _, err := s.cache.Cleanup(ctx); err != nil {
		log.Printf("[scheduler] cache cleanup: %v", err)
	}
	if err := s.cache.RefreshViews(ctx); err != nil {
		log.Printf("[scheduler] refresh views: %v", err)
	}
	s.states.Sweep()
}
