package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/format"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// Plural returns the count with the correct Russian plural form.
func Plural(n int, one, few, many string) string {
	var form string
	n10 := n % 10
	n100 := n % 100

	if n10 == 1 && n100 != 11 {
		form = one
	} else if n10 >= 2 && n10 <= 4 && (n100 < 10 || n100 >= 20) {
		form = few
	} else {
		form = many
	}
	return fmt.Sprintf("%d %s", n, form)
}

// TimeAgo renders a relative timestamp for roster and activity views.
func TimeAgo(t time.Time, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "только что"
	case diff < time.Hour:
		return Plural(int(diff.Minutes()), "минуту", "минуты", "минут") + " назад"
	case diff < 24*time.Hour:
		return Plural(int(diff.Hours()), "час", "часа", "часов") + " назад"
	case diff < 7*24*time.Hour:
		return Plural(int(diff.Hours()/24), "день", "дня", "дней") + " назад"
	default:
		return t.Format(domain.DateFormat)
	}
}

func esc(s string) string { return format.EscapeHTML(s) }

// renderStageCard renders one stage's detail view.
func renderStageCard(stage *db.Stage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", domain.StatusIcons[stage.Status], esc(stage.Name))
	fmt.Fprintf(&b, "Статус: %s\n", domain.StatusLabels[stage.Status])
	fmt.Fprintf(&b, "Оплата: %s\n", domain.PaymentStatusLabels[stage.PaymentStatus])
	if stage.StartDate != nil {
		fmt.Fprintf(&b, "Начало: %s\n", domain.FormatDate(stage.StartDate))
	}
	if stage.EndDate != nil {
		fmt.Fprintf(&b, "Окончание: %s\n", domain.FormatDate(stage.EndDate))
	}
	if stage.Budget != nil {
		fmt.Fprintf(&b, "Бюджет: %s\n", domain.FormatAmount(*stage.Budget))
	}
	switch {
	case stage.ResponsibleUser != nil:
		fmt.Fprintf(&b, "Ответственный: %s\n", esc(stage.ResponsibleUser.FullName))
	case stage.ResponsibleContact != nil:
		fmt.Fprintf(&b, "Ответственный: %s\n", esc(*stage.ResponsibleContact))
	}
	if stage.IsCheckpoint {
		b.WriteString("🔍 Контрольная точка: завершение требует приёмки заказчиком\n")
	}
	if len(stage.SubStages) > 0 {
		b.WriteString("\nПодэтапы:\n")
		for _, sub := range stage.SubStages {
			fmt.Fprintf(&b, "%s %s\n", domain.StatusIcons[sub.Status], esc(sub.Name))
		}
	}
	return b.String()
}

// renderWeeklyReport renders the weekly report as Telegram HTML.
func renderWeeklyReport(r *domain.WeeklyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Еженедельный отчёт: %s</b>\n\n", esc(r.ProjectName))

	fmt.Fprintf(&b, "Этапы: %d всего, ✅ %d, 🔨 %d, ⏳ %d, ⚠️ %d\n",
		r.Stages.Total, r.Stages.Completed, r.Stages.InProgress, r.Stages.Planned, r.Stages.Delayed)

	if len(r.OverdueList) > 0 {
		b.WriteString("\n⚠️ <b>Просрочено:</b>\n")
		for _, s := range r.OverdueList {
			fmt.Fprintf(&b, "• %s (%s)\n", esc(s.Name), Plural(s.DaysOverdue, "день", "дня", "дней"))
		}
	}
	if len(r.UpcomingList) > 0 {
		b.WriteString("\n📅 <b>Скоро стартуют:</b>\n")
		for _, s := range r.UpcomingList {
			fmt.Fprintf(&b, "• %s (через %s)\n", esc(s.Name), Plural(s.DaysUntil, "день", "дня", "дней"))
		}
	}

	ba := r.BudgetAnalysis
	if ba.HasBudget {
		icon := "💚"
		switch ba.Status {
		case domain.BudgetWarning:
			icon = "💛"
		case domain.BudgetOver:
			icon = "🔴"
		}
		fmt.Fprintf(&b, "\n%s Бюджет: потрачено %s (%.0f%%), остаток %s\n",
			icon, domain.FormatAmount(r.BudgetTotals.TotalSpent), ba.UsagePct,
			domain.FormatAmount(ba.Remaining))
	}
	return b.String()
}

// renderStatusReport renders the compact per-stage list.
func renderStatusReport(r *domain.StatusReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>%s</b>\n", esc(r.ProjectName))
	fmt.Fprintf(&b, "Прогресс: %.0f%% (%d из %d этапов)\n\n", r.ProgressPct, r.Completed, r.Total)
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "%s %s", domain.StatusIcons[s.Status], esc(s.Name))
		if s.IsOverdue {
			b.WriteString(" ⚠️ просрочен")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderDeadlineReport renders the three deadline buckets.
func renderDeadlineReport(r *domain.DeadlineReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>Дедлайны: %s</b>\n", esc(r.ProjectName))

	section := func(title string, stages []domain.StageBrief) {
		if len(stages) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, s := range stages {
			fmt.Fprintf(&b, "• %s", esc(s.Name))
			if s.EndDate != "" && s.EndDate != "—" {
				fmt.Fprintf(&b, ", до %s", s.EndDate)
			}
			b.WriteString("\n")
		}
	}
	section("🔴 <b>Просрочено:</b>", r.Overdue)
	section("🟡 <b>Ближайшие 3 дня:</b>", r.DueSoon)
	section("🟢 <b>В графике:</b>", r.OnTrack)

	if len(r.Overdue)+len(r.DueSoon)+len(r.OnTrack) == 0 {
		b.WriteString("\nНет этапов с дедлайнами.")
	}
	return b.String()
}

// renderNextStageReport renders the current and next main stage.
func renderNextStageReport(r *domain.NextStageReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "➡️ <b>%s</b>\n\n", esc(r.ProjectName))
	if r.Current != nil {
		fmt.Fprintf(&b, "Сейчас: 🔨 %s\n", esc(r.Current.Name))
	} else {
		b.WriteString("Сейчас нет этапа в работе.\n")
	}
	if r.Next != nil {
		fmt.Fprintf(&b, "Следующий: ⏳ %s\n", esc(r.Next.Name))
	} else {
		b.WriteString("Запланированных этапов больше нет.\n")
	}
	return b.String()
}

// renderBudget renders totals and the per-category breakdown.
func renderBudget(project *db.Project, totals domain.BudgetTotals, categories []domain.CategorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 <b>Бюджет: %s</b>\n\n", esc(project.Name))
	if project.TotalBudget != nil {
		analysis := domain.AnalyzeBudget(project.TotalBudget, totals.TotalSpent)
		fmt.Fprintf(&b, "Всего: %s\nПотрачено: %s (%.0f%%)\nОстаток: %s\n",
			domain.FormatAmount(*project.TotalBudget),
			domain.FormatAmount(totals.TotalSpent),
			analysis.UsagePct,
			domain.FormatAmount(analysis.Remaining))
	} else {
		fmt.Fprintf(&b, "Потрачено: %s\n", domain.FormatAmount(totals.TotalSpent))
	}
	fmt.Fprintf(&b, "Работы: %s, материалы: %s, предоплаты: %s\n",
		domain.FormatAmount(totals.TotalWork),
		domain.FormatAmount(totals.TotalMaterials),
		domain.FormatAmount(totals.TotalPrepayments))

	if len(categories) > 0 {
		b.WriteString("\nПо категориям:\n")
		for _, c := range categories {
			fmt.Fprintf(&b, "• %s: %s\n", domain.CategoryLabel(c.Category), domain.FormatAmount(c.Total))
		}
	}
	return b.String()
}

// renderTeam renders the roster with roles and activity.
func renderTeam(team []repo.TeamMember) string {
	if len(team) == 0 {
		return "В проекте пока нет участников."
	}
	var b strings.Builder
	b.WriteString("👥 <b>Команда проекта</b>\n\n")
	for _, m := range team {
		labels := make([]string, 0, len(m.Roles))
		for _, r := range m.Roles {
			labels = append(labels, domain.RoleLabels[r])
		}
		fmt.Fprintf(&b, "%s — %s, %s\n",
			esc(m.User.FullName),
			strings.Join(labels, ", "),
			Plural(int(m.MessageCount), "сообщение", "сообщения", "сообщений"))
	}
	return b.String()
}

// renderNotification turns a platform-neutral notification into the
// Telegram text body.
func renderNotification(n domain.Notification) string {
	if n.IsHTML {
		return fmt.Sprintf("<b>%s</b>\n\n%s", esc(n.Title), n.Body)
	}
	return fmt.Sprintf("<b>%s</b>\n\n%s", esc(n.Title), esc(n.Body))
}
