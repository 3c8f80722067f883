package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/fsm"
)

// rolesFor loads the user's roles for a project resolved after the
// middleware ran (private-chat flows).
func (b *Bot) rolesFor(ctx context.Context, rc *reqContext, project *db.Project) []domain.Role {
	if rc.Project != nil && project.ID == rc.Project.ID {
		return rc.Roles
	}
	roles, err := b.deps.Repo.GetUserRolesInProject(ctx, project.ID, rc.User.ID)
	if err != nil {
		log.Printf("[tg:%d] load roles: %v", b.tenant.ID, err)
		return nil
	}
	return roles
}

func (b *Bot) requirePermission(ctx context.Context, rc *reqContext, project *db.Project, perm domain.Permission) bool {
	if domain.HasPermission(b.rolesFor(ctx, rc, project), perm) {
		return true
	}
	b.send(ctx, rc.ChatID, "У вас нет прав для этого действия в проекте.")
	return false
}

func (b *Bot) isAdmin(userTelegramID int64) bool {
	for _, id := range b.deps.Cfg.AdminUserIDs {
		if id == userTelegramID {
			return true
		}
	}
	return false
}

// reply sends a domain error as a friendly message, or a generic failure
// note for internal errors.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrIntegrity),
		errors.Is(err, domain.ErrAuthorization):
		b.send(ctx, chatID, "⚠️ "+err.Error())
	case errors.Is(err, domain.ErrNotFound):
		b.send(ctx, chatID, "Не нашёл: "+err.Error())
	default:
		log.Printf("[tg:%d] command failed: %v", b.tenant.ID, err)
		b.send(ctx, chatID, "Что-то пошло не так, попробуйте ещё раз.")
	}
}

func (b *Bot) commandStart(ctx context.Context, rc *reqContext) {
	if _, err := b.deps.Repo.GetOrCreateUserByTelegramID(ctx, *rc.User.TelegramID, rc.User.FullName, true); err != nil {
		log.Printf("[tg:%d] mark bot started: %v", b.tenant.ID, err)
	}
	b.send(ctx, rc.ChatID, "👋 Привет! Я ассистент по ремонту.\n\n"+
		"Создайте проект командой /newproject, привяжите групповой чат через /link "+
		"и я буду следить за этапами, бюджетом и сроками.\n\n"+
		"Задать вопрос по проекту: /ask <вопрос> или просто напишите мне.")
}

func (b *Bot) commandNewProject(ctx context.Context, rc *reqContext) {
	if rc.IsGroup {
		b.send(ctx, rc.ChatID, "Проект создаётся в личном чате с ботом, потом привяжите его сюда через /link.")
		return
	}
	b.deps.States.Clear(rc.ChatID, rc.User.ID)
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectName)
	b.send(ctx, rc.ChatID, "🏗 Создаём проект. Как назовём? (например, «Квартира на Абая»)")
}

func (b *Bot) commandMyProjects(ctx context.Context, rc *reqContext) {
	tenantID := b.tenant.ID
	projects, err := b.deps.Repo.GetUserProjects(ctx, rc.User.ID, &tenantID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if len(projects) == 0 {
		b.send(ctx, rc.ChatID, "У вас пока нет проектов. Создайте первый: /newproject")
		return
	}
	var sb strings.Builder
	sb.WriteString("📁 <b>Ваши проекты:</b>\n\n")
	for _, p := range projects {
		fmt.Fprintf(&sb, "• %s (%s)", esc(p.Name), p.RenovationType)
		// Progress comes from the materialized view; a fresh project
		// may not have a row until the next refresh.
		if prog, err := b.deps.Cache.StageProgress(ctx, p.ID); err == nil && prog != nil && prog.TotalStages > 0 {
			fmt.Fprintf(&sb, " — %d/%d этапов", prog.Completed, prog.TotalStages)
		}
		if p.TelegramChatID != nil {
			sb.WriteString(" 🔗")
		}
		sb.WriteString("\n")
	}
	b.sendHTML(ctx, rc.ChatID, sb.String())
}

func (b *Bot) commandDeleteProject(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "deleteproject")
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if project == nil {
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermCloseProject) {
		return
	}
	if err := b.deps.Repo.DeactivateProject(ctx, project.ID); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if project.TelegramChatID != nil {
		// Free the group chat so another project can claim it.
		if err := b.deps.Repo.UnlinkChat(ctx, project.ID); err != nil {
			log.Printf("[tg:%d] unlink chat: %v", b.tenant.ID, err)
		}
		if err := b.deps.Cache.Invalidate(ctx, fmt.Sprintf("project:chat:%d", *project.TelegramChatID)); err != nil {
			log.Printf("[tg:%d] invalidate project cache: %v", b.tenant.ID, err)
		}
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("Проект «%s» деактивирован. История сохранена.", project.Name))
}

func (b *Bot) commandStages(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "stages")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewStages) {
		return
	}
	stages, err := b.deps.Repo.GetProjectStages(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) { d.ProjectID = project.ID })
	b.sendHTMLKb(ctx, rc.ChatID,
		fmt.Sprintf("🗂 <b>Этапы: %s</b>\nВыберите этап для настройки:", esc(project.Name)),
		stageListKeyboard(stages))
}

// commandBudget shows the budget, or with an amount argument updates
// the project's total budget.
func (b *Bot) commandBudget(ctx context.Context, rc *reqContext, args string) {
	project, err := b.resolveProject(ctx, rc, "budget")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if args != "" {
		if !b.requirePermission(ctx, rc, project, domain.PermEditBudget) {
			return
		}
		amount, err := domain.ParseAmount(args)
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		if err := b.deps.Repo.UpdateProjectBudget(ctx, project.ID, amount); err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		project.TotalBudget = &amount
		b.send(ctx, rc.ChatID, fmt.Sprintf("Общий бюджет обновлён: %s ₸.", domain.FormatAmount(amount)))
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewBudget) {
		return
	}
	totals, err := b.deps.Repo.GetBudgetTotals(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	categories, err := b.deps.Repo.GetCategorySummaries(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.sendHTML(ctx, rc.ChatID, renderBudget(project, totals, categories))
}

func (b *Bot) commandExpenses(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "expenses")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewBudget) {
		return
	}
	items, err := b.deps.Repo.GetBudgetItems(ctx, project.ID, 15)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if len(items) == 0 {
		b.send(ctx, rc.ChatID, "Расходов пока нет. Добавить: напишите сумму и на что, например «плитка 120000».")
		return
	}
	var sb strings.Builder
	sb.WriteString("🧾 <b>Последние расходы:</b>\n\n")
	var unconfirmed []db.BudgetItem
	for _, it := range items {
		desc := domain.CategoryLabel(it.Category)
		if it.Description != nil && *it.Description != "" {
			desc = *it.Description
		}
		mark := ""
		if it.IsConfirmed {
			mark = " ✅"
		} else {
			unconfirmed = append(unconfirmed, it)
		}
		fmt.Fprintf(&sb, "• %s — %s%s\n", esc(desc), domain.FormatAmount(it.WorkCost+it.MaterialCost), mark)
	}

	canConfirm := domain.HasPermission(b.rolesFor(ctx, rc, project), domain.PermConfirmBudget)
	if canConfirm && len(unconfirmed) > 0 {
		b.sendHTMLKb(ctx, rc.ChatID, sb.String(), expenseConfirmKeyboard(project.ID, unconfirmed))
		return
	}
	b.sendHTML(ctx, rc.ChatID, sb.String())
}

func (b *Bot) commandAddExpense(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "addexpense")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermEditBudget) {
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateBudgetAmount)
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) {
		d.ProjectID = project.ID
	})
	// Expenses default to the stage currently in progress.
	if current, err := b.deps.Repo.GetCurrentInProgressStage(ctx, project.ID); err == nil {
		b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) {
			d.StageID = current.ID
		})
	}
	b.send(ctx, rc.ChatID, "Сумма расхода в тенге? Например «120000» или «1.2 млн».")
}

func (b *Bot) commandReport(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "report")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewReports) {
		return
	}
	report, err := b.buildWeeklyReport(ctx, project)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.sendHTML(ctx, rc.ChatID, renderWeeklyReport(report))
}

// buildWeeklyReport gathers the data a weekly report needs. The
// scheduler reuses it.
func (b *Bot) buildWeeklyReport(ctx context.Context, project *db.Project) (*domain.WeeklyReport, error) {
	stages, err := b.deps.Repo.GetProjectStages(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	totals, err := b.deps.Repo.GetBudgetTotals(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	categories, err := b.deps.Repo.GetCategorySummaries(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	r := domain.BuildWeeklyReport(project.Name, project.TotalBudget, stages, totals, categories, time.Now().UTC())
	return &r, nil
}

func (b *Bot) commandStatus(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "status")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewStages) {
		return
	}
	stages, err := b.deps.Repo.GetProjectStages(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	r := domain.BuildStatusReport(project.Name, stages, time.Now().UTC())
	b.sendHTML(ctx, rc.ChatID, renderStatusReport(&r))
}

func (b *Bot) commandNextStage(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "next_stage")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	current, err := b.deps.Repo.GetCurrentInProgressStage(ctx, project.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	var next *db.Stage
	afterOrder := 0
	if current != nil {
		afterOrder = current.Order
	}
	next, err = b.deps.Repo.GetNextPlannedStage(ctx, project.ID, afterOrder)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	r := domain.BuildNextStageReport(project.Name, current, next)
	b.sendHTML(ctx, rc.ChatID, renderNextStageReport(&r))
}

func (b *Bot) commandDeadline(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "deadline")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	stages, err := b.deps.Repo.GetProjectStages(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	r := domain.BuildDeadlineReport(project.Name, stages, time.Now().UTC())
	b.sendHTML(ctx, rc.ChatID, renderDeadlineReport(&r))
}

func (b *Bot) commandMyStage(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "my_stage")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	stages, err := b.deps.Repo.GetProjectStages(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	var mine []db.Stage
	for _, st := range stages {
		if st.ResponsibleUserID != nil && *st.ResponsibleUserID == rc.User.ID {
			mine = append(mine, st)
		}
	}
	if len(mine) == 0 {
		b.send(ctx, rc.ChatID, "За вами не закреплено ни одного этапа.")
		return
	}
	var sb strings.Builder
	sb.WriteString("🔧 <b>Ваши этапы:</b>\n\n")
	for _, st := range mine {
		fmt.Fprintf(&sb, "%s %s (%s)", domain.StatusIcons[st.Status], esc(st.Name), domain.StatusLabels[st.Status])
		if st.EndDate != nil {
			fmt.Fprintf(&sb, ", до %s", domain.FormatDate(st.EndDate))
		}
		sb.WriteString("\n")
	}
	b.sendHTML(ctx, rc.ChatID, sb.String())
}

func (b *Bot) commandTeam(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "team")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	team, err := b.deps.Repo.GetProjectTeam(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	text := renderTeam(team)

	// Owners additionally get removal buttons for non-owner members.
	if domain.HasPermission(b.rolesFor(ctx, rc, project), domain.PermInviteMember) {
		var removable []db.User
		for _, m := range team {
			isOwner := false
			for _, r := range m.Roles {
				if r == domain.RoleOwner {
					isOwner = true
				}
			}
			if !isOwner {
				removable = append(removable, m.User)
			}
		}
		if len(removable) > 0 {
			b.sendHTMLKb(ctx, rc.ChatID, text, teamRemoveKeyboard(project.ID, removable))
			return
		}
	}
	b.sendHTML(ctx, rc.ChatID, text)
}

func (b *Bot) commandInvite(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "invite")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermInviteMember) {
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateInviteRole)
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) { d.ProjectID = project.ID })
	b.sendKb(ctx, rc.ChatID, "Какую роль получит новый участник?", rolePickerKeyboard())
}

func (b *Bot) commandMyRole(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "myrole")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	roles := b.rolesFor(ctx, rc, project)
	if len(roles) == 0 {
		b.send(ctx, rc.ChatID, "У вас нет роли в этом проекте.")
		return
	}
	labels := make([]string, 0, len(roles))
	for _, r := range roles {
		labels = append(labels, domain.RoleLabels[r])
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("Ваши роли в проекте «%s»: %s", project.Name, strings.Join(labels, ", ")))
}

func (b *Bot) commandAsk(ctx context.Context, rc *reqContext, question string) {
	if strings.TrimSpace(question) == "" {
		b.send(ctx, rc.ChatID, "Напишите вопрос после команды: /ask сколько потратили на плитку?")
		return
	}
	if b.deps.RAG == nil {
		b.send(ctx, rc.ChatID, "Ассистент не настроен: нет подключения к AI-провайдеру.")
		return
	}
	project, err := b.resolveProject(ctx, rc, "ask")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	answer, _, err := b.deps.RAG.Ask(ctx, project.ID, question)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, answer)
}

func (b *Bot) commandSummary(ctx context.Context, rc *reqContext) {
	if b.deps.RAG == nil {
		b.send(ctx, rc.ChatID, "Ассистент не настроен: нет подключения к AI-провайдеру.")
		return
	}
	project, err := b.resolveProject(ctx, rc, "summary")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermViewReports) {
		return
	}
	summaries, err := b.deps.RAG.ParticipantSummaries(ctx, project.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if len(summaries) == 0 {
		b.send(ctx, rc.ChatID, "Пока нет сообщений участников для сводки.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>Сводка по участникам: %s</b>\n", esc(project.Name))
	for _, s := range summaries {
		fmt.Fprintf(&sb, "\n<b>%s</b> (%s)\n%s\n",
			esc(s.FullName),
			Plural(int(s.MessageCount), "сообщение", "сообщения", "сообщений"),
			esc(s.Summary))
	}
	b.sendHTML(ctx, rc.ChatID, sb.String())
}

func (b *Bot) commandChat(ctx context.Context, rc *reqContext) {
	if b.deps.RAG == nil {
		b.send(ctx, rc.ChatID, "Ассистент не настроен: нет подключения к AI-провайдеру.")
		return
	}
	project, err := b.resolveProject(ctx, rc, "chat")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateAIChat)
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) { d.ProjectID = project.ID })
	b.deps.RAG.ResetChat(project.ID, rc.User.ID)
	b.send(ctx, rc.ChatID, "💬 Чат с ассистентом включён. Пишите вопросы, для выхода — /stop или «стоп».")
}

// commandStop exits whatever flow the user is in. Slash commands are
// routed before the flow state is consulted, so the stop word needs an
// explicit command too.
func (b *Bot) commandStop(ctx context.Context, rc *reqContext) {
	state := b.deps.States.State(rc.ChatID, rc.User.ID)
	if state == fsm.None {
		b.send(ctx, rc.ChatID, "Сейчас нет активного диалога.")
		return
	}
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	b.deps.States.Clear(rc.ChatID, rc.User.ID)
	if state == fsm.StateAIChat {
		if b.deps.RAG != nil && d.ProjectID != 0 {
			b.deps.RAG.ResetChat(d.ProjectID, rc.User.ID)
		}
		b.send(ctx, rc.ChatID, "Чат с ассистентом завершён.")
		return
	}
	b.send(ctx, rc.ChatID, "Действие отменено.")
}

func (b *Bot) commandLaunch(ctx context.Context, rc *reqContext) {
	project, err := b.resolveProject(ctx, rc, "launch")
	if err != nil || project == nil {
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
		}
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermLaunchProject) {
		return
	}
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) { d.ProjectID = project.ID })
	b.showLaunchCheck(ctx, rc, project.ID)
}

func (b *Bot) showLaunchCheck(ctx context.Context, rc *reqContext, projectID int64) {
	project, err := b.deps.Repo.GetProjectWithStages(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	ready, warnings := domain.ValidateLaunchReadiness(project)
	var sb strings.Builder
	sb.WriteString("🚀 <b>Проверка готовности к запуску</b>\n\n")
	if ready {
		sb.WriteString("✅ Проект готов к запуску.\n")
	} else {
		sb.WriteString("❌ Запуск пока невозможен.\n")
	}
	if len(warnings) > 0 {
		sb.WriteString("\nЗамечания:\n")
		for _, w := range warnings {
			sb.WriteString("• " + esc(w) + "\n")
		}
	}
	if ready {
		b.sendHTMLKb(ctx, rc.ChatID, sb.String(), launchConfirmKeyboard())
	} else {
		b.sendHTML(ctx, rc.ChatID, sb.String())
	}
}

func (b *Bot) commandLink(ctx context.Context, rc *reqContext) {
	if !rc.IsGroup {
		b.send(ctx, rc.ChatID, "/link работает в групповом чате проекта.")
		return
	}
	if rc.Project != nil {
		b.send(ctx, rc.ChatID, fmt.Sprintf("Чат уже привязан к проекту «%s».", rc.Project.Name))
		return
	}
	tenantID := b.tenant.ID
	projects, err := b.deps.Repo.GetUserProjects(ctx, rc.User.ID, &tenantID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	var owned []db.Project
	for _, p := range projects {
		roles, err := b.deps.Repo.GetUserRolesInProject(ctx, p.ID, rc.User.ID)
		if err != nil {
			continue
		}
		if domain.HasPermission(roles, domain.PermEditProject) {
			owned = append(owned, p)
		}
	}
	if len(owned) == 0 {
		b.send(ctx, rc.ChatID, "У вас нет проектов для привязки. Создайте проект в личном чате: /newproject")
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StatePickProject)
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) { d.Intent = "link" })
	b.sendKb(ctx, rc.ChatID, "Какой проект привязать к этому чату?", projectPickerKeyboard(owned))
}

// ── Admin commands ───────────────────────────────────────────

func (b *Bot) commandAddBot(ctx context.Context, rc *reqContext, token string) {
	if rc.User.TelegramID == nil || !b.isAdmin(*rc.User.TelegramID) {
		return
	}
	if token == "" {
		b.send(ctx, rc.ChatID, "Использование: /addbot <токен>")
		return
	}
	tenant, err := b.sup.AddTenant(ctx, token)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("Бот добавлен: tenant %d (%s).", tenant.ID, tenant.Name))
}

func (b *Bot) commandListBots(ctx context.Context, rc *reqContext) {
	if rc.User.TelegramID == nil || !b.isAdmin(*rc.User.TelegramID) {
		return
	}
	tenants, err := b.deps.Repo.GetActiveTenants(ctx)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	var sb strings.Builder
	sb.WriteString("🤖 <b>Активные боты:</b>\n\n")
	for _, t := range tenants {
		username := "-"
		if t.TelegramBotUsername != nil {
			username = "@" + *t.TelegramBotUsername
		}
		fmt.Fprintf(&sb, "• %d: %s (%s)\n", t.ID, esc(t.Name), esc(username))
	}
	b.sendHTML(ctx, rc.ChatID, sb.String())
}

func (b *Bot) commandRemoveBot(ctx context.Context, rc *reqContext, args string) {
	if rc.User.TelegramID == nil || !b.isAdmin(*rc.User.TelegramID) {
		return
	}
	var tenantID int64
	if _, err := fmt.Sscanf(args, "%d", &tenantID); err != nil {
		b.send(ctx, rc.ChatID, "Использование: /removebot <tenant_id>")
		return
	}
	if err := b.sup.RemoveTenant(ctx, tenantID); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("Бот %d остановлен и деактивирован.", tenantID))
}
