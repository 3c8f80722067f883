package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/fsm"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

func isSkip(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "пропустить" || t == "skip" || t == "-"
}

func isStop(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "/stop" || t == "стоп" || t == "stop" || t == "выход"
}

// handleStateText advances whatever flow the user is in with their
// typed answer.
func (b *Bot) handleStateText(ctx context.Context, rc *reqContext, state fsm.State, text string) {
	switch state {
	case fsm.StateProjectName:
		b.stepProjectName(ctx, rc, text)
	case fsm.StateProjectAddress:
		b.stepProjectAddress(ctx, rc, text)
	case fsm.StateProjectArea:
		b.stepProjectArea(ctx, rc, text)
	case fsm.StateProjectType:
		b.send(ctx, rc.ChatID, "Выберите тип ремонта кнопкой выше.")
	case fsm.StateProjectBudget:
		b.stepProjectBudget(ctx, rc, text)
	case fsm.StateProjectCustom:
		b.send(ctx, rc.ChatID, "Отметьте мебель кнопками и нажмите «Готово».")
	case fsm.StateProjectConfirm:
		b.stepProjectConfirmText(ctx, rc, text)

	case fsm.StateStageDates:
		b.stepStageDates(ctx, rc, text)
	case fsm.StateStageDuration:
		b.stepStageDates(ctx, rc, text)
	case fsm.StateStagePerson:
		b.stepStagePerson(ctx, rc, text)
	case fsm.StateStageBudget:
		b.stepStageBudget(ctx, rc, text)
	case fsm.StateStageSubstages:
		b.stepStageSubstages(ctx, rc, text)

	case fsm.StateInviteRole:
		b.send(ctx, rc.ChatID, "Выберите роль кнопкой выше.")
	case fsm.StateInviteContact:
		b.stepInviteContact(ctx, rc, text)
	case fsm.StateInviteConfirm:
		b.send(ctx, rc.ChatID, "Подтвердите приглашение кнопкой выше.")

	case fsm.StateBudgetAmount:
		b.stepExpenseAmount(ctx, rc, text)
	case fsm.StateBudgetDescription:
		b.stepExpenseDescription(ctx, rc, text)

	case fsm.StatePickProject:
		b.send(ctx, rc.ChatID, "Выберите проект кнопкой выше.")

	case fsm.StateAIChat:
		b.stepAIChat(ctx, rc, text)
	}
}

// ── Project creation ─────────────────────────────────────────

func (b *Bot) stepProjectName(ctx context.Context, rc *reqContext, text string) {
	name := strings.TrimSpace(text)
	if name == "" || len([]rune(name)) > 120 {
		b.send(ctx, rc.ChatID, "Название должно быть непустым и не длиннее 120 символов.")
		return
	}
	b.deps.States.SetField(rc.ChatID, rc.User.ID, "name", name)
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectAddress)
	b.send(ctx, rc.ChatID, "Адрес объекта? Или напишите «пропустить».")
}

func (b *Bot) stepProjectAddress(ctx context.Context, rc *reqContext, text string) {
	if !isSkip(text) {
		b.deps.States.SetField(rc.ChatID, rc.User.ID, "address", strings.TrimSpace(text))
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectArea)
	b.send(ctx, rc.ChatID, "Площадь в м²? Например «65». Или «пропустить».")
}

func (b *Bot) stepProjectArea(ctx context.Context, rc *reqContext, text string) {
	if !isSkip(text) {
		area, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
		if err != nil || area <= 0 || area > 10000 {
			b.send(ctx, rc.ChatID, "Не понял площадь. Число в м², например «65.5», или «пропустить».")
			return
		}
		b.deps.States.SetField(rc.ChatID, rc.User.ID, "area", strconv.FormatFloat(area, 'f', -1, 64))
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectType)
	b.sendKb(ctx, rc.ChatID, "Какой тип ремонта?", renovationTypeKeyboard())
}

func (b *Bot) stepProjectBudget(ctx context.Context, rc *reqContext, text string) {
	if !isSkip(text) {
		amount, err := domain.ParseAmount(text)
		if err != nil {
			b.send(ctx, rc.ChatID, "Не понял сумму. Например «5000000» или «5 млн», или «пропустить».")
			return
		}
		b.deps.States.SetField(rc.ChatID, rc.User.ID, "budget", strconv.FormatFloat(amount, 'f', -1, 64))
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectCustom)
	b.sendKb(ctx, rc.ChatID, "Будет ли мебель на заказ? Отметьте и нажмите «Готово».",
		customItemsKeyboard(nil))
}

func (b *Bot) stepProjectConfirmText(ctx context.Context, rc *reqContext, text string) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "да", "yes", "создать":
		b.createProjectFromDraft(ctx, rc)
	case "нет", "no", "отмена":
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		b.send(ctx, rc.ChatID, "Создание проекта отменено.")
	default:
		b.send(ctx, rc.ChatID, "Ответьте «да» или «нет», или используйте кнопки.")
	}
}

func (b *Bot) createProjectFromDraft(ctx context.Context, rc *reqContext) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	params := repo.CreateProjectParams{
		OwnerUserID:    rc.User.ID,
		Name:           d.Fields["name"],
		RenovationType: d.Fields["type"],
	}
	tenantID := b.tenant.ID
	params.TenantID = &tenantID
	if v := d.Fields["address"]; v != "" {
		params.Address = &v
	}
	if v := d.Fields["area"]; v != "" {
		if area, err := strconv.ParseFloat(v, 64); err == nil {
			params.AreaSqm = &area
		}
	}
	if v := d.Fields["budget"]; v != "" {
		if budget, err := strconv.ParseFloat(v, 64); err == nil {
			params.TotalBudget = &budget
		}
	}
	for key := range b.selectedCustomItems(rc) {
		params.CustomItems = append(params.CustomItems, key)
	}

	project, err := b.deps.Repo.CreateProject(ctx, params)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.deps.States.Clear(rc.ChatID, rc.User.ID)
	b.send(ctx, rc.ChatID, fmt.Sprintf(
		"🏗 Проект «%s» создан, этапов: %d.\n\n"+
			"Дальше:\n"+
			"• /stages — настроить сроки и ответственных\n"+
			"• /invite — добавить команду\n"+
			"• /link в групповом чате — привязать чат\n"+
			"• /launch — запустить проект",
		project.Name, len(project.Stages)))
}

// ── Stage edits ──────────────────────────────────────────────

func (b *Bot) finishStageEdit(ctx context.Context, rc *reqContext, stage *db.Stage) {
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.None)
	b.sendHTMLKb(ctx, rc.ChatID, renderStageCard(stage), stageCardKeyboard(stage))
}

// splitDateRange splits "start - end" into its two date strings, or
// returns nil when the text is not a range. ISO dates carry dashes
// themselves, so the spaced separator is tried first.
func splitDateRange(text string) []string {
	var parts []string
	if strings.Contains(text, " - ") {
		parts = strings.SplitN(text, " - ", 2)
	} else if p := strings.SplitN(text, "-", 2); len(p) == 2 &&
		(strings.Contains(p[0], ".") || strings.Contains(p[0], "/")) {
		parts = p
	}
	if len(parts) != 2 {
		return nil
	}
	return []string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
}

// stepStageDates accepts a "start - end" range or a duration in days
// counted from the stage's start date (or today).
func (b *Bot) stepStageDates(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if d.StageID == 0 {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		return
	}

	var upd repo.StageUpdate
	text = strings.TrimSpace(text)

	if parts := splitDateRange(text); len(parts) == 2 {
		start, err := domain.ParseDate(parts[0])
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		end, err := domain.ParseDate(parts[1])
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		upd.StartDate = &start
		upd.EndDate = &end
	} else if days, err := strconv.Atoi(text); err == nil && days > 0 && days <= 365 {
		stage, err := b.deps.Repo.GetStageByID(ctx, d.StageID)
		if err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		start := time.Now().UTC().Truncate(24 * time.Hour)
		if stage.StartDate != nil {
			start = *stage.StartDate
		}
		end := start.AddDate(0, 0, days)
		upd.StartDate = &start
		upd.EndDate = &end
	} else {
		b.send(ctx, rc.ChatID, "Формат: «01.09.2026 - 14.09.2026» или число дней, например «14».")
		return
	}

	stage, err := b.deps.Repo.UpdateStage(ctx, d.StageID, &rc.User.ID, upd)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.finishStageEdit(ctx, rc, stage)
}

func (b *Bot) stepStagePerson(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if d.StageID == 0 {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		return
	}
	contact := strings.TrimSpace(text)
	if contact == "" {
		b.send(ctx, rc.ChatID, "Укажите имя и контакт ответственного.")
		return
	}
	stage, err := b.deps.Repo.UpdateStage(ctx, d.StageID, &rc.User.ID, repo.StageUpdate{
		ResponsibleContact: &contact,
	})
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.finishStageEdit(ctx, rc, stage)
}

func (b *Bot) stepStageBudget(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if d.StageID == 0 {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		return
	}
	amount, err := domain.ParseAmount(text)
	if err != nil {
		b.send(ctx, rc.ChatID, "Не понял сумму. Например «450000» или «1.2 млн».")
		return
	}
	stage, err := b.deps.Repo.UpdateStage(ctx, d.StageID, &rc.User.ID, repo.StageUpdate{
		Budget: &amount,
	})
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.finishStageEdit(ctx, rc, stage)
}

func (b *Bot) stepStageSubstages(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if d.StageID == 0 {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		return
	}
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•– "))
		if line != "" {
			names = append(names, line)
		}
	}
	if len(names) == 0 {
		b.send(ctx, rc.ChatID, "Перечислите подэтапы, каждый с новой строки.")
		return
	}
	if _, err := b.deps.Repo.AddSubStages(ctx, d.StageID, names); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, d.StageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("Добавлено подэтапов: %d.", len(names)))
	b.finishStageEdit(ctx, rc, stage)
}

// ── Invite ───────────────────────────────────────────────────

func (b *Bot) stepInviteContact(ctx context.Context, rc *reqContext, text string) {
	contact := strings.TrimSpace(text)
	if contact == "" {
		b.send(ctx, rc.ChatID, "Укажите имя и контакт участника.")
		return
	}
	b.deps.States.SetField(rc.ChatID, rc.User.ID, "contact", contact)
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateInviteConfirm)
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	role := domain.Role(d.Fields["role"])
	b.sendKb(ctx, rc.ChatID,
		fmt.Sprintf("Пригласить %s как %s?", contact, domain.RoleLabels[role]),
		inviteConfirmKeyboard())
}

// ── Expense entry ────────────────────────────────────────────

func (b *Bot) stepExpenseAmount(ctx context.Context, rc *reqContext, text string) {
	amount, err := domain.ParseAmount(text)
	if err != nil {
		b.send(ctx, rc.ChatID, "Не понял сумму. Например «120000» или «1.2 млн».")
		return
	}
	b.deps.States.SetField(rc.ChatID, rc.User.ID, "amount", strconv.FormatFloat(amount, 'f', -1, 64))
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateBudgetDescription)
	b.send(ctx, rc.ChatID, "На что потрачено? Например «плитка для ванной».")
}

func (b *Bot) stepExpenseDescription(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	b.deps.States.Clear(rc.ChatID, rc.User.ID)

	desc := strings.TrimSpace(text)
	amount, err := strconv.ParseFloat(d.Fields["amount"], 64)
	if err != nil || d.ProjectID == 0 || desc == "" {
		return
	}
	item := &db.BudgetItem{
		ProjectID:    d.ProjectID,
		Category:     domain.GuessCategoryFromStage(desc),
		Description:  &desc,
		MaterialCost: amount,
	}
	if d.StageID != 0 {
		item.StageID = &d.StageID
	}
	if err := b.deps.Repo.CreateBudgetItem(ctx, item, &rc.User.ID); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	reply := fmt.Sprintf("🧾 Записал: %s — %s ₸ (%s).",
		desc, domain.FormatAmount(amount), domain.CategoryLabel(item.Category))
	if item.StageID != nil {
		if spent, err := b.deps.Repo.GetStageSpend(ctx, *item.StageID); err == nil && spent > 0 {
			reply += fmt.Sprintf("\nВсего по этапу: %s ₸.", domain.FormatAmount(spent))
		}
	}
	b.send(ctx, rc.ChatID, reply)
}

// ── AI chat ──────────────────────────────────────────────────

func (b *Bot) stepAIChat(ctx context.Context, rc *reqContext, text string) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if isStop(text) {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		if b.deps.RAG != nil && d.ProjectID != 0 {
			b.deps.RAG.ResetChat(d.ProjectID, rc.User.ID)
		}
		b.send(ctx, rc.ChatID, "Чат с ассистентом завершён.")
		return
	}
	if b.deps.RAG == nil || d.ProjectID == 0 {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		return
	}
	answer, err := b.deps.RAG.Chat(ctx, d.ProjectID, rc.User.ID, text)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, answer)
}
