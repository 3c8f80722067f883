package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/fsm"
)

// handleCallback acknowledges the tap, rebuilds the request context and
// routes by callback prefix.
func (b *Bot) handleCallback(ctx context.Context, cb *models.CallbackQuery) {
	if _, err := b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	}); err != nil {
		log.Printf("[tg:%d] answer callback: %v", b.tenant.ID, err)
	}

	if cb.Message.Message == nil {
		return
	}
	msg := cb.Message.Message

	rc, err := b.resolveContext(ctx, &cb.From, msg.Chat)
	if err != nil {
		log.Printf("[tg:%d] resolve callback context: %v", b.tenant.ID, err)
		return
	}
	if rc.User == nil {
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbRenovationType):
		b.cbPickRenovationType(ctx, rc, strings.TrimPrefix(data, cbRenovationType))
	case strings.HasPrefix(data, cbCustomItem):
		b.cbToggleCustomItem(ctx, rc, msg, strings.TrimPrefix(data, cbCustomItem))
	case strings.HasPrefix(data, cbCoordinates):
		// Legacy payload for the same toggle.
		b.cbToggleCustomItem(ctx, rc, msg, strings.TrimPrefix(data, cbCoordinates))
	case strings.HasPrefix(data, cbConfirm):
		b.cbConfirmWizard(ctx, rc, strings.TrimPrefix(data, cbConfirm))
	case strings.HasPrefix(data, cbYesNo):
		b.cbYesNoAnswer(ctx, rc, strings.TrimPrefix(data, cbYesNo))
	case strings.HasPrefix(data, cbProjectSelect):
		b.cbSelectProject(ctx, rc, strings.TrimPrefix(data, cbProjectSelect))
	case strings.HasPrefix(data, cbStageDates):
		b.cbStageField(ctx, rc, strings.TrimPrefix(data, cbStageDates), fsm.StateStageDates,
			"Введите сроки этапа: «ДД.ММ.ГГГГ - ДД.ММ.ГГГГ» или длительность в днях, например «14».")
	case strings.HasPrefix(data, cbStagePerson):
		b.cbStageField(ctx, rc, strings.TrimPrefix(data, cbStagePerson), fsm.StateStagePerson,
			"Кто отвечает за этап? Имя и контакт, например «Бригадир Ерлан, +7 701 ...».")
	case strings.HasPrefix(data, cbStageBudget):
		b.cbStageField(ctx, rc, strings.TrimPrefix(data, cbStageBudget), fsm.StateStageBudget,
			"Бюджет этапа в тенге, например «450000» или «1.2 млн».")
	case strings.HasPrefix(data, cbStageSubstages):
		b.cbStageField(ctx, rc, strings.TrimPrefix(data, cbStageSubstages), fsm.StateStageSubstages,
			"Перечислите подэтапы, каждый с новой строки.")
	case strings.HasPrefix(data, cbStageChgStatus):
		b.cbStageStatusMenu(ctx, rc, strings.TrimPrefix(data, cbStageChgStatus))
	case strings.HasPrefix(data, cbStagePayMenu):
		b.cbStagePaymentMenu(ctx, rc, strings.TrimPrefix(data, cbStagePayMenu))
	case strings.HasPrefix(data, cbStageSetPay):
		b.cbSetPaymentStatus(ctx, rc, splitCallback(data, cbStageSetPay))
	case strings.HasPrefix(data, cbStageSetStatus):
		b.cbSetStageStatus(ctx, rc, splitCallback(data, cbStageSetStatus))
	case strings.HasPrefix(data, cbStageComplete):
		b.cbCompleteStage(ctx, rc, strings.TrimPrefix(data, cbStageComplete))
	case strings.HasPrefix(data, cbCheckpoint):
		b.cbCheckpointDecision(ctx, rc, splitCallback(data, cbCheckpoint))
	case strings.HasPrefix(data, cbTeamRemove):
		b.cbRemoveTeamMember(ctx, rc, splitCallback(data, cbTeamRemove))
	case strings.HasPrefix(data, cbExpenseOK):
		b.cbConfirmExpense(ctx, rc, splitCallback(data, cbExpenseOK))
	case strings.HasPrefix(data, cbSubStage):
		b.cbAdvanceSubStage(ctx, rc, strings.TrimPrefix(data, cbSubStage))
	case strings.HasPrefix(data, cbRole):
		b.cbPickInviteRole(ctx, rc, strings.TrimPrefix(data, cbRole))
	case strings.HasPrefix(data, cbInvite):
		b.cbInviteDecision(ctx, rc, strings.TrimPrefix(data, cbInvite))
	case data == cbLaunch:
		b.cbLaunchCheck(ctx, rc)
	case data == cbLaunchYes:
		b.cbLaunchConfirmed(ctx, rc)
	case data == cbStageBack:
		b.cbBackToStages(ctx, rc)
	case strings.HasPrefix(data, cbStage):
		b.cbOpenStage(ctx, rc, strings.TrimPrefix(data, cbStage))
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// ── Project wizard steps ─────────────────────────────────────

func (b *Bot) cbPickRenovationType(ctx context.Context, rc *reqContext, rtype string) {
	if b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateProjectType {
		return
	}
	if !domain.ValidRenovationType(rtype) {
		return
	}
	b.deps.States.SetField(rc.ChatID, rc.User.ID, "type", rtype)
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectBudget)
	b.send(ctx, rc.ChatID, "Общий бюджет проекта в тенге? Например «5 млн» или «пропустить».")
}

func (b *Bot) cbToggleCustomItem(ctx context.Context, rc *reqContext, msg *models.Message, key string) {
	if b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateProjectCustom {
		return
	}
	if _, ok := domain.CustomItemLabels[key]; !ok {
		return
	}
	field := "custom:" + key
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	if d.Fields[field] == "1" {
		b.deps.States.SetField(rc.ChatID, rc.User.ID, field, "")
	} else {
		b.deps.States.SetField(rc.ChatID, rc.User.ID, field, "1")
	}

	if _, err := b.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      rc.ChatID,
		MessageID:   msg.ID,
		ReplyMarkup: customItemsKeyboard(b.selectedCustomItems(rc)),
	}); err != nil {
		log.Printf("[tg:%d] edit custom items: %v", b.tenant.ID, err)
	}
}

func (b *Bot) selectedCustomItems(rc *reqContext) map[string]bool {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	selected := make(map[string]bool)
	for field, v := range d.Fields {
		if key, ok := strings.CutPrefix(field, "custom:"); ok && v == "1" {
			selected[key] = true
		}
	}
	return selected
}

func (b *Bot) cbConfirmWizard(ctx context.Context, rc *reqContext, action string) {
	if action == "cancel" {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		b.send(ctx, rc.ChatID, "Создание проекта отменено.")
		return
	}
	if action != "create" || b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateProjectCustom {
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateProjectConfirm)
	b.sendHTMLKb(ctx, rc.ChatID, b.renderProjectDraft(rc), yesNoKeyboard())
}

func (b *Bot) renderProjectDraft(rc *reqContext) string {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	var sb strings.Builder
	sb.WriteString("📝 <b>Проверьте данные проекта:</b>\n\n")
	fmt.Fprintf(&sb, "Название: %s\n", esc(d.Fields["name"]))
	if d.Fields["address"] != "" {
		fmt.Fprintf(&sb, "Адрес: %s\n", esc(d.Fields["address"]))
	}
	if d.Fields["area"] != "" {
		fmt.Fprintf(&sb, "Площадь: %s м²\n", d.Fields["area"])
	}
	fmt.Fprintf(&sb, "Тип ремонта: %s\n", d.Fields["type"])
	if d.Fields["budget"] != "" {
		if v, err := strconv.ParseFloat(d.Fields["budget"], 64); err == nil {
			fmt.Fprintf(&sb, "Бюджет: %s ₸\n", domain.FormatAmount(v))
		}
	}
	items := b.selectedCustomItems(rc)
	if len(items) > 0 {
		var labels []string
		for key := range items {
			labels = append(labels, domain.CustomItemLabels[key])
		}
		fmt.Fprintf(&sb, "Мебель на заказ: %s\n", esc(strings.Join(labels, ", ")))
	}
	sb.WriteString("\nСоздать проект?")
	return sb.String()
}

func (b *Bot) cbYesNoAnswer(ctx context.Context, rc *reqContext, answer string) {
	if b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateProjectConfirm {
		return
	}
	if answer != "yes" {
		b.deps.States.Clear(rc.ChatID, rc.User.ID)
		b.send(ctx, rc.ChatID, "Создание проекта отменено.")
		return
	}
	b.createProjectFromDraft(ctx, rc)
}

// ── Project picker ───────────────────────────────────────────

func (b *Bot) cbSelectProject(ctx context.Context, rc *reqContext, payload string) {
	projectID, ok := parseID(payload)
	if !ok {
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if _, err := b.checkTenant(project); err != nil {
		return
	}
	roles, err := b.deps.Repo.GetUserRolesInProject(ctx, project.ID, rc.User.ID)
	if err != nil || len(roles) == 0 {
		return
	}

	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	b.deps.States.Clear(rc.ChatID, rc.User.ID)

	if d.Intent == "link" {
		if !rc.IsGroup {
			return
		}
		if !domain.HasPermission(roles, domain.PermEditProject) {
			b.send(ctx, rc.ChatID, "Привязать чат может только владелец проекта.")
			return
		}
		if err := b.deps.Repo.LinkChat(ctx, project.ID, rc.ChatID); err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		if err := b.deps.Cache.Invalidate(ctx, fmt.Sprintf("project:chat:%d", rc.ChatID)); err != nil {
			log.Printf("[tg:%d] invalidate chat cache: %v", b.tenant.ID, err)
		}
		b.send(ctx, rc.ChatID, fmt.Sprintf("🔗 Чат привязан к проекту «%s». Теперь я слежу за ним здесь.", project.Name))
		return
	}

	// Pin the choice and replay the original command.
	rc.Project = project
	rc.Roles = roles
	if d.Intent != "" {
		b.dispatchCommand(ctx, rc, d.Intent, "")
	}
}

// ── Stage cards ──────────────────────────────────────────────

func (b *Bot) cbOpenStage(ctx context.Context, rc *reqContext, payload string) {
	stageID, ok := parseID(payload)
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) {
		d.ProjectID = stage.ProjectID
		d.StageID = stage.ID
	})
	b.sendHTMLKb(ctx, rc.ChatID, renderStageCard(stage), stageCardKeyboard(stage))
}

// cbStageField arms a one-field edit state for the stage.
func (b *Bot) cbStageField(ctx context.Context, rc *reqContext, payload string, state fsm.State, prompt string) {
	stageID, ok := parseID(payload)
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, stage.ProjectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	perm := domain.PermEditStage
	if state == fsm.StateStageSubstages {
		perm = domain.PermAddSubStages
	}
	if !b.requirePermission(ctx, rc, project, perm) {
		return
	}
	b.deps.States.Set(rc.ChatID, rc.User.ID, state)
	b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) {
		d.ProjectID = stage.ProjectID
		d.StageID = stage.ID
	})
	b.send(ctx, rc.ChatID, fmt.Sprintf("Этап «%s».\n%s", stage.Name, prompt))
}

func (b *Bot) cbStageStatusMenu(ctx context.Context, rc *reqContext, payload string) {
	stageID, ok := parseID(payload)
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.sendHTMLKb(ctx, rc.ChatID,
		fmt.Sprintf("Этап «%s»: %s\nВыберите новый статус:", esc(stage.Name), domain.StatusLabels[stage.Status]),
		stageStatusKeyboard(stage))
}

func (b *Bot) cbSetStageStatus(ctx context.Context, rc *reqContext, parts []string) {
	if len(parts) != 2 {
		return
	}
	status := parts[0]
	stageID, ok := parseID(parts[1])
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, stage.ProjectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermUpdateStatus) {
		return
	}
	updated, err := b.deps.Repo.SetStageStatus(ctx, stageID, &rc.User.ID, status)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if status == domain.StageCompleted {
		b.afterStageCompleted(ctx, rc, project, updated)
		return
	}
	b.sendHTMLKb(ctx, rc.ChatID, renderStageCard(updated), stageCardKeyboard(updated))
}

// cbAdvanceSubStage moves a sub-stage one step forward:
// planned → in_progress → completed.
func (b *Bot) cbAdvanceSubStage(ctx context.Context, rc *reqContext, payload string) {
	subID, ok := parseID(payload)
	if !ok {
		return
	}
	sub, err := b.deps.Repo.GetSubStageByID(ctx, subID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	var next string
	switch sub.Status {
	case domain.StagePlanned:
		next = domain.StageInProgress
	case domain.StageInProgress:
		next = domain.StageCompleted
	default:
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, sub.StageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, stage.ProjectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermUpdateStatus) {
		return
	}
	if _, err := b.deps.Repo.SetSubStageStatus(ctx, subID, next); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	stage, err = b.deps.Repo.GetStageByID(ctx, stage.ID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.sendHTMLKb(ctx, rc.ChatID, renderStageCard(stage), stageCardKeyboard(stage))
}

func (b *Bot) cbConfirmExpense(ctx context.Context, rc *reqContext, parts []string) {
	if len(parts) != 2 {
		return
	}
	projectID, ok1 := parseID(parts[0])
	itemID, ok2 := parseID(parts[1])
	if !ok1 || !ok2 {
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermConfirmBudget) {
		return
	}
	if err := b.deps.Repo.ConfirmBudgetItem(ctx, projectID, itemID, rc.User.ID); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, "Расход подтверждён ✅")
}

func (b *Bot) cbStagePaymentMenu(ctx context.Context, rc *reqContext, payload string) {
	stageID, ok := parseID(payload)
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if len(domain.AllowedPaymentTransitions(stage.PaymentStatus)) == 0 {
		b.send(ctx, rc.ChatID, "Оплата по этапу закрыта.")
		return
	}
	b.sendHTMLKb(ctx, rc.ChatID,
		fmt.Sprintf("Этап «%s»: оплата %s\nВыберите новый статус оплаты:",
			esc(stage.Name), domain.PaymentStatusLabels[stage.PaymentStatus]),
		stagePaymentKeyboard(stage))
}

func (b *Bot) cbSetPaymentStatus(ctx context.Context, rc *reqContext, parts []string) {
	if len(parts) != 2 {
		return
	}
	status := parts[0]
	stageID, ok := parseID(parts[1])
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, stage.ProjectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermConfirmBudget) {
		return
	}
	updated, err := b.deps.Repo.SetPaymentStatus(ctx, stageID, &rc.User.ID, status)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if risk := domain.CheckPaymentRisk(updated.Status, updated.PaymentStatus); risk != "" {
		b.send(ctx, rc.ChatID, risk)
	}
	b.sendHTMLKb(ctx, rc.ChatID, renderStageCard(updated), stageCardKeyboard(updated))
}

func (b *Bot) cbCompleteStage(ctx context.Context, rc *reqContext, payload string) {
	b.cbSetStageStatus(ctx, rc, []string{domain.StageCompleted, payload})
}

// afterStageCompleted either halts at a checkpoint for owner approval
// or auto-advances to the next planned stage.
func (b *Bot) afterStageCompleted(ctx context.Context, rc *reqContext, project *db.Project, stage *db.Stage) {
	if stage.IsCheckpoint {
		owners, err := b.deps.Repo.GetProjectOwnerIDs(ctx, project.ID)
		if err != nil {
			log.Printf("[tg:%d] checkpoint owners: %v", b.tenant.ID, err)
		} else if b.deps.Dispatch != nil {
			n := domain.BuildCheckpointReached(project.ID, project.Name, stage.ID, stage.Name, owners)
			b.deps.Dispatch.Dispatch(ctx, n)
		}
		b.send(ctx, rc.ChatID, fmt.Sprintf(
			"✅ Этап «%s» завершён. Это контрольная точка: работы приостановлены до приёмки владельцем.",
			stage.Name))
		return
	}

	next, err := b.deps.Repo.GetNextPlannedStage(ctx, project.ID, stage.Order)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.send(ctx, rc.ChatID, fmt.Sprintf("✅ Этап «%s» завершён. Запланированных этапов больше нет 🎉", stage.Name))
			return
		}
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	started, err := b.deps.Repo.SetStageStatus(ctx, next.ID, &rc.User.ID, domain.StageInProgress)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("✅ Этап «%s» завершён. Следующий этап «%s» запущен.",
		stage.Name, started.Name))
}

// ── Checkpoint approval ──────────────────────────────────────

func (b *Bot) cbCheckpointDecision(ctx context.Context, rc *reqContext, parts []string) {
	if len(parts) != 2 {
		return
	}
	decision := parts[0]
	stageID, ok := parseID(parts[1])
	if !ok {
		return
	}
	stage, err := b.deps.Repo.GetStageByID(ctx, stageID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, stage.ProjectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermApproveCheckpoint) {
		return
	}

	switch decision {
	case "approve":
		var nextName string
		next, err := b.deps.Repo.GetNextPlannedStage(ctx, project.ID, stage.Order)
		if err == nil {
			if _, err := b.deps.Repo.SetStageStatus(ctx, next.ID, &rc.User.ID, domain.StageInProgress); err != nil {
				b.replyError(ctx, rc.ChatID, err)
				return
			}
			nextName = next.Name
		} else if !errors.Is(err, domain.ErrNotFound) {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		b.notifyProjectRoles(ctx, project,
			domain.BuildCheckpointApproved(project.ID, project.Name, stage.ID, stage.Name, nextName, nil))
		if nextName == "" {
			b.send(ctx, rc.ChatID, fmt.Sprintf("✅ Контрольная точка «%s» принята. Все этапы завершены 🎉", stage.Name))
		} else {
			b.send(ctx, rc.ChatID, fmt.Sprintf("✅ Контрольная точка «%s» принята. Этап «%s» запущен.", stage.Name, nextName))
		}

	case "reject":
		if _, err := b.deps.Repo.SetStageStatus(ctx, stage.ID, &rc.User.ID, domain.StageDelayed); err != nil {
			b.replyError(ctx, rc.ChatID, err)
			return
		}
		b.notifyProjectRoles(ctx, project,
			domain.BuildCheckpointRejected(project.ID, project.Name, stage.ID, stage.Name, nil))
		b.send(ctx, rc.ChatID, fmt.Sprintf("❌ Контрольная точка «%s» отклонена. Этап помечен задержкой, нужны исправления.", stage.Name))
	}
}

// notifyProjectRoles fills the recipient list from the type's role map
// and dispatches across adapters.
func (b *Bot) notifyProjectRoles(ctx context.Context, project *db.Project, n domain.Notification) {
	if b.deps.Dispatch == nil {
		return
	}
	roles, ok := domain.NotificationRecipients[n.Type]
	if !ok {
		return
	}
	ids, err := b.deps.Repo.GetProjectUserIDsByRoles(ctx, project.ID, roles)
	if err != nil {
		log.Printf("[tg:%d] notification recipients: %v", b.tenant.ID, err)
		return
	}
	n.RecipientIDs = ids
	b.deps.Dispatch.Dispatch(ctx, n)
}

// ── Team ─────────────────────────────────────────────────────

func (b *Bot) cbRemoveTeamMember(ctx context.Context, rc *reqContext, parts []string) {
	if len(parts) != 2 {
		return
	}
	projectID, ok1 := parseID(parts[0])
	userID, ok2 := parseID(parts[1])
	if !ok1 || !ok2 {
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermInviteMember) {
		return
	}
	if err := b.deps.Repo.RemoveUserFromProject(ctx, projectID, userID); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, "Участник удалён из проекта.")
}

// ── Invite flow ──────────────────────────────────────────────

func (b *Bot) cbPickInviteRole(ctx context.Context, rc *reqContext, role string) {
	if b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateInviteRole {
		return
	}
	if !domain.ValidRole(role) || role == string(domain.RoleOwner) {
		return
	}
	b.deps.States.SetField(rc.ChatID, rc.User.ID, "role", role)
	b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StateInviteContact)
	b.send(ctx, rc.ChatID, "Имя и контакт участника, например «Ерлан, +7 701 123 45 67».")
}

func (b *Bot) cbInviteDecision(ctx context.Context, rc *reqContext, decision string) {
	if b.deps.States.State(rc.ChatID, rc.User.ID) != fsm.StateInviteConfirm {
		return
	}
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	b.deps.States.Clear(rc.ChatID, rc.User.ID)

	if decision != "yes" {
		b.send(ctx, rc.ChatID, "Приглашение отменено.")
		return
	}
	role := domain.Role(d.Fields["role"])
	contact := d.Fields["contact"]
	if d.ProjectID == 0 || contact == "" || !domain.ValidRole(string(role)) {
		return
	}
	user, err := b.deps.Repo.CreatePlaceholderUser(ctx, contact)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if err := b.deps.Repo.AssignRole(ctx, d.ProjectID, user.ID, role); err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf(
		"✅ %s добавлен(а) в проект как %s. Когда участник напишет боту /start, профили объединятся.",
		contact, domain.RoleLabels[role]))
}

// ── Launch ───────────────────────────────────────────────────

func (b *Bot) cbLaunchCheck(ctx context.Context, rc *reqContext) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	projectID := d.ProjectID
	if projectID == 0 && rc.Project != nil {
		projectID = rc.Project.ID
	}
	if projectID == 0 {
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermLaunchProject) {
		return
	}
	b.showLaunchCheck(ctx, rc, projectID)
}

func (b *Bot) cbLaunchConfirmed(ctx context.Context, rc *reqContext) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	projectID := d.ProjectID
	if projectID == 0 && rc.Project != nil {
		projectID = rc.Project.ID
	}
	if projectID == 0 {
		return
	}
	project, err := b.deps.Repo.GetProjectWithStages(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	if !b.requirePermission(ctx, rc, project, domain.PermLaunchProject) {
		return
	}
	if ready, _ := domain.ValidateLaunchReadiness(project); !ready {
		b.send(ctx, rc.ChatID, "Проект ещё не готов к запуску, проверьте /launch.")
		return
	}
	var first *db.Stage
	for i := range project.Stages {
		st := &project.Stages[i]
		if !st.IsParallel && st.Status == domain.StagePlanned {
			first = st
			break
		}
	}
	if first == nil {
		b.send(ctx, rc.ChatID, "Нет запланированных этапов для запуска.")
		return
	}
	started, err := b.deps.Repo.SetStageStatus(ctx, first.ID, &rc.User.ID, domain.StageInProgress)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.send(ctx, rc.ChatID, fmt.Sprintf("🚀 Проект «%s» запущен! Этап «%s» в работе.",
		project.Name, started.Name))
}

func (b *Bot) cbBackToStages(ctx context.Context, rc *reqContext) {
	d := b.deps.States.Data(rc.ChatID, rc.User.ID)
	projectID := d.ProjectID
	if projectID == 0 && rc.Project != nil {
		projectID = rc.Project.ID
	}
	if projectID == 0 {
		return
	}
	project, err := b.deps.Repo.GetProjectByID(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	stages, err := b.deps.Repo.GetProjectStages(ctx, projectID)
	if err != nil {
		b.replyError(ctx, rc.ChatID, err)
		return
	}
	b.sendHTMLKb(ctx, rc.ChatID,
		fmt.Sprintf("🗂 <b>Этапы: %s</b>\nВыберите этап для настройки:", esc(project.Name)),
		stageListKeyboard(stages))
}
