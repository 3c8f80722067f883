package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// Callback data prefixes. Payloads are colon-separated ids after the
// prefix; total length must stay within Telegram's 64-byte limit.
const (
	cbRenovationType = "rtype:"      // rtype:<type>
	cbCoordinates    = "coord:"      // coord:<custom item key>
	cbYesNo          = "yn:"         // yn:yes | yn:no
	cbCustomItem     = "custom:"     // custom:<key> toggles selection
	cbConfirm        = "confirm:"    // confirm:create | confirm:cancel
	cbProjectSelect  = "prjsel:"     // prjsel:<project_id>
	cbStage          = "stg:"        // stg:<stage_id> opens stage card
	cbStageDates     = "stgdt:"      // stgdt:<stage_id>
	cbStagePerson    = "stgprs:"     // stgprs:<stage_id>
	cbStageBudget    = "stgbdg:"     // stgbdg:<stage_id>
	cbStageSubstages = "stgsub:"     // stgsub:<stage_id>
	cbStageChgStatus = "stgchst:"    // stgchst:<stage_id>
	cbStagePayMenu   = "stgpay:"     // stgpay:<stage_id>
	cbStageSetPay    = "paysts:"     // paysts:<status>:<stage_id>
	cbStageSetStatus = "stgsts:"     // stgsts:<status>:<stage_id>
	cbStageComplete  = "stgcomplete:" // stgcomplete:<stage_id>
	cbCheckpoint     = "chkpt:"      // chkpt:approve:<stage_id> | chkpt:reject:<stage_id>
	cbRole           = "role:"       // role:<role>
	cbInvite         = "inv:"        // inv:yes | inv:cancel
	cbTeamRemove     = "tmrm:"       // tmrm:<project_id>:<user_id>
	cbExpenseOK      = "bdgok:"      // bdgok:<project_id>:<item_id>
	cbSubStage       = "subtg:"      // subtg:<substage_id> advances one step
	cbLaunch         = "launch"      // readiness check
	cbLaunchYes      = "launch_yes"  // confirmed launch
	cbStageBack      = "stgback"     // back to stage list
)

func btn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func keyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// renovationTypeKeyboard offers the four renovation types.
func renovationTypeKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{
			btn("Косметический", cbRenovationType+domain.RenovationCosmetic),
			btn("Стандартный", cbRenovationType+domain.RenovationStandard),
		},
		[]models.InlineKeyboardButton{
			btn("Капитальный", cbRenovationType+domain.RenovationMajor),
			btn("Дизайнерский", cbRenovationType+domain.RenovationDesigner),
		},
	)
}

// customItemsKeyboard toggles mebel selections; chosen keys get a check
// mark. The done row confirms.
func customItemsKeyboard(selected map[string]bool) *models.InlineKeyboardMarkup {
	order := []string{"kitchen", "wardrobes", "walkin", "doors"}
	var rows [][]models.InlineKeyboardButton
	for _, key := range order {
		label := domain.CustomItemLabels[key]
		if selected[key] {
			label = "✅ " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{btn(label, cbCustomItem+key)})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		btn("Готово", cbConfirm+"create"),
		btn("Отмена", cbConfirm+"cancel"),
	})
	return keyboard(rows...)
}

// yesNoKeyboard is the generic binary choice.
func yesNoKeyboard() *models.InlineKeyboardMarkup {
	return keyboard([]models.InlineKeyboardButton{
		btn("Да", cbYesNo+"yes"),
		btn("Нет", cbYesNo+"no"),
	})
}

// projectPickerKeyboard lists the user's projects, one per row.
func projectPickerKeyboard(projects []db.Project) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, p := range projects {
		rows = append(rows, []models.InlineKeyboardButton{
			btn(p.Name, fmt.Sprintf("%s%d", cbProjectSelect, p.ID)),
		})
	}
	return keyboard(rows...)
}

// stageListKeyboard shows every stage with its status icon.
func stageListKeyboard(stages []db.Stage) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, st := range stages {
		label := fmt.Sprintf("%s %s", domain.StatusIcons[st.Status], st.Name)
		rows = append(rows, []models.InlineKeyboardButton{
			btn(label, fmt.Sprintf("%s%d", cbStage, st.ID)),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{btn("🚀 Запуск проекта", cbLaunch)})
	return keyboard(rows...)
}

// stageCardKeyboard is the per-stage action menu.
func stageCardKeyboard(stage *db.Stage) *models.InlineKeyboardMarkup {
	id := strconv.FormatInt(stage.ID, 10)
	rows := [][]models.InlineKeyboardButton{
		{
			btn("📅 Сроки", cbStageDates+id),
			btn("👤 Ответственный", cbStagePerson+id),
		},
		{
			btn("💰 Бюджет", cbStageBudget+id),
			btn("📋 Подэтапы", cbStageSubstages+id),
		},
		{
			btn("🔄 Статус", cbStageChgStatus+id),
			btn("💳 Оплата", cbStagePayMenu+id),
		},
	}
	if stage.Status == domain.StageInProgress {
		rows = append(rows, []models.InlineKeyboardButton{
			btn("✅ Завершить этап", cbStageComplete+id),
		})
	}
	// One tap per open substage advances it a step.
	for _, sub := range stage.SubStages {
		if sub.Status == domain.StageCompleted || len(rows) >= 10 {
			continue
		}
		label := sub.Name
		if r := []rune(label); len(r) > 28 {
			label = string(r[:28]) + "…"
		}
		rows = append(rows, []models.InlineKeyboardButton{
			btn(domain.StatusIcons[sub.Status]+" "+label, cbSubStage+strconv.FormatInt(sub.ID, 10)),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{btn("⬅️ К списку этапов", cbStageBack)})
	return keyboard(rows...)
}

// stageStatusKeyboard offers only the transitions legal from the current
// status.
func stageStatusKeyboard(stage *db.Stage) *models.InlineKeyboardMarkup {
	id := strconv.FormatInt(stage.ID, 10)
	var rows [][]models.InlineKeyboardButton
	for _, status := range []string{domain.StagePlanned, domain.StageInProgress, domain.StageCompleted, domain.StageDelayed} {
		if !domain.ValidStageTransition(stage.Status, status) {
			continue
		}
		label := fmt.Sprintf("%s %s", domain.StatusIcons[status], domain.StatusLabels[status])
		rows = append(rows, []models.InlineKeyboardButton{
			btn(label, fmt.Sprintf("%s%s:%s", cbStageSetStatus, status, id)),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{btn("⬅️ Назад", cbStage+id)})
	return keyboard(rows...)
}

// expenseConfirmKeyboard offers one confirm button per unconfirmed
// expense, labelled by its description or category.
func expenseConfirmKeyboard(projectID int64, items []db.BudgetItem) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, it := range items {
		label := domain.CategoryLabel(it.Category)
		if it.Description != nil && *it.Description != "" {
			label = *it.Description
		}
		if r := []rune(label); len(r) > 24 {
			label = string(r[:24]) + "…"
		}
		rows = append(rows, []models.InlineKeyboardButton{
			btn("☑️ "+label, fmt.Sprintf("%s%d:%d", cbExpenseOK, projectID, it.ID)),
		})
	}
	return keyboard(rows...)
}

// stagePaymentKeyboard offers only the payment moves legal from the
// current payment status.
func stagePaymentKeyboard(stage *db.Stage) *models.InlineKeyboardMarkup {
	id := strconv.FormatInt(stage.ID, 10)
	var rows [][]models.InlineKeyboardButton
	for _, status := range domain.AllowedPaymentTransitions(stage.PaymentStatus) {
		rows = append(rows, []models.InlineKeyboardButton{
			btn(domain.PaymentStatusLabels[status], fmt.Sprintf("%s%s:%s", cbStageSetPay, status, id)),
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{btn("⬅️ Назад", cbStage+id)})
	return keyboard(rows...)
}

// checkpointKeyboard is sent to the owner when a checkpoint completes.
func checkpointKeyboard(stageID int64) *models.InlineKeyboardMarkup {
	id := strconv.FormatInt(stageID, 10)
	return keyboard([]models.InlineKeyboardButton{
		btn("✅ Принять", cbCheckpoint+"approve:"+id),
		btn("❌ Отклонить", cbCheckpoint+"reject:"+id),
	})
}

// rolePickerKeyboard lists assignable roles for the invite flow.
func rolePickerKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, role := range domain.AssignableRoles {
		rows = append(rows, []models.InlineKeyboardButton{
			btn(domain.RoleLabels[role], cbRole+string(role)),
		})
	}
	return keyboard(rows...)
}

// inviteConfirmKeyboard closes the invitation flow.
func inviteConfirmKeyboard() *models.InlineKeyboardMarkup {
	return keyboard([]models.InlineKeyboardButton{
		btn("✅ Пригласить", cbInvite+"yes"),
		btn("❌ Отмена", cbInvite+"cancel"),
	})
}

// teamRemoveKeyboard offers removal buttons for every non-owner member.
func teamRemoveKeyboard(projectID int64, team []db.User) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, u := range team {
		rows = append(rows, []models.InlineKeyboardButton{
			btn("🗑 "+u.FullName, fmt.Sprintf("%s%d:%d", cbTeamRemove, projectID, u.ID)),
		})
	}
	return keyboard(rows...)
}

// launchConfirmKeyboard confirms project launch after the readiness
// check.
func launchConfirmKeyboard() *models.InlineKeyboardMarkup {
	return keyboard([]models.InlineKeyboardButton{
		btn("🚀 Запустить", cbLaunchYes),
		btn("Отмена", cbStageBack),
	})
}

// splitCallback separates the prefix payload into its colon fields.
func splitCallback(data, prefix string) []string {
	return strings.Split(strings.TrimPrefix(data, prefix), ":")
}
