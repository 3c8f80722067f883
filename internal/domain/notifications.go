package domain

import (
	"fmt"
	"time"
)

// NotificationType identifies what happened.
type NotificationType string

const (
	NotifyDeadlineApproaching NotificationType = "deadline_approaching"
	NotifyDeadlineOverdue     NotificationType = "deadline_overdue"
	NotifyStageStartingSoon   NotificationType = "stage_starting_soon"
	NotifyStatusUpdateRequest NotificationType = "status_update_request"
	NotifyCheckpointReached   NotificationType = "checkpoint_reached"
	NotifyCheckpointApproved  NotificationType = "checkpoint_approved"
	NotifyCheckpointRejected  NotificationType = "checkpoint_rejected"
	NotifyFurnitureReminder   NotificationType = "furniture_order_reminder"
	NotifyOverspendingAlert   NotificationType = "overspending_alert"
	NotifyBudgetWarning       NotificationType = "budget_warning"
	NotifyWeeklyReport        NotificationType = "weekly_report"
)

// Notification is a platform-agnostic message ready to be delivered.
// Adapters translate it into actual platform messages; the body is plain
// text unless IsHTML is set.
type Notification struct {
	Type         NotificationType
	ProjectID    int64
	ProjectName  string
	Title        string
	Body         string
	RecipientIDs []int64
	StageID      int64
	StageName    string
	IsHTML       bool
	WithButtons  bool // checkpoint notifications carry approve/reject buttons
	CreatedAt    time.Time
}

// NotificationRecipients maps each type to the roles that receive it.
// status_update_request has no entry: its recipient is the responsible
// person, resolved dynamically.
var NotificationRecipients = map[NotificationType][]Role{
	NotifyDeadlineApproaching: {RoleOwner, RoleCoOwner, RoleForeman},
	NotifyDeadlineOverdue:     {RoleOwner, RoleCoOwner, RoleForeman},
	NotifyStageStartingSoon:   {RoleOwner, RoleForeman},
	NotifyCheckpointReached:   {RoleOwner, RoleCoOwner},
	NotifyCheckpointApproved:  {RoleOwner, RoleForeman, RoleCoOwner},
	NotifyCheckpointRejected:  {RoleOwner, RoleForeman, RoleCoOwner},
	NotifyFurnitureReminder:   {RoleOwner, RoleCoOwner, RoleForeman, RoleDesigner},
	NotifyOverspendingAlert:   {RoleOwner, RoleCoOwner},
	NotifyBudgetWarning:       {RoleOwner, RoleCoOwner},
	NotifyWeeklyReport:        {RoleOwner, RoleCoOwner},
}

// ── Builders ─────────────────────────────────────────────────

func newNotification(typ NotificationType, projectID int64, projectName, title, body string, recipients []int64) Notification {
	return Notification{
		Type:         typ,
		ProjectID:    projectID,
		ProjectName:  projectName,
		Title:        title,
		Body:         body,
		RecipientIDs: recipients,
		CreatedAt:    time.Now().UTC(),
	}
}

// BuildDeadlineApproaching warns one day before a stage's end date.
func BuildDeadlineApproaching(projectID int64, projectName string, stageID int64,
	stageName string, endDate time.Time, responsible string, recipients []int64) Notification {

	body := fmt.Sprintf("Этап «%s» проекта «%s» завершается завтра (%s).",
		stageName, projectName, endDate.Format(DateFormat))
	if responsible != "" {
		body += "\nОтветственный: " + responsible
	}
	n := newNotification(NotifyDeadlineApproaching, projectID, projectName,
		"Срок завершения: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildStageStartingSoon reminds about a planned stage whose start
// date is about to arrive.
func BuildStageStartingSoon(projectID int64, projectName string, stageID int64,
	stageName string, startDate time.Time, responsible string, recipients []int64) Notification {

	body := fmt.Sprintf("Этап «%s» проекта «%s» стартует %s.",
		stageName, projectName, startDate.Format(DateFormat))
	if responsible != "" {
		body += "\nОтветственный: " + responsible
	} else {
		body += "\nОтветственный пока не назначен."
	}
	n := newNotification(NotifyStageStartingSoon, projectID, projectName,
		"Скоро старт: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildDeadlineOverdue alerts about a stage past its end date.
func BuildDeadlineOverdue(projectID int64, projectName string, stageID int64,
	stageName string, endDate time.Time, daysOverdue int, responsible string,
	recipients []int64) Notification {

	body := fmt.Sprintf("Этап «%s» проекта «%s» просрочен!\nДедлайн был: %s (просрочка: %d дн.)",
		stageName, projectName, endDate.Format(DateFormat), daysOverdue)
	if responsible != "" {
		body += "\nОтветственный: " + responsible
	}
	n := newNotification(NotifyDeadlineOverdue, projectID, projectName,
		"Просрочка: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildStatusUpdateRequest asks the responsible person how the stage is
// going.
func BuildStatusUpdateRequest(projectID int64, projectName string, stageID int64,
	stageName string, recipients []int64) Notification {

	body := fmt.Sprintf("Как продвигается этап «%s» проекта «%s»?\nПожалуйста, обновите статус работ.",
		stageName, projectName)
	n := newNotification(NotifyStatusUpdateRequest, projectID, projectName,
		"Запрос статуса: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildCheckpointReached asks the owner for approval after a checkpoint
// stage completes.
func BuildCheckpointReached(projectID int64, projectName string, stageID int64,
	stageName string, ownerIDs []int64) Notification {

	body := fmt.Sprintf("Этап «%s» проекта «%s» завершён.\n"+
		"Это контрольная точка — требуется ваше одобрение перед переходом к следующему этапу.\n\n"+
		"Рекомендуется вызвать эксперта для проверки качества.",
		stageName, projectName)
	n := newNotification(NotifyCheckpointReached, projectID, projectName,
		"Контрольная точка: "+stageName, body, ownerIDs)
	n.StageID = stageID
	n.StageName = stageName
	n.WithButtons = true
	return n
}

// BuildCheckpointApproved tells the team work may continue.
func BuildCheckpointApproved(projectID int64, projectName string, stageID int64,
	stageName, nextStageName string, recipients []int64) Notification {

	body := fmt.Sprintf("Контрольная точка «%s» проекта «%s» принята владельцем.",
		stageName, projectName)
	if nextStageName != "" {
		body += fmt.Sprintf("\nСледующий этап «%s» запущен.", nextStageName)
	}
	n := newNotification(NotifyCheckpointApproved, projectID, projectName,
		"Контрольная точка принята: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildCheckpointRejected tells the team the stage needs rework.
func BuildCheckpointRejected(projectID int64, projectName string, stageID int64,
	stageName string, recipients []int64) Notification {

	body := fmt.Sprintf("Контрольная точка «%s» проекта «%s» отклонена владельцем.\n"+
		"Этап возвращён в работу с отметкой о задержке, требуются исправления.",
		stageName, projectName)
	n := newNotification(NotifyCheckpointRejected, projectID, projectName,
		"Контрольная точка отклонена: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildFurnitureReminder reminds to place a furniture order ahead of the
// installation date.
func BuildFurnitureReminder(projectID int64, projectName string, stageID int64,
	stageName string, installDate time.Time, daysUntil int, recipients []int64) Notification {

	body := fmt.Sprintf("Напоминание: этап «%s» проекта «%s».\n"+
		"До монтажа мебели осталось %d дн. (дата: %s).\n"+
		"Убедитесь, что заказ размещён и производство запущено.",
		stageName, projectName, daysUntil, installDate.Format(DateFormat))
	n := newNotification(NotifyFurnitureReminder, projectID, projectName,
		"Заказ мебели: "+stageName, body, recipients)
	n.StageID = stageID
	n.StageName = stageName
	return n
}

// BuildOverspendingAlert fires when spending exceeds the budget.
func BuildOverspendingAlert(projectID int64, projectName string,
	currentTotal, budgetLimit, overspendPct float64, ownerIDs []int64) Notification {

	body := fmt.Sprintf("Общий бюджет проекта «%s» превышен!\n"+
		"Текущие расходы: %s ₸ / Бюджет: %s ₸ (+%.0f%%)",
		projectName, FormatAmount(currentTotal), FormatAmount(budgetLimit), overspendPct)
	return newNotification(NotifyOverspendingAlert, projectID, projectName,
		"Превышение бюджета: "+projectName, body, ownerIDs)
}

// BuildBudgetWarning fires when budget usage reaches 90%.
func BuildBudgetWarning(projectID int64, projectName string,
	currentTotal, budgetLimit, usagePct float64, ownerIDs []int64) Notification {

	body := fmt.Sprintf("Бюджет проекта «%s» использован на %.0f%%.\nРасходы: %s ₸ / Бюджет: %s ₸",
		projectName, usagePct, FormatAmount(currentTotal), FormatAmount(budgetLimit))
	return newNotification(NotifyBudgetWarning, projectID, projectName,
		"Бюджет на исходе: "+projectName, body, ownerIDs)
}

// BuildWeeklyReportNotification wraps a rendered weekly report.
func BuildWeeklyReportNotification(projectID int64, projectName, reportText string,
	ownerIDs []int64) Notification {

	n := newNotification(NotifyWeeklyReport, projectID, projectName,
		"Еженедельный отчёт: "+projectName, reportText, ownerIDs)
	n.IsHTML = true
	return n
}
