package domain

import "strings"

// Payment statuses for a stage's payment lifecycle.
const (
	PaymentRecorded   = "recorded"
	PaymentInProgress = "in_progress"
	PaymentVerified   = "verified"
	PaymentPaid       = "paid"
	PaymentClosed     = "closed"
)

// PaymentStatusLabels are Russian display labels.
var PaymentStatusLabels = map[string]string{
	PaymentRecorded:   "📝 Записано",
	PaymentInProgress: "🔄 В процессе",
	PaymentVerified:   "✅ Проверено",
	PaymentPaid:       "💸 Оплачено",
	PaymentClosed:     "🔒 Закрыто",
}

// paymentTransitions: forward steps plus single-step rollbacks; closed is
// terminal.
var paymentTransitions = map[string][]string{
	PaymentRecorded:   {PaymentInProgress},
	PaymentInProgress: {PaymentVerified, PaymentRecorded},
	PaymentVerified:   {PaymentPaid, PaymentInProgress},
	PaymentPaid:       {PaymentClosed, PaymentVerified},
	PaymentClosed:     {},
}

// AllowedPaymentTransitions returns the statuses reachable from current.
func AllowedPaymentTransitions(current string) []string {
	return paymentTransitions[current]
}

// ValidatePaymentTransition checks a payment status change. The returned
// error carries a user-facing hint listing the allowed next statuses.
func ValidatePaymentTransition(current, next string) error {
	for _, allowed := range paymentTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	var labels []string
	for _, s := range paymentTransitions[current] {
		labels = append(labels, PaymentStatusLabels[s])
	}
	return Validationf("нельзя перейти из %s в %s. Допустимые переходы: %s",
		PaymentStatusLabels[current], PaymentStatusLabels[next],
		strings.Join(labels, ", "))
}

// CheckPaymentRisk returns an advisory for risky stage/payment status
// combinations, or "" when there is nothing to warn about.
func CheckPaymentRisk(stageStatus, paymentStatus string) string {
	if paymentStatus == PaymentPaid && stageStatus != StageCompleted {
		return "⚠️ ВНИМАНИЕ: оплата произведена, но этап ещё не завершён!\n" +
			"Рекомендуется завершить и проверить работу перед оплатой."
	}
	if paymentStatus == PaymentPaid {
		return "💡 Совет: перед оплатой рекомендуется вызвать эксперта " +
			"для проверки качества работ."
	}
	if stageStatus == StageCompleted && paymentStatus == PaymentRecorded {
		return "ℹ️ Этап завершён, но оплата ещё не оформлена.\n" +
			"Не забудьте записать расходы."
	}
	return ""
}
