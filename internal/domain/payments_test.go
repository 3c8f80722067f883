package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePaymentTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{PaymentRecorded, PaymentInProgress, true},
		{PaymentInProgress, PaymentVerified, true},
		{PaymentVerified, PaymentPaid, true},
		{PaymentPaid, PaymentClosed, true},

		// single-step rollbacks
		{PaymentInProgress, PaymentRecorded, true},
		{PaymentVerified, PaymentInProgress, true},
		{PaymentPaid, PaymentVerified, true},

		// skips forbidden
		{PaymentRecorded, PaymentVerified, false},
		{PaymentRecorded, PaymentPaid, false},
		{PaymentInProgress, PaymentPaid, false},

		// closed is terminal
		{PaymentClosed, PaymentPaid, false},
		{PaymentClosed, PaymentRecorded, false},

		// multi-step rollback forbidden
		{PaymentPaid, PaymentRecorded, false},
		{PaymentVerified, PaymentRecorded, false},
	}

	for _, tt := range tests {
		err := ValidatePaymentTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrValidation, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestAllowedPaymentTransitions(t *testing.T) {
	assert.Empty(t, AllowedPaymentTransitions(PaymentClosed))
	assert.ElementsMatch(t,
		[]string{PaymentClosed, PaymentVerified},
		AllowedPaymentTransitions(PaymentPaid))
}

func TestCheckPaymentRisk(t *testing.T) {
	assert.Contains(t, CheckPaymentRisk(StageInProgress, PaymentPaid), "не завершён")
	assert.Contains(t, CheckPaymentRisk(StageCompleted, PaymentPaid), "эксперта")
	assert.Contains(t, CheckPaymentRisk(StageCompleted, PaymentRecorded), "не оформлена")
	assert.Empty(t, CheckPaymentRisk(StageInProgress, PaymentRecorded))
}
