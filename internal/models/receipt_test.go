package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReceipt() Receipt {
	return Receipt{
		Date:   "10/03/2025",
		Client: "Juan Perez",
		Total:  dec("1000"),
		Retentions: map[string]decimal.Decimal{
			RetentionIIBB: dec("30"),
			RetentionSUSS: dec("20"),
		},
		Payments: []Payment{
			{Type: "Transferencia", Amount: dec("900")},
			{Type: "Cheque", Number: "123", Bank: "Nación", Amount: dec("50")},
		},
	}
}

func TestTotals(t *testing.T) {
	r := sampleReceipt()
	assert.True(t, r.RetentionTotal().Equal(dec("50")))
	assert.True(t, r.Net().Equal(dec("950")))
	assert.True(t, r.PaymentsTotal().Equal(dec("950")))
	assert.False(t, r.PaymentsMismatch())

	r.Payments[1].Amount = dec("50.02")
	assert.True(t, r.PaymentsMismatch())
	r.Payments[1].Amount = dec("50.01")
	assert.False(t, r.PaymentsMismatch())

	r.Retentions[RetentionGanancias] = dec("5000")
	assert.True(t, r.Net().IsZero())
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	r := sampleReceipt()
	assert.NoError(t, r.Validate(now))

	r.Date = ""
	assert.ErrorIs(t, r.Validate(now), ErrDateRequired)

	r = sampleReceipt()
	r.Client = "  "
	assert.ErrorIs(t, r.Validate(now), ErrClientRequired)

	r = sampleReceipt()
	r.Date = "2025-03-10"
	assert.ErrorIs(t, r.Validate(now), ErrInvalidDate)

	r.Date = "11/03/2025"
	assert.ErrorIs(t, r.Validate(now), ErrFutureDate)

	r = sampleReceipt()
	r.Total = dec("-1")
	assert.ErrorIs(t, r.Validate(now), ErrNegativeAmount)
}

func TestNormalize(t *testing.T) {
	r := Receipt{Client: " ACME  "}
	r.Normalize()
	assert.Equal(t, "ACME", r.Client)
	assert.Len(t, r.Retentions, 4)
	assert.True(t, r.Retentions[RetentionTEM].IsZero())
	assert.NotNil(t, r.Payments)
}

func TestAmountsMarshalAsNumbers(t *testing.T) {
	r := Receipt{Total: dec("1500.50")}
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"total":1500.5`)

	var back Receipt
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Total.Equal(r.Total))
}
