package payment_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"paystack-service/internal/payment"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		rate     string
		expected int64
	}{
		{name: "Whole amount", total: "50.00", rate: "1", expected: 5000},
		{name: "Rounds up at half", total: "10.005", rate: "1", expected: 1001},
		{name: "Rounds down", total: "10.004", rate: "1", expected: 1000},
		{name: "Converted by rate", total: "12.34", rate: "1550.5", expected: 1913317},
		{name: "Carry into units", total: "19.999", rate: "1", expected: 2000},
		{name: "Zero rate means base currency", total: "7.50", rate: "0", expected: 750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payment.MinorUnits(decimal.RequireFromString(tt.total), decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReconcile(t *testing.T) {
	assert.True(t, payment.Reconcile(5000, 5000))
	assert.False(t, payment.Reconcile(5000, 4999))
	assert.False(t, payment.Reconcile(5000, 5001))
	assert.False(t, payment.Reconcile(5000, 0))
}
