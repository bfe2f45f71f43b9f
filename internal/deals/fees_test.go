package deals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardFees(t *testing.T) {
	fb := CardFees(100)
	assert.Equal(t, 100.0, fb.BaseAmount)
	assert.InDelta(t, 2.65, fb.Fees, 1e-9)
	assert.InDelta(t, 102.65, fb.Total, 1e-9)
}

func TestPayPalFees(t *testing.T) {
	domestic := PayPalFees(100, false)
	assert.InDelta(t, 3.38, domestic.Fees, 1e-9)
	assert.InDelta(t, 103.38, domestic.Total, 1e-9)

	international := PayPalFees(100, true)
	assert.InDelta(t, 4.88, international.Fees, 1e-9)
	assert.Greater(t, international.Fees, domestic.Fees)
}

func TestComparePaymentMethods(t *testing.T) {
	methods := ComparePaymentMethods(50)
	assert.Len(t, methods, 3)
	assert.Contains(t, methods, "card")
	assert.Contains(t, methods, "paypal_domestic")
	assert.Contains(t, methods, "paypal_international")

	// Card is the cheapest rail at this amount.
	assert.Less(t, methods["card"].Fees, methods["paypal_domestic"].Fees)
	assert.Less(t, methods["paypal_domestic"].Fees, methods["paypal_international"].Fees)
}
