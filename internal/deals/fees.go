// Package deals computes acquisition economics: transaction fees and
// the expected value of grading a raw card.
package deals

// Transaction fee rates for the supported payment rails.
const (
	CardTransactionRate = 0.0235
	CardFixedFee        = 0.30

	PayPalTransactionRate = 0.0289
	PayPalFixedFee        = 0.49
	PayPalCrossBorderRate = 0.015
)

// FeeBreakdown is the cost of moving an amount through a payment rail.
type FeeBreakdown struct {
	BaseAmount float64 `json:"base_amount"`
	Fees       float64 `json:"fees"`
	Total      float64 `json:"total"`
}

// CardFees computes fees for a direct card payment.
func CardFees(amount float64) FeeBreakdown {
	fee := amount*CardTransactionRate + CardFixedFee
	return FeeBreakdown{BaseAmount: amount, Fees: fee, Total: amount + fee}
}

// PayPalFees computes PayPal fees, with the cross-border surcharge when
// the transaction is international.
func PayPalFees(amount float64, international bool) FeeBreakdown {
	fee := amount*PayPalTransactionRate + PayPalFixedFee
	if international {
		fee += amount * PayPalCrossBorderRate
	}
	return FeeBreakdown{BaseAmount: amount, Fees: fee, Total: amount + fee}
}

// ComparePaymentMethods returns the fee breakdown for each rail so a buyer
// can pick the cheapest.
func ComparePaymentMethods(amount float64) map[string]FeeBreakdown {
	return map[string]FeeBreakdown{
		"card":                 CardFees(amount),
		"paypal_domestic":      PayPalFees(amount, false),
		"paypal_international": PayPalFees(amount, true),
	}
}
