package services

import "strings"

type PaymentOption string

const (
	PaymentOptionFull   PaymentOption = "FULL"
	PaymentOptionHalf   PaymentOption = "HALF"
	PaymentOptionCustom PaymentOption = "CUSTOM"
)

// CalculateAmount resolves the amount to charge for a payment option. An
// unknown option charges the full fee.
func CalculateAmount(option PaymentOption, customAmount, fullAmount int64) (int64, error) {
	switch PaymentOption(strings.ToUpper(string(option))) {
	case PaymentOptionHalf:
		return fullAmount / 2, nil
	case PaymentOptionCustom:
		if customAmount <= 0 {
			return 0, validationErr("Please enter a valid custom amount greater than 0")
		}
		return customAmount, nil
	default:
		return fullAmount, nil
	}
}
