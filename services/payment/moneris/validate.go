package moneris

import (
	"donation-checkout-api/models"
	"donation-checkout-api/services/payment"
	"donation-checkout-api/utils"
)

const (
	ErrorCodeMoneris = "moneris_error"
	ErrorCodeAmount  = "invalid_amount"
	ErrorCodeDate    = "invalid_date"
	ErrorCodeCard    = "invalid_card"
	ErrorCodeExpiry  = "invalid_expiry"

	InvalidPeriodMessage = "Invalid recurring period. Valid options: day, week, month."
)

// Validate returns every problem with the input, in a stable order. An empty
// result means the checkout may proceed.
func Validate(input models.CheckoutInput) []models.DonorError {
	var errs []models.DonorError

	if !IsValidPeriod(input.Period) {
		errs = append(errs, models.DonorError{Code: ErrorCodeMoneris, Message: InvalidPeriodMessage})
	}

	if _, err := utils.FormatAmount(input.Price); err != nil {
		errs = append(errs, models.DonorError{Code: ErrorCodeAmount, Message: "Please enter a valid donation amount."})
	}

	if _, err := utils.ParseDonationDate(input.Date); err != nil {
		errs = append(errs, models.DonorError{Code: ErrorCodeDate, Message: "The donation date could not be read."})
	}

	if !payment.ValidateCardNumber(input.Card.Number) {
		errs = append(errs, models.DonorError{Code: ErrorCodeCard, Message: "Please enter a valid card number."})
	}

	if !payment.ValidateExpiry(input.Card.ExpMonth, input.Card.ExpYear) {
		errs = append(errs, models.DonorError{Code: ErrorCodeExpiry, Message: "Please enter a valid card expiration date."})
	}

	return errs
}
