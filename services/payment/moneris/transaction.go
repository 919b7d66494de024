package moneris

import (
	"fmt"
	"strconv"
	"strings"

	"donation-checkout-api/models"
	"donation-checkout-api/services/payment"
)

const (
	TransactionTypePurchase = "purchase"

	// CryptTypeNoCVV tells the gateway no card verification value accompanies
	// the transaction.
	CryptTypeNoCVV = 7

	maxDescriptorLength = 20
	defaultOrderPrefix  = "give"
)

// BuildTransaction assembles the first-charge purchase with the recurring
// schedule attached. amount must already be formatted by utils.FormatAmount.
func BuildTransaction(input models.CheckoutInput, donationID, donorID int64, amount string, recur *RecurBlock, settings Settings) *TransactionRequest {
	return &TransactionRequest{
		Type:              TransactionTypePurchase,
		OrderID:           OrderID(settings.OrderPrefix, donationID),
		CustID:            strconv.FormatInt(donorID, 10),
		Amount:            amount,
		Pan:               payment.NormalizeCardNumber(input.Card.Number),
		ExpDate:           FormatExpiry(input.Card.ExpMonth, input.Card.ExpYear),
		CryptType:         CryptTypeNoCVV,
		DynamicDescriptor: StatementDescriptor(settings.StatementDescriptor),
		Recur:             recur,
	}
}

// OrderID is derived only from the donation id so a replay of the same
// donation reuses its order id.
func OrderID(prefix string, donationID int64) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultOrderPrefix
	}
	return fmt.Sprintf("%s-%d", prefix, donationID)
}

// FormatExpiry renders YYMM from a month and a four digit year.
func FormatExpiry(month int, year string) string {
	year = strings.TrimSpace(year)
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	return fmt.Sprintf("%s%02d", year, month)
}

// StatementDescriptor trims the descriptor to the length the card networks print.
func StatementDescriptor(descriptor string) string {
	runes := []rune(strings.TrimSpace(descriptor))
	if len(runes) > maxDescriptorLength {
		runes = runes[:maxDescriptorLength]
	}
	return string(runes)
}
