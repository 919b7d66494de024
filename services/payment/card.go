package payment

import (
	"log"
	"strings"
)

// NormalizeCardNumber strips the spaces and dashes donors type into the field.
func NormalizeCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(number))
}

func ValidateCardNumber(number string) bool {
	number = NormalizeCardNumber(number)
	if len(number) < 13 || len(number) > 19 {
		log.Printf("Invalid card number length: %d", len(number))
		return false
	}

	if !validateLuhn(number) {
		log.Printf("Failed Luhn check for card number")
		return false
	}
	return true
}

// ValidateExpiry checks the shape of the expiry only; an expired card is left
// for the gateway to decline.
func ValidateExpiry(month int, year string) bool {
	if month < 1 || month > 12 {
		return false
	}
	year = strings.TrimSpace(year)
	if len(year) != 4 {
		return false
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateLuhn(cardNumber string) bool {
	sum := 0
	isEven := len(cardNumber)%2 == 0

	for i, r := range cardNumber {
		digit := int(r - '0')

		if digit < 0 || digit > 9 {
			return false
		}

		if isEven == (i%2 == 0) {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}

	return sum%10 == 0
}
