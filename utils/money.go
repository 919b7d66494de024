package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var amountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]+$`)

// FormatAmount normalizes a donor-entered price ("1,250.5") into the gateway's
// two-decimal representation ("1250.50"). Halves round away from zero.
func FormatAmount(price string) (string, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(price), ",", "")
	if !amountPattern.MatchString(clean) {
		return "", fmt.Errorf("invalid amount: %q", price)
	}
	if strings.HasPrefix(clean, ".") {
		clean = "0" + clean
	}

	amount, ok := new(big.Rat).SetString(clean)
	if !ok {
		return "", fmt.Errorf("invalid amount: %q", price)
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("amount must be greater than zero: %q", price)
	}
	return amount.FloatString(2), nil
}

// MaskCardNumber keeps only the last four digits.
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return "XXXX"
	}
	return "XXXX XXXX XXXX " + number[len(number)-4:]
}
