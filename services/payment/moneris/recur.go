package moneris

import (
	"time"

	"donation-checkout-api/utils"
)

const (
	// MaxRecurrences is the most recurrences the gateway accepts on one schedule.
	MaxRecurrences = "99"
	recurStartNow  = "true"
	recurInterval  = "1"
)

var validPeriods = map[string]bool{
	"day":   true,
	"week":  true,
	"month": true,
}

func IsValidPeriod(period string) bool {
	return validPeriods[period]
}

// BuildRecur derives the recurring schedule. The first recurring charge lands
// one period after the donation date, using time.AddDate normalisation
// (2024-01-31 plus one month is 2024-03-02). The period must already be valid.
func BuildRecur(donationDate time.Time, period, amount string) *RecurBlock {
	return &RecurBlock{
		RecurUnit:   period,
		StartDate:   utils.FormatScheduleDate(addPeriod(donationDate, period)),
		NumRecurs:   MaxRecurrences,
		StartNow:    recurStartNow,
		Period:      recurInterval,
		RecurAmount: amount,
	}
}

func addPeriod(date time.Time, period string) time.Time {
	switch period {
	case "day":
		return date.AddDate(0, 0, 1)
	case "week":
		return date.AddDate(0, 0, 7)
	default:
		return date.AddDate(0, 1, 0)
	}
}
