package utils

import (
	"fmt"
	"strings"
	"time"
)

var donationDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// ParseDonationDate accepts the layouts the checkout form posts and returns the
// time in UTC.
func ParseDonationDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range donationDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid donation date: %q", value)
}

func FormatDonationDate(date time.Time) string {
	return date.UTC().Format("2006-01-02 15:04:05")
}

// FormatScheduleDate is the YYYY/MM/DD form the recurring schedule expects.
func FormatScheduleDate(date time.Time) string {
	return date.Format("2006/01/02")
}
