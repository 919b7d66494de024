// models/payment_status.go
package models

type DonationStatus string

const (
	DonationStatusPending DonationStatus = "pending"

	DonationStatusCompleted DonationStatus = "completed"

	DonationStatusFailed DonationStatus = "failed"
)

func (s DonationStatus) String() string {
	return string(s)
}

func (s DonationStatus) IsValid() bool {
	return s == DonationStatusPending || s == DonationStatusCompleted || s == DonationStatusFailed
}

// IsTerminal reports whether the donation no longer waits on the gateway.
func (s DonationStatus) IsTerminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusFailed
}
