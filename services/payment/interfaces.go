package payment

import (
	"context"

	"donation-checkout-api/models"
)

// RecurringGateway is the capability a gateway integration exposes to the
// checkout controller. Implementations never return an error: every failure is
// resolved into the result.
type RecurringGateway interface {
	ID() string
	SubmitRecurringCheckout(ctx context.Context, input models.CheckoutInput) models.CheckoutResult
}

// DonationRepository is the storage the checkout core writes through.
// UpdateStatus with an empty status marks the donation completed.
type DonationRepository interface {
	CreateDonation(ctx context.Context, donation *models.Donation) (*models.Donation, error)
	SetTransactionID(ctx context.Context, donationID int64, transactionID string) error
	AddNote(ctx context.Context, donationID int64, note string) error
	UpdateStatus(ctx context.Context, donationID int64, status models.DonationStatus) error
}

// ErrorRecorder keeps gateway and system errors visible to operators.
type ErrorRecorder interface {
	RecordGatewayError(ctx context.Context, category, message string) error
}
