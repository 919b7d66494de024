package email

import "donation-checkout-api/models"

type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// ReceiptSender delivers the thank-you receipt for a completed donation.
type ReceiptSender interface {
	SendDonationReceipt(donation *models.Donation) error
}
