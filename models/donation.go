package models

import "time"

type Donation struct {
	ID            int64           `json:"id"`
	DonorID       int64           `json:"donor_id"`
	Status        DonationStatus  `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Gateway       string          `json:"gateway"`
	Amount        string          `json:"amount"`
	Currency      string          `json:"currency"`
	Period        string          `json:"period"`
	PurchaseKey   string          `json:"purchase_key"`
	Email         string          `json:"email"`
	FormID        int             `json:"form_id"`
	FormTitle     string          `json:"form_title"`
	PriceID       string          `json:"price_id,omitempty"`
	Donor         DonorInfo       `json:"donor"`
	Billing       *BillingAddress `json:"billing_address,omitempty"`
	DonatedAt     time.Time       `json:"donated_at"`
	Notes         []DonationNote  `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type DonationNote struct {
	ID        int64     `json:"id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// GatewayError is an operator-facing record of a failed gateway interaction.
type GatewayError struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
