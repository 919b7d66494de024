package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"donation-checkout-api/models"
)

type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

// SaveDonor inserts the donor or refreshes the existing row with the same
// email, returning its id either way.
func (t *Transaction) SaveDonor(ctx context.Context, donor models.DonorInfo, email string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(firstNonEmpty(donor.Email, email)))
	if email == "" {
		return 0, fmt.Errorf("donor email is required")
	}

	log.Printf("Attempting to save donor: %s", email)

	query := `
		INSERT INTO donors (user_id, email, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			user_id = COALESCE(VALUES(user_id), user_id),
			first_name = VALUES(first_name),
			last_name = VALUES(last_name),
			updated_at = NOW()
	`

	var userID sql.NullInt64
	if donor.UserID > 0 {
		userID = sql.NullInt64{Int64: donor.UserID, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx, query, userID, email, donor.FirstName, donor.LastName)
	if err != nil {
		log.Printf("Error saving donor: %v", err)
		return 0, fmt.Errorf("failed to save donor: %v", err)
	}

	donorID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read donor id: %v", err)
	}

	log.Printf("Successfully saved donor %d", donorID)
	return donorID, nil
}

func (t *Transaction) SaveDonation(ctx context.Context, donorID int64, donation *models.Donation) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	log.Printf("Attempting to save donation for purchase %s (donor %d, %s %s)",
		donation.PurchaseKey, donorID, donation.Amount, donation.Currency)

	var billing sql.NullString
	if donation.Billing != nil {
		raw, err := json.Marshal(donation.Billing)
		if err != nil {
			return 0, fmt.Errorf("failed to encode billing address: %v", err)
		}
		billing = sql.NullString{String: string(raw), Valid: true}
	}

	var priceID sql.NullString
	if donation.PriceID != "" {
		priceID = sql.NullString{String: donation.PriceID, Valid: true}
	}

	query := `
		INSERT INTO donations (
			donor_id, status, gateway, amount, currency,
			period, purchase_key, email, form_id, form_title,
			price_id, billing_address, donated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`

	result, err := t.tx.ExecContext(
		ctx,
		query,
		donorID,
		string(donation.Status),
		donation.Gateway,
		donation.Amount,
		donation.Currency,
		donation.Period,
		donation.PurchaseKey,
		donation.Email,
		donation.FormID,
		donation.FormTitle,
		priceID,
		billing,
		donation.DonatedAt,
	)
	if err != nil {
		log.Printf("Error saving donation: %v", err)
		return 0, fmt.Errorf("failed to save donation: %v", err)
	}

	donationID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read donation id: %v", err)
	}

	log.Printf("Successfully saved donation %d for purchase %s", donationID, donation.PurchaseKey)
	return donationID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
