package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"donation-checkout-api/models"
)

var ErrDonationNotFound = errors.New("donation not found")

// CreateDonation stores the donor and the donation in one transaction and
// returns the donation with its ids filled in.
func (c *Connection) CreateDonation(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	if donation == nil {
		return nil, fmt.Errorf("donation is required")
	}
	if !donation.Status.IsValid() {
		return nil, fmt.Errorf("invalid donation status: %q", donation.Status)
	}

	tx, err := c.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	donorID, err := tx.SaveDonor(ctx, donation.Donor, donation.Email)
	if err != nil {
		return nil, err
	}

	donationID, err := tx.SaveDonation(ctx, donorID, donation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit donation: %v", err)
	}
	tx = nil

	created := *donation
	created.ID = donationID
	created.DonorID = donorID
	return &created, nil
}

func (c *Connection) SetTransactionID(ctx context.Context, donationID int64, transactionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		UPDATE donations SET transaction_id = ?, updated_at = NOW()
		WHERE id = ?
	`, transactionID, donationID)
	if err != nil {
		log.Printf("Error setting transaction id on donation %d: %v", donationID, err)
		return fmt.Errorf("error setting transaction id: %v", err)
	}
	return nil
}

func (c *Connection) AddNote(ctx context.Context, donationID int64, note string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO donation_notes (donation_id, note, created_at)
		VALUES (?, ?, NOW())
	`, donationID, note)
	if err != nil {
		log.Printf("Error adding note to donation %d: %v", donationID, err)
		return fmt.Errorf("error adding donation note: %v", err)
	}
	return nil
}

// UpdateStatus moves the donation to status. An empty status means completed.
func (c *Connection) UpdateStatus(ctx context.Context, donationID int64, status models.DonationStatus) error {
	if status == "" {
		status = models.DonationStatusCompleted
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid donation status: %q", status)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx, `
		UPDATE donations SET status = ?, updated_at = NOW()
		WHERE id = ?
	`, string(status), donationID)
	if err != nil {
		log.Printf("Error updating donation %d to %s: %v", donationID, status, err)
		return fmt.Errorf("error updating donation status: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		// MySQL reports zero when the row already had this status.
		var exists bool
		if err := c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM donations WHERE id = ?)`, donationID).Scan(&exists); err != nil {
			return fmt.Errorf("error checking donation: %v", err)
		}
		if !exists {
			return ErrDonationNotFound
		}
	}

	log.Printf("Donation %d is now %s", donationID, status)
	return nil
}

func (c *Connection) GetDonation(ctx context.Context, donationID int64) (*models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT
			d.id, d.donor_id, d.status, d.transaction_id, d.gateway,
			d.amount, d.currency, d.period, d.purchase_key, d.email,
			d.form_id, d.form_title, d.price_id, d.billing_address,
			d.donated_at, d.created_at, d.updated_at,
			dn.user_id, dn.first_name, dn.last_name, dn.email
		FROM donations d
		JOIN donors dn ON dn.id = d.donor_id
		WHERE d.id = ?
	`

	var (
		donation      models.Donation
		status        string
		transactionID sql.NullString
		priceID       sql.NullString
		billing       sql.NullString
		userID        sql.NullInt64
	)

	err := c.db.QueryRowContext(ctx, query, donationID).Scan(
		&donation.ID,
		&donation.DonorID,
		&status,
		&transactionID,
		&donation.Gateway,
		&donation.Amount,
		&donation.Currency,
		&donation.Period,
		&donation.PurchaseKey,
		&donation.Email,
		&donation.FormID,
		&donation.FormTitle,
		&priceID,
		&billing,
		&donation.DonatedAt,
		&donation.CreatedAt,
		&donation.UpdatedAt,
		&userID,
		&donation.Donor.FirstName,
		&donation.Donor.LastName,
		&donation.Donor.Email,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		log.Printf("Error getting donation %d: %v", donationID, err)
		return nil, fmt.Errorf("error getting donation: %v", err)
	}

	donation.Status = models.DonationStatus(status)
	donation.TransactionID = transactionID.String
	donation.PriceID = priceID.String
	donation.Donor.UserID = userID.Int64

	if billing.Valid && billing.String != "" {
		var address models.BillingAddress
		if err := json.Unmarshal([]byte(billing.String), &address); err != nil {
			log.Printf("Warning: error parsing billing address for donation %d: %v", donationID, err)
		} else {
			donation.Billing = &address
		}
	}

	notes, err := c.getDonationNotes(ctx, donationID)
	if err != nil {
		return nil, err
	}
	donation.Notes = notes

	return &donation, nil
}

func (c *Connection) getDonationNotes(ctx context.Context, donationID int64) ([]models.DonationNote, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, note, created_at
		FROM donation_notes
		WHERE donation_id = ?
		ORDER BY id ASC
	`, donationID)
	if err != nil {
		return nil, fmt.Errorf("error getting donation notes: %v", err)
	}
	defer rows.Close()

	var notes []models.DonationNote
	for rows.Next() {
		var note models.DonationNote
		if err := rows.Scan(&note.ID, &note.Note, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning donation note: %v", err)
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}
