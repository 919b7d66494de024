package moneris

import (
	"context"
	"fmt"
	"log"
	"time"

	"donation-checkout-api/models"
	"donation-checkout-api/services/payment"
	"donation-checkout-api/utils"
)

const (
	GatewayID = "moneris"

	CategorySystemError = "Moneris Error"
	CategoryDecline     = "Moneris Decline"

	ErrorCodeGateway = "give_moneris_gateway_error"

	declinedDonorMessage    = "Payment Declined. Please try again."
	incompleteDonorMessage  = "Incomplete Payment Recorded. Please try again."
	unavailableDonorMessage = "We could not process your donation right now. Please try again."

	checkoutQuery = "payment-mode=" + GatewayID
)

// Submitter sends a purchase to the gateway. *Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req *TransactionRequest) (*models.GatewayResponse, error)
}

// Settings are the per-deployment values the checkout needs besides credentials.
type Settings struct {
	StatementDescriptor   string
	OrderPrefix           string
	CollectBillingDetails bool
}

// Gateway runs a recurring checkout against Moneris and resolves the donation.
type Gateway struct {
	client    Submitter
	donations payment.DonationRepository
	errors    payment.ErrorRecorder
	settings  Settings
}

func NewGateway(client Submitter, donations payment.DonationRepository, recorder payment.ErrorRecorder, settings Settings) *Gateway {
	return &Gateway{
		client:    client,
		donations: donations,
		errors:    recorder,
		settings:  settings,
	}
}

func (g *Gateway) ID() string {
	return GatewayID
}

// SubmitRecurringCheckout validates the input, creates a pending donation,
// charges the first payment with the recurring schedule attached and resolves
// the donation to completed or failed. It reaches a result exactly once.
func (g *Gateway) SubmitRecurringCheckout(ctx context.Context, input models.CheckoutInput) models.CheckoutResult {
	if input.Gateway != GatewayID {
		return validationResult([]models.DonorError{{
			Code:    ErrorCodeMoneris,
			Message: "The selected payment gateway does not match this checkout.",
		}})
	}

	if errs := Validate(input); len(errs) > 0 {
		log.Printf("Moneris checkout rejected for purchase %s: %d validation error(s)", input.PurchaseKey, len(errs))
		return validationResult(errs)
	}

	// Both were checked by Validate.
	amount, _ := utils.FormatAmount(input.Price)
	donationDate, _ := utils.ParseDonationDate(input.Date)

	donation, err := g.donations.CreateDonation(ctx, g.pendingDonation(input, amount, donationDate))
	if err != nil {
		log.Printf("Error creating pending donation for purchase %s: %v", input.PurchaseKey, err)
		g.recordError(ctx, CategorySystemError, fmt.Sprintf("Unable to create a pending donation before charging the card. Details: %v", err))
		return failedResult(0, models.OutcomeSystemError, unavailableDonorMessage)
	}

	// From here on the donation must reach a final status, so caller
	// cancellation no longer applies. The gateway call is bounded by the
	// client timeout.
	ctx = context.WithoutCancel(ctx)

	recur := BuildRecur(donationDate, input.Period, amount)
	txn := BuildTransaction(input, donation.ID, donation.DonorID, amount, recur, g.settings)

	log.Printf("Submitting recurring %s donation %d (order %s, card %s)",
		input.Period, donation.ID, txn.OrderID, utils.MaskCardNumber(txn.Pan))

	resp, err := g.client.Submit(ctx, txn)
	if err != nil {
		return g.fail(ctx, donation.ID, models.OutcomeSystemError, err.Error())
	}

	outcome := ClassifyResponse(resp)
	if outcome == models.OutcomeApproved && resp.TransactionID == "" {
		return g.fail(ctx, donation.ID, models.OutcomeSystemError, "approved response carried no transaction number")
	}

	switch outcome {
	case models.OutcomeApproved:
		return g.complete(ctx, donation.ID, resp)
	case models.OutcomeDeclined:
		if isUndocumentedCode(resp.ResponseCode) {
			log.Printf("Moneris returned undocumented response code %d for donation %d, treating as decline", resp.ResponseCode, donation.ID)
		}
		return g.fail(ctx, donation.ID, models.OutcomeDeclined, resp.Message)
	default:
		return g.fail(ctx, donation.ID, models.OutcomeSystemError, resp.Message)
	}
}

func (g *Gateway) pendingDonation(input models.CheckoutInput, amount string, donatedAt time.Time) *models.Donation {
	donation := &models.Donation{
		Status:      models.DonationStatusPending,
		Gateway:     GatewayID,
		Amount:      amount,
		Currency:    input.Currency,
		Period:      input.Period,
		PurchaseKey: input.PurchaseKey,
		Email:       input.Email,
		FormID:      input.FormID,
		FormTitle:   input.FormTitle,
		PriceID:     input.PriceID,
		Donor:       input.Donor,
		DonatedAt:   donatedAt,
	}
	if g.settings.CollectBillingDetails {
		donation.Billing = input.Billing
	}
	return donation
}

func (g *Gateway) complete(ctx context.Context, donationID int64, resp *models.GatewayResponse) models.CheckoutResult {
	if err := g.donations.SetTransactionID(ctx, donationID, resp.TransactionID); err != nil {
		log.Printf("Error saving transaction %s on donation %d: %v", resp.TransactionID, donationID, err)
	}

	notes := []string{
		fmt.Sprintf("Transaction ID: %s", resp.TransactionID),
		fmt.Sprintf("Approval Code: %s", resp.AuthCode),
	}
	if !resp.RecurSuccess {
		notes = append(notes, "Recurring billing was not set up by the gateway.")
	}
	for _, note := range notes {
		if err := g.donations.AddNote(ctx, donationID, note); err != nil {
			log.Printf("Error adding note to donation %d: %v", donationID, err)
		}
	}

	if err := g.donations.UpdateStatus(ctx, donationID, models.DonationStatusCompleted); err != nil {
		log.Printf("Error completing donation %d: %v", donationID, err)
		g.recordError(ctx, CategorySystemError, fmt.Sprintf("Donation %d was approved (transaction %s) but could not be marked completed. Details: %v", donationID, resp.TransactionID, err))
	}

	log.Printf("Donation %d approved with transaction %s", donationID, resp.TransactionID)

	return models.CheckoutResult{
		Outcome:       models.OutcomeApproved,
		DonationID:    donationID,
		TransactionID: resp.TransactionID,
		Redirect:      models.Redirect{Target: models.RedirectSuccess},
	}
}

func (g *Gateway) fail(ctx context.Context, donationID int64, outcome models.Outcome, details string) models.CheckoutResult {
	category := CategorySystemError
	operatorMessage := fmt.Sprintf("The Moneris Gateway returned an error while processing a donation. Details: %s", details)
	donorMessage := incompleteDonorMessage
	if outcome == models.OutcomeDeclined {
		category = CategoryDecline
		operatorMessage = fmt.Sprintf("The Moneris Gateway declined the donation with an error. Details: %s", details)
		donorMessage = declinedDonorMessage
	}

	log.Printf("Donation %d resolved as %s: %s", donationID, outcome, details)
	g.recordError(ctx, category, operatorMessage)

	if err := g.donations.UpdateStatus(ctx, donationID, models.DonationStatusFailed); err != nil {
		log.Printf("Error marking donation %d as failed: %v", donationID, err)
		g.recordError(ctx, CategorySystemError, fmt.Sprintf("Donation %d could not be marked failed. Details: %v", donationID, err))
	}

	return failedResult(donationID, outcome, donorMessage)
}

func (g *Gateway) recordError(ctx context.Context, category, message string) {
	if g.errors == nil {
		return
	}
	if err := g.errors.RecordGatewayError(ctx, category, message); err != nil {
		log.Printf("Error recording gateway error (%s): %v", category, err)
	}
}

func validationResult(errs []models.DonorError) models.CheckoutResult {
	return models.CheckoutResult{
		Outcome:  models.OutcomeValidationError,
		Errors:   errs,
		Redirect: models.Redirect{Target: models.RedirectCheckout, Query: checkoutQuery},
	}
}

func failedResult(donationID int64, outcome models.Outcome, donorMessage string) models.CheckoutResult {
	return models.CheckoutResult{
		Outcome:    outcome,
		DonationID: donationID,
		Errors:     []models.DonorError{{Code: ErrorCodeGateway, Message: donorMessage}},
		Redirect:   models.Redirect{Target: models.RedirectCheckout, Query: checkoutQuery},
	}
}
