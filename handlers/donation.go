package handlers

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"donation-checkout-api/database"
	"donation-checkout-api/middleware"
	"donation-checkout-api/models"
	"donation-checkout-api/queue"
	"donation-checkout-api/services/payment"
	"donation-checkout-api/utils"
)

const (
	CheckoutSessionName = "give-checkout"
	maxCheckoutBody     = 64 << 10

	ErrorCodeGatewayUnavailable = "gateway_unavailable"
	ErrorCodeInProgress         = "checkout_in_progress"
)

func init() {
	// flashes are gob encoded by the cookie store
	gob.Register(models.DonorError{})
}

type gatewayLookup interface {
	Get(id string) (payment.RecurringGateway, bool)
}

type purchaseLocker interface {
	LockPurchase(ctx context.Context, purchaseKey string) (bool, error)
	ReleaseLock(ctx context.Context, purchaseKey string) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, data map[string]interface{}) (string, error)
}

type donationReader interface {
	GetDonation(ctx context.Context, donationID int64) (*models.Donation, error)
}

type SiteURLs struct {
	SuccessURL      string
	CheckoutURL     string
	DefaultCurrency string
}

type DonationHandler struct {
	gateways  gatewayLookup
	locker    purchaseLocker
	jobs      jobEnqueuer
	donations donationReader
	sessions  sessions.Store
	site      SiteURLs
}

func NewDonationHandler(gateways gatewayLookup, locker purchaseLocker, jobs jobEnqueuer, donations donationReader, store sessions.Store, site SiteURLs) *DonationHandler {
	return &DonationHandler{
		gateways:  gateways,
		locker:    locker,
		jobs:      jobs,
		donations: donations,
		sessions:  store,
		site:      site,
	}
}

type checkoutResponse struct {
	Outcome       string              `json:"outcome"`
	DonationID    int64               `json:"donation_id,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Errors        []models.DonorError `json:"errors,omitempty"`
	RedirectURL   string              `json:"redirect_url"`
}

// ProcessRecurringCheckout runs one recurring donation checkout and answers
// with the redirect the donor should follow.
func (h *DonationHandler) ProcessRecurringCheckout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	log.Printf("[RequestID: %s] Starting recurring checkout", requestID)

	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)
	var input models.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Printf("[RequestID: %s] Invalid request body: %v", requestID, err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.normalize(&input)

	gateway, ok := h.gateways.Get(input.Gateway)
	if !ok {
		log.Printf("[RequestID: %s] Gateway %q is not active", requestID, input.Gateway)
		h.respond(w, r, models.CheckoutResult{
			Outcome: models.OutcomeValidationError,
			Errors: []models.DonorError{{
				Code:    ErrorCodeGatewayUnavailable,
				Message: "The selected payment method is not available.",
			}},
			Redirect: models.Redirect{Target: models.RedirectCheckout},
		})
		return
	}

	acquired, err := h.locker.LockPurchase(r.Context(), input.PurchaseKey)
	if err != nil {
		log.Printf("[RequestID: %s] Error acquiring lock: %v", requestID, err)
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "We could not process your donation right now. Please try again.")
		return
	}
	if !acquired {
		log.Printf("[RequestID: %s] Purchase %s is already being processed", requestID, input.PurchaseKey)
		utils.SendJSON(w, http.StatusConflict, models.APIResponse{
			Status:  "error",
			Message: "This donation is already being processed.",
			Data: checkoutResponse{
				Outcome: "in_progress",
				Errors:  []models.DonorError{{Code: ErrorCodeInProgress, Message: "This donation is already being processed."}},
			},
		})
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.locker.ReleaseLock(ctx, input.PurchaseKey); err != nil {
			log.Printf("[RequestID: %s] Error releasing lock for %s: %v", requestID, input.PurchaseKey, err)
		}
	}()

	result := gateway.SubmitRecurringCheckout(r.Context(), input)
	log.Printf("[RequestID: %s] Checkout for purchase %s resolved as %s (donation %d)",
		requestID, input.PurchaseKey, result.Outcome, result.DonationID)

	if result.Outcome == models.OutcomeApproved {
		h.enqueueReceipt(r.Context(), requestID, result.DonationID)
	}

	h.respond(w, r, result)
}

// CheckoutErrors returns and clears the errors left by the last failed checkout.
func (h *DonationHandler) CheckoutErrors(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r, CheckoutSessionName)
	if err != nil {
		log.Printf("[RequestID: %s] Error reading checkout session: %v", middleware.GetRequestID(r.Context()), err)
	}

	errs := []models.DonorError{}
	if session != nil {
		for _, flash := range session.Flashes() {
			if donorErr, ok := flash.(models.DonorError); ok {
				errs = append(errs, donorErr)
			}
		}
		if err := session.Save(r, w); err != nil {
			log.Printf("[RequestID: %s] Error saving checkout session: %v", middleware.GetRequestID(r.Context()), err)
		}
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Checkout errors retrieved",
		Data:    errs,
	})
}

// DonationStatus lets the checkout page poll a donation it created. The
// purchase key must match so ids cannot be enumerated.
func (h *DonationHandler) DonationStatus(w http.ResponseWriter, r *http.Request) {
	donationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || donationID <= 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	purchaseKey := r.URL.Query().Get("purchase_key")
	if purchaseKey == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "purchase_key is required")
		return
	}

	donation, err := h.donations.GetDonation(r.Context(), donationID)
	if errors.Is(err, database.ErrDonationNotFound) || (err == nil && donation.PurchaseKey != purchaseKey) {
		utils.SendErrorResponse(w, http.StatusNotFound, "Donation not found")
		return
	}
	if err != nil {
		log.Printf("[RequestID: %s] Error loading donation %d: %v", middleware.GetRequestID(r.Context()), donationID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Donation status retrieved",
		Data: map[string]interface{}{
			"donation_id": donation.ID,
			"status":      donation.Status,
			"is_final":    donation.Status.IsTerminal(),
		},
	})
}

func (h *DonationHandler) normalize(input *models.CheckoutInput) {
	input.Gateway = strings.ToLower(strings.TrimSpace(input.Gateway))
	input.Period = strings.TrimSpace(input.Period)
	input.Email = strings.TrimSpace(input.Email)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = h.site.DefaultCurrency
	}
	if input.Donor.Email == "" {
		input.Donor.Email = input.Email
	}
	input.PurchaseKey = strings.TrimSpace(input.PurchaseKey)
	if input.PurchaseKey == "" {
		input.PurchaseKey = utils.GeneratePurchaseKey(input.Email)
	}
}

func (h *DonationHandler) enqueueReceipt(ctx context.Context, requestID string, donationID int64) {
	if h.jobs == nil || donationID == 0 {
		return
	}
	jobID, err := h.jobs.Enqueue(context.WithoutCancel(ctx), queue.JobTypeDonationReceipt, map[string]interface{}{
		"donation_id": donationID,
	})
	if err != nil {
		log.Printf("[RequestID: %s] Error enqueuing receipt for donation %d: %v", requestID, donationID, err)
		return
	}
	log.Printf("[RequestID: %s] Receipt job %s queued for donation %d", requestID, jobID, donationID)
}

// respond writes the single donor-facing rendering of a checkout result.
func (h *DonationHandler) respond(w http.ResponseWriter, r *http.Request, result models.CheckoutResult) {
	if len(result.Errors) > 0 {
		h.flashErrors(w, r, result.Errors)
	}

	status, message := statusForOutcome(result.Outcome)
	apiStatus := "error"
	if result.Outcome == models.OutcomeApproved {
		apiStatus = "success"
	}

	utils.SendJSON(w, status, models.APIResponse{
		Status:  apiStatus,
		Message: message,
		Data: checkoutResponse{
			Outcome:       result.Outcome.String(),
			DonationID:    result.DonationID,
			TransactionID: result.TransactionID,
			Errors:        result.Errors,
			RedirectURL:   h.redirectURL(result.Redirect),
		},
	})
}

func (h *DonationHandler) flashErrors(w http.ResponseWriter, r *http.Request, errs []models.DonorError) {
	if h.sessions == nil {
		return
	}
	session, err := h.sessions.Get(r, CheckoutSessionName)
	if err != nil && session == nil {
		log.Printf("[RequestID: %s] Error opening checkout session: %v", middleware.GetRequestID(r.Context()), err)
		return
	}
	for _, donorErr := range errs {
		session.AddFlash(donorErr)
	}
	if err := session.Save(r, w); err != nil {
		log.Printf("[RequestID: %s] Error saving checkout errors: %v", middleware.GetRequestID(r.Context()), err)
	}
}

func (h *DonationHandler) redirectURL(redirect models.Redirect) string {
	base := h.site.CheckoutURL
	if redirect.Target == models.RedirectSuccess {
		base = h.site.SuccessURL
	}
	if redirect.Query == "" {
		return base
	}

	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + redirect.Query
	}
	extra, err := url.ParseQuery(redirect.Query)
	if err != nil {
		return base
	}
	q := u.Query()
	for key, values := range extra {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func statusForOutcome(outcome models.Outcome) (int, string) {
	switch outcome {
	case models.OutcomeApproved:
		return http.StatusOK, "Donation processed successfully"
	case models.OutcomeValidationError:
		return http.StatusBadRequest, "Please correct the errors and try again"
	case models.OutcomeDeclined:
		return http.StatusPaymentRequired, "Payment declined"
	default:
		return http.StatusBadGateway, "The payment could not be completed"
	}
}
