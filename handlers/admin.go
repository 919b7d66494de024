package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"donation-checkout-api/database"
	"donation-checkout-api/middleware"
	"donation-checkout-api/models"
	"donation-checkout-api/queue"
	"donation-checkout-api/utils"
)

type gatewayErrorLister interface {
	ListGatewayErrors(ctx context.Context, limit int) ([]models.GatewayError, error)
}

type jobRetrier interface {
	RetryJob(ctx context.Context, jobID string) error
}

// AdminHandler serves the operator views over donations, gateway errors and jobs.
type AdminHandler struct {
	donations donationReader
	errors    gatewayErrorLister
	jobs      jobRetrier
}

func NewAdminHandler(donations donationReader, errors gatewayErrorLister, jobs jobRetrier) *AdminHandler {
	return &AdminHandler{
		donations: donations,
		errors:    errors,
		jobs:      jobs,
	}
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	operator := middleware.GetOperatorFromContext(r.Context())
	if operator == nil {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Operator retrieved",
		Data:    operator,
	})
}

func (h *AdminHandler) GetDonation(w http.ResponseWriter, r *http.Request) {
	donationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || donationID <= 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	donation, err := h.donations.GetDonation(r.Context(), donationID)
	if errors.Is(err, database.ErrDonationNotFound) {
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
		Message: "Donation retrieved",
		Data:    donation,
	})
}

func (h *AdminHandler) ListGatewayErrors(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.errors.ListGatewayErrors(r.Context(), limit)
	if err != nil {
		log.Printf("[RequestID: %s] Error listing gateway errors: %v", middleware.GetRequestID(r.Context()), err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if entries == nil {
		entries = []models.GatewayError{}
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Gateway errors retrieved",
		Data:    entries,
	})
}

func (h *AdminHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	if jobID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Job id is required")
		return
	}

	err := h.jobs.RetryJob(r.Context(), jobID)
	if errors.Is(err, queue.ErrJobNotFound) {
		utils.SendErrorResponse(w, http.StatusNotFound, "Job not found in failed queue")
		return
	}
	if err != nil {
		log.Printf("[RequestID: %s] Error retrying job %s: %v", middleware.GetRequestID(r.Context()), jobID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	operator := middleware.GetOperatorFromContext(r.Context())
	if operator != nil {
		log.Printf("Job %s requeued by operator %s", jobID, operator.Username)
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Job requeued",
		Data:    map[string]string{"job_id": jobID},
	})
}
