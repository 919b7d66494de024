package moneris

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"donation-checkout-api/models"
)

type memoryDonations struct {
	mu        sync.Mutex
	nextID    int64
	createErr error
	created   []*models.Donation
	statuses  map[int64]models.DonationStatus
	txns      map[int64]string
	notes     map[int64][]string
}

func newMemoryDonations() *memoryDonations {
	return &memoryDonations{
		nextID:   100,
		statuses: make(map[int64]models.DonationStatus),
		txns:     make(map[int64]string),
		notes:    make(map[int64][]string),
	}
}

func (m *memoryDonations) CreateDonation(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	stored := *donation
	stored.ID = m.nextID
	stored.DonorID = 7
	m.created = append(m.created, &stored)
	m.statuses[stored.ID] = stored.Status
	return &stored, nil
}

func (m *memoryDonations) SetTransactionID(ctx context.Context, donationID int64, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns[donationID] = transactionID
	return nil
}

func (m *memoryDonations) AddNote(ctx context.Context, donationID int64, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[donationID] = append(m.notes[donationID], note)
	return nil
}

func (m *memoryDonations) UpdateStatus(ctx context.Context, donationID int64, status models.DonationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == "" {
		status = models.DonationStatusCompleted
	}
	m.statuses[donationID] = status
	return nil
}

type recordedError struct {
	category string
	message  string
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []recordedError
}

func (r *memoryRecorder) RecordGatewayError(ctx context.Context, category, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedError{category: category, message: message})
	return nil
}

type stubSubmitter struct {
	resp  *models.GatewayResponse
	err   error
	calls []*TransactionRequest
	ctxs  []context.Context
}

func (s *stubSubmitter) Submit(ctx context.Context, req *TransactionRequest) (*models.GatewayResponse, error) {
	s.calls = append(s.calls, req)
	s.ctxs = append(s.ctxs, ctx)
	return s.resp, s.err
}

func newTestGateway(submitter *stubSubmitter) (*Gateway, *memoryDonations, *memoryRecorder) {
	donations := newMemoryDonations()
	recorder := &memoryRecorder{}
	settings := Settings{StatementDescriptor: "Helping Hands", OrderPrefix: "give"}
	return NewGateway(submitter, donations, recorder, settings), donations, recorder
}

func TestSubmitRecurringCheckout_Approved(t *testing.T) {
	submitter := &stubSubmitter{resp: &models.GatewayResponse{
		ResponseCode:  5,
		CodePresent:   true,
		Complete:      true,
		TransactionID: "T1",
		AuthCode:      "A1",
		RecurSuccess:  true,
	}}
	gateway, donations, recorder := newTestGateway(submitter)

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())

	if result.Outcome != models.OutcomeApproved {
		t.Fatalf("Outcome = %s; errors %+v", result.Outcome, result.Errors)
	}
	if result.Redirect.Target != models.RedirectSuccess {
		t.Errorf("Redirect = %+v", result.Redirect)
	}
	if result.TransactionID != "T1" {
		t.Errorf("TransactionID = %q", result.TransactionID)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors %+v", result.Errors)
	}

	id := result.DonationID
	if donations.statuses[id] != models.DonationStatusCompleted {
		t.Errorf("status = %q", donations.statuses[id])
	}
	if donations.txns[id] != "T1" {
		t.Errorf("transaction = %q", donations.txns[id])
	}
	wantNotes := []string{"Transaction ID: T1", "Approval Code: A1"}
	if strings.Join(donations.notes[id], "|") != strings.Join(wantNotes, "|") {
		t.Errorf("notes = %v", donations.notes[id])
	}
	if len(recorder.entries) != 0 {
		t.Errorf("did not expect recorded errors, got %+v", recorder.entries)
	}

	if len(submitter.calls) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(submitter.calls))
	}
	txn := submitter.calls[0]
	if txn.OrderID != "give-101" {
		t.Errorf("OrderID = %q", txn.OrderID)
	}
	if txn.Recur.RecurUnit != "week" || txn.Recur.StartDate != "2024/05/08" {
		t.Errorf("Recur = %+v", txn.Recur)
	}
}

func TestSubmitRecurringCheckout_ApprovedWithoutRecurringSchedule(t *testing.T) {
	submitter := &stubSubmitter{resp: &models.GatewayResponse{
		ResponseCode:  1,
		CodePresent:   true,
		Complete:      true,
		TransactionID: "T2",
		AuthCode:      "A2",
	}}
	gateway, donations, _ := newTestGateway(submitter)

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())
	if result.Outcome != models.OutcomeApproved {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	notes := donations.notes[result.DonationID]
	if len(notes) != 3 || !strings.Contains(notes[2], "Recurring billing") {
		t.Errorf("notes = %v", notes)
	}
}

func TestSubmitRecurringCheckout_Declined(t *testing.T) {
	submitter := &stubSubmitter{resp: &models.GatewayResponse{
		ResponseCode: 80,
		CodePresent:  true,
		Complete:     true,
		Message:      "DECLINED",
	}}
	gateway, donations, recorder := newTestGateway(submitter)

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())

	if result.Outcome != models.OutcomeDeclined {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if donations.statuses[result.DonationID] != models.DonationStatusFailed {
		t.Errorf("status = %q", donations.statuses[result.DonationID])
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != "Payment Declined. Please try again." {
		t.Errorf("Errors = %+v", result.Errors)
	}
	if result.Redirect.Target != models.RedirectCheckout || result.Redirect.Query != "payment-mode=moneris" {
		t.Errorf("Redirect = %+v", result.Redirect)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].category != CategoryDecline {
		t.Fatalf("recorded = %+v", recorder.entries)
	}
	if !strings.Contains(recorder.entries[0].message, "DECLINED") {
		t.Errorf("operator message = %q", recorder.entries[0].message)
	}
}

func TestSubmitRecurringCheckout_UndocumentedCodeIsDecline(t *testing.T) {
	submitter := &stubSubmitter{resp: &models.GatewayResponse{ResponseCode: 35, CodePresent: true, Complete: true, TransactionID: "T3"}}
	gateway, donations, _ := newTestGateway(submitter)

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())
	if result.Outcome != models.OutcomeDeclined {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if donations.statuses[result.DonationID] != models.DonationStatusFailed {
		t.Errorf("status = %q", donations.statuses[result.DonationID])
	}
}

func TestSubmitRecurringCheckout_TransportFailure(t *testing.T) {
	submitter := &stubSubmitter{err: errors.New("error making request: context deadline exceeded")}
	gateway, donations, recorder := newTestGateway(submitter)

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())

	if result.Outcome != models.OutcomeSystemError {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if donations.statuses[result.DonationID] != models.DonationStatusFailed {
		t.Errorf("status = %q", donations.statuses[result.DonationID])
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != "Incomplete Payment Recorded. Please try again." {
		t.Errorf("Errors = %+v", result.Errors)
	}
	if strings.Contains(result.Errors[0].Message, "deadline") {
		t.Error("transport details leaked to the donor")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].category != CategorySystemError {
		t.Fatalf("recorded = %+v", recorder.entries)
	}
	if !strings.Contains(recorder.entries[0].message, "deadline exceeded") {
		t.Errorf("operator message = %q", recorder.entries[0].message)
	}
}

func TestSubmitRecurringCheckout_IncompleteAndMissingCode(t *testing.T) {
	tests := []struct {
		name string
		resp *models.GatewayResponse
	}{
		{name: "incomplete", resp: &models.GatewayResponse{ResponseCode: 5, CodePresent: true, Complete: false, TransactionID: "T4"}},
		{name: "null code", resp: &models.GatewayResponse{Complete: true}},
		{name: "approved without transaction", resp: &models.GatewayResponse{ResponseCode: 5, CodePresent: true, Complete: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, donations, recorder := newTestGateway(&stubSubmitter{resp: tt.resp})

			result := gateway.SubmitRecurringCheckout(context.Background(), validInput())
			if result.Outcome != models.OutcomeSystemError {
				t.Fatalf("Outcome = %s", result.Outcome)
			}
			if donations.statuses[result.DonationID] != models.DonationStatusFailed {
				t.Errorf("status = %q", donations.statuses[result.DonationID])
			}
			if _, ok := donations.txns[result.DonationID]; ok {
				t.Error("transaction id must not be stored on failure")
			}
			if len(recorder.entries) != 1 {
				t.Errorf("recorded = %+v", recorder.entries)
			}
		})
	}
}

func TestSubmitRecurringCheckout_InvalidPeriodNeverCharges(t *testing.T) {
	submitter := &stubSubmitter{}
	gateway, donations, _ := newTestGateway(submitter)

	input := validInput()
	input.Period = "year"
	result := gateway.SubmitRecurringCheckout(context.Background(), input)

	if result.Outcome != models.OutcomeValidationError {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != InvalidPeriodMessage {
		t.Errorf("Errors = %+v", result.Errors)
	}
	if len(donations.created) != 0 {
		t.Error("no donation should be created")
	}
	if len(submitter.calls) != 0 {
		t.Error("the gateway must not be called")
	}
	if result.DonationID != 0 {
		t.Errorf("DonationID = %d", result.DonationID)
	}
}

func TestSubmitRecurringCheckout_GatewayMismatch(t *testing.T) {
	submitter := &stubSubmitter{}
	gateway, donations, _ := newTestGateway(submitter)

	input := validInput()
	input.Gateway = "stripe"
	result := gateway.SubmitRecurringCheckout(context.Background(), input)

	if result.Outcome != models.OutcomeValidationError {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if len(donations.created) != 0 || len(submitter.calls) != 0 {
		t.Error("a mismatched gateway must not create or charge")
	}
}

func TestSubmitRecurringCheckout_CreateFailure(t *testing.T) {
	submitter := &stubSubmitter{}
	gateway, donations, recorder := newTestGateway(submitter)
	donations.createErr = errors.New("connection refused")

	result := gateway.SubmitRecurringCheckout(context.Background(), validInput())

	if result.Outcome != models.OutcomeSystemError {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if len(submitter.calls) != 0 {
		t.Error("the gateway must not be called without a donation")
	}
	if result.DonationID != 0 {
		t.Errorf("DonationID = %d", result.DonationID)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].category != CategorySystemError {
		t.Errorf("recorded = %+v", recorder.entries)
	}
}

func TestSubmitRecurringCheckout_IgnoresCallerCancellation(t *testing.T) {
	submitter := &stubSubmitter{resp: &models.GatewayResponse{ResponseCode: 5, CodePresent: true, Complete: true, TransactionID: "T5"}}
	gateway, donations, _ := newTestGateway(submitter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The stub repository ignores ctx, so this checks what reaches the gateway.
	result := gateway.SubmitRecurringCheckout(ctx, validInput())
	if result.Outcome != models.OutcomeApproved {
		t.Fatalf("Outcome = %s", result.Outcome)
	}
	if err := submitter.ctxs[0].Err(); err != nil {
		t.Errorf("gateway call saw a cancelled context: %v", err)
	}
	if donations.statuses[result.DonationID] != models.DonationStatusCompleted {
		t.Errorf("status = %q", donations.statuses[result.DonationID])
	}
}

func TestPendingDonation_BillingCollection(t *testing.T) {
	input := validInput()
	input.Billing = &models.BillingAddress{Line1: "1 Main St", City: "Toronto", Country: "CA"}

	gateway, _, _ := newTestGateway(&stubSubmitter{})
	if d := gateway.pendingDonation(input, "25.00", time.Time{}); d.Billing != nil {
		t.Error("billing details stored while collection is disabled")
	}

	gateway.settings.CollectBillingDetails = true
	d := gateway.pendingDonation(input, "25.00", time.Time{})
	if d.Billing == nil || d.Billing.City != "Toronto" {
		t.Errorf("Billing = %+v", d.Billing)
	}
	if d.Status != models.DonationStatusPending || d.Gateway != GatewayID || d.Amount != "25.00" {
		t.Errorf("donation = %+v", d)
	}
}
