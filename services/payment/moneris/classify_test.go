package moneris

import (
	"testing"

	"donation-checkout-api/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		complete bool
		want     models.Outcome
	}{
		{name: "lowest approval", code: 0, complete: true, want: models.OutcomeApproved},
		{name: "highest approval", code: 29, complete: true, want: models.OutcomeApproved},
		{name: "undocumented low", code: 30, complete: true, want: models.OutcomeDeclined},
		{name: "undocumented high", code: 49, complete: true, want: models.OutcomeDeclined},
		{name: "lowest decline", code: 50, complete: true, want: models.OutcomeDeclined},
		{name: "highest decline", code: 99, complete: true, want: models.OutcomeDeclined},
		{name: "negative code", code: -1, complete: true, want: models.OutcomeDeclined},
		{name: "above documented range", code: 481, complete: true, want: models.OutcomeDeclined},
		{name: "incomplete approval code", code: 5, complete: false, want: models.OutcomeSystemError},
		{name: "incomplete decline code", code: 80, complete: false, want: models.OutcomeSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.code, tt.complete); got != tt.want {
				t.Errorf("Classify(%d, %v) = %s; want %s", tt.code, tt.complete, got, tt.want)
			}
		})
	}
}

func TestClassify_NeverApprovesOutsideApprovalRange(t *testing.T) {
	for code := -10; code <= 200; code++ {
		got := Classify(code, true)
		approved := code >= 0 && code <= 29
		if approved != (got == models.OutcomeApproved) {
			t.Fatalf("Classify(%d, true) = %s", code, got)
		}
	}
}

func TestClassifyResponse_MissingCode(t *testing.T) {
	if got := ClassifyResponse(nil); got != models.OutcomeSystemError {
		t.Errorf("nil response classified as %s", got)
	}

	resp := &models.GatewayResponse{Complete: true, CodePresent: false}
	if got := ClassifyResponse(resp); got != models.OutcomeSystemError {
		t.Errorf("response without a code classified as %s", got)
	}

	resp = &models.GatewayResponse{Complete: true, CodePresent: true, ResponseCode: 27}
	if got := ClassifyResponse(resp); got != models.OutcomeApproved {
		t.Errorf("code 27 classified as %s", got)
	}
}

func TestIsUndocumentedCode(t *testing.T) {
	for _, code := range []int{30, 49, -1, 100} {
		if !isUndocumentedCode(code) {
			t.Errorf("expected %d to be undocumented", code)
		}
	}
	for _, code := range []int{0, 29, 50, 99} {
		if isUndocumentedCode(code) {
			t.Errorf("expected %d to be documented", code)
		}
	}
}
