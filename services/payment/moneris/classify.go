package moneris

import "donation-checkout-api/models"

// Response code ranges from the gateway contract.
const (
	approvedCodeMin = 0
	approvedCodeMax = 29
	declinedCodeMin = 50
	declinedCodeMax = 99
)

// Classify maps a response code and completion flag to an outcome. Codes
// outside both documented ranges are declines, never approvals.
func Classify(responseCode int, complete bool) models.Outcome {
	if !complete {
		return models.OutcomeSystemError
	}

	switch {
	case responseCode >= approvedCodeMin && responseCode <= approvedCodeMax:
		return models.OutcomeApproved
	case responseCode >= declinedCodeMin && responseCode <= declinedCodeMax:
		return models.OutcomeDeclined
	default:
		return models.OutcomeDeclined
	}
}

// ClassifyResponse treats a receipt without a numeric code as incomplete.
func ClassifyResponse(resp *models.GatewayResponse) models.Outcome {
	if resp == nil || !resp.CodePresent {
		return models.OutcomeSystemError
	}
	return Classify(resp.ResponseCode, resp.Complete)
}

func isUndocumentedCode(code int) bool {
	return !(code >= approvedCodeMin && code <= approvedCodeMax) &&
		!(code >= declinedCodeMin && code <= declinedCodeMax)
}
