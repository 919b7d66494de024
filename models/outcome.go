package models

type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeDeclined
	OutcomeSystemError
	OutcomeValidationError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeDeclined:
		return "declined"
	case OutcomeSystemError:
		return "system_error"
	case OutcomeValidationError:
		return "validation_error"
	default:
		return "unknown"
	}
}

// DonorError is a message safe to show to the donor.
type DonorError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RedirectTarget string

const (
	RedirectSuccess  RedirectTarget = "success"
	RedirectCheckout RedirectTarget = "checkout"
)

type Redirect struct {
	Target RedirectTarget `json:"target"`
	Query  string         `json:"query,omitempty"`
}

// CheckoutResult is the resolved state of one checkout attempt. DonationID is
// zero when no donation was created.
type CheckoutResult struct {
	Outcome       Outcome      `json:"-"`
	DonationID    int64        `json:"donation_id,omitempty"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Errors        []DonorError `json:"errors,omitempty"`
	Redirect      Redirect     `json:"redirect"`
}
