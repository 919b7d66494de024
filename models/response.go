package models

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// GatewayResponse is the decoded gateway receipt. CodePresent is false when the
// gateway sent no numeric response code (Moneris sends "null").
type GatewayResponse struct {
	ResponseCode  int    `json:"response_code"`
	CodePresent   bool   `json:"code_present"`
	Complete      bool   `json:"complete"`
	TransactionID string `json:"transaction_id"`
	AuthCode      string `json:"auth_code"`
	Message       string `json:"message"`
	ReceiptID     string `json:"receipt_id"`
	RecurSuccess  bool   `json:"recur_success"`
	TimedOut      bool   `json:"timed_out"`
}
