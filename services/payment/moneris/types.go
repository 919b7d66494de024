package moneris

import "encoding/xml"

type mpgRequest struct {
	XMLName  xml.Name            `xml:"request"`
	StoreID  string              `xml:"store_id"`
	APIToken string              `xml:"api_token"`
	Purchase *TransactionRequest `xml:"purchase"`
}

// TransactionRequest is the purchase payload. Type is carried by the element
// name on the wire, so it is not serialized as a field.
type TransactionRequest struct {
	Type              string      `xml:"-"`
	OrderID           string      `xml:"order_id"`
	CustID            string      `xml:"cust_id"`
	Amount            string      `xml:"amount"`
	Pan               string      `xml:"pan"`
	ExpDate           string      `xml:"expdate"`
	CryptType         int         `xml:"crypt_type"`
	DynamicDescriptor string      `xml:"dynamic_descriptor,omitempty"`
	Recur             *RecurBlock `xml:"recur,omitempty"`
}

// RecurBlock is the recurring billing schedule embedded in a purchase.
type RecurBlock struct {
	RecurUnit   string `xml:"recur_unit"`
	StartDate   string `xml:"start_date"`
	NumRecurs   string `xml:"num_recurs"`
	StartNow    string `xml:"start_now"`
	Period      string `xml:"period"`
	RecurAmount string `xml:"recur_amount"`
}

type mpgResponse struct {
	XMLName xml.Name `xml:"response"`
	Receipt receipt  `xml:"receipt"`
}

type receipt struct {
	ReceiptID    string `xml:"ReceiptId"`
	ReferenceNum string `xml:"ReferenceNum"`
	ResponseCode string `xml:"ResponseCode"`
	ISO          string `xml:"ISO"`
	AuthCode     string `xml:"AuthCode"`
	TransTime    string `xml:"TransTime"`
	TransDate    string `xml:"TransDate"`
	TransType    string `xml:"TransType"`
	Complete     string `xml:"Complete"`
	Message      string `xml:"Message"`
	TransAmount  string `xml:"TransAmount"`
	CardType     string `xml:"CardType"`
	TransID      string `xml:"TransID"`
	TimedOut     string `xml:"TimedOut"`
	RecurSuccess string `xml:"RecurSuccess"`
}
