package moneris

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const approvedReceipt = `<?xml version="1.0"?>
<response><receipt>
<ReceiptId>give-101</ReceiptId>
<ReferenceNum>660123450010690030</ReferenceNum>
<ResponseCode>027</ResponseCode>
<ISO>01</ISO>
<AuthCode>A1B2C3</AuthCode>
<TransTime>10:15:02</TransTime>
<TransDate>2024-05-01</TransDate>
<TransType>00</TransType>
<Complete>true</Complete>
<Message>APPROVED           *                    =</Message>
<TransAmount>25.00</TransAmount>
<CardType>V</CardType>
<TransID>12345-0_10</TransID>
<TimedOut>false</TimedOut>
<RecurSuccess>true</RecurSuccess>
</receipt></response>`

const nullReceipt = `<response><receipt>
<ReceiptId>null</ReceiptId>
<ResponseCode>null</ResponseCode>
<AuthCode>null</AuthCode>
<Complete>false</Complete>
<Message>Global Error Receipt</Message>
<TransID>null</TransID>
<TimedOut>false</TimedOut>
</receipt></response>`

func testTransaction() *TransactionRequest {
	return &TransactionRequest{
		Type:      TransactionTypePurchase,
		OrderID:   "give-101",
		CustID:    "7",
		Amount:    "25.00",
		Pan:       "4242424242424242",
		ExpDate:   "2803",
		CryptType: CryptTypeNoCVV,
		Recur: &RecurBlock{
			RecurUnit:   "week",
			StartDate:   "2024/05/08",
			NumRecurs:   "99",
			StartNow:    "true",
			Period:      "1",
			RecurAmount: "25.00",
		},
	}
}

func TestClient_SubmitSendsPurchaseXML(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "text/xml" {
			t.Errorf("Content-Type = %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		io.WriteString(w, approvedReceipt)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{StoreID: "store5", APIToken: "yesguy", Endpoint: server.URL})
	resp, err := client.Submit(context.Background(), testTransaction())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	for _, fragment := range []string{
		"<store_id>store5</store_id>",
		"<api_token>yesguy</api_token>",
		"<purchase><order_id>give-101</order_id>",
		"<cust_id>7</cust_id>",
		"<amount>25.00</amount>",
		"<expdate>2803</expdate>",
		"<crypt_type>7</crypt_type>",
		"<recur><recur_unit>week</recur_unit><start_date>2024/05/08</start_date><num_recurs>99</num_recurs><start_now>true</start_now><period>1</period><recur_amount>25.00</recur_amount></recur>",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("request body missing %s\nbody: %s", fragment, body)
		}
	}
	if strings.Contains(body, "dynamic_descriptor") {
		t.Errorf("empty descriptor should be omitted: %s", body)
	}

	if resp.ResponseCode != 27 || !resp.CodePresent {
		t.Errorf("ResponseCode = %d (present %v)", resp.ResponseCode, resp.CodePresent)
	}
	if !resp.Complete {
		t.Error("expected Complete")
	}
	if resp.TransactionID != "12345-0_10" {
		t.Errorf("TransactionID = %q", resp.TransactionID)
	}
	if resp.AuthCode != "A1B2C3" {
		t.Errorf("AuthCode = %q", resp.AuthCode)
	}
	if !resp.RecurSuccess {
		t.Error("expected RecurSuccess")
	}
	if resp.TimedOut {
		t.Error("did not expect TimedOut")
	}
}

func TestClient_SubmitRejectsOtherTransactionTypes(t *testing.T) {
	client := NewClient(ClientConfig{Endpoint: "http://127.0.0.1:0"})
	txn := testTransaction()
	txn.Type = "refund"

	if _, err := client.Submit(context.Background(), txn); err == nil {
		t.Fatal("expected an error for a refund")
	}
}

func TestClient_SubmitHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL})
	if _, err := client.Submit(context.Background(), testTransaction()); err == nil {
		t.Fatal("expected an error for a 502")
	}
}

func TestClient_SubmitMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>maintenance</html")
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL})
	if _, err := client.Submit(context.Background(), testTransaction()); err == nil {
		t.Fatal("expected a decoding error")
	}
}

func TestClient_SubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientConfig{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	if _, err := client.Submit(context.Background(), testTransaction()); err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

func TestDecodeResponse_NullFields(t *testing.T) {
	resp, err := decodeResponse([]byte(nullReceipt))
	if err != nil {
		t.Fatalf("decodeResponse returned error: %v", err)
	}
	if resp.CodePresent {
		t.Error("a null response code must not be present")
	}
	if resp.TransactionID != "" || resp.AuthCode != "" || resp.ReceiptID != "" {
		t.Errorf("null placeholders were kept: %+v", resp)
	}
	if resp.Complete {
		t.Error("did not expect Complete")
	}
}

func TestDecodeResponse_ByteOrderMark(t *testing.T) {
	resp, err := decodeResponse([]byte("\ufeff" + approvedReceipt))
	if err != nil {
		t.Fatalf("decodeResponse returned error: %v", err)
	}
	if resp.TransactionID != "12345-0_10" {
		t.Errorf("TransactionID = %q", resp.TransactionID)
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		country  string
		testMode bool
		want     string
	}{
		{country: "CA", testMode: false, want: CanadaProductionEndpoint},
		{country: "CA", testMode: true, want: CanadaTestEndpoint},
		{country: "US", testMode: false, want: USProductionEndpoint},
		{country: "us", testMode: true, want: USTestEndpoint},
		{country: "", testMode: false, want: CanadaProductionEndpoint},
	}

	for _, tt := range tests {
		if got := ResolveEndpoint(tt.country, tt.testMode); got != tt.want {
			t.Errorf("ResolveEndpoint(%q, %v) = %q; want %q", tt.country, tt.testMode, got, tt.want)
		}
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient(ClientConfig{CountryCode: "US", TestMode: true})
	if client.timeout != DefaultRequestTimeout {
		t.Errorf("timeout = %v", client.timeout)
	}
	if client.Endpoint() != USTestEndpoint {
		t.Errorf("Endpoint = %q", client.Endpoint())
	}
}
