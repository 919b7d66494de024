package moneris

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"donation-checkout-api/models"
)

const (
	CanadaProductionEndpoint = "https://www3.moneris.com/gateway2/servlet/MpgRequest"
	CanadaTestEndpoint       = "https://esqa.moneris.com/gateway2/servlet/MpgRequest"
	USProductionEndpoint     = "https://esplus.moneris.com/gateway_us/servlet/MpgRequest"
	USTestEndpoint           = "https://esplusqa.moneris.com/gateway_us/servlet/MpgRequest"

	DefaultRequestTimeout = 30 * time.Second
	userAgent             = "donation-checkout-api/moneris"
)

type ClientConfig struct {
	StoreID     string
	APIToken    string
	TestMode    bool
	CountryCode string
	Timeout     time.Duration
	// Endpoint overrides the endpoint derived from CountryCode and TestMode.
	Endpoint string
}

type Client struct {
	storeID  string
	apiToken string
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = ResolveEndpoint(cfg.CountryCode, cfg.TestMode)
	}

	return &Client{
		storeID:  cfg.StoreID,
		apiToken: cfg.APIToken,
		endpoint: endpoint,
		timeout:  timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// ResolveEndpoint picks the gateway host from the processing country and the
// test mode flag. Anything other than US processes through Canada.
func ResolveEndpoint(countryCode string, testMode bool) string {
	if strings.EqualFold(strings.TrimSpace(countryCode), "US") {
		if testMode {
			return USTestEndpoint
		}
		return USProductionEndpoint
	}
	if testMode {
		return CanadaTestEndpoint
	}
	return CanadaProductionEndpoint
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends one purchase to the gateway. There is no retry; any transport,
// HTTP or decoding failure is returned as an error.
func (c *Client) Submit(ctx context.Context, req *TransactionRequest) (*models.GatewayResponse, error) {
	startTime := time.Now()

	if req == nil || req.Type != TransactionTypePurchase {
		return nil, fmt.Errorf("unsupported transaction type")
	}

	payload, err := xml.Marshal(mpgRequest{
		StoreID:  c.storeID,
		APIToken: c.apiToken,
		Purchase: req,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}
	body := append([]byte(xml.Header), payload...)

	log.Printf("Sending purchase request to Moneris for order: %s", req.OrderID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	log.Printf("Moneris response received in %v for order: %s", time.Since(startTime), req.OrderID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected HTTP status %d from gateway", resp.StatusCode)
	}

	return decodeResponse(respBody)
}

func decodeResponse(body []byte) (*models.GatewayResponse, error) {
	cleanBody := bytes.TrimPrefix(body, []byte("\ufeff"))

	var response mpgResponse
	if err := xml.Unmarshal(cleanBody, &response); err != nil {
		return nil, fmt.Errorf("error decoding response: %v", err)
	}

	r := response.Receipt
	result := &models.GatewayResponse{
		Complete:      parseFlag(r.Complete),
		TransactionID: cleanField(r.TransID),
		AuthCode:      cleanField(r.AuthCode),
		Message:       strings.TrimSpace(r.Message),
		ReceiptID:     cleanField(r.ReceiptID),
		RecurSuccess:  parseFlag(r.RecurSuccess),
		TimedOut:      parseFlag(r.TimedOut),
	}

	if code, err := strconv.Atoi(strings.TrimSpace(r.ResponseCode)); err == nil {
		result.ResponseCode = code
		result.CodePresent = true
	}

	return result, nil
}

// cleanField maps the gateway's literal "null" placeholder to an empty value.
func cleanField(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "null") {
		return ""
	}
	return value
}

func parseFlag(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
