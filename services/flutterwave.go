package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"shortlet-server/models"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveClient verifies charges by transaction id (the tx_ref from
// the redirect is not enough; only the id addresses the verification
// endpoint).
type FlutterwaveClient struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

func NewFlutterwaveClient(secretKey string) *FlutterwaveClient {
	return &FlutterwaveClient{SecretKey: secretKey, BaseURL: flutterwaveBaseURL}
}

func (c *FlutterwaveClient) Provider() string { return models.ProviderFlutterwave }

type flutterwaveVerifyResponse struct {
	Status  string `json:"status"` // "success" when the lookup itself worked
	Message string `json:"message"`
	Data    struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"` // "successful" for completed charges
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}

// Verify calls GET /transactions/{id}/verify.
func (c *FlutterwaveClient) Verify(ctx context.Context, transactionID string) (*GatewayResult, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("flutterwave: transaction id is required")
	}

	endpoint := fmt.Sprintf("%s/transactions/%s/verify", c.BaseURL, url.PathEscape(transactionID))
	body, err := gatewayGET(ctx, c.HTTPClient, endpoint, c.SecretKey)
	if err != nil {
		return nil, err
	}

	var resp flutterwaveVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("flutterwave: decoding verify response: %w", err)
	}

	return &GatewayResult{
		Successful:    resp.Status == "success" && resp.Data.Status == "successful",
		Reference:     resp.Data.TxRef,
		TransactionID: strconv.FormatInt(resp.Data.ID, 10),
		Amount:        resp.Data.Amount,
		Currency:      resp.Data.Currency,
		Raw:           json.RawMessage(body),
	}, nil
}
