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

const paystackBaseURL = "https://api.paystack.co"

// PaystackClient verifies charges by transaction reference.
type PaystackClient struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

func NewPaystackClient(secretKey string) *PaystackClient {
	return &PaystackClient{SecretKey: secretKey, BaseURL: paystackBaseURL}
}

func (c *PaystackClient) Provider() string { return models.ProviderPaystack }

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64   `json:"id"`
		Status    string  `json:"status"` // "success" for completed charges
		Reference string  `json:"reference"`
		Amount    float64 `json:"amount"` // kobo
		Currency  string  `json:"currency"`
	} `json:"data"`
}

// Verify calls GET /transaction/verify/{reference}.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*GatewayResult, error) {
	if reference == "" {
		return nil, fmt.Errorf("paystack: reference is required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, url.PathEscape(reference))
	body, err := gatewayGET(ctx, c.HTTPClient, endpoint, c.SecretKey)
	if err != nil {
		return nil, err
	}

	var resp paystackVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paystack: decoding verify response: %w", err)
	}

	return &GatewayResult{
		Successful:    resp.Status && resp.Data.Status == "success",
		Reference:     resp.Data.Reference,
		TransactionID: strconv.FormatInt(resp.Data.ID, 10),
		Amount:        resp.Data.Amount / 100, // kobo to naira
		Currency:      resp.Data.Currency,
		Raw:           json.RawMessage(body),
	}, nil
}
