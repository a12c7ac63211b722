package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"shortlet-server/models"

	"golang.org/x/exp/slices"
)

// GatewayResult is the one shape both payment providers are normalized
// into. Raw keeps the untouched provider payload for the audit record.
type GatewayResult struct {
	Successful    bool
	Reference     string
	TransactionID string
	Amount        float64
	Currency      string
	Raw           json.RawMessage
}

// Verifier confirms a transaction against a provider's server-side
// verification endpoint. The key is provider-specific: Flutterwave
// verifies by transaction id, Paystack by reference.
type Verifier interface {
	Provider() string
	Verify(ctx context.Context, key string) (*GatewayResult, error)
}

// successfulStatuses are the redirect status values either gateway uses
// for a completed charge. Anything else means the payment did not go
// through and verification is pointless.
var successfulStatuses = []string{"successful", "success", "completed"}

func SuccessfulStatus(s string) bool {
	return slices.Contains(successfulStatuses, strings.ToLower(strings.TrimSpace(s)))
}

// VerifierFor returns the verifier for a provider name, configured from
// the environment.
func VerifierFor(provider string) (Verifier, error) {
	switch provider {
	case models.ProviderPaystack:
		return NewPaystackClient(os.Getenv("PAYSTACK_SECRET_KEY")), nil
	case models.ProviderFlutterwave:
		return NewFlutterwaveClient(os.Getenv("FLW_SECRET_KEY")), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", provider)
	}
}

var gatewayHTTPClient = &http.Client{Timeout: 30 * time.Second}

// gatewayGET performs an authenticated GET against a provider API and
// returns the raw body for decoding. Non-2xx responses are errors.
func gatewayGET(ctx context.Context, client *http.Client, url, secretKey string) ([]byte, error) {
	if client == nil {
		client = gatewayHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway responded %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
