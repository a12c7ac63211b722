package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaystackVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref_9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_abc" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":4099260516,"status":"success","reference":"ref_9","amount":5000000,"currency":"NGN"}}`))
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	res, err := client.Verify(context.Background(), "ref_9")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Successful {
		t.Fatal("expected a successful verification")
	}
	if res.Reference != "ref_9" || res.TransactionID != "4099260516" {
		t.Fatalf("normalization wrong: %+v", res)
	}
	if res.Amount != 50000 {
		t.Fatalf("kobo must convert to naira, got %v", res.Amount)
	}
}

func TestPaystackVerifyFailedCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":true,"data":{"id":1,"status":"abandoned","reference":"ref_9","amount":5000000,"currency":"NGN"}}`))
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	res, err := client.Verify(context.Background(), "ref_9")
	if err != nil {
		t.Fatal(err)
	}
	if res.Successful {
		t.Fatal("an abandoned charge must not verify")
	}
}

func TestPaystackVerifyRequiresReference(t *testing.T) {
	client := NewPaystackClient("sk_test_abc")
	if _, err := client.Verify(context.Background(), ""); err == nil {
		t.Fatal("empty reference must be rejected without a network call")
	}
}

func TestFlutterwaveVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/tx_9/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"Transaction fetched successfully","data":{"id":1234567,"tx_ref":"ref_9","status":"successful","amount":50000,"currency":"NGN"}}`))
	}))
	defer server.Close()

	client := NewFlutterwaveClient("FLWSECK_TEST-abc")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	res, err := client.Verify(context.Background(), "tx_9")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Successful || res.Reference != "ref_9" || res.TransactionID != "1234567" {
		t.Fatalf("normalization wrong: %+v", res)
	}
}

func TestFlutterwaveVerifyFailedCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"id":1234567,"tx_ref":"ref_9","status":"failed","amount":50000,"currency":"NGN"}}`))
	}))
	defer server.Close()

	client := NewFlutterwaveClient("FLWSECK_TEST-abc")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	res, err := client.Verify(context.Background(), "tx_9")
	if err != nil {
		t.Fatal(err)
	}
	if res.Successful {
		t.Fatal("a failed charge must not verify even when the lookup succeeds")
	}
}

func TestGatewayNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	if _, err := client.Verify(context.Background(), "ref_missing"); err == nil {
		t.Fatal("non-2xx gateway responses must be errors")
	}
}

func TestSuccessfulStatus(t *testing.T) {
	for _, s := range []string{"successful", "success", "completed", " Successful "} {
		if !SuccessfulStatus(s) {
			t.Errorf("%q should count as successful", s)
		}
	}
	for _, s := range []string{"cancelled", "failed", "pending", ""} {
		if SuccessfulStatus(s) {
			t.Errorf("%q should not count as successful", s)
		}
	}
}
