package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func validHeaders() WebhookHeaders {
	return WebhookHeaders{
		TransmissionID:   "69cd13f0-d67a-11e5-baa3-778b53f4ae55",
		TransmissionTime: "2025-08-12T19:14:04Z",
		TransmissionSig:  "lmI95Jx3Y9nhR5SJWlHVIWpg4AgFk7n9bCHSRxbrd8A=",
		CertURL:          "https://api.paypal.com/v1/notifications/certs/CERT-360caa42-fca2a594-1d93a270",
		AuthAlgo:         "SHA256withRSA",
	}
}

func newVerifyServer(t *testing.T, verifyCalls *int32, status string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			fmt.Fprint(w, `{"access_token":"tok-verify","expires_in":3600}`)
		case "/v1/notifications/verify-webhook-signature":
			atomic.AddInt32(verifyCalls, 1)
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				t.Errorf("expected bearer token on verify request")
			}
			body, _ := io.ReadAll(r.Body)
			var req map[string]json.RawMessage
			if err := json.Unmarshal(body, &req); err != nil {
				t.Errorf("verify request is not JSON: %v", err)
			}
			for _, field := range []string{"transmission_id", "transmission_time", "transmission_sig", "cert_url", "auth_algo", "webhook_id", "webhook_event"} {
				if _, ok := req[field]; !ok {
					t.Errorf("verify request missing %q", field)
				}
			}
			fmt.Fprintf(w, `{"verification_status":%q}`, status)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestVerifyWebhookSignature_Success(t *testing.T) {
	var verifyCalls int32
	ts := newVerifyServer(t, &verifyCalls, "SUCCESS")
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.VerifyWebhookSignature(context.Background(), validHeaders(), []byte(`{"event_type":"PAYMENT.PAYOUTS-ITEM.SUCCEEDED"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified() {
		t.Fatalf("expected verified result, got status %q", result.Status)
	}
	if verifyCalls != 1 {
		t.Fatalf("expected exactly 1 verification round-trip, got %d", verifyCalls)
	}
}

func TestVerifyWebhookSignature_Failure(t *testing.T) {
	var verifyCalls int32
	ts := newVerifyServer(t, &verifyCalls, "FAILURE")
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.VerifyWebhookSignature(context.Background(), validHeaders(), []byte(`{"event_type":"PAYMENT.PAYOUTS-ITEM.SUCCEEDED"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Verified() {
		t.Fatalf("expected unverified result")
	}
}

func TestVerifyWebhookSignature_MissingHeaderFailsBeforeNetwork(t *testing.T) {
	var verifyCalls int32
	ts := newVerifyServer(t, &verifyCalls, "SUCCESS")
	defer ts.Close()

	c := newTestClient(ts.URL)

	headerCases := []func(h *WebhookHeaders){
		func(h *WebhookHeaders) { h.TransmissionID = "" },
		func(h *WebhookHeaders) { h.TransmissionTime = "" },
		func(h *WebhookHeaders) { h.TransmissionSig = "" },
		func(h *WebhookHeaders) { h.CertURL = "" },
		func(h *WebhookHeaders) { h.AuthAlgo = "" },
	}
	for i, blank := range headerCases {
		h := validHeaders()
		blank(&h)
		_, err := c.VerifyWebhookSignature(context.Background(), h, []byte(`{}`))
		if !errors.Is(err, ErrMissingWebhookHeader) {
			t.Fatalf("case %d: expected ErrMissingWebhookHeader, got %v", i, err)
		}
	}

	c.WebhookID = ""
	if _, err := c.VerifyWebhookSignature(context.Background(), validHeaders(), []byte(`{}`)); !errors.Is(err, ErrMissingWebhookHeader) {
		t.Fatalf("expected ErrMissingWebhookHeader for unset webhook id")
	}

	if verifyCalls != 0 {
		t.Fatalf("expected zero network calls, got %d", verifyCalls)
	}
}

func TestVerifyWebhookSignature_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // nothing listening anymore

	c := newTestClient(ts.URL)
	// Seed a valid token so only the verify round-trip hits the dead server.
	_ = c.Tokens.Save(CachedToken{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).Unix()})

	_, err := c.VerifyWebhookSignature(context.Background(), validHeaders(), []byte(`{}`))
	if !errors.Is(err, ErrVerifyTransport) {
		t.Fatalf("expected ErrVerifyTransport, got %v", err)
	}
}

func TestVerifyWebhookSignature_NonObjectResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
			return
		}
		fmt.Fprint(w, `not json at all`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	if _, err := c.VerifyWebhookSignature(context.Background(), validHeaders(), []byte(`{}`)); !errors.Is(err, ErrVerifyTransport) {
		t.Fatalf("expected ErrVerifyTransport for non-object response, got %v", err)
	}
}
