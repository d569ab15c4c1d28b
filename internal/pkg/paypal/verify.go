package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VerificationStatusSuccess is the only verdict PayPal returns for an
// authentic webhook transmission.
const VerificationStatusSuccess = "SUCCESS"

// ErrMissingWebhookHeader is returned when a required verification header (or
// the configured webhook id) is absent. No network call is made in that case.
var ErrMissingWebhookHeader = errors.New("paypal: missing required webhook header")

// ErrVerifyTransport marks verification round-trips that produced no usable
// provider response. Callers must never treat this as a verified webhook.
var ErrVerifyTransport = errors.New("paypal: webhook verification call failed")

// WebhookHeaders carries the PayPal transmission headers required for the
// verify-signature round-trip. Built once at the ingress boundary so header
// name variants stay out of the verification logic.
type WebhookHeaders struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

func (h WebhookHeaders) validate() error {
	missing := ""
	switch {
	case strings.TrimSpace(h.TransmissionID) == "":
		missing = "Paypal-Transmission-Id"
	case strings.TrimSpace(h.TransmissionTime) == "":
		missing = "Paypal-Transmission-Time"
	case strings.TrimSpace(h.TransmissionSig) == "":
		missing = "Paypal-Transmission-Sig"
	case strings.TrimSpace(h.CertURL) == "":
		missing = "Paypal-Cert-Url"
	case strings.TrimSpace(h.AuthAlgo) == "":
		missing = "Paypal-Auth-Algo"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrMissingWebhookHeader, missing)
	}
	return nil
}

// VerifyResult is the provider's answer to a verification round-trip.
type VerifyResult struct {
	Status string
	Raw    json.RawMessage
}

// Verified reports whether the provider confirmed the transmission. Anything
// other than the exact success sentinel counts as not verified.
func (r *VerifyResult) Verified() bool {
	return r != nil && r.Status == VerificationStatusSuccess
}

type verifyRequest struct {
	TransmissionID   string          `json:"transmission_id"`
	TransmissionTime string          `json:"transmission_time"`
	CertURL          string          `json:"cert_url"`
	AuthAlgo         string          `json:"auth_algo"`
	TransmissionSig  string          `json:"transmission_sig"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerifyWebhookSignature asks PayPal whether an inbound webhook transmission
// is authentic. Trust is never decided locally; every notification costs one
// authenticated round-trip to the provider.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers WebhookHeaders, rawBody []byte) (*VerifyResult, error) {
	if err := headers.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.WebhookID) == "" {
		return nil, fmt.Errorf("%w: PAYPAL_WEBHOOK_ID is not configured", ErrMissingWebhookHeader)
	}

	// The verify endpoint wants the decoded event object, not a string. An
	// unparseable body is sent as null and left for the provider to reject.
	event := json.RawMessage(rawBody)
	if !json.Valid(rawBody) {
		event = json.RawMessage("null")
	}

	payload, err := json.Marshal(verifyRequest{
		TransmissionID:   headers.TransmissionID,
		TransmissionTime: headers.TransmissionTime,
		CertURL:          headers.CertURL,
		AuthAlgo:         headers.AuthAlgo,
		TransmissionSig:  headers.TransmissionSig,
		WebhookID:        c.WebhookID,
		WebhookEvent:     event,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyTransport, err)
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout(c.VerifyTimeout, 20*time.Second))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/v1/notifications/verify-webhook-signature", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyTransport, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid verify response: status=%d body=%s", ErrVerifyTransport, resp.StatusCode, string(body))
	}

	return &VerifyResult{
		Status: out.VerificationStatus,
		Raw:    json.RawMessage(body),
	}, nil
}
