package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PayoutRequest describes a single-receiver disbursement. Batch id, sender
// item id and idempotency key are generated once at construction and reused
// for every submission attempt of the same request, so provider-side
// deduplication works across retries.
type PayoutRequest struct {
	Receiver string  `json:"receiver" validate:"required,email"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,len=3"`
	Note     string  `json:"note" validate:"max=165"`

	BatchID        string `json:"batch_id"`
	SenderItemID   string `json:"sender_item_id"`
	IdempotencyKey string `json:"-"`
}

// NewPayoutRequest builds a payout request with fresh provider-facing ids.
func NewPayoutRequest(receiver string, amount float64, currency, note string) *PayoutRequest {
	return &PayoutRequest{
		Receiver:       strings.TrimSpace(receiver),
		Amount:         amount,
		Currency:       strings.ToUpper(strings.TrimSpace(currency)),
		Note:           note,
		BatchID:        "batch_" + uuid.NewString(),
		SenderItemID:   "item_" + uuid.NewString(),
		IdempotencyKey: "req_" + uuid.NewString(),
	}
}

// Validate checks the request locally before any network call.
func (r *PayoutRequest) Validate(minAmount float64) error {
	v := validator.New()
	if err := v.Struct(r); err != nil {
		return &ValidationError{Message: "invalid recipient or amount"}
	}
	if r.Amount < minAmount {
		return &ValidationError{
			Message: fmt.Sprintf("minimum payout is %s %s", FormatAmount(minAmount), r.Currency),
		}
	}
	return nil
}

// ValidationError rejects a payout request before it reaches the provider.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProviderError carries the provider's non-success response verbatim.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("paypal: payout rejected: status=%d body=%s", e.StatusCode, string(e.Body))
}

// PayoutResult is the provider's synchronous answer to a payout submission.
// The batch is accepted at this point, not disbursed; final item states
// arrive later via webhooks.
type PayoutResult struct {
	BatchID string
	Raw     json.RawMessage
}

type payoutAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutItem struct {
	RecipientType string       `json:"recipient_type"`
	Amount        payoutAmount `json:"amount"`
	Receiver      string       `json:"receiver"`
	Note          string       `json:"note"`
	SenderItemID  string       `json:"sender_item_id"`
}

type senderBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject"`
	EmailMessage  string `json:"email_message"`
}

type payoutBatch struct {
	SenderBatchHeader senderBatchHeader `json:"sender_batch_header"`
	Items             []payoutItem      `json:"items"`
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

// CreatePayout validates, authenticates and submits a single-receiver payout
// batch. Any 2xx response with a JSON object body is success; everything else
// is a *ProviderError.
func (c *Client) CreatePayout(ctx context.Context, r *PayoutRequest) (*PayoutResult, error) {
	if err := r.Validate(c.MinPayout); err != nil {
		return nil, err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(payoutBatch{
		SenderBatchHeader: senderBatchHeader{
			SenderBatchID: r.BatchID,
			EmailSubject:  "You have a payout!",
			EmailMessage:  "You have received a payout from Match3 Rewards.",
		},
		Items: []payoutItem{
			{
				RecipientType: "EMAIL",
				Amount: payoutAmount{
					Value:    FormatAmount(r.Amount),
					Currency: r.Currency,
				},
				Receiver:     r.Receiver,
				Note:         r.Note,
				SenderItemID: r.SenderItemID,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout(c.PayoutTimeout, 30*time.Second))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/v1/payments/payouts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("PayPal-Request-Id", r.IdempotencyKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	var out payoutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	return &PayoutResult{
		BatchID: out.BatchHeader.PayoutBatchID,
		Raw:     json.RawMessage(body),
	}, nil
}

// FormatAmount renders an amount with exactly two decimal places, the wire
// format the payouts endpoint expects.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
