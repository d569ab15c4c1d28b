package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/match3rewards/payout-relay/app/models"
	"github.com/match3rewards/payout-relay/internal/pkg/payout"
	"github.com/match3rewards/payout-relay/internal/pkg/paypal"
)

// PayoutController wires the PayPal client and the payout state service into
// the HTTP surface.
type PayoutController struct {
	client *paypal.Client
	svc    *payout.Service
}

func NewPayoutController(client *paypal.Client, svc *payout.Service) *PayoutController {
	return &PayoutController{client: client, svc: svc}
}

type payoutRequestBody struct {
	PayPalEmail string  `json:"paypalEmail"`
	Amount      float64 `json:"amount"`
	Note        string  `json:"note"`
}

// HandleRequestPayout validates and submits a single-receiver payout. The
// provider's synchronous answer means "accepted", not "disbursed"; final item
// states arrive via webhooks.
func (pc *PayoutController) HandleRequestPayout(c *fiber.Ctx) error {
	var body payoutRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid JSON"})
	}

	note := strings.TrimSpace(body.Note)
	if note == "" {
		note = "Match3 payout"
	}
	req := paypal.NewPayoutRequest(body.PayPalEmail, body.Amount, pc.client.Currency, note)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := pc.client.CreatePayout(ctx, req)
	if err != nil {
		var vErr *paypal.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": vErr.Message})
		}
		if errors.Is(err, paypal.ErrTokenFetch) {
			log.Printf("payout: token fetch failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to obtain PayPal access token"})
		}
		var pErr *paypal.ProviderError
		if errors.As(err, &pErr) {
			log.Printf("payout: provider rejected batch %s: status=%d", req.BatchID, pErr.StatusCode)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success":           false,
				"message":           "PayPal rejected the payout",
				"provider_status":   pErr.StatusCode,
				"provider_response": string(pErr.Body),
			})
		}
		log.Printf("payout: submission failed for batch %s: %v", req.BatchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Payout submission failed"})
	}

	// The provider accepted the batch; losing the local record must not turn
	// the response into a failure, but it has to show up in logs.
	if err := pc.svc.RecordSubmission(ctx, payout.SubmittedItem{
		BatchID:      req.BatchID,
		SenderItemID: req.SenderItemID,
		Receiver:     req.Receiver,
		AmountValue:  paypal.FormatAmount(req.Amount),
		Currency:     req.Currency,
	}); err != nil {
		log.Printf("payout: failed to record submitted item %s: %v", req.SenderItemID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":         true,
		"message":         "Payout created",
		"batch_id":        result.BatchID,
		"sender_item_id":  req.SenderItemID,
		"paypal_response": result.Raw,
	})
}

// HandleGetPayoutItem returns the latest stored state for a payout item.
func (pc *PayoutController) HandleGetPayoutItem(c *fiber.Ctx) error {
	item, err := pc.svc.GetItem(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, payout.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("payout: item lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(item)
}

// HandlePayPalWebhook authenticates an inbound notification against the
// provider and applies payout-item state transitions. Responses to the
// provider stay short: 2xx acknowledges processed-or-ignored events, anything
// else makes PayPal retry delivery.
func (pc *PayoutController) HandlePayPalWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	if len(rawBody) == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("No body")
	}

	headers := webhookHeadersFromCtx(c)
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	result, err := pc.client.VerifyWebhookSignature(ctx, headers, rawBody)
	if err != nil {
		if errors.Is(err, paypal.ErrMissingWebhookHeader) {
			log.Printf("webhook: rejected before verification: %v", err)
			return c.Status(fiber.StatusBadRequest).SendString("Missing verification headers")
		}
		log.Printf("webhook: verification call failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Verification call failed")
	}

	if !result.Verified() {
		log.Printf("webhook: verification failed with status %q", result.Status)
		if _, stored, jerr := pc.svc.RecordWebhookEvent(ctx, payout.WebhookEventInput{
			PayloadJSON:    string(rawBody),
			SignatureValid: false,
		}); jerr != nil {
			log.Printf("webhook: failed to journal rejected event: %v", jerr)
		} else {
			_ = pc.svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("webhook verification failed"))
		}
		return c.Status(fiber.StatusBadRequest).SendString("Invalid signature")
	}

	// A valid signature does not imply well-formed content.
	event, err := paypal.ParseWebhookEvent(rawBody)
	if err != nil {
		log.Printf("webhook: invalid JSON payload after verification: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}

	created, stored, err := pc.svc.RecordWebhookEvent(ctx, payout.WebhookEventInput{
		ProviderEventID: event.ID,
		EventType:       event.EventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		// Journal loss is logged but must not break acknowledgment.
		log.Printf("webhook: failed to journal event %s: %v", event.ID, err)
		stored = nil
	}
	if stored != nil && !created {
		// Provider redelivery of an event we already handled.
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	itemEvent, recognized, cerr := paypal.ClassifyPayoutItemEvent(event)
	if !recognized {
		log.Printf("webhook: unhandled event type: %s", event.EventType)
		pc.markProcessed(ctx, stored, nil)
		return c.Status(fiber.StatusOK).SendString("OK")
	}
	if cerr != nil {
		// Payout-item event without a stable key (or with a malformed
		// resource) cannot be reconciled; drop it but acknowledge.
		log.Printf("webhook: dropping %s event: %v", event.EventType, cerr)
		pc.markProcessed(ctx, stored, cerr)
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	if _, err := pc.svc.ApplyItemEvent(ctx, itemEvent); err != nil {
		log.Printf("webhook: failed to store state for item %s: %v", itemEvent.ItemID, err)
		pc.markProcessed(ctx, stored, err)
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	log.Printf("webhook: applied %s: item=%s txn=%s", itemEvent.EventType, itemEvent.ItemID, itemEvent.TransactionID)
	pc.markProcessed(ctx, stored, nil)
	return c.Status(fiber.StatusOK).SendString("OK")
}

func (pc *PayoutController) markProcessed(ctx context.Context, stored *models.PayoutWebhookEvent, processingErr error) {
	if stored == nil {
		return
	}
	if err := pc.svc.MarkWebhookProcessed(ctx, stored.ID, processingErr); err != nil {
		log.Printf("webhook: failed to mark event %d processed: %v", stored.ID, err)
	}
}

func webhookHeadersFromCtx(c *fiber.Ctx) paypal.WebhookHeaders {
	return paypal.WebhookHeaders{
		TransmissionID:   strings.TrimSpace(c.Get("Paypal-Transmission-Id")),
		TransmissionTime: strings.TrimSpace(c.Get("Paypal-Transmission-Time")),
		TransmissionSig:  strings.TrimSpace(c.Get("Paypal-Transmission-Sig")),
		CertURL:          strings.TrimSpace(c.Get("Paypal-Cert-Url")),
		AuthAlgo:         strings.TrimSpace(c.Get("Paypal-Auth-Algo")),
	}
}
